// Package api exposes the engine's strategies, orders, audit log and account over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rxtech-lab/argo-autotrader/internal/engine"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"go.uber.org/zap"
)

const (
	// MaxStrategyBytes bounds the body of POST /strategies.
	MaxStrategyBytes  = 1 << 20
	readHeaderTimeout = 10 * time.Second
)

// Server serves the HTTP API for one engine.
type Server struct {
	engine engine.Engine
	log    *logger.Logger
	router *mux.Router

	httpServer *http.Server
	listener   net.Listener
}

// NewServer creates a server for eng. Call Start to listen, or mount Handler elsewhere.
func NewServer(eng engine.Engine, log *logger.Logger) *Server {
	if log == nil {
		log = logger.NewNopLogger()
	}

	s := &Server{
		engine: eng,
		log:    log.Named("api"),
		router: mux.NewRouter(),
	}
	s.routes()

	return s
}

func (s *Server) routes() {
	r := s.router

	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)

	r.HandleFunc("/strategies", s.handleListStrategies).Methods(http.MethodGet)
	r.HandleFunc("/strategies", s.handleAddStrategy).Methods(http.MethodPost)
	r.HandleFunc("/strategies/{id}", s.handleGetStrategy).Methods(http.MethodGet)
	r.HandleFunc("/strategies/{id}/activate", s.handleActivateStrategy).Methods(http.MethodPost)
	r.HandleFunc("/strategies/{id}/deactivate", s.handleDeactivateStrategy).Methods(http.MethodPost)
	r.HandleFunc("/strategies/{id}/orders", s.handleStrategyOrders).Methods(http.MethodGet)

	// /orders/pending must be registered before /orders/{id}.
	r.HandleFunc("/orders", s.handleOrderHistory).Methods(http.MethodGet)
	r.HandleFunc("/orders/pending", s.handlePendingOrders).Methods(http.MethodGet)
	r.HandleFunc("/orders/{id}", s.handleGetOrder).Methods(http.MethodGet)
	r.HandleFunc("/orders/{id}/cancel", s.handleCancelOrder).Methods(http.MethodPost)

	r.HandleFunc("/logs", s.handleLogs).Methods(http.MethodGet)
	r.HandleFunc("/logs/export", s.handleExportLogs).Methods(http.MethodGet)

	r.HandleFunc("/balances", s.handleBalances).Methods(http.MethodGet)
	r.HandleFunc("/orderbook/{symbol}", s.handleOrderBook).Methods(http.MethodGet)
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on address and serves in the background.
func (s *Server) Start(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to listen on %s", address)
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("HTTP server stopped", zap.Error(err))
		}
	}()

	s.log.Info("HTTP API listening", zap.String("address", listener.Addr().String()))

	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Code  int    `json:"code"`
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Warn("Failed to write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("Request failed", zap.Error(err))
	}

	s.writeJSON(w, status, errorResponse{
		Code:  int(errors.GetCode(err)),
		Error: err.Error(),
	})
}

// statusFor maps an error code to an HTTP status.
func statusFor(err error) int {
	if errors.IsParseError(err) {
		return http.StatusBadRequest
	}

	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidParameter:
		return http.StatusBadRequest
	case errors.ErrCodeStrategyNotFound, errors.ErrCodeVenueOrderNotFound:
		return http.StatusNotFound
	case errors.ErrCodeNotConfigured:
		return http.StatusServiceUnavailable
	case errors.ErrCodeGatewayTransient, errors.ErrCodeGatewayExhausted:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func invalidParameter(name, value string) error {
	return errors.Newf(errors.ErrCodeInvalidParameter, "invalid %s %q", name, value)
}
