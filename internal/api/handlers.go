package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rxtech-lab/argo-autotrader/internal/audit"
	"github.com/rxtech-lab/argo-autotrader/internal/parser"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/internal/version"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Running    bool   `json:"running"`
	Version    string `json:"version"`
	Strategies int    `json:"strategies"`
	Pending    int    `json:"pendingOrders"`
}

// AddStrategyResponse is returned by POST /strategies.
type AddStrategyResponse struct {
	ID string `json:"id"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, StatusResponse{
		Running:    s.engine.IsRunning(),
		Version:    version.GetVersion(),
		Strategies: len(s.engine.GetActiveStrategies()),
		Pending:    len(s.engine.GetPendingOrders()),
	})
}

func (s *Server) handleListStrategies(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.GetActiveStrategies())
}

// handleAddStrategy parses the raw body in the format named by ?format= (json when absent).
func (s *Server) handleAddStrategy(w http.ResponseWriter, r *http.Request) {
	format := parser.Format(r.URL.Query().Get("format"))
	if format == "" {
		format = parser.FormatJSON
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxStrategyBytes))
	if err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeMalformedInput, "failed to read strategy body", err))

		return
	}

	id, err := s.engine.AddStrategy(string(body), format)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusCreated, AddStrategyResponse{ID: id})
}

func (s *Server) handleGetStrategy(w http.ResponseWriter, r *http.Request) {
	strategy, err := s.strategy(r)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, strategy)
}

func (s *Server) handleActivateStrategy(w http.ResponseWriter, r *http.Request) {
	s.setStrategyStatus(w, r, s.engine.ActivateStrategy)
}

func (s *Server) handleDeactivateStrategy(w http.ResponseWriter, r *http.Request) {
	s.setStrategyStatus(w, r, s.engine.DeactivateStrategy)
}

func (s *Server) setStrategyStatus(w http.ResponseWriter, r *http.Request, apply func(string) error) {
	id := mux.Vars(r)["id"]

	if err := apply(id); err != nil {
		s.writeError(w, err)

		return
	}

	strategy, _ := s.engine.GetStrategyByID(id)
	s.writeJSON(w, http.StatusOK, strategy)
}

func (s *Server) handleStrategyOrders(w http.ResponseWriter, r *http.Request) {
	strategy, err := s.strategy(r)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, nonNil(s.engine.GetOrdersByStrategy(strategy.ID)))
}

func (s *Server) strategy(r *http.Request) (types.Strategy, error) {
	id := mux.Vars(r)["id"]

	strategy, ok := s.engine.GetStrategyByID(id)
	if !ok {
		return types.Strategy{}, errors.Newf(errors.ErrCodeStrategyNotFound, "strategy not found: %s", id)
	}

	return strategy, nil
}

// handleOrderHistory returns the newest ?limit= orders, or all of them.
func (s *Server) handleOrderHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, nonNil(s.engine.GetOrderHistory(limit)))
}

func (s *Server) handlePendingOrders(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, nonNil(s.engine.GetPendingOrders()))
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	order, ok := s.engine.GetOrder(id)
	if !ok {
		s.writeError(w, errors.Newf(errors.ErrCodeVenueOrderNotFound, "order not found: %s", id))

		return
	}

	s.writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := s.engine.CancelOrder(r.Context(), id); err != nil {
		s.writeError(w, err)

		return
	}

	order, _ := s.engine.GetOrder(id)
	s.writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	level := types.LogLevel(r.URL.Query().Get("level"))
	switch level {
	case "", types.LogLevelInfo, types.LogLevelWarning, types.LogLevelError:
	default:
		s.writeError(w, invalidParameter("level", string(level)))

		return
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, nonNil(s.engine.AuditLog().Query(level, limit)))
}

func (s *Server) handleExportLogs(w http.ResponseWriter, r *http.Request) {
	format := audit.ExportFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = audit.ExportJSON
	}

	out, err := s.engine.AuditLog().Export(format)
	if err != nil {
		s.writeError(w, err)

		return
	}

	contentType := "application/json"
	if format == audit.ExportCSV {
		contentType = "text/csv"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=audit."+string(format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := s.engine.GetAccountBalance(r.Context())
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, balances)
}

func (s *Server) handleOrderBook(w http.ResponseWriter, r *http.Request) {
	book, err := s.engine.GetOrderBook(r.Context(), mux.Vars(r)["symbol"])
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, book)
}

// queryInt reads an optional non-negative integer query parameter. Absent means 0.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, invalidParameter(name, raw)
	}

	return n, nil
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}

	return items
}
