// Package mockserver provides a mock exchange for end-to-end tests.
// It serves the subset of the Binance spot REST API the gateway uses and a JSON tick feed over WebSocket.
package mockserver

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rxtech-lab/argo-autotrader/internal/marketdata"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
)

// Binance order statuses reported by the server.
const (
	StatusNew      = "NEW"
	StatusFilled   = "FILLED"
	StatusCanceled = "CANCELED"
)

// Order is an order held by the server.
type Order struct {
	OrderID       int64
	ClientOrderID string
	Symbol        string
	Side          string
	Type          string
	TimeInForce   string
	Quantity      float64
	Price         float64
	Status        string
	ExecutedQty   float64
	QuoteQty      float64
}

// Balance is a single asset balance.
type Balance struct {
	Free   float64
	Locked float64
}

// MockBinanceServer is an in-memory exchange.
type MockBinanceServer struct {
	mu sync.RWMutex

	httpServer *http.Server
	listener   net.Listener
	upgrader   websocket.Upgrader

	orders     map[int64]*Order
	orderIDSeq int64
	balances   map[string]*Balance
	prices     map[string]float64
	books      map[string]types.OrderBook
	rejectNext int

	wsMu    sync.Mutex
	streams map[*websocket.Conn]*stream
}

type stream struct {
	mu      sync.Mutex
	symbols map[string]bool
}

// NewMockBinanceServer creates a stopped server with the given balances.
func NewMockBinanceServer(balances map[string]float64) *MockBinanceServer {
	s := &MockBinanceServer{
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		orders:   make(map[int64]*Order),
		balances: make(map[string]*Balance),
		prices:   make(map[string]float64),
		books:    make(map[string]types.OrderBook),
		streams:  make(map[*websocket.Conn]*stream),
	}

	for asset, free := range balances {
		s.balances[asset] = &Balance{Free: free}
	}

	return s
}

// Start listens on address (":0" picks a free port) and serves in the background.
func (s *MockBinanceServer) Start(address string) error {
	if address == "" {
		address = "127.0.0.1:0"
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	s.listener = listener

	router := mux.NewRouter()
	router.HandleFunc("/api/v3/order", s.handleCreateOrder).Methods(http.MethodPost)
	router.HandleFunc("/api/v3/order", s.handleCancelOrder).Methods(http.MethodDelete)
	router.HandleFunc("/api/v3/order", s.handleGetOrder).Methods(http.MethodGet)
	router.HandleFunc("/api/v3/account", s.handleAccount).Methods(http.MethodGet)
	router.HandleFunc("/api/v3/depth", s.handleDepth).Methods(http.MethodGet)
	router.HandleFunc("/ws/ticks", s.handleTicks)

	s.httpServer = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			fmt.Printf("HTTP server error: %v\n", err)
		}
	}()

	return nil
}

// Stop closes every stream and shuts the server down.
func (s *MockBinanceServer) Stop() error {
	s.wsMu.Lock()
	for conn := range s.streams {
		_ = conn.Close()
	}
	s.streams = make(map[*websocket.Conn]*stream)
	s.wsMu.Unlock()

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Close()
}

// BaseURL is the REST endpoint to put in the venue config.
func (s *MockBinanceServer) BaseURL() string {
	return "http://" + s.listener.Addr().String()
}

// TicksURL is the endpoint for a websocket market data source.
func (s *MockBinanceServer) TicksURL() string {
	return "ws://" + s.listener.Addr().String() + "/ws/ticks"
}

// SetPrice sets the price market orders fill at.
func (s *MockBinanceServer) SetPrice(symbol string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prices[symbol] = price
}

// SetOrderBook sets the depth returned for book.Symbol.
func (s *MockBinanceServer) SetOrderBook(book types.OrderBook) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.books[book.Symbol] = book
}

// RejectNext makes the next n order submissions fail with an API error.
func (s *MockBinanceServer) RejectNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rejectNext = n
}

// GetOrder returns a copy of the order, or nil.
func (s *MockBinanceServer) GetOrder(orderID int64) *Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[orderID]
	if !ok {
		return nil
	}

	cp := *o

	return &cp
}

// Orders returns how many orders the server accepted.
func (s *MockBinanceServer) Orders() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.orders)
}

// Fill fills a resting order at its limit price.
func (s *MockBinanceServer) Fill(orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return fmt.Errorf("unknown order %d", orderID)
	}

	if o.Status != StatusNew {
		return fmt.Errorf("order %d is %s", orderID, o.Status)
	}

	o.Status = StatusFilled
	o.ExecutedQty = o.Quantity
	o.QuoteQty = o.Quantity * o.Price

	return nil
}

// Broadcast sends tick to every stream subscribed to its symbol and returns how many received it.
func (s *MockBinanceServer) Broadcast(tick types.MarketData) int {
	payload, err := json.Marshal(tick)
	if err != nil {
		return 0
	}

	s.wsMu.Lock()
	defer s.wsMu.Unlock()

	sent := 0

	for conn, st := range s.streams {
		st.mu.Lock()
		subscribed := st.symbols[strings.ToUpper(tick.Symbol)]
		st.mu.Unlock()

		if !subscribed {
			continue
		}

		if err := conn.WriteMessage(websocket.TextMessage, payload); err == nil {
			sent++
		}
	}

	return sent
}

// Subscribers returns how many open streams are subscribed to symbol.
func (s *MockBinanceServer) Subscribers(symbol string) int {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()

	n := 0

	for _, st := range s.streams {
		st.mu.Lock()
		if st.symbols[strings.ToUpper(symbol)] {
			n++
		}
		st.mu.Unlock()
	}

	return n
}

func (s *MockBinanceServer) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeAPIError(w, http.StatusBadRequest, -1102, "failed to parse form")

		return
	}

	symbol := r.FormValue("symbol")
	side := r.FormValue("side")
	orderType := r.FormValue("type")

	quantity, err := strconv.ParseFloat(r.FormValue("quantity"), 64)
	if symbol == "" || side == "" || orderType == "" || err != nil {
		writeAPIError(w, http.StatusBadRequest, -1102, "mandatory parameter missing or malformed")

		return
	}

	var price float64
	if raw := r.FormValue("price"); raw != "" {
		if price, err = strconv.ParseFloat(raw, 64); err != nil {
			writeAPIError(w, http.StatusBadRequest, -1100, "illegal characters in price")

			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rejectNext > 0 {
		s.rejectNext--
		writeAPIError(w, http.StatusServiceUnavailable, -1001, "internal error; unable to process your request")

		return
	}

	s.orderIDSeq++
	order := &Order{
		OrderID:       s.orderIDSeq,
		ClientOrderID: r.FormValue("newClientOrderId"),
		Symbol:        symbol,
		Side:          side,
		Type:          orderType,
		TimeInForce:   r.FormValue("timeInForce"),
		Quantity:      quantity,
		Price:         price,
		Status:        StatusNew,
	}

	if orderType == "MARKET" {
		current, ok := s.prices[symbol]
		if !ok {
			writeAPIError(w, http.StatusBadRequest, -1121, "invalid symbol")

			return
		}

		order.Status = StatusFilled
		order.ExecutedQty = quantity
		order.QuoteQty = quantity * current
	}

	s.orders[order.OrderID] = order

	writeJSON(w, orderResponse(order))
}

func (s *MockBinanceServer) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.lookupLocked(w, r)
	if !ok {
		return
	}

	if order.Status != StatusNew {
		writeAPIError(w, http.StatusBadRequest, -2011, "unknown order sent")

		return
	}

	order.Status = StatusCanceled

	writeJSON(w, orderResponse(order))
}

func (s *MockBinanceServer) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.lookupLocked(w, r)
	if !ok {
		return
	}

	writeJSON(w, orderResponse(order))
}

func (s *MockBinanceServer) lookupLocked(w http.ResponseWriter, r *http.Request) (*Order, bool) {
	id, err := strconv.ParseInt(r.FormValue("orderId"), 10, 64)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, -1102, "orderId is required")

		return nil, false
	}

	order, ok := s.orders[id]
	if !ok || order.Symbol != r.FormValue("symbol") {
		writeAPIError(w, http.StatusBadRequest, -2013, "order does not exist")

		return nil, false
	}

	return order, true
}

func (s *MockBinanceServer) handleAccount(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	balances := make([]map[string]string, 0, len(s.balances))
	for asset, b := range s.balances {
		balances = append(balances, map[string]string{
			"asset":  asset,
			"free":   formatFloat(b.Free),
			"locked": formatFloat(b.Locked),
		})
	}

	writeJSON(w, map[string]any{
		"canTrade":    true,
		"accountType": "SPOT",
		"balances":    balances,
	})
}

func (s *MockBinanceServer) handleDepth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	book := s.books[r.FormValue("symbol")]
	s.mu.RUnlock()

	writeJSON(w, map[string]any{
		"lastUpdateId": 1,
		"bids":         levels(book.Bids),
		"asks":         levels(book.Asks),
	})
}

// handleTicks upgrades to a websocket that streams JSON ticks for the symbols the client subscribes to.
func (s *MockBinanceServer) handleTicks(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	st := &stream{symbols: make(map[string]bool)}

	s.wsMu.Lock()
	s.streams[conn] = st
	s.wsMu.Unlock()

	defer func() {
		s.wsMu.Lock()
		delete(s.streams, conn)
		s.wsMu.Unlock()

		_ = conn.Close()
	}()

	for {
		var msg marketdata.ControlMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		st.mu.Lock()
		for _, symbol := range msg.Symbols {
			switch msg.Type {
			case "subscribe":
				st.symbols[strings.ToUpper(symbol)] = true
			case "unsubscribe":
				delete(st.symbols, strings.ToUpper(symbol))
			}
		}
		st.mu.Unlock()
	}
}

func orderResponse(o *Order) map[string]any {
	return map[string]any{
		"symbol":              o.Symbol,
		"orderId":             o.OrderID,
		"orderListId":         -1,
		"clientOrderId":       o.ClientOrderID,
		"transactTime":        time.Now().UnixMilli(),
		"price":               formatFloat(o.Price),
		"origQty":             formatFloat(o.Quantity),
		"executedQty":         formatFloat(o.ExecutedQty),
		"cummulativeQuoteQty": formatFloat(o.QuoteQty),
		"status":              o.Status,
		"timeInForce":         o.TimeInForce,
		"type":                o.Type,
		"side":                o.Side,
	}
}

func levels(in []types.PriceLevel) [][]string {
	out := make([][]string, 0, len(in))
	for _, l := range in {
		out = append(out, []string{formatFloat(l.Price), formatFloat(l.Quantity)})
	}

	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 8, 64)
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

// writeAPIError writes an error in Binance's {"code","msg"} shape.
func writeAPIError(w http.ResponseWriter, status int, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"code": code, "msg": msg})
}
