package testhelper

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/gateway"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
)

// Venue operation names used to script failures and count calls.
const (
	OpPlaceOrder        = "PlaceOrder"
	OpCancelOrder       = "CancelOrder"
	OpGetOrderStatus    = "GetOrderStatus"
	OpGetAccountBalance = "GetAccountBalance"
	OpGetOrderBook      = "GetOrderBook"
)

type venueOrder struct {
	order  types.Order
	update types.OrderUpdate
}

// MockVenue implements gateway.Venue in memory. Orders rest as pending until Fill or Cancel.
type MockVenue struct {
	mu sync.Mutex

	orders   map[string]*venueOrder
	placed   []types.Order
	balances types.Balances
	books    map[string]types.OrderBook
	sequence int64

	failures map[string]int
	calls    map[string]int

	// MaxLatency adds a random delay in [0, MaxLatency) to every call.
	MaxLatency time.Duration
	rng        *rand.Rand

	failAll bool
}

// NewMockVenue creates a venue with the given balances.
func NewMockVenue(balances types.Balances) *MockVenue {
	if balances == nil {
		balances = types.Balances{}
	}

	return &MockVenue{
		orders:   make(map[string]*venueOrder),
		balances: balances,
		books:    make(map[string]types.OrderBook),
		failures: make(map[string]int),
		calls:    make(map[string]int),
		rng:      rand.New(rand.NewSource(1)),
	}
}

// FailNext makes the next n calls of op fail.
func (m *MockVenue) FailNext(op string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failures[op] += n
}

// SetFailAll makes every call fail until cleared.
func (m *MockVenue) SetFailAll(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failAll = fail
}

// Calls returns how many times op was attempted.
func (m *MockVenue) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.calls[op]
}

// Placed returns every order the venue accepted, in order.
func (m *MockVenue) Placed() []types.Order {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]types.Order, len(m.placed))
	copy(out, m.placed)

	return out
}

// SetOrderBook sets the book returned for symbol.
func (m *MockVenue) SetOrderBook(book types.OrderBook) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.books[book.Symbol] = book
}

// Fill marks an accepted order filled at price.
func (m *MockVenue) Fill(exchangeOrderID string, price float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[exchangeOrderID]
	if !ok {
		return fmt.Errorf("unknown order %s", exchangeOrderID)
	}

	o.update = types.OrderUpdate{
		Status:         types.OrderStatusFilled,
		FilledQuantity: optional.Some(o.order.Quantity),
		FilledPrice:    optional.Some(price),
	}

	return nil
}

// begin records the call, applies latency and returns a scripted failure if one is due.
func (m *MockVenue) begin(ctx context.Context, op string) error {
	m.mu.Lock()
	m.calls[op]++

	var delay time.Duration
	if m.MaxLatency > 0 {
		delay = time.Duration(m.rng.Int63n(int64(m.MaxLatency)))
	}

	fail := m.failAll
	if m.failures[op] > 0 {
		m.failures[op]--
		fail = true
	}
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	if fail {
		return fmt.Errorf("%s failed: venue unavailable", op)
	}

	return nil
}

// PlaceOrder implements gateway.Venue.
func (m *MockVenue) PlaceOrder(ctx context.Context, order types.Order) (string, error) {
	if err := m.begin(ctx, OpPlaceOrder); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sequence++
	id := order.Symbol + ":" + strconv.FormatInt(m.sequence, 10)
	m.orders[id] = &venueOrder{
		order:  order,
		update: types.OrderUpdate{Status: types.OrderStatusPending},
	}
	m.placed = append(m.placed, order)

	return id, nil
}

// CancelOrder implements gateway.Venue.
func (m *MockVenue) CancelOrder(ctx context.Context, exchangeOrderID string) (bool, error) {
	if err := m.begin(ctx, OpCancelOrder); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[exchangeOrderID]
	if !ok || o.update.Status != types.OrderStatusPending {
		return false, nil
	}

	o.update.Status = types.OrderStatusCancelled

	return true, nil
}

// GetOrderStatus implements gateway.Venue.
func (m *MockVenue) GetOrderStatus(ctx context.Context, exchangeOrderID string) (types.OrderUpdate, error) {
	if err := m.begin(ctx, OpGetOrderStatus); err != nil {
		return types.OrderUpdate{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[exchangeOrderID]
	if !ok {
		return types.OrderUpdate{}, fmt.Errorf("unknown order %s", exchangeOrderID)
	}

	return o.update, nil
}

// GetAccountBalance implements gateway.Venue.
func (m *MockVenue) GetAccountBalance(ctx context.Context) (types.Balances, error) {
	if err := m.begin(ctx, OpGetAccountBalance); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(types.Balances, len(m.balances))
	for asset, amount := range m.balances {
		out[asset] = amount
	}

	return out, nil
}

// GetOrderBook implements gateway.Venue.
func (m *MockVenue) GetOrderBook(ctx context.Context, symbol string) (types.OrderBook, error) {
	if err := m.begin(ctx, OpGetOrderBook); err != nil {
		return types.OrderBook{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	book, ok := m.books[symbol]
	if !ok {
		return types.OrderBook{Symbol: symbol}, nil
	}

	return book, nil
}

var _ gateway.Venue = (*MockVenue)(nil)
