package ledger

import (
	"sort"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
)

// Observer receives a copy of an order after every change.
// Observers run while the ledger lock is held and must not call back into the ledger.
type Observer func(order types.Order)

// Ledger is the in-memory record of submitted orders. All methods are safe for concurrent use
// and return copies.
type Ledger struct {
	mu         sync.RWMutex
	orders     map[string]types.Order
	byStrategy map[string][]string
	observers  []Observer
	now        func() time.Time
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		orders:     make(map[string]types.Order),
		byStrategy: make(map[string][]string),
		now:        time.Now,
	}
}

// OnChange registers an observer for every add and update.
func (l *Ledger) OnChange(fn Observer) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.observers = append(l.observers, fn)
}

// Add stores order by id and appends it to its strategy's list. Callers must pass a fresh id.
func (l *Ledger) Add(order types.Order) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.orders[order.ID]; !exists {
		l.byStrategy[order.StrategyID] = append(l.byStrategy[order.StrategyID], order.ID)
	}

	l.orders[order.ID] = order
	l.notify(order)
}

// Get returns the order with the given id.
func (l *Ledger) Get(id string) (types.Order, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	order, ok := l.orders[id]

	return order, ok
}

// ByStrategy returns a strategy's orders in insertion order.
func (l *Ledger) ByStrategy(strategyID string) []types.Order {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := l.byStrategy[strategyID]
	out := make([]types.Order, 0, len(ids))

	for _, id := range ids {
		out = append(out, l.orders[id])
	}

	return out
}

// Pending returns every order whose status is pending, oldest first.
func (l *Ledger) Pending() []types.Order {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]types.Order, 0)

	for _, order := range l.orders {
		if order.Status == types.OrderStatusPending {
			out = append(out, order)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out
}

// UpdateStatus sets the status of a known order. Moving to filled stamps FilledAt.
func (l *Ledger) UpdateStatus(id string, status types.OrderStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()

	order, ok := l.orders[id]
	if !ok {
		return
	}

	order.Status = status
	if status == types.OrderStatusFilled && order.FilledAt.IsNone() {
		order.FilledAt = optional.Some(l.now())
	}

	l.orders[id] = order
	l.notify(order)
}

// Transition moves the order from one status to another and reports whether it did.
// Nothing changes when the order is missing or no longer in the from status.
func (l *Ledger) Transition(id string, from, to types.OrderStatus) (types.Order, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	order, ok := l.orders[id]
	if !ok || order.Status != from || from == to {
		return types.Order{}, false
	}

	order.Status = to
	if to == types.OrderStatusFilled && order.FilledAt.IsNone() {
		order.FilledAt = optional.Some(l.now())
	}

	l.orders[id] = order
	l.notify(order)

	return order, true
}

// UpdateFill records fill progress and promotes a live order to filled once fully filled.
// It reports whether the order was promoted. A terminal status, such as a local cancel, is kept.
func (l *Ledger) UpdateFill(id string, filledQuantity, filledPrice float64) (types.Order, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	order, ok := l.orders[id]
	if !ok {
		return types.Order{}, false
	}

	order.FilledQuantity = optional.Some(filledQuantity)
	order.FilledPrice = optional.Some(filledPrice)

	promoted := false
	if filledQuantity >= order.Quantity && !order.Status.IsTerminal() {
		order.Status = types.OrderStatusFilled
		promoted = true

		if order.FilledAt.IsNone() {
			order.FilledAt = optional.Some(l.now())
		}
	}

	l.orders[id] = order
	l.notify(order)

	return order, promoted
}

// Cancel marks the order cancelled regardless of its current status.
// This is local bookkeeping only; it does not talk to the venue.
func (l *Ledger) Cancel(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	order, ok := l.orders[id]
	if !ok {
		return
	}

	order.Status = types.OrderStatusCancelled
	l.orders[id] = order
	l.notify(order)
}

// History returns all orders newest first, truncated to limit when limit > 0.
func (l *Ledger) History(limit int) []types.Order {
	out := l.All()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out
}

// All returns every order in no particular order.
func (l *Ledger) All() []types.Order {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]types.Order, 0, len(l.orders))
	for _, order := range l.orders {
		out = append(out, order)
	}

	return out
}

// Len returns the number of recorded orders.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.orders)
}

func (l *Ledger) notify(order types.Order) {
	for _, fn := range l.observers {
		fn(order)
	}
}
