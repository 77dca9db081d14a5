package marketdata

import (
	"context"
	"slices"
	"sync"

	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"go.uber.org/zap"
)

// Handler consumes ticks. Handlers are called on the source's goroutine and should return quickly.
type Handler func(tick types.MarketData)

// Subscription is returned by Listen. Cancel removes the handler; it is safe to call more than once.
type Subscription interface {
	Cancel()
}

// Source is a live market-data feed.
type Source interface {
	// Subscribe adds symbol to the feed. Subscribing twice is a no-op.
	Subscribe(symbol string) error
	// Unsubscribe removes symbol from the feed.
	Unsubscribe(symbol string) error
	// Start opens the feed. It returns once the feed is running; ctx bounds its lifetime.
	Start(ctx context.Context) error
	// Stop closes the feed and waits for its goroutines.
	Stop() error
	// Listen registers a tick handler.
	Listen(handler Handler) Subscription
}

// Broadcaster fans ticks out to registered handlers. Sources embed it to implement Listen.
type Broadcaster struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers []registeredHandler
	log      *logger.Logger
}

type registeredHandler struct {
	id uint64
	fn Handler
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster(log *logger.Logger) *Broadcaster {
	return &Broadcaster{log: log}
}

// Listen registers handler and returns its cancellation token.
func (b *Broadcaster) Listen(handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers = append(b.handlers, registeredHandler{id: id, fn: handler})

	return &subscription{cancel: func() { b.remove(id) }}
}

func (b *Broadcaster) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers = slices.DeleteFunc(b.handlers, func(h registeredHandler) bool {
		return h.id == id
	})
}

// Listeners returns the number of registered handlers.
func (b *Broadcaster) Listeners() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.handlers)
}

// Emit delivers tick to every handler in registration order. A panicking handler is logged and skipped.
func (b *Broadcaster) Emit(tick types.MarketData) {
	b.mu.RLock()
	handlers := slices.Clone(b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(h.fn, tick)
	}
}

func (b *Broadcaster) deliver(fn Handler, tick types.MarketData) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("Market data handler panicked",
				zap.String("symbol", tick.Symbol),
				zap.Any("panic", r),
			)
		}
	}()

	fn(tick)
}

type subscription struct {
	once   sync.Once
	cancel func()
}

func (s *subscription) Cancel() {
	s.once.Do(s.cancel)
}

// symbolSet tracks subscribed symbols.
type symbolSet struct {
	mu      sync.RWMutex
	symbols map[string]struct{}
}

func newSymbolSet() *symbolSet {
	return &symbolSet{symbols: make(map[string]struct{})}
}

// add reports whether symbol was newly added.
func (s *symbolSet) add(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.symbols[symbol]; ok {
		return false
	}

	s.symbols[symbol] = struct{}{}

	return true
}

// remove reports whether symbol was present.
func (s *symbolSet) remove(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.symbols[symbol]; !ok {
		return false
	}

	delete(s.symbols, symbol)

	return true
}

func (s *symbolSet) has(symbol string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.symbols[symbol]

	return ok
}

func (s *symbolSet) list() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.symbols))
	for symbol := range s.symbols {
		out = append(out, symbol)
	}

	slices.Sort(out)

	return out
}
