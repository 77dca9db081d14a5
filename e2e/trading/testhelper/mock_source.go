package testhelper

import (
	"context"
	"sync"

	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/marketdata"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
)

// MockSource implements marketdata.Source by replaying ticks handed to it by the test.
type MockSource struct {
	*marketdata.Broadcaster

	mu       sync.Mutex
	symbols  map[string]bool
	running  bool
	starts   int
	StartErr error
}

// NewMockSource creates a stopped source with no subscriptions.
func NewMockSource() *MockSource {
	return &MockSource{
		Broadcaster: marketdata.NewBroadcaster(logger.NewNopLogger()),
		symbols:     make(map[string]bool),
	}
}

// Subscribe implements marketdata.Source.
func (m *MockSource) Subscribe(symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.symbols[symbol] = true

	return nil
}

// Unsubscribe implements marketdata.Source.
func (m *MockSource) Unsubscribe(symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.symbols, symbol)

	return nil
}

// Start implements marketdata.Source.
func (m *MockSource) Start(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.StartErr != nil {
		return m.StartErr
	}

	m.running = true
	m.starts++

	return nil
}

// Stop implements marketdata.Source.
func (m *MockSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.running = false

	return nil
}

// Subscribed reports whether symbol is subscribed.
func (m *MockSource) Subscribed(symbol string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.symbols[symbol]
}

// Running reports whether the source is started.
func (m *MockSource) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.running
}

// Replay emits every tick for a subscribed symbol while the source is running and
// returns how many were emitted.
func (m *MockSource) Replay(ticks []types.MarketData) int {
	emitted := 0

	for _, tick := range ticks {
		m.mu.Lock()
		deliver := m.running && m.symbols[tick.Symbol]
		m.mu.Unlock()

		if !deliver {
			continue
		}

		m.Emit(tick)
		emitted++
	}

	return emitted
}

var _ marketdata.Source = (*MockSource)(nil)
