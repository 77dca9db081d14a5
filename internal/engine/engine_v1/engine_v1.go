package engine_v1

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-autotrader/internal/audit"
	"github.com/rxtech-lab/argo-autotrader/internal/engine"
	"github.com/rxtech-lab/argo-autotrader/internal/gateway"
	"github.com/rxtech-lab/argo-autotrader/internal/ledger"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/marketdata"
	"github.com/rxtech-lab/argo-autotrader/internal/parser"
	"github.com/rxtech-lab/argo-autotrader/internal/persistence"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/internal/version"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// EngineV1 implements engine.Engine.
type EngineV1 struct {
	config    engine.Config
	log       *logger.Logger
	parser    *parser.Parser
	gateway   gateway.ExecutionGateway
	source    marketdata.Source
	ledger    *ledger.Ledger
	audit     *audit.Log
	indicator engine.IndicatorEvaluator
	callbacks engine.Callbacks
	recorder  *persistence.Recorder
	now       func() time.Time

	strategiesMu sync.RWMutex
	strategies   map[string]*types.Strategy
	order        []string

	// lifecycleMu serializes Start and Stop; mu guards the running state below.
	lifecycleMu  sync.Mutex
	mu           sync.Mutex
	running      bool
	runCtx       context.Context //nolint:containedctx // lifetime of a running engine
	cancel       context.CancelFunc
	subscription marketdata.Subscription
	workers      map[string]*worker
	wg           sync.WaitGroup

	reconcileMu sync.Mutex
}

// Option configures an EngineV1.
type Option func(*EngineV1)

// WithSource sets the market data source the engine subscribes to on Start.
func WithSource(source marketdata.Source) Option {
	return func(e *EngineV1) {
		e.source = source
	}
}

// WithIndicatorEvaluator replaces the default indicator evaluator.
func WithIndicatorEvaluator(evaluator engine.IndicatorEvaluator) Option {
	return func(e *EngineV1) {
		e.indicator = evaluator
	}
}

// WithCallbacks registers lifecycle callbacks.
func WithCallbacks(callbacks engine.Callbacks) Option {
	return func(e *EngineV1) {
		e.callbacks = callbacks
	}
}

// WithClock overrides the wall clock used for time conditions and timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *EngineV1) {
		e.now = now
	}
}

// NewEngineV1 creates an engine around gw. Persistence is enabled when config.DataOutputPath is set.
func NewEngineV1(config engine.Config, gw gateway.ExecutionGateway, log *logger.Logger, opts ...Option) (*EngineV1, error) {
	if gw == nil {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "execution gateway is required")
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	e := &EngineV1{
		config:     config,
		log:        log,
		gateway:    gw,
		ledger:     ledger.NewLedger(),
		audit:      audit.NewLog(config.LogCapacity, log),
		indicator:  engine.PassthroughIndicator{},
		now:        time.Now,
		strategies: make(map[string]*types.Strategy),
		workers:    make(map[string]*worker),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.parser = parser.NewParser(
		parser.WithEngineVersion(version.GetVersion()),
		parser.WithClock(e.now),
	)

	if config.DataOutputPath != "" {
		recorder, err := persistence.NewRecorder(config.DataOutputPath, persistence.DefaultQueueSize, log.Named("persistence"))
		if err != nil {
			return nil, err
		}

		e.recorder = recorder
		e.ledger.OnChange(recorder.RecordOrder)
		e.audit.OnEntry(recorder.RecordLog)

		e.log.Info("Data persistence enabled", zap.String("data_output_path", config.DataOutputPath))
	}

	return e, nil
}

// Start implements engine.Engine.
func (e *EngineV1) Start(ctx context.Context) error {
	e.lifecycleMu.Lock()
	defer e.lifecycleMu.Unlock()

	if e.IsRunning() {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)

	var subscription marketdata.Subscription

	if e.source != nil {
		subscription = e.source.Listen(e.dispatch)

		for _, symbol := range e.strategySymbols() {
			if err := e.source.Subscribe(symbol); err != nil {
				e.log.Warn("Failed to subscribe symbol", zap.String("symbol", symbol), zap.Error(err))
			}
		}

		if err := e.source.Start(runCtx); err != nil {
			subscription.Cancel()
			cancel()

			return errors.Wrap(errors.ErrCodeMarketDataFailed, "failed to start market data source", err)
		}
	}

	e.mu.Lock()
	e.running = true
	e.runCtx = runCtx
	e.cancel = cancel
	e.subscription = subscription

	for _, s := range e.GetActiveStrategies() {
		if s.IsActive() {
			e.startWorkerLocked(s.ID)
		}
	}
	e.mu.Unlock()

	e.wg.Add(1)

	go e.reconcileLoop(runCtx)

	e.audit.Info("Engine started", map[string]any{
		"reconcileInterval": e.config.ReconcileInterval.String(),
	})

	return nil
}

// Stop implements engine.Engine.
func (e *EngineV1) Stop() error {
	e.lifecycleMu.Lock()
	defer e.lifecycleMu.Unlock()

	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()

		return nil
	}

	e.running = false
	subscription := e.subscription
	cancel := e.cancel
	e.subscription = nil
	e.cancel = nil
	e.runCtx = nil
	e.workers = make(map[string]*worker)
	e.mu.Unlock()

	// Dispatch observes running=false from here on; the source may still be mid-emit.
	if subscription != nil {
		subscription.Cancel()
	}

	var stopErr error

	if e.source != nil {
		if err := e.source.Stop(); err != nil {
			stopErr = errors.Wrap(errors.ErrCodeMarketDataFailed, "failed to stop market data source", err)
		}
	}

	cancel()
	e.wg.Wait()

	if e.recorder != nil {
		if err := e.recorder.Flush(); err != nil {
			e.log.Warn("Failed to flush persistence", zap.Error(err))
		}
	}

	e.audit.Info("Engine stopped", nil)

	return stopErr
}

// Close stops the engine and releases persistence resources.
func (e *EngineV1) Close() error {
	if err := e.Stop(); err != nil {
		e.log.Warn("Failed to stop engine cleanly", zap.Error(err))
	}

	if e.recorder != nil {
		return e.recorder.Close()
	}

	return nil
}

// IsRunning implements engine.Engine.
func (e *EngineV1) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.running
}

// AddStrategy implements engine.Engine.
func (e *EngineV1) AddStrategy(text string, format parser.Format) (string, error) {
	s, err := e.parser.Parse(text, format)
	if err != nil {
		e.audit.Warning("Strategy rejected", map[string]any{
			"format": string(format),
			"error":  err.Error(),
		})

		return "", err
	}

	e.strategiesMu.Lock()
	e.strategies[s.ID] = &s
	e.order = append(e.order, s.ID)
	e.strategiesMu.Unlock()

	if e.IsRunning() && e.source != nil {
		for _, symbol := range symbolsOf(s) {
			if err := e.source.Subscribe(symbol); err != nil {
				e.log.Warn("Failed to subscribe symbol", zap.String("symbol", symbol), zap.Error(err))
			}
		}
	}

	e.audit.Info(fmt.Sprintf("Strategy added: %s", s.Name), map[string]any{
		"strategyId": s.ID,
		"format":     string(format),
	})

	return s.ID, nil
}

// ActivateStrategy implements engine.Engine.
func (e *EngineV1) ActivateStrategy(id string) error {
	if err := e.setStatus(id, types.StrategyStatusActive); err != nil {
		return err
	}

	e.mu.Lock()
	if e.running {
		e.startWorkerLocked(id)
	}
	e.mu.Unlock()

	e.audit.Info("Strategy activated", map[string]any{"strategyId": id})

	return nil
}

// DeactivateStrategy implements engine.Engine.
func (e *EngineV1) DeactivateStrategy(id string) error {
	if err := e.setStatus(id, types.StrategyStatusInactive); err != nil {
		return err
	}

	e.mu.Lock()
	e.stopWorkerLocked(id)
	e.mu.Unlock()

	e.audit.Info("Strategy deactivated", map[string]any{"strategyId": id})

	return nil
}

// setStatus flips the status and moves UpdatedAt strictly forward, even when the status is unchanged.
func (e *EngineV1) setStatus(id string, status types.StrategyStatus) error {
	e.strategiesMu.Lock()
	defer e.strategiesMu.Unlock()

	s, ok := e.strategies[id]
	if !ok {
		return errors.Newf(errors.ErrCodeStrategyNotFound, "strategy not found: %s", id)
	}

	updated := s.Clone()
	updated.Status = status

	now := e.now()
	if !now.After(s.UpdatedAt) {
		now = s.UpdatedAt.Add(time.Nanosecond)
	}

	updated.UpdatedAt = now
	e.strategies[id] = &updated

	return nil
}

// GetActiveStrategies implements engine.Engine. Strategies are returned in the order they were added.
func (e *EngineV1) GetActiveStrategies() []types.Strategy {
	e.strategiesMu.RLock()
	defer e.strategiesMu.RUnlock()

	out := make([]types.Strategy, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.strategies[id].Clone())
	}

	return out
}

// GetStrategyByID implements engine.Engine.
func (e *EngineV1) GetStrategyByID(id string) (types.Strategy, bool) {
	e.strategiesMu.RLock()
	defer e.strategiesMu.RUnlock()

	s, ok := e.strategies[id]
	if !ok {
		return types.Strategy{}, false
	}

	return s.Clone(), true
}

// ProcessMarketData implements engine.Engine. It does not require Start.
func (e *EngineV1) ProcessMarketData(ctx context.Context, data types.MarketData) error {
	var g errgroup.Group

	for _, s := range e.GetActiveStrategies() {
		if !s.IsActive() {
			continue
		}

		g.Go(func() error {
			e.evaluate(ctx, s, data)

			return nil
		})
	}

	return g.Wait()
}

func (e *EngineV1) strategySymbols() []string {
	seen := make(map[string]struct{})

	var out []string

	for _, s := range e.GetActiveStrategies() {
		for _, symbol := range symbolsOf(s) {
			if _, ok := seen[symbol]; ok {
				continue
			}

			seen[symbol] = struct{}{}
			out = append(out, symbol)
		}
	}

	return out
}

func symbolsOf(s types.Strategy) []string {
	var out []string

	for _, c := range s.Conditions {
		if c.Symbol != "" {
			out = append(out, c.Symbol)
		}
	}

	for _, a := range s.Actions {
		if a.Symbol != "" {
			out = append(out, a.Symbol)
		}
	}

	return out
}

// GetOrder implements engine.Engine.
func (e *EngineV1) GetOrder(id string) (types.Order, bool) {
	return e.ledger.Get(id)
}

// GetOrdersByStrategy implements engine.Engine.
func (e *EngineV1) GetOrdersByStrategy(strategyID string) []types.Order {
	return e.ledger.ByStrategy(strategyID)
}

// GetPendingOrders implements engine.Engine.
func (e *EngineV1) GetPendingOrders() []types.Order {
	return e.ledger.Pending()
}

// GetOrderHistory implements engine.Engine.
func (e *EngineV1) GetOrderHistory(limit int) []types.Order {
	return e.ledger.History(limit)
}

// AuditLog implements engine.Engine.
func (e *EngineV1) AuditLog() *audit.Log {
	return e.audit
}

// GetAccountBalance implements engine.Engine.
func (e *EngineV1) GetAccountBalance(ctx context.Context) (types.Balances, error) {
	return e.gateway.GetAccountBalance(ctx)
}

// GetOrderBook implements engine.Engine.
func (e *EngineV1) GetOrderBook(ctx context.Context, symbol string) (types.OrderBook, error) {
	return e.gateway.GetOrderBook(ctx, symbol)
}

var _ engine.Engine = (*EngineV1)(nil)
