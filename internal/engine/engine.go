package engine

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-autotrader/internal/audit"
	"github.com/rxtech-lab/argo-autotrader/internal/parser"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/rxtech-lab/argo-autotrader/pkg/strategy"
)

// Default configuration values.
const (
	DefaultReconcileInterval = 5 * time.Second
	DefaultRetryCount        = 3
	DefaultRetryBaseDelay    = time.Second
	DefaultActionTimeout     = 30 * time.Second
	DefaultLogCapacity       = 10000
	DefaultMailboxSize       = 64
)

// Callback types for order and strategy lifecycle events.

// OnOrderPlacedCallback is called after the venue accepted an order and it was added to the ledger.
type OnOrderPlacedCallback func(order types.Order)

// OnOrderRejectedCallback is called when an action did not produce a tracked order,
// either because of the risk check or because the gateway gave up.
type OnOrderRejectedCallback func(order types.Order, reason error)

// OnOrderStatusChangedCallback is called when reconciliation or a cancel changed an order's status.
type OnOrderStatusChangedCallback func(order types.Order, previous types.OrderStatus)

// OnStrategyErrorCallback is called when evaluating a strategy failed.
type OnStrategyErrorCallback func(strategyID string, data types.MarketData, err error)

// Callbacks holds optional lifecycle callbacks. A nil field means no callback will be invoked.
type Callbacks struct {
	OnOrderPlaced        *OnOrderPlacedCallback
	OnOrderRejected      *OnOrderRejectedCallback
	OnOrderStatusChanged *OnOrderStatusChangedCallback
	OnStrategyError      *OnStrategyErrorCallback
}

// Config holds the configuration for the evaluation engine.
type Config struct {
	// ReconcileInterval is the period of the order reconciliation pass.
	ReconcileInterval time.Duration `json:"reconcile_interval" yaml:"reconcile_interval" jsonschema:"description=Interval between order reconciliation passes (default 5s)" validate:"gte=0"`

	// RetryCount is the number of attempts the gateway makes per call.
	RetryCount int `json:"retry_count" yaml:"retry_count" jsonschema:"description=Gateway attempts per call,default=3" validate:"gte=0"`

	// RetryBaseDelay is multiplied by the attempt number to get the backoff before the next attempt.
	RetryBaseDelay time.Duration `json:"retry_base_delay" yaml:"retry_base_delay" jsonschema:"description=Linear backoff base delay (default 1s)" validate:"gte=0"`

	// ActionTimeout bounds a single action's gateway submission including retries.
	ActionTimeout time.Duration `json:"action_timeout" yaml:"action_timeout" jsonschema:"description=Per-action gateway budget (default 30s)" validate:"gte=0"`

	// LogCapacity is the number of audit entries kept in memory.
	LogCapacity int `json:"log_capacity" yaml:"log_capacity" jsonschema:"description=Audit log capacity,default=10000" validate:"gte=0"`

	// MailboxSize bounds the ticks waiting for each running strategy.
	MailboxSize int `json:"mailbox_size" yaml:"mailbox_size" jsonschema:"description=Pending ticks per strategy,default=64" validate:"gte=0"`

	// DataOutputPath enables parquet persistence of orders and audit entries when set.
	DataOutputPath string `json:"data_output_path,omitempty" yaml:"data_output_path,omitempty" jsonschema:"description=Directory for orders.parquet and logs.parquet"`
}

// DefaultConfig returns a config with every default applied.
func DefaultConfig() Config {
	return Config{
		ReconcileInterval: DefaultReconcileInterval,
		RetryCount:        DefaultRetryCount,
		RetryBaseDelay:    DefaultRetryBaseDelay,
		ActionTimeout:     DefaultActionTimeout,
		LogCapacity:       DefaultLogCapacity,
		MailboxSize:       DefaultMailboxSize,
		DataOutputPath:    "",
	}
}

// WithDefaults fills zero fields with their defaults.
func (c Config) WithDefaults() Config {
	if c.ReconcileInterval <= 0 {
		c.ReconcileInterval = DefaultReconcileInterval
	}

	if c.RetryCount <= 0 {
		c.RetryCount = DefaultRetryCount
	}

	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = DefaultRetryBaseDelay
	}

	if c.ActionTimeout <= 0 {
		c.ActionTimeout = DefaultActionTimeout
	}

	if c.LogCapacity <= 0 {
		c.LogCapacity = DefaultLogCapacity
	}

	if c.MailboxSize <= 0 {
		c.MailboxSize = DefaultMailboxSize
	}

	return c
}

// Validate checks the config's struct tags.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid engine config", err)
	}

	return nil
}

// GetConfigSchema returns the JSON schema for Config.
func GetConfigSchema() (string, error) {
	return strategy.ToJSONSchema(&Config{}) //nolint:exhaustruct // Empty config for schema generation
}

// IndicatorEvaluator decides technical_indicator conditions.
type IndicatorEvaluator interface {
	Evaluate(ctx context.Context, check types.IndicatorCheck, data types.MarketData) (bool, error)
}

// PassthroughIndicator is the default evaluator: every indicator condition holds.
type PassthroughIndicator struct{}

// Evaluate implements IndicatorEvaluator.
func (PassthroughIndicator) Evaluate(context.Context, types.IndicatorCheck, types.MarketData) (bool, error) {
	return true, nil
}

// Engine evaluates strategies against market data and tracks the orders they produce.
//
//nolint:interfacebloat // Engine is a core interface that naturally requires multiple methods
type Engine interface {
	// Start subscribes to market data and starts reconciliation. Calling Start while running is a no-op.
	Start(ctx context.Context) error

	// Stop halts dispatch and reconciliation. Calling Stop while stopped is a no-op.
	Stop() error

	// IsRunning reports whether the engine is started.
	IsRunning() bool

	// AddStrategy parses text and stores the result as inactive, returning its id.
	AddStrategy(text string, format parser.Format) (string, error)

	// ActivateStrategy marks a strategy active.
	ActivateStrategy(id string) error

	// DeactivateStrategy marks a strategy inactive.
	DeactivateStrategy(id string) error

	// GetActiveStrategies returns every stored strategy regardless of status.
	GetActiveStrategies() []types.Strategy

	// GetStrategyByID returns a copy of the strategy with the given id.
	GetStrategyByID(id string) (types.Strategy, bool)

	// ProcessMarketData evaluates every active strategy against data and waits for them to finish.
	// It drives evaluation directly and ignores the running state: ticks from the market data
	// source only reach strategies while the engine is running, but a caller of this method
	// is evaluated whether or not Start was called.
	ProcessMarketData(ctx context.Context, data types.MarketData) error

	// Reconcile runs one reconciliation pass over pending orders.
	Reconcile(ctx context.Context)

	// CancelOrder cancels a tracked order at the venue and in the ledger.
	CancelOrder(ctx context.Context, orderID string) error

	GetOrder(id string) (types.Order, bool)
	GetOrdersByStrategy(strategyID string) []types.Order
	GetPendingOrders() []types.Order
	GetOrderHistory(limit int) []types.Order

	// AuditLog exposes the engine's audit log for queries and export.
	AuditLog() *audit.Log

	GetAccountBalance(ctx context.Context) (types.Balances, error)
	GetOrderBook(ctx context.Context, symbol string) (types.OrderBook, error)
}
