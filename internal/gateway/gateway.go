package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"go.uber.org/zap"
)

const (
	DefaultRetryCount = 3
	DefaultBaseDelay  = time.Second
)

// ExecutionGateway is what the engine uses to reach a venue.
type ExecutionGateway interface {
	IsConfigured() bool
	PlaceOrder(ctx context.Context, order types.Order) (string, error)
	CancelOrder(ctx context.Context, exchangeOrderID string) (bool, error)
	GetOrderStatus(ctx context.Context, exchangeOrderID string) (types.OrderUpdate, error)
	GetAccountBalance(ctx context.Context) (types.Balances, error)
	GetOrderBook(ctx context.Context, symbol string) (types.OrderBook, error)
}

// Gateway wraps a Venue with a uniform linear-backoff retry policy.
type Gateway struct {
	mu         sync.RWMutex
	venue      Venue
	retryCount int
	baseDelay  time.Duration
	log        *logger.Logger
}

// Option customises a Gateway.
type Option func(*Gateway)

// WithRetry sets the attempt count and the backoff unit. Non-positive values keep the defaults.
func WithRetry(count int, baseDelay time.Duration) Option {
	return func(g *Gateway) {
		if count > 0 {
			g.retryCount = count
		}

		if baseDelay >= 0 {
			g.baseDelay = baseDelay
		}
	}
}

// WithVenue configures the gateway at construction.
func WithVenue(v Venue) Option {
	return func(g *Gateway) {
		g.venue = v
	}
}

// NewGateway creates an unconfigured gateway unless WithVenue is given.
func NewGateway(log *logger.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		retryCount: DefaultRetryCount,
		baseDelay:  DefaultBaseDelay,
		log:        log.Named("gateway"),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Configure sets or replaces the venue.
func (g *Gateway) Configure(v Venue) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.venue = v
}

// IsConfigured reports whether a venue is set.
func (g *Gateway) IsConfigured() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.venue != nil
}

func (g *Gateway) PlaceOrder(ctx context.Context, order types.Order) (string, error) {
	return withRetry(ctx, g, "placeOrder", func(ctx context.Context, v Venue) (string, error) {
		return v.PlaceOrder(ctx, order)
	})
}

func (g *Gateway) CancelOrder(ctx context.Context, exchangeOrderID string) (bool, error) {
	return withRetry(ctx, g, "cancelOrder", func(ctx context.Context, v Venue) (bool, error) {
		return v.CancelOrder(ctx, exchangeOrderID)
	})
}

func (g *Gateway) GetOrderStatus(ctx context.Context, exchangeOrderID string) (types.OrderUpdate, error) {
	return withRetry(ctx, g, "getOrderStatus", func(ctx context.Context, v Venue) (types.OrderUpdate, error) {
		return v.GetOrderStatus(ctx, exchangeOrderID)
	})
}

func (g *Gateway) GetAccountBalance(ctx context.Context) (types.Balances, error) {
	return withRetry(ctx, g, "getAccountBalance", func(ctx context.Context, v Venue) (types.Balances, error) {
		return v.GetAccountBalance(ctx)
	})
}

func (g *Gateway) GetOrderBook(ctx context.Context, symbol string) (types.OrderBook, error) {
	return withRetry(ctx, g, "getOrderBook", func(ctx context.Context, v Venue) (types.OrderBook, error) {
		return v.GetOrderBook(ctx, symbol)
	})
}

// withRetry runs call up to retryCount times, sleeping baseDelay*attempt between failures.
func withRetry[T any](ctx context.Context, g *Gateway, op string, call func(context.Context, Venue) (T, error)) (T, error) {
	var zero T

	g.mu.RLock()
	venue := g.venue
	g.mu.RUnlock()

	if venue == nil {
		return zero, errors.Newf(errors.ErrCodeNotConfigured, "%s: venue not configured", op)
	}

	var lastErr error

	for attempt := 1; attempt <= g.retryCount; attempt++ {
		result, err := call(ctx, venue)
		if err == nil {
			return result, nil
		}

		lastErr = err
		g.log.Warn("Venue call failed",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", g.retryCount),
			zap.Error(err),
		)

		if attempt == g.retryCount {
			break
		}

		if err := sleep(ctx, g.baseDelay*time.Duration(attempt)); err != nil {
			return zero, errors.Wrapf(errors.ErrCodeGatewayTransient, err, "%s interrupted after %d attempts", op, attempt)
		}
	}

	return zero, errors.Wrapf(errors.ErrCodeGatewayExhausted, lastErr, "%s failed after %d attempts", op, g.retryCount)
}

type backoffKey struct{}

// WithBackoffContext attaches interrupt to ctx. Cancelling interrupt cuts retry backoff
// short while leaving venue calls already in flight on ctx untouched.
func WithBackoffContext(ctx, interrupt context.Context) context.Context {
	return context.WithValue(ctx, backoffKey{}, interrupt)
}

func backoffInterrupt(ctx context.Context) context.Context {
	if interrupt, ok := ctx.Value(backoffKey{}).(context.Context); ok {
		return interrupt
	}

	return ctx
}

func sleep(ctx context.Context, d time.Duration) error {
	interrupt := backoffInterrupt(ctx)

	if d <= 0 {
		if err := interrupt.Err(); err != nil {
			return err
		}

		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-interrupt.Done():
		return interrupt.Err()
	case <-timer.C:
		return nil
	}
}
