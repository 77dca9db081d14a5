package gateway

import (
	"context"

	"github.com/rxtech-lab/argo-autotrader/internal/types"
)

// Venue is a single execution venue. Each call is one attempt; retries are the Gateway's job.
type Venue interface {
	// PlaceOrder submits the order and returns the venue's order id.
	PlaceOrder(ctx context.Context, order types.Order) (string, error)
	// CancelOrder cancels a resting order and reports whether the venue accepted the cancel.
	CancelOrder(ctx context.Context, exchangeOrderID string) (bool, error)
	// GetOrderStatus returns the venue's view of an order.
	GetOrderStatus(ctx context.Context, exchangeOrderID string) (types.OrderUpdate, error)
	// GetAccountBalance returns free balances keyed by asset.
	GetAccountBalance(ctx context.Context) (types.Balances, error)
	// GetOrderBook returns a depth snapshot for symbol.
	GetOrderBook(ctx context.Context, symbol string) (types.OrderBook, error)
}
