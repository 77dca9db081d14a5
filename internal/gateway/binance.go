package gateway

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/adshao/go-binance/v2"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	// BinanceDecimalPrecision is the fallback quantity precision. 8 decimals is satoshi-level for BTC-like assets.
	BinanceDecimalPrecision = 8
	// BinanceDepthLimit is the number of levels requested per order book side.
	BinanceDepthLimit = 20
)

// BinanceVenue places orders on Binance spot.
// Exchange order ids have the form "SYMBOL:orderId" because Binance needs the symbol for every lookup.
type BinanceVenue struct {
	client           BinanceClient
	decimalPrecision int32
}

// NewBinanceVenue creates a venue for the given credentials.
// useTestnet targets https://testnet.binance.vision; config.BaseURL takes precedence when set.
func NewBinanceVenue(config BinanceVenueConfig, useTestnet bool) (*BinanceVenue, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if useTestnet {
		binance.UseTestnet = true
	}

	client := binance.NewClient(config.ApiKey, config.SecretKey)
	if config.BaseURL != "" {
		client.BaseURL = config.BaseURL
	}

	return newBinanceVenueWithClient(&realBinanceClient{client: client}), nil
}

// newBinanceVenueWithClient is used by tests with mock clients.
func newBinanceVenueWithClient(client BinanceClient) *BinanceVenue {
	return &BinanceVenue{
		client:           client,
		decimalPrecision: BinanceDecimalPrecision,
	}
}

// PlaceOrder submits order and returns "SYMBOL:orderId".
func (b *BinanceVenue) PlaceOrder(ctx context.Context, order types.Order) (string, error) {
	side := binance.SideTypeBuy
	if order.Type.Side() == types.SideSell {
		side = binance.SideTypeSell
	}

	quantity := decimal.NewFromFloat(order.Quantity).Truncate(b.decimalPrecision)
	if !quantity.IsPositive() {
		return "", errors.Newf(errors.ErrCodeInvalidParameter,
			"order quantity %v is too small after rounding to %d decimal places", order.Quantity, b.decimalPrecision)
	}

	service := b.client.NewCreateOrderService().
		Symbol(order.Symbol).
		Side(side).
		Quantity(quantity.String()).
		NewClientOrderID(order.ID)

	if order.Type.IsLimit() {
		price, err := order.Price.Take()
		if err != nil {
			return "", errors.Newf(errors.ErrCodeInvalidParameter, "limit order %s has no price", order.ID)
		}

		service = service.
			Type(binance.OrderTypeLimit).
			Price(decimal.NewFromFloat(price).String()).
			TimeInForce(mapTimeInForce(order.TimeInForce))
	} else {
		service = service.Type(binance.OrderTypeMarket)
	}

	resp, err := service.Do(ctx)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeGatewayTransient, "failed to place order on Binance", err)
	}

	return formatExchangeOrderID(resp.Symbol, resp.OrderID), nil
}

// CancelOrder cancels the order identified by exchangeOrderID.
func (b *BinanceVenue) CancelOrder(ctx context.Context, exchangeOrderID string) (bool, error) {
	symbol, id, err := parseExchangeOrderID(exchangeOrderID)
	if err != nil {
		return false, err
	}

	resp, err := b.client.NewCancelOrderService().Symbol(symbol).OrderID(id).Do(ctx)
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeGatewayTransient, "failed to cancel order on Binance", err)
	}

	return mapBinanceOrderStatus(resp.Status) == types.OrderStatusCancelled, nil
}

// GetOrderStatus queries a single order.
func (b *BinanceVenue) GetOrderStatus(ctx context.Context, exchangeOrderID string) (types.OrderUpdate, error) {
	symbol, id, err := parseExchangeOrderID(exchangeOrderID)
	if err != nil {
		return types.OrderUpdate{}, err
	}

	order, err := b.client.NewGetOrderService().Symbol(symbol).OrderID(id).Do(ctx)
	if err != nil {
		return types.OrderUpdate{}, errors.Wrap(errors.ErrCodeGatewayTransient, "failed to get order from Binance", err)
	}

	update := types.OrderUpdate{
		Status:         mapBinanceOrderStatus(order.Status),
		FilledQuantity: optional.None[float64](),
		FilledPrice:    optional.None[float64](),
	}

	executed, _ := decimal.NewFromString(order.ExecutedQuantity)
	if executed.IsPositive() {
		update.FilledQuantity = optional.Some(executed.InexactFloat64())

		quote, _ := decimal.NewFromString(order.CummulativeQuoteQuantity)
		update.FilledPrice = optional.Some(quote.Div(executed).InexactFloat64())
	}

	return update, nil
}

// GetAccountBalance returns the free amount of every asset with a non-zero balance.
func (b *BinanceVenue) GetAccountBalance(ctx context.Context) (types.Balances, error) {
	account, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeGatewayTransient, "failed to get account info from Binance", err)
	}

	balances := make(types.Balances)

	for _, balance := range account.Balances {
		free, _ := strconv.ParseFloat(balance.Free, 64)
		locked, _ := strconv.ParseFloat(balance.Locked, 64)

		if free+locked > 0 {
			balances[balance.Asset] = free
		}
	}

	return balances, nil
}

// GetOrderBook returns the top BinanceDepthLimit levels per side.
func (b *BinanceVenue) GetOrderBook(ctx context.Context, symbol string) (types.OrderBook, error) {
	depth, err := b.client.NewDepthService().Symbol(symbol).Limit(BinanceDepthLimit).Do(ctx)
	if err != nil {
		return types.OrderBook{}, errors.Wrap(errors.ErrCodeGatewayTransient, "failed to get order book from Binance", err)
	}

	book := types.OrderBook{
		Symbol: symbol,
		Bids:   make([]types.PriceLevel, 0, len(depth.Bids)),
		Asks:   make([]types.PriceLevel, 0, len(depth.Asks)),
	}

	for _, bid := range depth.Bids {
		book.Bids = append(book.Bids, toPriceLevel(bid.Price, bid.Quantity))
	}

	for _, ask := range depth.Asks {
		book.Asks = append(book.Asks, toPriceLevel(ask.Price, ask.Quantity))
	}

	return book, nil
}

func toPriceLevel(price, quantity string) types.PriceLevel {
	p, _ := strconv.ParseFloat(price, 64)
	q, _ := strconv.ParseFloat(quantity, 64)

	return types.PriceLevel{Price: p, Quantity: q}
}

func formatExchangeOrderID(symbol string, orderID int64) string {
	return fmt.Sprintf("%s:%d", symbol, orderID)
}

func parseExchangeOrderID(exchangeOrderID string) (string, int64, error) {
	symbol, rawID, ok := strings.Cut(exchangeOrderID, ":")
	if !ok || symbol == "" {
		return "", 0, errors.Newf(errors.ErrCodeInvalidParameter, "invalid exchange order id %q", exchangeOrderID)
	}

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return "", 0, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "invalid exchange order id %q", exchangeOrderID)
	}

	return symbol, id, nil
}

func mapTimeInForce(tif types.TimeInForce) binance.TimeInForceType {
	switch tif {
	case types.TimeInForceIOC:
		return binance.TimeInForceTypeIOC
	case types.TimeInForceFOK:
		return binance.TimeInForceTypeFOK
	default:
		return binance.TimeInForceTypeGTC
	}
}

// mapBinanceOrderStatus maps Binance order status to our OrderStatus type.
func mapBinanceOrderStatus(status binance.OrderStatusType) types.OrderStatus {
	switch status {
	case binance.OrderStatusTypeNew, binance.OrderStatusTypePartiallyFilled:
		return types.OrderStatusPending
	case binance.OrderStatusTypeFilled:
		return types.OrderStatusFilled
	case binance.OrderStatusTypeCanceled, binance.OrderStatusTypePendingCancel:
		return types.OrderStatusCancelled
	case binance.OrderStatusTypeRejected:
		return types.OrderStatusRejected
	case binance.OrderStatusTypeExpired:
		return types.OrderStatusExpired
	default:
		return types.OrderStatusPending
	}
}
