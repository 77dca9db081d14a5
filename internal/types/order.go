package types

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// OrderType is the trading subset of ActionType.
type OrderType string

const (
	OrderTypeBuyLimit   OrderType = OrderType(ActionTypeBuyLimit)
	OrderTypeSellLimit  OrderType = OrderType(ActionTypeSellLimit)
	OrderTypeBuyMarket  OrderType = OrderType(ActionTypeBuyMarket)
	OrderTypeSellMarket OrderType = OrderType(ActionTypeSellMarket)
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Side returns the direction of the order.
func (t OrderType) Side() Side {
	if t == OrderTypeSellLimit || t == OrderTypeSellMarket {
		return SideSell
	}

	return SideBuy
}

// IsLimit reports whether the order rests at a limit price.
func (t OrderType) IsLimit() bool {
	return t == OrderTypeBuyLimit || t == OrderTypeSellLimit
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRejected  OrderStatus = "rejected"
	OrderStatusExpired   OrderStatus = "expired"
)

// IsTerminal reports whether no further transition is expected.
func (s OrderStatus) IsTerminal() bool {
	return s != OrderStatusPending
}

// Order is a request to a venue created by an action.
type Order struct {
	ID              string                     `json:"id" yaml:"id"`
	StrategyID      string                     `json:"strategyId" yaml:"strategyId"`
	Symbol          string                     `json:"symbol" yaml:"symbol"`
	Type            OrderType                  `json:"type" yaml:"type"`
	Quantity        float64                    `json:"quantity" yaml:"quantity"`
	Price           optional.Option[float64]   `json:"price,omitempty" yaml:"price,omitempty"`
	TimeInForce     TimeInForce                `json:"timeInForce,omitempty" yaml:"timeInForce,omitempty"`
	Status          OrderStatus                `json:"status" yaml:"status"`
	ExchangeOrderID string                     `json:"exchangeOrderId,omitempty" yaml:"exchangeOrderId,omitempty"`
	CreatedAt       time.Time                  `json:"createdAt" yaml:"createdAt"`
	FilledAt        optional.Option[time.Time] `json:"filledAt,omitempty" yaml:"filledAt,omitempty"`
	FilledQuantity  optional.Option[float64]   `json:"filledQuantity,omitempty" yaml:"filledQuantity,omitempty"`
	FilledPrice     optional.Option[float64]   `json:"filledPrice,omitempty" yaml:"filledPrice,omitempty"`
}

// Notional returns quantity * price using the given reference price for market orders.
func (o Order) Notional(reference float64) decimal.Decimal {
	price := o.Price.TakeOr(reference)

	return decimal.NewFromFloat(o.Quantity).Mul(decimal.NewFromFloat(price))
}

// OrderUpdate is what a venue reports for an order.
type OrderUpdate struct {
	Status         OrderStatus
	FilledQuantity optional.Option[float64]
	FilledPrice    optional.Option[float64]
}
