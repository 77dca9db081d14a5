package types

import (
	"slices"

	"github.com/moznion/go-optional"
)

type ActionType string

const (
	ActionTypeBuyLimit    ActionType = "buy_limit"
	ActionTypeSellLimit   ActionType = "sell_limit"
	ActionTypeBuyMarket   ActionType = "buy_market"
	ActionTypeSellMarket  ActionType = "sell_market"
	ActionTypeCancelOrder ActionType = "cancel_order"
)

// Valid reports whether t is a known action kind.
func (t ActionType) Valid() bool {
	return t == ActionTypeCancelOrder || t.IsTrade()
}

// IsTrade reports whether the action places an order.
func (t ActionType) IsTrade() bool {
	switch t {
	case ActionTypeBuyLimit, ActionTypeSellLimit, ActionTypeBuyMarket, ActionTypeSellMarket:
		return true
	default:
		return false
	}
}

// IsLimit reports whether the action requires a limit price.
func (t ActionType) IsLimit() bool {
	return t == ActionTypeBuyLimit || t == ActionTypeSellLimit
}

// OrderType maps a trading action onto the order it creates.
func (t ActionType) OrderType() (OrderType, bool) {
	if !t.IsTrade() {
		return "", false
	}

	return OrderType(t), true
}

type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC"
	TimeInForceIOC TimeInForce = "IOC"
	TimeInForceFOK TimeInForce = "FOK"
)

// Valid reports whether tif is empty or one of GTC, IOC and FOK.
func (tif TimeInForce) Valid() bool {
	switch tif {
	case "", TimeInForceGTC, TimeInForceIOC, TimeInForceFOK:
		return true
	default:
		return false
	}
}

// Action is what a strategy does once all its conditions hold.
type Action struct {
	ID          string                   `json:"id" yaml:"id"`
	Type        ActionType               `json:"type" yaml:"type" jsonschema:"enum=buy_limit,enum=sell_limit,enum=buy_market,enum=sell_market,enum=cancel_order"`
	Symbol      string                   `json:"symbol" yaml:"symbol" validate:"required"`
	Quantity    float64                  `json:"quantity" yaml:"quantity" validate:"gte=0"`
	Price       optional.Option[float64] `json:"price,omitempty" yaml:"price,omitempty" jsonschema:"type=number"`
	TimeInForce TimeInForce              `json:"timeInForce,omitempty" yaml:"timeInForce,omitempty" jsonschema:"enum=GTC,enum=IOC,enum=FOK"`
	// Conditions lists condition ids. Gating is strategy-wide, so the engine does not consult it.
	Conditions []string `json:"conditions" yaml:"conditions"`
}

// Clone returns a copy with its own condition slice.
func (a Action) Clone() Action {
	a.Conditions = slices.Clone(a.Conditions)

	return a
}
