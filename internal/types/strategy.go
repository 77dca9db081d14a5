package types

import (
	"slices"
	"time"

	"github.com/moznion/go-optional"
)

type StrategyStatus string

const (
	StrategyStatusInactive StrategyStatus = "inactive"
	StrategyStatusActive   StrategyStatus = "active"
	StrategyStatusPaused   StrategyStatus = "paused"
)

// Default risk limits applied when a strategy document does not carry its own.
const (
	DefaultMaxPositionSize = 1000
	DefaultMaxDrawdown     = 0.1
	DefaultDailyLossLimit  = 500
)

// RiskManagement holds the per-strategy numeric ceilings.
// Only MaxPositionSize is enforced at action time; the other fields are declarative.
type RiskManagement struct {
	// MaxPositionSize is the notional ceiling for a single action (quantity * price).
	MaxPositionSize float64 `json:"maxPositionSize" yaml:"maxPositionSize" jsonschema:"description=Notional ceiling per action" validate:"gte=0"`
	// StopLoss is an optional loss fraction. Not enforced yet.
	StopLoss optional.Option[float64] `json:"stopLoss,omitempty" yaml:"stopLoss,omitempty" jsonschema:"type=number"`
	// TakeProfit is an optional profit fraction. Not enforced yet.
	TakeProfit optional.Option[float64] `json:"takeProfit,omitempty" yaml:"takeProfit,omitempty" jsonschema:"type=number"`
	MaxDrawdown    float64                  `json:"maxDrawdown" yaml:"maxDrawdown" validate:"gte=0"`
	DailyLossLimit float64                  `json:"dailyLossLimit" yaml:"dailyLossLimit" validate:"gte=0"`
}

// DefaultRiskManagement returns the limits injected when a strategy omits them.
func DefaultRiskManagement() RiskManagement {
	return RiskManagement{
		MaxPositionSize: DefaultMaxPositionSize,
		StopLoss:        optional.None[float64](),
		TakeProfit:      optional.None[float64](),
		MaxDrawdown:     DefaultMaxDrawdown,
		DailyLossLimit:  DefaultDailyLossLimit,
	}
}

// Strategy is a named trading rule: every condition must hold for the actions to fire.
type Strategy struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name" validate:"required"`
	Description string         `json:"description" yaml:"description"`
	Status      StrategyStatus `json:"status" yaml:"status"`
	// EngineVersion optionally pins the engine release the strategy was written for.
	EngineVersion  string         `json:"engineVersion,omitempty" yaml:"engineVersion,omitempty"`
	Conditions     []Condition    `json:"conditions" yaml:"conditions" validate:"required,min=1,dive"`
	Actions        []Action       `json:"actions" yaml:"actions" validate:"required,min=1,dive"`
	RiskManagement RiskManagement `json:"riskManagement" yaml:"riskManagement"`
	CreatedAt      time.Time      `json:"createdAt" yaml:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt" yaml:"updatedAt"`
}

// IsActive reports whether the strategy takes part in tick evaluation.
func (s *Strategy) IsActive() bool {
	return s.Status == StrategyStatusActive
}

// Clone returns a deep copy so callers cannot mutate engine-owned state.
func (s Strategy) Clone() Strategy {
	out := s
	out.Conditions = make([]Condition, len(s.Conditions))

	for i, c := range s.Conditions {
		if c.Indicator != nil {
			indicator := *c.Indicator
			c.Indicator = &indicator
		}

		out.Conditions[i] = c
	}

	out.Actions = make([]Action, len(s.Actions))
	for i, a := range s.Actions {
		a.Conditions = slices.Clone(a.Conditions)
		out.Actions[i] = a
	}

	return out
}
