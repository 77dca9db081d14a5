package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/invopop/jsonschema"
)

type ConditionType string

const (
	ConditionTypePriceThreshold     ConditionType = "price_threshold"
	ConditionTypeTimeBased          ConditionType = "time_based"
	ConditionTypeTechnicalIndicator ConditionType = "technical_indicator"
	ConditionTypeVolumeThreshold    ConditionType = "volume_threshold"
)

// Operator is a comparison operator used by threshold conditions.
type Operator string

const (
	OperatorGreaterThan        Operator = ">"
	OperatorLessThan           Operator = "<"
	OperatorGreaterThanOrEqual Operator = ">="
	OperatorLessThanOrEqual    Operator = "<="
	OperatorEqual              Operator = "=="
	OperatorNotEqual           Operator = "!="
)

// EqualityEpsilon absorbs floating point noise for == and != comparisons.
const EqualityEpsilon = 0.01

// Valid reports whether o is one of the supported operators.
func (o Operator) Valid() bool {
	switch o {
	case OperatorGreaterThan, OperatorLessThan, OperatorGreaterThanOrEqual,
		OperatorLessThanOrEqual, OperatorEqual, OperatorNotEqual:
		return true
	default:
		return false
	}
}

// Compare applies the operator to actual (left) and target (right).
// Unknown operators never match.
func (o Operator) Compare(actual, target float64) bool {
	switch o {
	case OperatorGreaterThan:
		return actual > target
	case OperatorLessThan:
		return actual < target
	case OperatorGreaterThanOrEqual:
		return actual >= target
	case OperatorLessThanOrEqual:
		return actual <= target
	case OperatorEqual:
		return math.Abs(actual-target) < EqualityEpsilon
	case OperatorNotEqual:
		return math.Abs(actual-target) >= EqualityEpsilon
	default:
		return false
	}
}

// TechnicalIndicator describes the indicator a technical_indicator condition refers to.
type TechnicalIndicator struct {
	Type       string         `json:"type" yaml:"type" jsonschema:"enum=sma,enum=ema,enum=rsi,enum=macd,enum=bollinger_bands"`
	Period     int            `json:"period" yaml:"period" validate:"gte=0"`
	Parameters map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// Condition is the wire shape of a strategy predicate. Use Predicate to get the typed variant.
type Condition struct {
	ID        string              `json:"id" yaml:"id"`
	Type      ConditionType       `json:"type" yaml:"type" jsonschema:"enum=price_threshold,enum=time_based,enum=technical_indicator,enum=volume_threshold"`
	Operator  Operator            `json:"operator" yaml:"operator"`
	Value     ConditionValue      `json:"value" yaml:"value"`
	Symbol    string              `json:"symbol,omitempty" yaml:"symbol,omitempty"`
	Timeframe string              `json:"timeframe,omitempty" yaml:"timeframe,omitempty"`
	Indicator *TechnicalIndicator `json:"indicator,omitempty" yaml:"indicator,omitempty"`
}

// Predicate is the closed set of condition kinds. Evaluators switch over the concrete types.
type Predicate interface {
	conditionType() ConditionType
}

// PriceThreshold compares a tick's price for the scoped symbol.
type PriceThreshold struct {
	Symbol   string
	Operator Operator
	Value    float64
}

// VolumeThreshold compares a tick's volume for the scoped symbol.
type VolumeThreshold struct {
	Symbol   string
	Operator Operator
	Value    float64
}

// TimeBased holds once wall-clock time reaches At.
type TimeBased struct {
	At time.Time
}

// IndicatorCheck is the hook for indicator-driven conditions.
type IndicatorCheck struct {
	Symbol    string
	Operator  Operator
	Value     ConditionValue
	Timeframe string
	Indicator TechnicalIndicator
}

func (PriceThreshold) conditionType() ConditionType  { return ConditionTypePriceThreshold }
func (VolumeThreshold) conditionType() ConditionType { return ConditionTypeVolumeThreshold }
func (TimeBased) conditionType() ConditionType       { return ConditionTypeTimeBased }
func (IndicatorCheck) conditionType() ConditionType  { return ConditionTypeTechnicalIndicator }

// Predicate converts the wire shape into its typed variant, validating the fields that kind needs.
func (c Condition) Predicate() (Predicate, error) {
	switch c.Type {
	case ConditionTypePriceThreshold, ConditionTypeVolumeThreshold:
		if !c.Operator.Valid() {
			return nil, fmt.Errorf("condition %s: unsupported operator %q", c.ID, c.Operator)
		}

		value, ok := c.Value.Float()
		if !ok {
			return nil, fmt.Errorf("condition %s: value must be numeric", c.ID)
		}

		if c.Type == ConditionTypeVolumeThreshold {
			return VolumeThreshold{Symbol: c.Symbol, Operator: c.Operator, Value: value}, nil
		}

		return PriceThreshold{Symbol: c.Symbol, Operator: c.Operator, Value: value}, nil
	case ConditionTypeTimeBased:
		at, ok := c.Value.Time()
		if !ok {
			return nil, fmt.Errorf("condition %s: value must be an RFC3339 time or unix milliseconds", c.ID)
		}

		return TimeBased{At: at}, nil
	case ConditionTypeTechnicalIndicator:
		if c.Indicator == nil {
			return nil, fmt.Errorf("condition %s: technical_indicator requires an indicator", c.ID)
		}

		return IndicatorCheck{
			Symbol:    c.Symbol,
			Operator:  c.Operator,
			Value:     c.Value,
			Timeframe: c.Timeframe,
			Indicator: *c.Indicator,
		}, nil
	default:
		return nil, fmt.Errorf("condition %s: unsupported type %q", c.ID, c.Type)
	}
}

// ConditionValue is either a number or a string, mirroring the document format.
type ConditionValue struct {
	number float64
	text   string
	isText bool
}

// NumberValue returns a numeric condition value.
func NumberValue(v float64) ConditionValue {
	return ConditionValue{number: v}
}

// TextValue returns a string condition value.
func TextValue(s string) ConditionValue {
	return ConditionValue{text: s, isText: true}
}

// IsText reports whether the value was given as a string.
func (v ConditionValue) IsText() bool {
	return v.isText
}

// Float returns the numeric form. Strings are parsed as floats.
func (v ConditionValue) Float() (float64, bool) {
	if !v.isText {
		return v.number, true
	}

	f, err := strconv.ParseFloat(v.text, 64)
	if err != nil {
		return 0, false
	}

	return f, true
}

// Time returns the value as a point in time: RFC3339 strings or unix milliseconds.
func (v ConditionValue) Time() (time.Time, bool) {
	if !v.isText {
		return time.UnixMilli(int64(v.number)), true
	}

	t, err := time.Parse(time.RFC3339, v.text)
	if err != nil {
		return time.Time{}, false
	}

	return t, true
}

// String renders the value the way it appeared in the document.
func (v ConditionValue) String() string {
	if v.isText {
		return v.text
	}

	return strconv.FormatFloat(v.number, 'f', -1, 64)
}

// JSONSchema describes the number-or-string shape.
func (ConditionValue) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			{Type: "number"},
			{Type: "string"},
		},
	}
}

// MarshalJSON implements json.Marshaler.
func (v ConditionValue) MarshalJSON() ([]byte, error) {
	if v.isText {
		return json.Marshal(v.text)
	}

	return json.Marshal(v.number)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *ConditionValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		*v = TextValue(s)

		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("condition value must be a number or a string: %w", err)
	}

	*v = NumberValue(f)

	return nil
}
