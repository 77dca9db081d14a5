package parser

import (
	"fmt"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type ParserTestSuite struct {
	suite.Suite
	parser *Parser
	now    time.Time
}

func TestParserSuite(t *testing.T) {
	suite.Run(t, new(ParserTestSuite))
}

func (suite *ParserTestSuite) SetupTest() {
	suite.now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	suite.parser = NewParser(
		WithClock(func() time.Time { return suite.now }),
		WithEngineVersion("0.3.0"),
	)
}

const scenarioJSON = `{
	"name": "X",
	"conditions": [{"type": "price_threshold", "operator": "<", "value": 49000, "symbol": "BTCUSDT"}],
	"actions": [{"type": "buy_limit", "symbol": "BTCUSDT", "quantity": 0.1, "price": 48900}],
	"riskManagement": {"maxPositionSize": 5000, "maxDrawdown": 0.2, "dailyLossLimit": 1000}
}`

func (suite *ParserTestSuite) TestParseJSON() {
	s, err := suite.parser.Parse(scenarioJSON, FormatJSON)
	suite.Require().NoError(err)

	suite.NotEmpty(s.ID)
	suite.Equal("X", s.Name)
	suite.Equal(types.StrategyStatusInactive, s.Status)
	suite.Equal(suite.now, s.CreatedAt)
	suite.Equal(suite.now, s.UpdatedAt)
	suite.Require().Len(s.Conditions, 1)
	suite.NotEmpty(s.Conditions[0].ID)
	suite.Equal(types.OperatorLessThan, s.Conditions[0].Operator)
	suite.Require().Len(s.Actions, 1)
	suite.Equal(48900.0, s.Actions[0].Price.Unwrap())
	suite.Equal(0.1, s.Actions[0].Quantity)
	suite.Equal(5000.0, s.RiskManagement.MaxPositionSize)
	suite.Equal(0.2, s.RiskManagement.MaxDrawdown)
	suite.NotNil(s.Actions[0].Conditions)
}

func (suite *ParserTestSuite) TestParseJSONIgnoresIncomingIdentity() {
	input := `{"id":"fixed","status":"active","name":"n",
		"conditions":[{"id":"c-keep","type":"price_threshold","operator":">","value":1,"symbol":"A"}],
		"actions":[{"type":"sell_market","symbol":"A","quantity":1}]}`

	first, err := suite.parser.Parse(input, FormatJSON)
	suite.Require().NoError(err)
	second, err := suite.parser.Parse(input, FormatJSON)
	suite.Require().NoError(err)

	suite.NotEqual("fixed", first.ID)
	suite.NotEqual(first.ID, second.ID)
	suite.Equal(types.StrategyStatusInactive, first.Status)
	suite.Equal("c-keep", first.Conditions[0].ID)
	suite.Equal(types.DefaultRiskManagement(), first.RiskManagement)
}

func (suite *ParserTestSuite) TestParseJSONMalformed() {
	_, err := suite.parser.Parse(`{"name": "broken"`, FormatJSON)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMalformedInput))
	suite.True(errors.IsParseError(err))
}

func (suite *ParserTestSuite) TestParseValidation() {
	tests := []struct {
		name    string
		input   string
		message string
	}{
		{
			name:    "missing name",
			input:   `{"conditions":[{"type":"price_threshold","operator":">","value":1}],"actions":[{"type":"buy_market","symbol":"A","quantity":1}]}`,
			message: "name",
		},
		{
			name:    "empty conditions",
			input:   `{"name":"n","conditions":[],"actions":[{"type":"buy_market","symbol":"A","quantity":1}]}`,
			message: "condition",
		},
		{
			name:    "empty actions",
			input:   `{"name":"n","conditions":[{"type":"price_threshold","operator":">","value":1}],"actions":[]}`,
			message: "action",
		},
		{
			name:    "unknown condition type",
			input:   `{"name":"n","conditions":[{"type":"moon","operator":">","value":1}],"actions":[{"type":"buy_market","symbol":"A","quantity":1}]}`,
			message: "unsupported type",
		},
		{
			name:    "unknown action type",
			input:   `{"name":"n","conditions":[{"type":"price_threshold","operator":">","value":1}],"actions":[{"type":"hold","symbol":"A","quantity":1}]}`,
			message: "unsupported type",
		},
		{
			name:    "limit without price",
			input:   `{"name":"n","conditions":[{"type":"price_threshold","operator":">","value":1}],"actions":[{"type":"buy_limit","symbol":"A","quantity":1}]}`,
			message: "price",
		},
		{
			name:    "zero quantity",
			input:   `{"name":"n","conditions":[{"type":"price_threshold","operator":">","value":1}],"actions":[{"type":"buy_market","symbol":"A","quantity":0}]}`,
			message: "quantity",
		},
		{
			name:    "negative risk limit",
			input:   `{"name":"n","conditions":[{"type":"price_threshold","operator":">","value":1}],"actions":[{"type":"buy_market","symbol":"A","quantity":1}],"riskManagement":{"maxPositionSize":-1}}`,
			message: "MaxPositionSize",
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := suite.parser.Parse(tt.input, FormatJSON)
			suite.Require().Error(err)
			suite.True(errors.HasCode(err, errors.ErrCodeValidation), err.Error())
			suite.Contains(err.Error(), tt.message)
		})
	}
}

func (suite *ParserTestSuite) TestParseDSL() {
	s, err := suite.parser.Parse("STRATEGY: Y\nIF ETHUSDT price > 3000\nTHEN BUY_MARKET ETHUSDT 1", FormatDSL)
	suite.Require().NoError(err)

	suite.Equal("Y", s.Name)
	suite.Require().Len(s.Conditions, 1)
	suite.Equal(types.ConditionTypePriceThreshold, s.Conditions[0].Type)
	suite.Equal(types.OperatorGreaterThan, s.Conditions[0].Operator)
	suite.Equal("ETHUSDT", s.Conditions[0].Symbol)

	value, ok := s.Conditions[0].Value.Float()
	suite.True(ok)
	suite.Equal(3000.0, value)

	suite.Require().Len(s.Actions, 1)
	suite.Equal(types.ActionTypeBuyMarket, s.Actions[0].Type)
	suite.Equal("ETHUSDT", s.Actions[0].Symbol)
	suite.Equal(1.0, s.Actions[0].Quantity)
	suite.True(s.Actions[0].Price.IsNone())
	suite.Equal(types.DefaultRiskManagement(), s.RiskManagement)
	suite.Equal(types.StrategyStatusInactive, s.Status)
}

func (suite *ParserTestSuite) TestParseDSLDetails() {
	input := `
		STRATEGY: Dip: buyer
		# comments and unknown lines are ignored
		IF BTCUSDT price <= 48000.5
		IF BTCUSDT volume != 10
		THEN buy_limit BTCUSDT 0.01 at 47900
		THEN CANCEL_ORDER BTCUSDT
	`

	s, err := suite.parser.Parse(input, FormatDSL)
	suite.Require().NoError(err)

	suite.Equal("Dip: buyer", s.Name)
	suite.Len(s.Conditions, 2)
	suite.Equal(types.ConditionTypePriceThreshold, s.Conditions[1].Type)
	suite.Require().Len(s.Actions, 2)
	suite.Equal(types.ActionTypeBuyLimit, s.Actions[0].Type)
	suite.Equal(47900.0, s.Actions[0].Price.Unwrap())
	suite.Equal(types.ActionTypeCancelOrder, s.Actions[1].Type)
}

func (suite *ParserTestSuite) TestParseDSLValidation() {
	_, err := suite.parser.Parse("STRATEGY: Z\nTHEN BUY_MARKET ETHUSDT 1", FormatDSL)
	suite.True(errors.HasCode(err, errors.ErrCodeValidation))
	suite.Contains(err.Error(), "condition")

	_, err = suite.parser.Parse("STRATEGY: Z\nIF ETHUSDT price > 3000", FormatDSL)
	suite.True(errors.HasCode(err, errors.ErrCodeValidation))
	suite.Contains(err.Error(), "action")

	_, err = suite.parser.Parse("IF ETHUSDT price > 3000\nTHEN BUY_MARKET ETHUSDT 1", FormatDSL)
	suite.True(errors.HasCode(err, errors.ErrCodeValidation))
	suite.Contains(err.Error(), "name")

	_, err = suite.parser.Parse("STRATEGY: Z\nIF ETHUSDT price > lots\nTHEN BUY_MARKET ETHUSDT 1", FormatDSL)
	suite.True(errors.HasCode(err, errors.ErrCodeMalformedInput))

	_, err = suite.parser.Parse("STRATEGY: Z\nIF ETHUSDT price =~ 5\nTHEN BUY_MARKET ETHUSDT 1", FormatDSL)
	suite.True(errors.HasCode(err, errors.ErrCodeValidation))
}

func (suite *ParserTestSuite) TestParseYAML() {
	input := `
name: yaml strategy
description: from yaml
conditions:
  - type: time_based
    operator: ">="
    value: "2024-01-01T00:00:00Z"
actions:
  - type: sell_limit
    symbol: BTCUSDT
    quantity: 0.5
    price: 51000
    timeInForce: IOC
riskManagement:
  maxPositionSize: 30000
  stopLoss: 0.05
  maxDrawdown: 0.1
  dailyLossLimit: 100
`

	s, err := suite.parser.Parse(input, FormatYAML)
	suite.Require().NoError(err)
	suite.Equal("yaml strategy", s.Name)
	suite.Equal(types.ConditionTypeTimeBased, s.Conditions[0].Type)
	suite.True(s.Conditions[0].Value.IsText())
	suite.Equal(types.TimeInForceIOC, s.Actions[0].TimeInForce)
	suite.Equal(0.05, s.RiskManagement.StopLoss.Unwrap())
	suite.True(s.RiskManagement.TakeProfit.IsNone())

	_, err = suite.parser.Parse("name: [unterminated", FormatYAML)
	suite.True(errors.HasCode(err, errors.ErrCodeMalformedInput))
}

func (suite *ParserTestSuite) TestUnsupportedFormat() {
	_, err := suite.parser.Parse("<strategy/>", Format("xml"))
	suite.True(errors.HasCode(err, errors.ErrCodeUnsupportedFormat))
	suite.True(errors.IsParseError(err))
}

func (suite *ParserTestSuite) TestEngineVersionGate() {
	base := `{"name":"v","conditions":[{"type":"price_threshold","operator":">","value":1}],"actions":[{"type":"buy_market","symbol":"A","quantity":1}],"engineVersion":%q}`

	_, err := suite.parser.Parse(fmt.Sprintf(base, "0.3.0"), FormatJSON)
	suite.NoError(err)

	_, err = suite.parser.Parse(fmt.Sprintf(base, "0.2.0"), FormatJSON)
	suite.True(errors.HasCode(err, errors.ErrCodeVersionMismatch))
	suite.True(errors.IsParseError(err))
}

func (suite *ParserTestSuite) TestPackageParse() {
	s, err := Parse("STRATEGY: pkg\nIF A price > 1\nTHEN SELL_MARKET A 2", FormatDSL)
	suite.NoError(err)
	suite.Equal("pkg", s.Name)
}
