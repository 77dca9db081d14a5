package parser

import (
	"strconv"
	"strings"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

const (
	dslStrategyKeyword = "STRATEGY:"
	dslIfKeyword       = "IF"
	dslThenKeyword     = "THEN"
	dslPriceKeyword    = "at"
)

// parseDSL reads the line grammar:
//
//	STRATEGY: <name>
//	IF <symbol> <field> <operator> <value>
//	THEN <ACTION_TYPE> <symbol> <quantity> [at <price>]
//
// Other lines are ignored. The IF field token is not interpreted; every IF line is a price threshold.
func parseDSL(input string) (document, error) {
	var doc document

	for n, raw := range strings.Split(input, "\n") {
		line := strings.TrimSpace(raw)
		lineNo := n + 1

		switch {
		case strings.HasPrefix(line, dslStrategyKeyword):
			_, name, _ := strings.Cut(line, ":")
			doc.Name = strings.TrimSpace(name)
		case hasKeyword(line, dslIfKeyword):
			condition, err := parseIfLine(line, lineNo)
			if err != nil {
				return document{}, err
			}

			doc.Conditions = append(doc.Conditions, condition)
		case hasKeyword(line, dslThenKeyword):
			action, err := parseThenLine(line, lineNo)
			if err != nil {
				return document{}, err
			}

			doc.Actions = append(doc.Actions, action)
		}
	}

	return doc, nil
}

func hasKeyword(line, keyword string) bool {
	fields := strings.Fields(line)

	return len(fields) > 0 && fields[0] == keyword
}

func parseIfLine(line string, lineNo int) (types.Condition, error) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return types.Condition{}, errors.Newf(errors.ErrCodeMalformedInput,
			"line %d: expected IF <symbol> <field> <operator> <value>", lineNo)
	}

	value, err := strconv.ParseFloat(fields[4], 64)
	if err != nil {
		return types.Condition{}, errors.Wrapf(errors.ErrCodeMalformedInput, err, "line %d: invalid value %q", lineNo, fields[4])
	}

	return types.Condition{
		Type:     types.ConditionTypePriceThreshold,
		Symbol:   fields[1],
		Operator: types.Operator(fields[3]),
		Value:    types.NumberValue(value),
	}, nil
}

func parseThenLine(line string, lineNo int) (types.Action, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return types.Action{}, errors.Newf(errors.ErrCodeMalformedInput,
			"line %d: expected THEN <ACTION_TYPE> <symbol> <quantity> [at <price>]", lineNo)
	}

	action := types.Action{
		Type:       types.ActionType(strings.ToLower(fields[1])),
		Symbol:     fields[2],
		Price:      optional.None[float64](),
		Conditions: []string{},
	}

	if len(fields) > 3 {
		quantity, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return types.Action{}, errors.Wrapf(errors.ErrCodeMalformedInput, err, "line %d: invalid quantity %q", lineNo, fields[3])
		}

		action.Quantity = quantity
	}

	if len(fields) > 5 && fields[4] == dslPriceKeyword {
		price, err := strconv.ParseFloat(fields[5], 64)
		if err != nil {
			return types.Action{}, errors.Wrapf(errors.ErrCodeMalformedInput, err, "line %d: invalid price %q", lineNo, fields[5])
		}

		action.Price = optional.Some(price)
	}

	return action, nil
}
