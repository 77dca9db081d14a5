package engine_v1

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-autotrader/internal/gateway"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// evaluate runs one strategy against one tick. Failures are logged and never escape.
func (e *EngineV1) evaluate(ctx context.Context, s types.Strategy, data types.MarketData) {
	defer func() {
		if r := recover(); r != nil {
			e.strategyError(s.ID, data, errors.Newf(errors.ErrCodeUnknown, "strategy evaluation panicked: %v", r))
		}
	}()

	met, err := e.conditionsMet(ctx, s, data)
	if err != nil {
		e.strategyError(s.ID, data, err)

		return
	}

	if !met {
		return
	}

	e.audit.Info(fmt.Sprintf("Strategy conditions met: %s", s.Name), map[string]any{
		"strategyId": s.ID,
		"symbol":     data.Symbol,
		"price":      data.Price,
	})

	e.executeActions(ctx, s, data)
}

// conditionsMet is the short-circuit AND of the strategy's conditions in declaration order.
func (e *EngineV1) conditionsMet(ctx context.Context, s types.Strategy, data types.MarketData) (bool, error) {
	for _, c := range s.Conditions {
		predicate, err := c.Predicate()
		if err != nil {
			return false, errors.Wrap(errors.ErrCodeValidation, "invalid condition", err)
		}

		met, err := e.holds(ctx, predicate, data)
		if err != nil {
			return false, err
		}

		if !met {
			return false, nil
		}
	}

	return true, nil
}

func (e *EngineV1) holds(ctx context.Context, predicate types.Predicate, data types.MarketData) (bool, error) {
	switch p := predicate.(type) {
	case types.PriceThreshold:
		if p.Symbol != "" && p.Symbol != data.Symbol {
			return false, nil
		}

		return p.Operator.Compare(data.Price, p.Value), nil
	case types.VolumeThreshold:
		if p.Symbol != "" && p.Symbol != data.Symbol {
			return false, nil
		}

		return p.Operator.Compare(data.Volume, p.Value), nil
	case types.TimeBased:
		return !e.now().Before(p.At), nil
	case types.IndicatorCheck:
		met, err := e.indicator.Evaluate(ctx, p, data)
		if err != nil {
			return false, errors.Wrap(errors.ErrCodeUnknown, "indicator evaluation failed", err)
		}

		return met, nil
	default:
		return false, errors.Newf(errors.ErrCodeValidation, "unsupported condition %T", predicate)
	}
}

// executeActions fires every action in order. One action failing does not stop the next,
// and an engine stop arriving mid-evaluation lets the remaining actions run.
func (e *EngineV1) executeActions(ctx context.Context, s types.Strategy, data types.MarketData) {
	for _, action := range s.Actions {
		if action.Type == types.ActionTypeCancelOrder {
			e.cancelStrategyOrders(ctx, s, action)

			continue
		}

		e.placeAction(ctx, s, action)
	}
}

func (e *EngineV1) placeAction(ctx context.Context, s types.Strategy, action types.Action) {
	orderType, ok := action.Type.OrderType()
	if !ok {
		e.strategyError(s.ID, types.MarketData{Symbol: action.Symbol}, errors.Newf(errors.ErrCodeValidation, "unsupported action type %q", action.Type))

		return
	}

	order := types.Order{
		ID:          uuid.New().String(),
		StrategyID:  s.ID,
		Symbol:      action.Symbol,
		Type:        orderType,
		Quantity:    action.Quantity,
		Price:       action.Price,
		TimeInForce: action.TimeInForce,
		Status:      types.OrderStatusPending,
		CreatedAt:   e.now(),
	}

	// Market orders carry no price and count as zero notional.
	notional := order.Notional(0)
	limit := decimal.NewFromFloat(s.RiskManagement.MaxPositionSize)

	if notional.GreaterThan(limit) {
		e.audit.Warning("Risk limit exceeded, order not submitted", map[string]any{
			"strategyId":      s.ID,
			"symbol":          order.Symbol,
			"quantity":        order.Quantity,
			"notional":        notional.String(),
			"maxPositionSize": s.RiskManagement.MaxPositionSize,
		})

		order.Status = types.OrderStatusRejected
		e.orderRejected(order, errors.Newf(errors.ErrCodeRiskRejected,
			"notional %s exceeds max position size %s", notional.String(), limit.String()))

		return
	}

	actionCtx, cancel := e.actionContext(ctx)
	exchangeOrderID, err := e.gateway.PlaceOrder(actionCtx, order)
	cancel()

	if err != nil {
		// Orders the venue never accepted are not tracked in the ledger.
		order.Status = types.OrderStatusRejected

		e.audit.Error("Failed to place order", map[string]any{
			"strategyId": s.ID,
			"orderId":    order.ID,
			"symbol":     order.Symbol,
			"error":      err.Error(),
		})
		e.orderRejected(order, err)

		return
	}

	order.ExchangeOrderID = exchangeOrderID
	e.ledger.Add(order)

	e.audit.Info(fmt.Sprintf("Order placed: %s %v %s", order.Type, order.Quantity, order.Symbol), map[string]any{
		"strategyId":      s.ID,
		"orderId":         order.ID,
		"exchangeOrderId": exchangeOrderID,
	})

	if e.callbacks.OnOrderPlaced != nil {
		(*e.callbacks.OnOrderPlaced)(order)
	}
}

// actionContext bounds one venue action by ActionTimeout. Cancelling ctx only interrupts
// retry backoff; a venue call already on the wire runs to completion.
func (e *EngineV1) actionContext(ctx context.Context) (context.Context, context.CancelFunc) {
	actionCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.config.ActionTimeout)

	return gateway.WithBackoffContext(actionCtx, ctx), cancel
}

// cancelStrategyOrders cancels the strategy's pending orders for the action's symbol.
func (e *EngineV1) cancelStrategyOrders(ctx context.Context, s types.Strategy, action types.Action) {
	for _, order := range e.ledger.ByStrategy(s.ID) {
		if order.Status != types.OrderStatusPending || order.Symbol != action.Symbol {
			continue
		}

		actionCtx, cancel := e.actionContext(ctx)
		err := e.cancelTracked(actionCtx, order)
		cancel()

		if err != nil {
			e.log.Warn("Cancel action failed", zap.String("order_id", order.ID), zap.Error(err))
		}
	}
}

// cancelTracked cancels the order at the venue, then marks it cancelled locally.
func (e *EngineV1) cancelTracked(ctx context.Context, order types.Order) error {
	confirmed, err := e.gateway.CancelOrder(ctx, order.ExchangeOrderID)
	if err != nil {
		e.audit.Error("Failed to cancel order", map[string]any{
			"strategyId": order.StrategyID,
			"orderId":    order.ID,
			"error":      err.Error(),
		})

		return err
	}

	e.ledger.Cancel(order.ID)

	e.audit.Info("Order cancelled", map[string]any{
		"strategyId":     order.StrategyID,
		"orderId":        order.ID,
		"venueConfirmed": confirmed,
	})

	if updated, ok := e.ledger.Get(order.ID); ok {
		e.statusChanged(updated, order.Status)
	}

	return nil
}

// CancelOrder implements engine.Engine.
func (e *EngineV1) CancelOrder(ctx context.Context, orderID string) error {
	order, ok := e.ledger.Get(orderID)
	if !ok {
		return errors.Newf(errors.ErrCodeVenueOrderNotFound, "order not found: %s", orderID)
	}

	return e.cancelTracked(ctx, order)
}

func (e *EngineV1) strategyError(strategyID string, data types.MarketData, err error) {
	e.audit.Error("Strategy evaluation failed", map[string]any{
		"strategyId": strategyID,
		"symbol":     data.Symbol,
		"error":      err.Error(),
	})

	if e.callbacks.OnStrategyError != nil {
		(*e.callbacks.OnStrategyError)(strategyID, data, err)
	}
}

func (e *EngineV1) orderRejected(order types.Order, reason error) {
	if e.callbacks.OnOrderRejected != nil {
		(*e.callbacks.OnOrderRejected)(order, reason)
	}
}

func (e *EngineV1) statusChanged(order types.Order, previous types.OrderStatus) {
	if order.Status == previous {
		return
	}

	if e.callbacks.OnOrderStatusChanged != nil {
		(*e.callbacks.OnOrderStatusChanged)(order, previous)
	}
}
