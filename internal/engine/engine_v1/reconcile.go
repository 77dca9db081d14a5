package engine_v1

import (
	"context"
	"fmt"
	"time"

	"github.com/rxtech-lab/argo-autotrader/internal/types"
)

func (e *EngineV1) reconcileLoop(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.config.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Reconcile(ctx)
		}
	}
}

// Reconcile implements engine.Engine. Passes never overlap, so updates for an order
// apply in the order the venue reported them. Errors are logged and retried next pass.
func (e *EngineV1) Reconcile(ctx context.Context) {
	e.reconcileMu.Lock()
	defer e.reconcileMu.Unlock()

	for _, order := range e.ledger.Pending() {
		if ctx.Err() != nil {
			return
		}

		update, err := e.gateway.GetOrderStatus(ctx, order.ExchangeOrderID)
		if err != nil {
			e.audit.Warning("Failed to reconcile order", map[string]any{
				"strategyId": order.StrategyID,
				"orderId":    order.ID,
				"error":      err.Error(),
			})

			continue
		}

		e.applyUpdate(order, update)
	}
}

// applyUpdate applies a venue report to the pending snapshot it was queried for.
// Orders that reached a terminal state locally in the meantime, such as a cancel
// landing mid-query, keep that state.
func (e *EngineV1) applyUpdate(order types.Order, update types.OrderUpdate) {
	current, ok := e.ledger.Get(order.ID)
	if !ok || current.Status.IsTerminal() {
		return
	}

	changed := false

	if filled, err := update.FilledQuantity.Take(); err == nil {
		if previous, err := current.FilledQuantity.Take(); err != nil || previous != filled {
			current, changed = e.ledger.UpdateFill(order.ID, filled, update.FilledPrice.TakeOr(0))
		}
	}

	if !changed && update.Status != "" && update.Status != order.Status {
		current, changed = e.ledger.Transition(order.ID, order.Status, update.Status)
	}

	if !changed {
		return
	}

	e.audit.Info(fmt.Sprintf("Order status changed: %s -> %s", order.Status, current.Status), map[string]any{
		"strategyId": order.StrategyID,
		"orderId":    order.ID,
		"from":       string(order.Status),
		"to":         string(current.Status),
	})

	e.statusChanged(current, order.Status)
}
