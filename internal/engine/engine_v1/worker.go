package engine_v1

import (
	"context"

	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"go.uber.org/zap"
)

// worker evaluates one strategy's ticks in arrival order.
type worker struct {
	mailbox chan types.MarketData
	cancel  context.CancelFunc
}

// startWorkerLocked starts a worker for the strategy unless one is already running. Requires e.mu.
func (e *EngineV1) startWorkerLocked(strategyID string) {
	if _, ok := e.workers[strategyID]; ok {
		return
	}

	ctx, cancel := context.WithCancel(e.runCtx)
	w := &worker{
		mailbox: make(chan types.MarketData, e.config.MailboxSize),
		cancel:  cancel,
	}
	e.workers[strategyID] = w

	e.wg.Add(1)

	go e.runWorker(ctx, strategyID, w)
}

// stopWorkerLocked cancels the strategy's worker if it has one. Requires e.mu.
func (e *EngineV1) stopWorkerLocked(strategyID string) {
	w, ok := e.workers[strategyID]
	if !ok {
		return
	}

	w.cancel()
	delete(e.workers, strategyID)
}

func (e *EngineV1) runWorker(ctx context.Context, strategyID string, w *worker) {
	defer e.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case data := <-w.mailbox:
			s, ok := e.GetStrategyByID(strategyID)
			if !ok || !s.IsActive() {
				continue
			}

			e.evaluate(ctx, s, data)
		}
	}
}

// dispatch hands a tick to every running worker without blocking.
// A full mailbox drops the tick for that strategy only.
func (e *EngineV1) dispatch(data types.MarketData) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}

	for strategyID, w := range e.workers {
		select {
		case w.mailbox <- data:
		default:
			e.log.Warn("Strategy mailbox full, dropping tick",
				zap.String("strategy_id", strategyID),
				zap.String("symbol", data.Symbol),
			)
		}
	}
}
