package ledger

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/stretchr/testify/suite"
)

type LedgerTestSuite struct {
	suite.Suite
	ledger *Ledger
	base   time.Time
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerTestSuite))
}

func (suite *LedgerTestSuite) SetupTest() {
	suite.ledger = NewLedger()
	suite.base = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (suite *LedgerTestSuite) order(id, strategyID string, offset time.Duration) types.Order {
	return types.Order{
		ID:         id,
		StrategyID: strategyID,
		Symbol:     "BTCUSDT",
		Type:       types.OrderTypeBuyLimit,
		Quantity:   1,
		Price:      optional.Some(100.0),
		Status:     types.OrderStatusPending,
		CreatedAt:  suite.base.Add(offset),
	}
}

func (suite *LedgerTestSuite) TestAddAndGet() {
	suite.ledger.Add(suite.order("o1", "s1", 0))

	order, ok := suite.ledger.Get("o1")
	suite.True(ok)
	suite.Equal("s1", order.StrategyID)

	_, ok = suite.ledger.Get("missing")
	suite.False(ok)
}

func (suite *LedgerTestSuite) TestByStrategyKeepsInsertionOrder() {
	suite.ledger.Add(suite.order("o2", "s1", time.Minute))
	suite.ledger.Add(suite.order("o1", "s1", 0))
	suite.ledger.Add(suite.order("o3", "s2", 0))

	orders := suite.ledger.ByStrategy("s1")
	suite.Require().Len(orders, 2)
	suite.Equal("o2", orders[0].ID)
	suite.Equal("o1", orders[1].ID)
	suite.Empty(suite.ledger.ByStrategy("unknown"))
}

func (suite *LedgerTestSuite) TestPending() {
	suite.ledger.Add(suite.order("o1", "s1", 0))
	suite.ledger.Add(suite.order("o2", "s1", time.Second))
	suite.ledger.UpdateStatus("o1", types.OrderStatusCancelled)

	pending := suite.ledger.Pending()
	suite.Require().Len(pending, 1)
	suite.Equal("o2", pending[0].ID)
}

func (suite *LedgerTestSuite) TestUpdateStatus() {
	suite.ledger.Add(suite.order("o1", "s1", 0))

	suite.ledger.UpdateStatus("o1", types.OrderStatusFilled)
	order, _ := suite.ledger.Get("o1")
	suite.Equal(types.OrderStatusFilled, order.Status)
	suite.True(order.FilledAt.IsSome())

	suite.ledger.UpdateStatus("unknown", types.OrderStatusFilled)
	suite.Equal(1, suite.ledger.Len())
}

func (suite *LedgerTestSuite) TestUpdateFill() {
	suite.ledger.Add(suite.order("o1", "s1", 0))

	suite.ledger.UpdateFill("o1", 0.4, 99)
	order, _ := suite.ledger.Get("o1")
	suite.Equal(types.OrderStatusPending, order.Status)
	suite.Equal(0.4, order.FilledQuantity.Unwrap())
	suite.True(order.FilledAt.IsNone())

	suite.ledger.UpdateFill("o1", 1, 99.5)
	order, _ = suite.ledger.Get("o1")
	suite.Equal(types.OrderStatusFilled, order.Status)
	suite.Equal(99.5, order.FilledPrice.Unwrap())
	suite.True(order.FilledAt.IsSome())
}

func (suite *LedgerTestSuite) TestUpdateFillKeepsTerminalStatus() {
	suite.ledger.Add(suite.order("o1", "s1", 0))
	suite.ledger.Cancel("o1")

	order, promoted := suite.ledger.UpdateFill("o1", 1, 100)
	suite.False(promoted)
	suite.Equal(types.OrderStatusCancelled, order.Status)
	suite.Equal(1.0, order.FilledQuantity.Unwrap())

	_, promoted = suite.ledger.UpdateFill("unknown", 1, 100)
	suite.False(promoted)
}

func (suite *LedgerTestSuite) TestTransition() {
	suite.ledger.Add(suite.order("o1", "s1", 0))

	order, ok := suite.ledger.Transition("o1", types.OrderStatusPending, types.OrderStatusFilled)
	suite.True(ok)
	suite.Equal(types.OrderStatusFilled, order.Status)
	suite.True(order.FilledAt.IsSome())

	// Stale snapshot: the order is no longer pending.
	_, ok = suite.ledger.Transition("o1", types.OrderStatusPending, types.OrderStatusExpired)
	suite.False(ok)

	stored, _ := suite.ledger.Get("o1")
	suite.Equal(types.OrderStatusFilled, stored.Status)

	_, ok = suite.ledger.Transition("unknown", types.OrderStatusPending, types.OrderStatusFilled)
	suite.False(ok)
}

func (suite *LedgerTestSuite) TestCancelOverridesAnyStatus() {
	suite.ledger.Add(suite.order("o1", "s1", 0))
	suite.ledger.UpdateStatus("o1", types.OrderStatusFilled)

	suite.ledger.Cancel("o1")
	order, _ := suite.ledger.Get("o1")
	suite.Equal(types.OrderStatusCancelled, order.Status)

	suite.ledger.Cancel("unknown")
}

func (suite *LedgerTestSuite) TestHistory() {
	suite.ledger.Add(suite.order("old", "s1", 0))
	suite.ledger.Add(suite.order("new", "s2", 2*time.Minute))
	suite.ledger.Add(suite.order("mid", "s1", time.Minute))

	history := suite.ledger.History(2)
	suite.Require().Len(history, 2)
	suite.Equal("new", history[0].ID)
	suite.Equal("mid", history[1].ID)
	suite.Len(suite.ledger.History(0), 3)
}

func (suite *LedgerTestSuite) TestReturnsCopies() {
	suite.ledger.Add(suite.order("o1", "s1", 0))

	order, _ := suite.ledger.Get("o1")
	order.Status = types.OrderStatusRejected

	stored, _ := suite.ledger.Get("o1")
	suite.Equal(types.OrderStatusPending, stored.Status)
}

func (suite *LedgerTestSuite) TestObserver() {
	var seen []types.OrderStatus
	suite.ledger.OnChange(func(order types.Order) {
		seen = append(seen, order.Status)
	})

	suite.ledger.Add(suite.order("o1", "s1", 0))
	suite.ledger.UpdateStatus("o1", types.OrderStatusExpired)
	suite.ledger.UpdateStatus("missing", types.OrderStatusExpired)

	suite.Equal([]types.OrderStatus{types.OrderStatusPending, types.OrderStatusExpired}, seen)
}

func (suite *LedgerTestSuite) TestConcurrentAccess() {
	var wg sync.WaitGroup

	for i := range 50 {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			id := fmt.Sprintf("o%d", i)
			suite.ledger.Add(suite.order(id, fmt.Sprintf("s%d", i%5), time.Duration(i)*time.Second))
			suite.ledger.UpdateFill(id, 0.5, 100)
			suite.ledger.Pending()
			suite.ledger.History(10)
		}(i)
	}

	wg.Wait()

	suite.Equal(50, suite.ledger.Len())
	suite.Len(suite.ledger.ByStrategy("s0"), 10)
	suite.Len(suite.ledger.Pending(), 50)
}
