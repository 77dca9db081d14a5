package marketdata

import (
	"testing"

	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/stretchr/testify/suite"
)

type BroadcasterTestSuite struct {
	suite.Suite
	broadcaster *Broadcaster
}

func TestBroadcasterSuite(t *testing.T) {
	suite.Run(t, new(BroadcasterTestSuite))
}

func (suite *BroadcasterTestSuite) SetupTest() {
	suite.broadcaster = NewBroadcaster(logger.NewNopLogger())
}

func (suite *BroadcasterTestSuite) TestEmitInRegistrationOrder() {
	var order []string

	suite.broadcaster.Listen(func(types.MarketData) { order = append(order, "first") })
	suite.broadcaster.Listen(func(types.MarketData) { order = append(order, "second") })

	suite.broadcaster.Emit(types.MarketData{Symbol: "BTCUSDT"})
	suite.Equal([]string{"first", "second"}, order)
}

func (suite *BroadcasterTestSuite) TestCancelRemovesOnlyThatHandler() {
	var a, b int

	subA := suite.broadcaster.Listen(func(types.MarketData) { a++ })
	suite.broadcaster.Listen(func(types.MarketData) { b++ })

	subA.Cancel()
	subA.Cancel()
	suite.broadcaster.Emit(types.MarketData{})

	suite.Equal(0, a)
	suite.Equal(1, b)
	suite.Equal(1, suite.broadcaster.Listeners())
}

func (suite *BroadcasterTestSuite) TestPanickingHandlerIsIsolated() {
	var delivered bool

	suite.broadcaster.Listen(func(types.MarketData) { panic("boom") })
	suite.broadcaster.Listen(func(types.MarketData) { delivered = true })

	suite.NotPanics(func() {
		suite.broadcaster.Emit(types.MarketData{Symbol: "ETHUSDT"})
	})
	suite.True(delivered)
}

func (suite *BroadcasterTestSuite) TestSymbolSet() {
	set := newSymbolSet()

	suite.True(set.add("B"))
	suite.False(set.add("B"))
	suite.True(set.add("A"))
	suite.Equal([]string{"A", "B"}, set.list())
	suite.True(set.remove("A"))
	suite.False(set.remove("A"))
	suite.False(set.has("A"))
}
