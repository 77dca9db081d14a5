package marketdata

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/stretchr/testify/suite"
)

// mockBinanceWebSocketService implements BinanceWebSocketService for testing.
type mockBinanceWebSocketService struct {
	mu         sync.Mutex
	events     map[string][]*binance.WsMarketStatEvent
	startError error
	opened     []string
	stopped    []string
}

func (m *mockBinanceWebSocketService) WsMarketStatServe(
	symbol string,
	handler binance.WsMarketStatHandler,
	errHandler binance.ErrHandler,
) (chan struct{}, chan struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.startError != nil {
		return nil, nil, m.startError
	}

	m.opened = append(m.opened, symbol)

	doneC := make(chan struct{})
	stopC := make(chan struct{})
	events := m.events[symbol]

	go func() {
		defer close(doneC)

		for _, event := range events {
			handler(event)
		}

		errHandler(errors.New("transient read error"))

		<-stopC

		m.mu.Lock()
		m.stopped = append(m.stopped, symbol)
		m.mu.Unlock()
	}()

	return doneC, stopC, nil
}

func (m *mockBinanceWebSocketService) stoppedSymbols() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.stopped...)
}

type BinanceSourceTestSuite struct {
	suite.Suite
}

func TestBinanceSourceSuite(t *testing.T) {
	suite.Run(t, new(BinanceSourceTestSuite))
}

func (suite *BinanceSourceTestSuite) TestStreamsSubscribedSymbols() {
	ws := &mockBinanceWebSocketService{
		events: map[string][]*binance.WsMarketStatEvent{
			"BTCUSDT": {{
				Symbol:     "BTCUSDT",
				Time:       1704067200000,
				LastPrice:  "48000.5",
				BidPrice:   "48000",
				AskPrice:   "48001",
				HighPrice:  "49000",
				LowPrice:   "47000",
				BaseVolume: "1234.5",
			}},
		},
	}

	source := NewBinanceSourceWithService(ws, logger.NewNopLogger())

	ticks := make(chan types.MarketData, 10)
	source.Listen(func(tick types.MarketData) { ticks <- tick })

	suite.Require().NoError(source.Subscribe("btcusdt"))
	suite.Require().NoError(source.Start(context.Background()))

	select {
	case tick := <-ticks:
		suite.Equal("BTCUSDT", tick.Symbol)
		suite.Equal(48000.5, tick.Price)
		suite.Equal(1234.5, tick.Volume)
		suite.Equal(48000.0, tick.Bid.Unwrap())
		suite.Equal(47000.0, tick.Low24h.Unwrap())
		suite.Equal(int64(1704067200000), tick.Timestamp.UnixMilli())
	case <-time.After(2 * time.Second):
		suite.Fail("no tick received")
	}

	suite.Require().NoError(source.Unsubscribe("BTCUSDT"))
	suite.Eventually(func() bool {
		return len(ws.stoppedSymbols()) == 1
	}, time.Second, 10*time.Millisecond)

	suite.NoError(source.Stop())
}

func (suite *BinanceSourceTestSuite) TestSubscribeWhileRunning() {
	ws := &mockBinanceWebSocketService{}
	source := NewBinanceSourceWithService(ws, logger.NewNopLogger())

	suite.Require().NoError(source.Start(context.Background()))
	suite.Require().NoError(source.Subscribe("ETHUSDT"))
	suite.Require().NoError(source.Subscribe("ETHUSDT"))

	suite.Eventually(func() bool {
		ws.mu.Lock()
		defer ws.mu.Unlock()

		return len(ws.opened) == 1
	}, time.Second, 10*time.Millisecond)

	suite.NoError(source.Stop())
	suite.Equal([]string{"ETHUSDT"}, ws.stoppedSymbols())
	suite.NoError(source.Stop())
}

func (suite *BinanceSourceTestSuite) TestConnectFailureDoesNotBlockStop() {
	ws := &mockBinanceWebSocketService{startError: errors.New("dial failed")}
	source := NewBinanceSourceWithService(ws, logger.NewNopLogger())
	source.reconnectDelay = time.Hour

	suite.Require().NoError(source.Subscribe("BTCUSDT"))
	suite.Require().NoError(source.Start(context.Background()))
	suite.NoError(source.Stop())
}

func (suite *BinanceSourceTestSuite) TestConvertMarketStatEvent() {
	tick := convertMarketStatEvent(&binance.WsMarketStatEvent{
		Symbol:     "SOLUSDT",
		LastPrice:  "100",
		BaseVolume: "not-a-number",
	})

	suite.Equal(100.0, tick.Price)
	suite.Equal(0.0, tick.Volume)
	suite.True(tick.Bid.IsNone())
}
