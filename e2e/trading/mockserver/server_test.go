package mockserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rxtech-lab/argo-autotrader/internal/marketdata"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/stretchr/testify/suite"
)

type MockServerTestSuite struct {
	suite.Suite
	server *MockBinanceServer
}

func TestMockServerSuite(t *testing.T) {
	suite.Run(t, new(MockServerTestSuite))
}

func (suite *MockServerTestSuite) SetupTest() {
	suite.server = NewMockBinanceServer(map[string]float64{
		"USDT": 10000.0,
		"BTC":  1.0,
	})
	suite.Require().NoError(suite.server.Start(""))
}

func (suite *MockServerTestSuite) TearDownTest() {
	if suite.server != nil {
		suite.server.Stop()
	}
}

func (suite *MockServerTestSuite) postOrder(form url.Values) (*http.Response, map[string]any) {
	resp, err := http.Post(
		suite.server.BaseURL()+"/api/v3/order",
		"application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()),
	)
	suite.Require().NoError(err)
	defer resp.Body.Close()

	var body map[string]any
	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))

	return resp, body
}

func limitOrderForm() url.Values {
	form := url.Values{}
	form.Set("symbol", "BTCUSDT")
	form.Set("side", "BUY")
	form.Set("type", "LIMIT")
	form.Set("quantity", "0.1")
	form.Set("price", "45000")
	form.Set("timeInForce", "GTC")
	form.Set("newClientOrderId", "client-1")

	return form
}

func (suite *MockServerTestSuite) TestMarketOrderFillsAtCurrentPrice() {
	suite.server.SetPrice("BTCUSDT", 50000.0)

	form := url.Values{}
	form.Set("symbol", "BTCUSDT")
	form.Set("side", "BUY")
	form.Set("type", "MARKET")
	form.Set("quantity", "0.1")

	resp, order := suite.postOrder(form)

	suite.Equal(http.StatusOK, resp.StatusCode)
	suite.Equal("FILLED", order["status"])
	suite.Equal("0.10000000", order["executedQty"])
	suite.Equal("5000.00000000", order["cummulativeQuoteQty"])
}

func (suite *MockServerTestSuite) TestMarketOrderWithoutPrice() {
	form := url.Values{}
	form.Set("symbol", "ETHUSDT")
	form.Set("side", "BUY")
	form.Set("type", "MARKET")
	form.Set("quantity", "1")

	resp, body := suite.postOrder(form)

	suite.Equal(http.StatusBadRequest, resp.StatusCode)
	suite.EqualValues(-1121, body["code"])
}

func (suite *MockServerTestSuite) TestLimitOrderRestsUntilFilled() {
	resp, order := suite.postOrder(limitOrderForm())
	suite.Require().Equal(http.StatusOK, resp.StatusCode)
	suite.Equal("NEW", order["status"])
	suite.Equal("client-1", order["clientOrderId"])

	orderID := int64(order["orderId"].(float64))
	suite.Require().NoError(suite.server.Fill(orderID))

	getResp, err := http.Get(fmt.Sprintf("%s/api/v3/order?symbol=BTCUSDT&orderId=%d", suite.server.BaseURL(), orderID))
	suite.Require().NoError(err)
	defer getResp.Body.Close()

	var fetched map[string]any
	suite.Require().NoError(json.NewDecoder(getResp.Body).Decode(&fetched))
	suite.Equal("FILLED", fetched["status"])
	suite.Equal("4500.00000000", fetched["cummulativeQuoteQty"])

	suite.Error(suite.server.Fill(orderID))
}

func (suite *MockServerTestSuite) TestMissingParameters() {
	form := url.Values{}
	form.Set("symbol", "BTCUSDT")

	resp, body := suite.postOrder(form)

	suite.Equal(http.StatusBadRequest, resp.StatusCode)
	suite.EqualValues(-1102, body["code"])
	suite.Equal(0, suite.server.Orders())
}

func (suite *MockServerTestSuite) TestRejectNext() {
	suite.server.RejectNext(1)

	resp, body := suite.postOrder(limitOrderForm())
	suite.Equal(http.StatusServiceUnavailable, resp.StatusCode)
	suite.EqualValues(-1001, body["code"])

	resp, _ = suite.postOrder(limitOrderForm())
	suite.Equal(http.StatusOK, resp.StatusCode)
	suite.Equal(1, suite.server.Orders())
}

func (suite *MockServerTestSuite) TestCancelOrder() {
	_, order := suite.postOrder(limitOrderForm())
	orderID := int64(order["orderId"].(float64))

	req, _ := http.NewRequest(http.MethodDelete,
		fmt.Sprintf("%s/api/v3/order?symbol=BTCUSDT&orderId=%d", suite.server.BaseURL(), orderID), nil)
	resp, err := http.DefaultClient.Do(req)
	suite.Require().NoError(err)
	resp.Body.Close()

	suite.Equal(http.StatusOK, resp.StatusCode)
	suite.Equal(StatusCanceled, suite.server.GetOrder(orderID).Status)

	// Cancelling twice is an error.
	resp, err = http.DefaultClient.Do(req)
	suite.Require().NoError(err)
	resp.Body.Close()

	suite.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (suite *MockServerTestSuite) TestCancelOrderWrongSymbol() {
	_, order := suite.postOrder(limitOrderForm())
	orderID := int64(order["orderId"].(float64))

	req, _ := http.NewRequest(http.MethodDelete,
		fmt.Sprintf("%s/api/v3/order?symbol=ETHUSDT&orderId=%d", suite.server.BaseURL(), orderID), nil)
	resp, err := http.DefaultClient.Do(req)
	suite.Require().NoError(err)
	resp.Body.Close()

	suite.Equal(http.StatusBadRequest, resp.StatusCode)
	suite.Equal(StatusNew, suite.server.GetOrder(orderID).Status)
}

func (suite *MockServerTestSuite) TestAccountAndDepth() {
	suite.server.SetOrderBook(types.OrderBook{
		Symbol: "BTCUSDT",
		Bids:   []types.PriceLevel{{Price: 49990, Quantity: 1}},
		Asks:   []types.PriceLevel{{Price: 50010, Quantity: 2}},
	})

	resp, err := http.Get(suite.server.BaseURL() + "/api/v3/account")
	suite.Require().NoError(err)

	var account struct {
		Balances []map[string]string `json:"balances"`
	}
	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(&account))
	resp.Body.Close()
	suite.Len(account.Balances, 2)

	resp, err = http.Get(suite.server.BaseURL() + "/api/v3/depth?symbol=BTCUSDT&limit=20")
	suite.Require().NoError(err)
	defer resp.Body.Close()

	var depth struct {
		Bids [][]string `json:"bids"`
		Asks [][]string `json:"asks"`
	}
	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(&depth))
	suite.Equal([][]string{{"49990.00000000", "1.00000000"}}, depth.Bids)
	suite.Equal([][]string{{"50010.00000000", "2.00000000"}}, depth.Asks)
}

func (suite *MockServerTestSuite) TestTickStreamHonorsSubscriptions() {
	conn, _, err := websocket.DefaultDialer.Dial(suite.server.TicksURL(), nil)
	suite.Require().NoError(err)
	defer conn.Close()

	suite.Require().NoError(conn.WriteJSON(marketdata.ControlMessage{Type: "subscribe", Symbols: []string{"btcusdt"}}))
	suite.Eventually(func() bool {
		return suite.server.Subscribers("BTCUSDT") == 1
	}, time.Second, 10*time.Millisecond)

	suite.Equal(0, suite.server.Broadcast(types.MarketData{Symbol: "ETHUSDT", Price: 3000}))
	suite.Equal(1, suite.server.Broadcast(types.MarketData{Symbol: "BTCUSDT", Price: 50000}))

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))

	var tick types.MarketData
	suite.Require().NoError(conn.ReadJSON(&tick))
	suite.Equal("BTCUSDT", tick.Symbol)
	suite.Equal(50000.0, tick.Price)

	suite.Require().NoError(conn.WriteJSON(marketdata.ControlMessage{Type: "unsubscribe", Symbols: []string{"BTCUSDT"}}))
	suite.Eventually(func() bool {
		return suite.server.Subscribers("BTCUSDT") == 0
	}, time.Second, 10*time.Millisecond)
}
