package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/adshao/go-binance/v2"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	pkgerrors "github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/stretchr/testify/suite"
)

// mockBinanceClient implements BinanceClient for testing.
type mockBinanceClient struct {
	createOrderService *mockCreateOrderService
	cancelOrderService *mockCancelOrderService
	getOrderService    *mockGetOrderService
	getAccountService  *mockGetAccountService
	depthService       *mockDepthService
}

func newMockBinanceClient() *mockBinanceClient {
	return &mockBinanceClient{
		createOrderService: &mockCreateOrderService{},
		cancelOrderService: &mockCancelOrderService{},
		getOrderService:    &mockGetOrderService{},
		getAccountService:  &mockGetAccountService{},
		depthService:       &mockDepthService{},
	}
}

func (m *mockBinanceClient) NewCreateOrderService() CreateOrderService { return m.createOrderService }
func (m *mockBinanceClient) NewCancelOrderService() CancelOrderService { return m.cancelOrderService }
func (m *mockBinanceClient) NewGetOrderService() GetOrderService       { return m.getOrderService }
func (m *mockBinanceClient) NewGetAccountService() GetAccountService   { return m.getAccountService }
func (m *mockBinanceClient) NewDepthService() DepthService             { return m.depthService }

type mockCreateOrderService struct {
	response      *binance.CreateOrderResponse
	err           error
	symbol        string
	side          binance.SideType
	orderType     binance.OrderType
	quantity      string
	price         string
	tif           binance.TimeInForceType
	clientOrderID string
}

func (m *mockCreateOrderService) Symbol(symbol string) CreateOrderService {
	m.symbol = symbol
	return m
}

func (m *mockCreateOrderService) Side(side binance.SideType) CreateOrderService {
	m.side = side
	return m
}

func (m *mockCreateOrderService) Type(orderType binance.OrderType) CreateOrderService {
	m.orderType = orderType
	return m
}

func (m *mockCreateOrderService) Quantity(quantity string) CreateOrderService {
	m.quantity = quantity
	return m
}

func (m *mockCreateOrderService) Price(price string) CreateOrderService {
	m.price = price
	return m
}

func (m *mockCreateOrderService) TimeInForce(tif binance.TimeInForceType) CreateOrderService {
	m.tif = tif
	return m
}

func (m *mockCreateOrderService) NewClientOrderID(id string) CreateOrderService {
	m.clientOrderID = id
	return m
}

func (m *mockCreateOrderService) Do(_ context.Context) (*binance.CreateOrderResponse, error) {
	return m.response, m.err
}

type mockCancelOrderService struct {
	response *binance.CancelOrderResponse
	err      error
	symbol   string
	orderID  int64
}

func (m *mockCancelOrderService) Symbol(symbol string) CancelOrderService {
	m.symbol = symbol
	return m
}

func (m *mockCancelOrderService) OrderID(orderID int64) CancelOrderService {
	m.orderID = orderID
	return m
}

func (m *mockCancelOrderService) Do(_ context.Context) (*binance.CancelOrderResponse, error) {
	return m.response, m.err
}

type mockGetOrderService struct {
	order   *binance.Order
	err     error
	symbol  string
	orderID int64
}

func (m *mockGetOrderService) Symbol(symbol string) GetOrderService {
	m.symbol = symbol
	return m
}

func (m *mockGetOrderService) OrderID(orderID int64) GetOrderService {
	m.orderID = orderID
	return m
}

func (m *mockGetOrderService) Do(_ context.Context) (*binance.Order, error) {
	return m.order, m.err
}

type mockGetAccountService struct {
	account *binance.Account
	err     error
}

func (m *mockGetAccountService) Do(_ context.Context) (*binance.Account, error) {
	return m.account, m.err
}

type mockDepthService struct {
	response *binance.DepthResponse
	err      error
	symbol   string
	limit    int
}

func (m *mockDepthService) Symbol(symbol string) DepthService {
	m.symbol = symbol
	return m
}

func (m *mockDepthService) Limit(limit int) DepthService {
	m.limit = limit
	return m
}

func (m *mockDepthService) Do(_ context.Context) (*binance.DepthResponse, error) {
	return m.response, m.err
}

type BinanceVenueTestSuite struct {
	suite.Suite
	client *mockBinanceClient
	venue  *BinanceVenue
	ctx    context.Context
}

func TestBinanceVenueSuite(t *testing.T) {
	suite.Run(t, new(BinanceVenueTestSuite))
}

func (suite *BinanceVenueTestSuite) SetupTest() {
	suite.client = newMockBinanceClient()
	suite.venue = newBinanceVenueWithClient(suite.client)
	suite.ctx = context.Background()
}

func (suite *BinanceVenueTestSuite) TestPlaceLimitOrder() {
	suite.client.createOrderService.response = &binance.CreateOrderResponse{Symbol: "BTCUSDT", OrderID: 42}

	id, err := suite.venue.PlaceOrder(suite.ctx, types.Order{
		ID:          "o1",
		Symbol:      "BTCUSDT",
		Type:        types.OrderTypeSellLimit,
		Quantity:    0.123456789,
		Price:       optional.Some(48900.5),
		TimeInForce: types.TimeInForceIOC,
	})
	suite.Require().NoError(err)

	suite.Equal("BTCUSDT:42", id)
	svc := suite.client.createOrderService
	suite.Equal(binance.SideTypeSell, svc.side)
	suite.Equal(binance.OrderTypeLimit, svc.orderType)
	suite.Equal("0.12345678", svc.quantity)
	suite.Equal("48900.5", svc.price)
	suite.Equal(binance.TimeInForceTypeIOC, svc.tif)
	suite.Equal("o1", svc.clientOrderID)
}

func (suite *BinanceVenueTestSuite) TestPlaceMarketOrder() {
	suite.client.createOrderService.response = &binance.CreateOrderResponse{Symbol: "ETHUSDT", OrderID: 7}

	id, err := suite.venue.PlaceOrder(suite.ctx, types.Order{
		ID:       "o2",
		Symbol:   "ETHUSDT",
		Type:     types.OrderTypeBuyMarket,
		Quantity: 1,
		Price:    optional.None[float64](),
	})
	suite.Require().NoError(err)

	suite.Equal("ETHUSDT:7", id)
	suite.Equal(binance.SideTypeBuy, suite.client.createOrderService.side)
	suite.Equal(binance.OrderTypeMarket, suite.client.createOrderService.orderType)
	suite.Empty(suite.client.createOrderService.price)
}

func (suite *BinanceVenueTestSuite) TestPlaceOrderErrors() {
	_, err := suite.venue.PlaceOrder(suite.ctx, types.Order{Symbol: "BTCUSDT", Type: types.OrderTypeBuyMarket, Quantity: 0.000000001})
	suite.True(pkgerrors.HasCode(err, pkgerrors.ErrCodeInvalidParameter))

	_, err = suite.venue.PlaceOrder(suite.ctx, types.Order{Symbol: "BTCUSDT", Type: types.OrderTypeBuyLimit, Quantity: 1})
	suite.True(pkgerrors.HasCode(err, pkgerrors.ErrCodeInvalidParameter))

	suite.client.createOrderService.err = errors.New("insufficient balance")
	_, err = suite.venue.PlaceOrder(suite.ctx, types.Order{Symbol: "BTCUSDT", Type: types.OrderTypeBuyMarket, Quantity: 1})
	suite.True(pkgerrors.HasCode(err, pkgerrors.ErrCodeGatewayTransient))
}

func (suite *BinanceVenueTestSuite) TestCancelOrder() {
	suite.client.cancelOrderService.response = &binance.CancelOrderResponse{Status: binance.OrderStatusTypeCanceled}

	ok, err := suite.venue.CancelOrder(suite.ctx, "BTCUSDT:42")
	suite.Require().NoError(err)
	suite.True(ok)
	suite.Equal("BTCUSDT", suite.client.cancelOrderService.symbol)
	suite.Equal(int64(42), suite.client.cancelOrderService.orderID)

	_, err = suite.venue.CancelOrder(suite.ctx, "42")
	suite.True(pkgerrors.HasCode(err, pkgerrors.ErrCodeInvalidParameter))

	_, err = suite.venue.CancelOrder(suite.ctx, "BTCUSDT:abc")
	suite.True(pkgerrors.HasCode(err, pkgerrors.ErrCodeInvalidParameter))
}

func (suite *BinanceVenueTestSuite) TestGetOrderStatus() {
	suite.client.getOrderService.order = &binance.Order{
		Symbol:                   "BTCUSDT",
		OrderID:                  42,
		Status:                   binance.OrderStatusTypeFilled,
		ExecutedQuantity:         "0.5",
		CummulativeQuoteQuantity: "25000",
	}

	update, err := suite.venue.GetOrderStatus(suite.ctx, "BTCUSDT:42")
	suite.Require().NoError(err)
	suite.Equal(types.OrderStatusFilled, update.Status)
	suite.Equal(0.5, update.FilledQuantity.Unwrap())
	suite.Equal(50000.0, update.FilledPrice.Unwrap())

	suite.client.getOrderService.order = &binance.Order{Status: binance.OrderStatusTypeNew, ExecutedQuantity: "0"}
	update, err = suite.venue.GetOrderStatus(suite.ctx, "BTCUSDT:42")
	suite.Require().NoError(err)
	suite.Equal(types.OrderStatusPending, update.Status)
	suite.True(update.FilledQuantity.IsNone())
}

func (suite *BinanceVenueTestSuite) TestMapBinanceOrderStatus() {
	suite.Equal(types.OrderStatusPending, mapBinanceOrderStatus(binance.OrderStatusTypePartiallyFilled))
	suite.Equal(types.OrderStatusCancelled, mapBinanceOrderStatus(binance.OrderStatusTypePendingCancel))
	suite.Equal(types.OrderStatusRejected, mapBinanceOrderStatus(binance.OrderStatusTypeRejected))
	suite.Equal(types.OrderStatusExpired, mapBinanceOrderStatus(binance.OrderStatusTypeExpired))
}

func (suite *BinanceVenueTestSuite) TestGetAccountBalance() {
	suite.client.getAccountService.account = &binance.Account{
		Balances: []binance.Balance{
			{Asset: "USDT", Free: "1000.5", Locked: "0"},
			{Asset: "BTC", Free: "0", Locked: "0.1"},
			{Asset: "DOGE", Free: "0", Locked: "0"},
		},
	}

	balances, err := suite.venue.GetAccountBalance(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal(types.Balances{"USDT": 1000.5, "BTC": 0}, balances)

	suite.client.getAccountService.err = errors.New("timeout")
	_, err = suite.venue.GetAccountBalance(suite.ctx)
	suite.Error(err)
}

func (suite *BinanceVenueTestSuite) TestGetOrderBook() {
	suite.client.depthService.response = &binance.DepthResponse{
		Bids: []binance.Bid{{Price: "49999.5", Quantity: "1.2"}},
		Asks: []binance.Ask{{Price: "50000.5", Quantity: "0.8"}, {Price: "50001", Quantity: "2"}},
	}

	book, err := suite.venue.GetOrderBook(suite.ctx, "BTCUSDT")
	suite.Require().NoError(err)
	suite.Equal("BTCUSDT", book.Symbol)
	suite.Equal([]types.PriceLevel{{Price: 49999.5, Quantity: 1.2}}, book.Bids)
	suite.Len(book.Asks, 2)
	suite.Equal(BinanceDepthLimit, suite.client.depthService.limit)
}

func (suite *BinanceVenueTestSuite) TestBinanceVenueConfig() {
	_, err := NewBinanceVenue(BinanceVenueConfig{ApiKey: "k"}, true)
	suite.True(pkgerrors.HasCode(err, pkgerrors.ErrCodeNotConfigured))

	_, err = parseBinanceConfig(`{"apiKey":`)
	suite.True(pkgerrors.HasCode(err, pkgerrors.ErrCodeInvalidParameter))

	cfg, err := parseBinanceConfig(`{"apiKey":"k","secretKey":"s"}`)
	suite.Require().NoError(err)
	suite.Equal("k", cfg.ApiKey)
}
