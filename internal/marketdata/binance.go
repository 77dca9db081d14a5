package marketdata

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"go.uber.org/zap"
)

// DefaultReconnectDelay is the pause before reopening a dropped stream.
const DefaultReconnectDelay = 2 * time.Second

// BinanceWebSocketService abstracts the Binance websocket API for testing.
type BinanceWebSocketService interface {
	WsMarketStatServe(symbol string, handler binance.WsMarketStatHandler, errHandler binance.ErrHandler) (doneC, stopC chan struct{}, err error)
}

type realBinanceWebSocketService struct{}

func (realBinanceWebSocketService) WsMarketStatServe(
	symbol string,
	handler binance.WsMarketStatHandler,
	errHandler binance.ErrHandler,
) (chan struct{}, chan struct{}, error) {
	return binance.WsMarketStatServe(symbol, handler, errHandler)
}

// BinanceSource streams 24h rolling ticker events, one stream per subscribed symbol.
type BinanceSource struct {
	*Broadcaster

	ws             BinanceWebSocketService
	symbols        *symbolSet
	reconnectDelay time.Duration
	log            *logger.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	streams map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewBinanceSource creates a source backed by the public Binance websocket.
func NewBinanceSource(log *logger.Logger) *BinanceSource {
	return NewBinanceSourceWithService(realBinanceWebSocketService{}, log)
}

// NewBinanceSourceWithService creates a source with a custom websocket service.
func NewBinanceSourceWithService(ws BinanceWebSocketService, log *logger.Logger) *BinanceSource {
	named := log.Named("binance_source")

	return &BinanceSource{
		Broadcaster:    NewBroadcaster(named),
		ws:             ws,
		symbols:        newSymbolSet(),
		reconnectDelay: DefaultReconnectDelay,
		log:            named,
		streams:        make(map[string]context.CancelFunc),
	}
}

func (s *BinanceSource) Subscribe(symbol string) error {
	symbol = strings.ToUpper(symbol)
	if !s.symbols.add(symbol) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		s.startStreamLocked(symbol)
	}

	return nil
}

func (s *BinanceSource) Unsubscribe(symbol string) error {
	symbol = strings.ToUpper(symbol)
	if !s.symbols.remove(symbol) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cancel, ok := s.streams[symbol]; ok {
		cancel()
		delete(s.streams, symbol)
	}

	return nil
}

func (s *BinanceSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	for _, symbol := range s.symbols.list() {
		s.startStreamLocked(symbol)
	}

	return nil
}

func (s *BinanceSource) Stop() error {
	s.mu.Lock()
	if s.ctx == nil {
		s.mu.Unlock()

		return nil
	}

	s.cancel()
	s.ctx = nil
	s.streams = make(map[string]context.CancelFunc)
	s.mu.Unlock()

	s.wg.Wait()

	return nil
}

func (s *BinanceSource) startStreamLocked(symbol string) {
	ctx, cancel := context.WithCancel(s.ctx)
	s.streams[symbol] = cancel

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		s.runStream(ctx, symbol)
	}()
}

func (s *BinanceSource) runStream(ctx context.Context, symbol string) {
	for {
		doneC, stopC, err := s.ws.WsMarketStatServe(symbol, s.handleEvent, func(err error) {
			s.log.Warn("Binance stream error", zap.String("symbol", symbol), zap.Error(err))
		})
		if err != nil {
			s.log.Error("Failed to open Binance stream",
				zap.String("symbol", symbol),
				zap.Error(errors.Wrap(errors.ErrCodeMarketDataFailed, "websocket connect failed", err)),
			)
		} else {
			select {
			case <-ctx.Done():
				close(stopC)
				<-doneC

				return
			case <-doneC:
				s.log.Warn("Binance stream closed, reconnecting", zap.String("symbol", symbol))
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.reconnectDelay):
		}
	}
}

func (s *BinanceSource) handleEvent(event *binance.WsMarketStatEvent) {
	if event == nil || !s.symbols.has(event.Symbol) {
		return
	}

	s.Emit(convertMarketStatEvent(event))
}

// convertMarketStatEvent converts a 24h ticker event into a tick.
func convertMarketStatEvent(event *binance.WsMarketStatEvent) types.MarketData {
	return types.MarketData{
		Symbol:    event.Symbol,
		Price:     parseFloat(event.LastPrice),
		Volume:    parseFloat(event.BaseVolume),
		Timestamp: time.UnixMilli(event.Time),
		Bid:       optionalFloat(event.BidPrice),
		Ask:       optionalFloat(event.AskPrice),
		High24h:   optionalFloat(event.HighPrice),
		Low24h:    optionalFloat(event.LowPrice),
	}
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)

	return f
}

func optionalFloat(s string) optional.Option[float64] {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return optional.None[float64]()
	}

	return optional.Some(f)
}
