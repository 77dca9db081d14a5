package marketdata

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	polygonws "github.com/polygon-io/client-go/websocket"
	"github.com/polygon-io/client-go/websocket/models"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"go.uber.org/zap"
)

// PolygonWebSocketService abstracts the Polygon websocket client for testing.
type PolygonWebSocketService interface {
	Connect() error
	Subscribe(topic polygonws.Topic, tickers ...string) error
	Unsubscribe(topic polygonws.Topic, tickers ...string) error
	Output() <-chan any
	Error() <-chan error
	Close()
}

// PolygonSource streams per-second (or per-minute) equity aggregates from Polygon.io.
type PolygonSource struct {
	*Broadcaster

	ws      PolygonWebSocketService
	topic   polygonws.Topic
	symbols *symbolSet
	log     *logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
}

// NewPolygonSource creates a source for the real-time stocks feed. interval is "1s" or "1m".
func NewPolygonSource(apiKey string, interval string, log *logger.Logger) (*PolygonSource, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeNotConfigured, "polygon api key is required")
	}

	client, err := polygonws.New(polygonws.Config{
		APIKey: apiKey,
		Feed:   polygonws.RealTime,
		Market: polygonws.Stocks,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMarketDataFailed, "failed to create polygon websocket client", err)
	}

	return NewPolygonSourceWithService(client, interval, log), nil
}

// NewPolygonSourceWithService creates a source with a custom websocket service.
func NewPolygonSourceWithService(ws PolygonWebSocketService, interval string, log *logger.Logger) *PolygonSource {
	named := log.Named("polygon_source")

	return &PolygonSource{
		Broadcaster: NewBroadcaster(named),
		ws:          ws,
		topic:       convertIntervalToPolygonTopic(interval),
		symbols:     newSymbolSet(),
		log:         named,
	}
}

// convertIntervalToPolygonTopic maps an interval onto an aggregate topic. Anything but "1s" uses minute bars.
func convertIntervalToPolygonTopic(interval string) polygonws.Topic {
	if interval == "1s" {
		return polygonws.StocksSecAggs
	}

	return polygonws.StocksMinAggs
}

func (s *PolygonSource) Subscribe(symbol string) error {
	symbol = strings.ToUpper(symbol)
	if !s.symbols.add(symbol) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	if err := s.ws.Subscribe(s.topic, symbol); err != nil {
		return errors.Wrapf(errors.ErrCodeMarketDataFailed, err, "failed to subscribe %s", symbol)
	}

	return nil
}

func (s *PolygonSource) Unsubscribe(symbol string) error {
	symbol = strings.ToUpper(symbol)
	if !s.symbols.remove(symbol) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	if err := s.ws.Unsubscribe(s.topic, symbol); err != nil {
		return errors.Wrapf(errors.ErrCodeMarketDataFailed, err, "failed to unsubscribe %s", symbol)
	}

	return nil
}

func (s *PolygonSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	if err := s.ws.Connect(); err != nil {
		return errors.Wrap(errors.ErrCodeMarketDataFailed, "failed to connect to polygon", err)
	}

	if symbols := s.symbols.list(); len(symbols) > 0 {
		if err := s.ws.Subscribe(s.topic, symbols...); err != nil {
			s.ws.Close()

			return errors.Wrap(errors.ErrCodeMarketDataFailed, "failed to subscribe to polygon", err)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		s.pump(runCtx)
	}()

	return nil
}

func (s *PolygonSource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()

		return nil
	}

	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.ws.Close()

	return nil
}

func (s *PolygonSource) pump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-s.ws.Error():
			if !ok {
				return
			}

			s.log.Warn("Polygon stream error", zap.Error(err))
		case out, ok := <-s.ws.Output():
			if !ok {
				return
			}

			if tick, ok := convertPolygonEvent(out); ok && s.symbols.has(tick.Symbol) {
				s.Emit(tick)
			}
		}
	}
}

// convertPolygonEvent converts equity aggregates into ticks. Other events are ignored.
func convertPolygonEvent(event any) (types.MarketData, bool) {
	switch agg := event.(type) {
	case models.EquityAgg:
		return convertEquityAgg(&agg), true
	case *models.EquityAgg:
		return convertEquityAgg(agg), true
	default:
		return types.MarketData{}, false
	}
}

func convertEquityAgg(agg *models.EquityAgg) types.MarketData {
	return types.MarketData{
		Symbol:    agg.Symbol,
		Price:     agg.Close,
		Volume:    agg.Volume,
		Timestamp: time.UnixMilli(agg.StartTimestamp),
		Bid:       optional.None[float64](),
		Ask:       optional.None[float64](),
		High24h:   optional.None[float64](),
		Low24h:    optional.None[float64](),
	}
}
