package marketdata

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"go.uber.org/zap"
)

// ControlMessage is sent to a generic tick feed to change its symbol set.
type ControlMessage struct {
	Type    string   `json:"type"`
	Symbols []string `json:"symbols"`
}

const (
	controlSubscribe   = "subscribe"
	controlUnsubscribe = "unsubscribe"
	writeTimeout       = 5 * time.Second
)

// WebSocketSource reads JSON ticks (one object or an array per frame) from a websocket endpoint.
type WebSocketSource struct {
	*Broadcaster

	url            string
	dialer         *websocket.Dialer
	symbols        *symbolSet
	reconnectDelay time.Duration
	log            *logger.Logger

	mu      sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWebSocketSource creates a source for url.
func NewWebSocketSource(url string, log *logger.Logger) *WebSocketSource {
	named := log.Named("websocket_source")

	return &WebSocketSource{
		Broadcaster:    NewBroadcaster(named),
		url:            url,
		dialer:         websocket.DefaultDialer,
		symbols:        newSymbolSet(),
		reconnectDelay: DefaultReconnectDelay,
		log:            named,
	}
}

func (s *WebSocketSource) Subscribe(symbol string) error {
	symbol = strings.ToUpper(symbol)
	if !s.symbols.add(symbol) {
		return nil
	}

	return s.sendControl(controlSubscribe, []string{symbol})
}

func (s *WebSocketSource) Unsubscribe(symbol string) error {
	symbol = strings.ToUpper(symbol)
	if !s.symbols.remove(symbol) {
		return nil
	}

	return s.sendControl(controlUnsubscribe, []string{symbol})
}

// Start dials the endpoint. The first dial is synchronous so configuration errors surface to the caller.
func (s *WebSocketSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return nil
	}

	conn, err := s.connect(ctx)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.conn = conn

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		s.run(runCtx, conn)
	}()

	return nil
}

func (s *WebSocketSource) Stop() error {
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()

		return nil
	}

	s.cancel()
	s.cancel = nil

	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()

	return nil
}

func (s *WebSocketSource) connect(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataFailed, err, "failed to dial %s", s.url)
	}

	if symbols := s.symbols.list(); len(symbols) > 0 {
		if err := writeControl(conn, &s.writeMu, controlSubscribe, symbols); err != nil {
			_ = conn.Close()

			return nil, err
		}
	}

	return conn, nil
}

func (s *WebSocketSource) run(ctx context.Context, conn *websocket.Conn) {
	for {
		s.read(conn)

		if ctx.Err() != nil {
			return
		}

		s.log.Warn("Websocket feed disconnected, reconnecting", zap.String("url", s.url))

		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.reconnectDelay):
			}

			next, err := s.connect(ctx)
			if err != nil {
				s.log.Warn("Websocket reconnect failed", zap.Error(err))

				continue
			}

			s.mu.Lock()
			if ctx.Err() != nil {
				s.mu.Unlock()
				_ = next.Close()

				return
			}

			s.conn = next
			s.mu.Unlock()
			conn = next

			break
		}
	}
}

func (s *WebSocketSource) read(conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		ticks, err := decodeTicks(payload)
		if err != nil {
			s.log.Warn("Dropping malformed tick frame", zap.Error(err))

			continue
		}

		for _, tick := range ticks {
			if s.symbols.has(strings.ToUpper(tick.Symbol)) {
				s.Emit(tick)
			}
		}
	}
}

func (s *WebSocketSource) sendControl(kind string, symbols []string) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return nil
	}

	return writeControl(conn, &s.writeMu, kind, symbols)
}

func writeControl(conn *websocket.Conn, mu *sync.Mutex, kind string, symbols []string) error {
	mu.Lock()
	defer mu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))

	if err := conn.WriteJSON(ControlMessage{Type: kind, Symbols: symbols}); err != nil {
		return errors.Wrapf(errors.ErrCodeMarketDataFailed, err, "failed to send %s", kind)
	}

	return nil
}

func decodeTicks(payload []byte) ([]types.MarketData, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) > 0 && payload[0] == '[' {
		var ticks []types.MarketData
		if err := json.Unmarshal(payload, &ticks); err != nil {
			return nil, err
		}

		return ticks, nil
	}

	var tick types.MarketData
	if err := json.Unmarshal(payload, &tick); err != nil {
		return nil, err
	}

	return []types.MarketData{tick}, nil
}
