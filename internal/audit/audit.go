package audit

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"go.uber.org/zap"
)

const (
	DefaultCapacity   = 10000
	DefaultQueryLimit = 100
)

// ExportFormat names an audit export encoding.
type ExportFormat string

const (
	ExportJSON ExportFormat = "json"
	ExportCSV  ExportFormat = "csv"
)

var csvHeader = []string{"timestamp", "level", "message", "strategyId", "orderId"}

// Sink receives every appended entry. Sinks run outside the log lock.
type Sink func(entry types.ExecutionLog)

// Log is a bounded, newest-first execution log. When full, the oldest entry is evicted.
type Log struct {
	mu    sync.RWMutex
	ring  []types.ExecutionLog
	next  int
	size  int
	sinks []Sink
	zap   *logger.Logger
	now   func() time.Time
}

// NewLog creates a log holding at most capacity entries. Non-positive capacity means DefaultCapacity.
func NewLog(capacity int, log *logger.Logger) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &Log{
		ring: make([]types.ExecutionLog, capacity),
		zap:  log.Named("audit"),
		now:  time.Now,
	}
}

// OnEntry registers a sink for new entries.
func (l *Log) OnEntry(sink Sink) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sinks = append(l.sinks, sink)
}

// Info appends an info entry.
func (l *Log) Info(message string, data map[string]any) types.ExecutionLog {
	return l.append(types.LogLevelInfo, message, data)
}

// Warning appends a warning entry.
func (l *Log) Warning(message string, data map[string]any) types.ExecutionLog {
	return l.append(types.LogLevelWarning, message, data)
}

// Error appends an error entry.
func (l *Log) Error(message string, data map[string]any) types.ExecutionLog {
	return l.append(types.LogLevelError, message, data)
}

func (l *Log) append(level types.LogLevel, message string, data map[string]any) types.ExecutionLog {
	entry := types.ExecutionLog{
		ID:         uuid.NewString(),
		Timestamp:  l.now(),
		Level:      level,
		Message:    message,
		Data:       data,
		StrategyID: stringField(data, "strategyId"),
		OrderID:    stringField(data, "orderId"),
	}

	l.mu.Lock()
	l.ring[l.next] = entry
	l.next = (l.next + 1) % len(l.ring)

	if l.size < len(l.ring) {
		l.size++
	}

	sinks := l.sinks
	l.mu.Unlock()

	l.mirror(entry)

	for _, sink := range sinks {
		sink(entry)
	}

	return entry
}

func (l *Log) mirror(entry types.ExecutionLog) {
	fields := []zap.Field{
		zap.String("strategy_id", entry.StrategyID),
		zap.String("order_id", entry.OrderID),
	}
	if len(entry.Data) > 0 {
		fields = append(fields, zap.Any("data", entry.Data))
	}

	switch entry.Level {
	case types.LogLevelError:
		l.zap.Error(entry.Message, fields...)
	case types.LogLevelWarning:
		l.zap.Warn(entry.Message, fields...)
	default:
		l.zap.Info(entry.Message, fields...)
	}
}

// each walks entries newest first until fn returns false. Caller holds the read lock.
func (l *Log) each(fn func(types.ExecutionLog) bool) {
	capacity := len(l.ring)

	for i := range l.size {
		idx := (l.next - 1 - i + capacity) % capacity
		if !fn(l.ring[idx]) {
			return
		}
	}
}

func (l *Log) collect(limit int, match func(types.ExecutionLog) bool) []types.ExecutionLog {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]types.ExecutionLog, 0)
	l.each(func(entry types.ExecutionLog) bool {
		if match(entry) {
			out = append(out, entry)
		}

		return limit <= 0 || len(out) < limit
	})

	return out
}

// Query returns up to limit entries newest first, filtered by level when level is non-empty.
// A non-positive limit means DefaultQueryLimit.
func (l *Log) Query(level types.LogLevel, limit int) []types.ExecutionLog {
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	return l.collect(limit, func(entry types.ExecutionLog) bool {
		return level == "" || entry.Level == level
	})
}

// ByStrategy returns up to limit entries for a strategy. A non-positive limit means DefaultQueryLimit.
func (l *Log) ByStrategy(strategyID string, limit int) []types.ExecutionLog {
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	return l.collect(limit, func(entry types.ExecutionLog) bool {
		return entry.StrategyID == strategyID
	})
}

// ByOrder returns every entry for an order.
func (l *Log) ByOrder(orderID string) []types.ExecutionLog {
	return l.collect(0, func(entry types.ExecutionLog) bool {
		return entry.OrderID == orderID
	})
}

// All returns every retained entry newest first.
func (l *Log) All() []types.ExecutionLog {
	return l.collect(0, func(types.ExecutionLog) bool { return true })
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.size
}

// Capacity returns the maximum number of retained entries.
func (l *Log) Capacity() int {
	return len(l.ring)
}

// Clear drops every entry.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	clear(l.ring)
	l.next = 0
	l.size = 0
}

// Export renders the whole log newest first.
func (l *Log) Export(format ExportFormat) ([]byte, error) {
	entries := l.All()

	switch format {
	case ExportJSON:
		out, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeExportFailed, "failed to encode audit log", err)
		}

		return out, nil
	case ExportCSV:
		var buf bytes.Buffer

		w := csv.NewWriter(&buf)
		if err := w.Write(csvHeader); err != nil {
			return nil, errors.Wrap(errors.ErrCodeExportFailed, "failed to write csv header", err)
		}

		for _, entry := range entries {
			record := []string{
				entry.Timestamp.UTC().Format(time.RFC3339Nano),
				string(entry.Level),
				entry.Message,
				entry.StrategyID,
				entry.OrderID,
			}
			if err := w.Write(record); err != nil {
				return nil, errors.Wrap(errors.ErrCodeExportFailed, "failed to write csv row", err)
			}
		}

		w.Flush()

		if err := w.Error(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeExportFailed, "failed to flush csv", err)
		}

		return buf.Bytes(), nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported export format %q", format)
	}
}

func stringField(data map[string]any, key string) string {
	if data == nil {
		return ""
	}

	s, _ := data[key].(string)

	return s
}
