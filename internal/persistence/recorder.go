package persistence

import (
	"path/filepath"
	"sync"

	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"go.uber.org/zap"
)

const (
	// OrdersFileName is the parquet file holding the order ledger.
	OrdersFileName = "orders.parquet"
	// LogsFileName is the parquet file holding the audit log.
	LogsFileName = "logs.parquet"
	// DefaultQueueSize bounds the number of writes waiting for the recorder goroutine.
	DefaultQueueSize = 1024
)

type record struct {
	order *types.Order
	entry *types.ExecutionLog
}

// Recorder persists ledger changes and audit entries in the background.
// Enqueueing never blocks: when the queue is full the record is dropped with a warning.
type Recorder struct {
	orders *OrdersWriter
	logs   *LogsWriter
	log    *logger.Logger

	mu     sync.Mutex
	closed bool
	queue  chan record
	done   chan struct{}
}

// NewRecorder initializes both writers under dataDir and starts the background writer.
func NewRecorder(dataDir string, queueSize int, log *logger.Logger) (*Recorder, error) {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	orders := NewOrdersWriter(filepath.Join(dataDir, OrdersFileName))
	if err := orders.Initialize(); err != nil {
		return nil, err
	}

	logs := NewLogsWriter(filepath.Join(dataDir, LogsFileName))
	if err := logs.Initialize(); err != nil {
		orders.Close()

		return nil, err
	}

	r := &Recorder{
		orders: orders,
		logs:   logs,
		log:    log,
		queue:  make(chan record, queueSize),
		done:   make(chan struct{}),
	}

	go r.run()

	return r, nil
}

// RecordOrder queues an order upsert. It matches ledger.Observer.
func (r *Recorder) RecordOrder(order types.Order) {
	r.enqueue(record{order: &order})
}

// RecordLog queues an audit entry. It matches audit.Sink.
func (r *Recorder) RecordLog(entry types.ExecutionLog) {
	r.enqueue(record{entry: &entry})
}

func (r *Recorder) enqueue(rec record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	select {
	case r.queue <- rec:
	default:
		r.log.Warn("Persistence queue full, dropping record")
	}
}

func (r *Recorder) run() {
	defer close(r.done)

	for rec := range r.queue {
		switch {
		case rec.order != nil:
			if err := r.orders.Write(*rec.order); err != nil {
				r.log.Error("Failed to persist order",
					zap.String("order_id", rec.order.ID),
					zap.Error(err),
				)
			}
		case rec.entry != nil:
			if err := r.logs.Write(*rec.entry); err != nil {
				r.log.Error("Failed to persist log entry",
					zap.String("log_id", rec.entry.ID),
					zap.Error(err),
				)
			}
		}
	}
}

// Orders exposes the orders writer for inspection.
func (r *Recorder) Orders() *OrdersWriter {
	return r.orders
}

// Logs exposes the logs writer for inspection.
func (r *Recorder) Logs() *LogsWriter {
	return r.logs
}

// Flush exports what has been written so far. Queued records are not waited for.
func (r *Recorder) Flush() error {
	if err := r.orders.Flush(); err != nil {
		return err
	}

	return r.logs.Flush()
}

// Close drains the queue, exports both tables and releases the databases.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()

		return nil
	}

	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	<-r.done

	var firstErr error

	for _, step := range []func() error{r.orders.Flush, r.logs.Flush, r.orders.Close, r.logs.Close} {
		if err := step(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
