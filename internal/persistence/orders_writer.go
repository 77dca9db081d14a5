package persistence

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

// OrdersWriter keeps an in-memory DuckDB copy of the ledger and exports it to parquet.
type OrdersWriter struct {
	db         *sql.DB
	outputPath string
	mu         sync.Mutex
}

// NewOrdersWriter creates a writer for the parquet file at outputPath.
func NewOrdersWriter(outputPath string) *OrdersWriter {
	return &OrdersWriter{outputPath: outputPath}
}

// Initialize opens DuckDB, creates the table and reloads a previous export when present.
func (w *OrdersWriter) Initialize() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	db, err := openDuckDB(w.outputPath)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			strategy_id TEXT,
			symbol TEXT,
			order_type TEXT,
			quantity DOUBLE,
			price DOUBLE,
			time_in_force TEXT,
			status TEXT,
			exchange_order_id TEXT,
			created_at TIMESTAMP,
			filled_at TIMESTAMP,
			filled_quantity DOUBLE,
			filled_price DOUBLE
		)
	`)
	if err != nil {
		db.Close()

		return errors.Wrap(errors.ErrCodePersistenceFailed, "failed to create orders table", err)
	}

	if _, err := os.Stat(w.outputPath); err == nil {
		// A corrupt previous export is not fatal; the table simply starts empty.
		_, _ = db.Exec(fmt.Sprintf(`
			INSERT INTO orders
			SELECT * FROM read_parquet('%s')
			ON CONFLICT (id) DO NOTHING
		`, w.outputPath))
	}

	w.db = db

	return nil
}

// Write upserts order and re-exports the table.
func (w *OrdersWriter) Write(order types.Order) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return errors.New(errors.ErrCodePersistenceFailed, "orders writer not initialized")
	}

	_, err := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question).
		Insert("orders").
		Columns("id", "strategy_id", "symbol", "order_type", "quantity", "price", "time_in_force",
			"status", "exchange_order_id", "created_at", "filled_at", "filled_quantity", "filled_price").
		Values(order.ID, order.StrategyID, order.Symbol, string(order.Type), order.Quantity,
			nullable(order.Price), string(order.TimeInForce), string(order.Status), order.ExchangeOrderID,
			order.CreatedAt, nullable(order.FilledAt), nullable(order.FilledQuantity), nullable(order.FilledPrice)).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			exchange_order_id = excluded.exchange_order_id,
			filled_at = excluded.filled_at,
			filled_quantity = excluded.filled_quantity,
			filled_price = excluded.filled_price`).
		RunWith(w.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodePersistenceFailed, "failed to upsert order", err)
	}

	return w.exportToParquet()
}

// Flush forces an export to parquet.
func (w *OrdersWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return errors.New(errors.ErrCodePersistenceFailed, "orders writer not initialized")
	}

	return w.exportToParquet()
}

// Count returns the number of stored orders.
func (w *OrdersWriter) Count() (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return 0, errors.New(errors.ErrCodePersistenceFailed, "orders writer not initialized")
	}

	var count int
	if err := w.db.QueryRow("SELECT COUNT(*) FROM orders").Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodePersistenceFailed, "failed to count orders", err)
	}

	return count, nil
}

// Status returns the stored status of an order.
func (w *OrdersWriter) Status(id string) (types.OrderStatus, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return "", errors.New(errors.ErrCodePersistenceFailed, "orders writer not initialized")
	}

	var status string

	err := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question).
		Select("status").From("orders").Where(squirrel.Eq{"id": id}).
		RunWith(w.db).QueryRow().Scan(&status)
	if err != nil {
		return "", errors.Wrapf(errors.ErrCodePersistenceFailed, err, "failed to read order %s", id)
	}

	return types.OrderStatus(status), nil
}

// GetOutputPath returns the parquet file path.
func (w *OrdersWriter) GetOutputPath() string {
	return w.outputPath
}

// Close releases database resources.
func (w *OrdersWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return closeDB(&w.db)
}

func (w *OrdersWriter) exportToParquet() error {
	_, err := w.db.Exec(fmt.Sprintf(`
		COPY (SELECT * FROM orders ORDER BY created_at ASC)
		TO '%s' (FORMAT PARQUET)
	`, w.outputPath))
	if err != nil {
		return errors.Wrap(errors.ErrCodePersistenceFailed, "failed to export orders to parquet", err)
	}

	return nil
}

func openDuckDB(outputPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return nil, errors.Wrap(errors.ErrCodePersistenceFailed, "failed to create data directory", err)
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePersistenceFailed, "failed to open DuckDB connection", err)
	}

	return db, nil
}

func closeDB(db **sql.DB) error {
	if *db == nil {
		return nil
	}

	err := (*db).Close()
	*db = nil

	if err != nil {
		return errors.Wrap(errors.ErrCodePersistenceFailed, "failed to close database", err)
	}

	return nil
}

// nullable turns an absent optional into SQL NULL.
func nullable[T any](o optional.Option[T]) any {
	v, err := o.Take()
	if err != nil {
		return nil
	}

	return v
}
