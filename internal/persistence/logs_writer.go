package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/Masterminds/squirrel"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

// LogsWriter appends audit entries to DuckDB and exports them to parquet on Flush.
type LogsWriter struct {
	db         *sql.DB
	outputPath string
	mu         sync.Mutex
}

// NewLogsWriter creates a writer for the parquet file at outputPath.
func NewLogsWriter(outputPath string) *LogsWriter {
	return &LogsWriter{outputPath: outputPath}
}

// Initialize opens DuckDB, creates the table and reloads a previous export when present.
func (w *LogsWriter) Initialize() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	db, err := openDuckDB(w.outputPath)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS logs (
			id TEXT PRIMARY KEY,
			timestamp TIMESTAMP,
			level TEXT,
			message TEXT,
			strategy_id TEXT,
			order_id TEXT,
			data TEXT
		)
	`)
	if err != nil {
		db.Close()

		return errors.Wrap(errors.ErrCodePersistenceFailed, "failed to create logs table", err)
	}

	if _, err := os.Stat(w.outputPath); err == nil {
		_, _ = db.Exec(fmt.Sprintf(`
			INSERT INTO logs
			SELECT * FROM read_parquet('%s')
			ON CONFLICT (id) DO NOTHING
		`, w.outputPath))
	}

	w.db = db

	return nil
}

// Write appends entry. Entries with a duplicate id are ignored.
func (w *LogsWriter) Write(entry types.ExecutionLog) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return errors.New(errors.ErrCodePersistenceFailed, "logs writer not initialized")
	}

	var data string

	if len(entry.Data) > 0 {
		raw, err := json.Marshal(entry.Data)
		if err == nil {
			data = string(raw)
		}
	}

	_, err := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question).
		Insert("logs").
		Columns("id", "timestamp", "level", "message", "strategy_id", "order_id", "data").
		Values(entry.ID, entry.Timestamp, string(entry.Level), entry.Message, entry.StrategyID, entry.OrderID, data).
		Suffix("ON CONFLICT (id) DO NOTHING").
		RunWith(w.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodePersistenceFailed, "failed to insert log", err)
	}

	return nil
}

// Flush exports the table to parquet.
func (w *LogsWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return errors.New(errors.ErrCodePersistenceFailed, "logs writer not initialized")
	}

	_, err := w.db.Exec(fmt.Sprintf(`
		COPY (SELECT * FROM logs ORDER BY timestamp ASC)
		TO '%s' (FORMAT PARQUET)
	`, w.outputPath))
	if err != nil {
		return errors.Wrap(errors.ErrCodePersistenceFailed, "failed to export logs to parquet", err)
	}

	return nil
}

// Count returns the number of stored entries.
func (w *LogsWriter) Count() (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return 0, errors.New(errors.ErrCodePersistenceFailed, "logs writer not initialized")
	}

	var count int
	if err := w.db.QueryRow("SELECT COUNT(*) FROM logs").Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodePersistenceFailed, "failed to count logs", err)
	}

	return count, nil
}

// GetOutputPath returns the parquet file path.
func (w *LogsWriter) GetOutputPath() string {
	return w.outputPath
}

// Close releases database resources.
func (w *LogsWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return closeDB(&w.db)
}
