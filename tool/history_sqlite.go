package tool

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteHistorySchema = `
CREATE TABLE IF NOT EXISTS executions (
	id TEXT PRIMARY KEY,
	operation TEXT NOT NULL,
	tool TEXT NOT NULL,
	argv TEXT NOT NULL,
	started_at INTEGER NOT NULL, -- unix nanoseconds
	duration_ms INTEGER NOT NULL,
	exit_code INTEGER NOT NULL,
	stdout_bytes INTEGER NOT NULL,
	stderr_bytes INTEGER NOT NULL,
	spawned INTEGER NOT NULL,
	error_code TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS executions_started_at ON executions (started_at);`

const (
	defaultHistoryDir = ".cdpmcp"
	defaultHistoryDB  = "history.db"
	defaultListLimit  = 50
)

// HistoryRecord is one stored execution. Output text is never stored.
type HistoryRecord struct {
	ID          string    `json:"id"`
	Operation   string    `json:"operation"`
	ToolName    string    `json:"tool"`
	Argv        []string  `json:"argv"`
	StartedAt   time.Time `json:"started_at"`
	DurationMS  int64     `json:"duration_ms"`
	ExitCode    int       `json:"exit_code"`
	StdoutBytes int       `json:"stdout_bytes"`
	StderrBytes int       `json:"stderr_bytes"`
	Spawned     bool      `json:"spawned"`
	ErrorCode   string    `json:"error_code,omitempty"`
}

// SQLiteHistoryConfig configures the SQLite-backed execution ledger.
type SQLiteHistoryConfig struct {
	DSN    string
	Logger *slog.Logger
}

// SQLiteHistory records execution metadata. It doubles as an Observer.
type SQLiteHistory struct {
	db     *sql.DB
	logger *slog.Logger
}

// DefaultHistoryPath returns ~/.cdpmcp/history.db.
func DefaultHistoryPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("tool: resolve user home: %w", err)
	}
	return filepath.Join(home, defaultHistoryDir, defaultHistoryDB), nil
}

// NewSQLiteHistory opens (or creates) the ledger at cfg.DSN.
func NewSQLiteHistory(cfg SQLiteHistoryConfig) (*SQLiteHistory, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("tool: sqlite history dsn is required")
	}
	if !strings.HasPrefix(strings.ToLower(dsn), "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("tool: sqlite history create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("tool: sqlite history open: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("tool: sqlite history set WAL mode: %w", err)
	}
	if _, err := db.Exec(sqliteHistorySchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("tool: sqlite history create schema: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteHistory{db: db, logger: logger}, nil
}

// Record inserts one execution.
func (s *SQLiteHistory) Record(ctx context.Context, rec HistoryRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return errors.New("tool: sqlite history is nil")
	}
	if strings.TrimSpace(rec.ID) == "" {
		return errors.New("tool: history record id is required")
	}

	argv, err := json.Marshal(rec.Argv)
	if err != nil {
		return fmt.Errorf("tool: sqlite history encode argv: %w", err)
	}
	spawned := 0
	if rec.Spawned {
		spawned = 1
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO executions (id, operation, tool, argv, started_at, duration_ms, exit_code, stdout_bytes, stderr_bytes, spawned, error_code)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Operation,
		rec.ToolName,
		string(argv),
		rec.StartedAt.UnixNano(),
		rec.DurationMS,
		rec.ExitCode,
		rec.StdoutBytes,
		rec.StderrBytes,
		spawned,
		rec.ErrorCode,
	)
	if err != nil {
		return fmt.Errorf("tool: sqlite history insert: %w", err)
	}
	return nil
}

// List returns the most recent records first. limit <= 0 uses a default of 50.
func (s *SQLiteHistory) List(ctx context.Context, limit int) ([]HistoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, errors.New("tool: sqlite history is nil")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, operation, tool, argv, started_at, duration_ms, exit_code, stdout_bytes, stderr_bytes, spawned, error_code
FROM executions
ORDER BY started_at DESC, id ASC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("tool: sqlite history list: %w", err)
	}
	defer rows.Close()

	var records []HistoryRecord
	for rows.Next() {
		var (
			rec       HistoryRecord
			argv      string
			startedAt int64
			spawned   int
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.Operation,
			&rec.ToolName,
			&argv,
			&startedAt,
			&rec.DurationMS,
			&rec.ExitCode,
			&rec.StdoutBytes,
			&rec.StderrBytes,
			&spawned,
			&rec.ErrorCode,
		); err != nil {
			return nil, fmt.Errorf("tool: sqlite history scan: %w", err)
		}
		if err := json.Unmarshal([]byte(argv), &rec.Argv); err != nil {
			return nil, fmt.Errorf("tool: sqlite history decode argv: %w", err)
		}
		rec.StartedAt = time.Unix(0, startedAt).UTC()
		rec.Spawned = spawned != 0
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tool: sqlite history rows: %w", err)
	}
	return records, nil
}

// ObserveExecute stores the observation. Failures are logged and never reach the caller.
func (s *SQLiteHistory) ObserveExecute(observation ExecuteObservation) {
	if s == nil {
		return
	}
	err := s.Record(context.Background(), HistoryRecord{
		ID:          observation.ID,
		Operation:   observation.Operation,
		ToolName:    observation.ToolName,
		Argv:        observation.Argv,
		StartedAt:   observation.StartedAt,
		DurationMS:  observation.DurationMS,
		ExitCode:    observation.ExitCode,
		StdoutBytes: observation.StdoutBytes,
		StderrBytes: observation.StderrBytes,
		Spawned:     observation.Spawned,
		ErrorCode:   observation.ErrorCode,
	})
	if err != nil {
		s.logger.Warn("recording execution history failed", "id", observation.ID, "error", err)
	}
}

// Close closes the underlying database connection.
func (s *SQLiteHistory) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

var _ Observer = (*SQLiteHistory)(nil)
