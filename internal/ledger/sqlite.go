package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    started_at TEXT NOT NULL,
    finished_at TEXT,
    provider TEXT NOT NULL DEFAULT '',
    model TEXT NOT NULL DEFAULT '',
    output_dir TEXT NOT NULL DEFAULT '',
    songs_per_category INTEGER NOT NULL DEFAULT 0,
    categories INTEGER NOT NULL DEFAULT 0,
    expected INTEGER NOT NULL DEFAULT 0,
    produced INTEGER NOT NULL DEFAULT 0,
    skipped INTEGER NOT NULL DEFAULT 0,
    failed INTEGER NOT NULL DEFAULT 0,
    resumed INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS items (
    id INTEGER PRIMARY KEY,
    run_id TEXT NOT NULL,
    category TEXT NOT NULL,
    idx INTEGER NOT NULL,
    status TEXT NOT NULL,
    attempts INTEGER NOT NULL DEFAULT 0,
    last_error TEXT NOT NULL DEFAULT '',
    path TEXT NOT NULL DEFAULT '',
    mood TEXT NOT NULL DEFAULT '',
    temperature REAL NOT NULL DEFAULT 0,
    recorded_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_items_run ON items(run_id, category, idx);
`

// SQLiteStore is a Store backed by a local sqlite file
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and creates) the ledger at path with WAL journaling
// and a 5-second busy timeout.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// single writer; workers record items concurrently
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode on %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout on %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create ledger schema on %s: %w", path, err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) StartRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, provider, model, output_dir, songs_per_category, categories, expected)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, formatTime(run.StartedAt), run.Provider, run.Model, run.OutputDir,
		run.SongsPerCategory, run.Categories, run.Totals.Expected)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

func (s *SQLiteStore) RecordItem(ctx context.Context, item Item) error {
	if item.RecordedAt.IsZero() {
		item.RecordedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (run_id, category, idx, status, attempts, last_error, path, mood, temperature, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.RunID, item.Category, item.Index, string(item.Status), item.Attempts,
		item.LastError, item.Path, item.Mood, item.Temperature, formatTime(item.RecordedAt))
	if err != nil {
		return fmt.Errorf("insert item %s/%d: %w", item.Category, item.Index, err)
	}
	return nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, totals Totals, finishedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, expected = ?, produced = ?, skipped = ?, failed = ?, resumed = ?
		WHERE id = ?`,
		formatTime(finishedAt), totals.Expected, totals.Produced, totals.Skipped,
		totals.Failed, totals.Resumed, runID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, provider, model, output_dir, songs_per_category, categories,
		       expected, produced, skipped, failed, resumed
		FROM runs ORDER BY started_at DESC, id LIMIT ?`, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run        Run
			startedAt  string
			finishedAt sql.NullString
		)
		if err := rows.Scan(&run.ID, &startedAt, &finishedAt, &run.Provider, &run.Model, &run.OutputDir,
			&run.SongsPerCategory, &run.Categories, &run.Totals.Expected, &run.Totals.Produced,
			&run.Totals.Skipped, &run.Totals.Failed, &run.Totals.Resumed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = parseTime(startedAt)
		if finishedAt.Valid {
			t := parseTime(finishedAt.String)
			run.FinishedAt = &t
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) ListItems(ctx context.Context, runID string) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, category, idx, status, attempts, last_error, path, mood, temperature, recorded_at
		FROM items WHERE run_id = ? ORDER BY category, idx, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query items of %s: %w", runID, err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			item       Item
			status     string
			recordedAt string
		)
		if err := rows.Scan(&item.RunID, &item.Category, &item.Index, &status, &item.Attempts,
			&item.LastError, &item.Path, &item.Mood, &item.Temperature, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		item.Status = Status(status)
		item.RecordedAt = parseTime(recordedAt)
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
