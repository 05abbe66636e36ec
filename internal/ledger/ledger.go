// Package ledger records dataset runs and the outcome of every item so runs
// can be inspected and compared after the fact.
package ledger

import (
	"context"
	"errors"
	"time"
)

// Status is the recorded outcome of one item
type Status string

const (
	StatusProduced Status = "produced"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
	StatusResumed  Status = "resumed"
)

const defaultListLimit = 20

// ErrRunNotFound is returned when a run ID is not in the ledger
var ErrRunNotFound = errors.New("run not found")

// Totals are the per-status item counts of a run
type Totals struct {
	Expected int
	Produced int
	Skipped  int
	Failed   int
	Resumed  int
}

// Run describes one dataset generation run
type Run struct {
	ID               string
	StartedAt        time.Time
	FinishedAt       *time.Time
	Provider         string
	Model            string
	OutputDir        string
	SongsPerCategory int
	Categories       int
	Totals           Totals
}

// Item is the outcome of one (category, index) pair within a run
type Item struct {
	RunID       string
	Category    string
	Index       int
	Status      Status
	Attempts    int
	LastError   string
	Path        string
	Mood        string
	Temperature float64
	RecordedAt  time.Time
}

// Store persists runs and items. Implementations are safe for concurrent use.
type Store interface {
	StartRun(ctx context.Context, run Run) error
	RecordItem(ctx context.Context, item Item) error
	FinishRun(ctx context.Context, runID string, totals Totals, finishedAt time.Time) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	ListItems(ctx context.Context, runID string) ([]Item, error)
	Close() error
}

// Open returns the postgres store when databaseURL is set, otherwise the
// sqlite store at path. It returns a nil Store when both are empty.
func Open(ctx context.Context, databaseURL, path string) (Store, error) {
	switch {
	case databaseURL != "":
		return NewPostgresStore(ctx, databaseURL)
	case path != "":
		return NewSQLiteStore(ctx, path)
	default:
		return nil, nil
	}
}

func listLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}
