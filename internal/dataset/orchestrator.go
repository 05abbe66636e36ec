// Package dataset drives generation across every genre and style category
// and writes one MIDI artifact per successful item.
package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"github.com/Conceptual-Machines/magda-midigen/internal/generation"
	"github.com/Conceptual-Machines/magda-midigen/internal/ledger"
	"github.com/Conceptual-Machines/magda-midigen/internal/logger"
	"github.com/Conceptual-Machines/magda-midigen/internal/metrics"
	"github.com/Conceptual-Machines/magda-midigen/internal/midi"
	"github.com/Conceptual-Machines/magda-midigen/internal/models"
)

const responseExt = ".json"

// Generator produces one item; generation.Client implements it
type Generator interface {
	Generate(ctx context.Context, category models.Category, index int) *generation.Result
}

// WriteFunc writes an encoded track set to path
type WriteFunc func(path string, ts *models.TrackSet, tempo int) error

// Options configure a dataset run
type Options struct {
	OutputDir        string
	SongsPerCategory int
	Workers          int
	Tempo            int

	// Resume skips items whose artifact already exists
	Resume bool
	// KeepResponses stores the raw oracle output next to each artifact
	KeepResponses bool

	// recorded in the ledger only
	Provider string
	Model    string
}

// Orchestrator fans items out over categories and does the bookkeeping
type Orchestrator struct {
	generator  Generator
	categories []models.Category
	opts       Options
	runID      string
	store      ledger.Store
	metrics    metrics.Recorder
	write      WriteFunc
	mkdirAll   func(path string, perm os.FileMode) error
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithLedger records the run and every item in store
func WithLedger(store ledger.Store) Option {
	return func(o *Orchestrator) { o.store = store }
}

// WithMetrics records item outcomes and run totals
func WithMetrics(r metrics.Recorder) Option {
	return func(o *Orchestrator) { o.metrics = r }
}

// WithWriter replaces midi.WriteFile
func WithWriter(write WriteFunc) Option {
	return func(o *Orchestrator) { o.write = write }
}

// WithRunID sets the run ID instead of a random UUID
func WithRunID(id string) Option {
	return func(o *Orchestrator) { o.runID = id }
}

// NewOrchestrator creates an orchestrator over categories in declaration order
func NewOrchestrator(generator Generator, categories []models.Category, opts Options, options ...Option) *Orchestrator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Tempo == 0 {
		opts.Tempo = midi.DefaultTempo
	}

	o := &Orchestrator{
		generator:  generator,
		categories: categories,
		opts:       opts,
		runID:      uuid.NewString(),
		metrics:    metrics.Noop{},
		write:      midi.WriteFile,
		mkdirAll:   os.MkdirAll,
	}
	for _, option := range options {
		option(o)
	}
	if o.metrics == nil {
		o.metrics = metrics.Noop{}
	}

	return o
}

// RunID identifies this run in logs and the ledger
func (o *Orchestrator) RunID() string {
	return o.runID
}

type job struct {
	category models.Category
	index    int
	path     string
}

type counter struct {
	mu      sync.Mutex
	summary *Summary
}

func (c *counter) add(status ledger.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch status {
	case ledger.StatusProduced:
		c.summary.Produced++
	case ledger.StatusSkipped:
		c.summary.Skipped++
	case ledger.StatusFailed:
		c.summary.Failed++
	case ledger.StatusResumed:
		c.summary.Resumed++
	}
}

// Run generates the whole dataset. Item failures are counted, never
// returned; the error is reserved for an unusable output directory.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	summary := &Summary{
		RunID:    o.runID,
		Expected: len(o.categories) * o.opts.SongsPerCategory,
	}
	fields := logger.Fields{"run_id": o.runID}

	if err := o.mkdirAll(o.opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", o.opts.OutputDir, err)
	}

	// ledger writes must survive cancellation so an interrupted run is still recorded
	bookkeeping := context.WithoutCancel(ctx)
	o.startRun(bookkeeping, start, summary.Expected)

	logger.Info(fmt.Sprintf("Generating %d songs across %d categories into '%s'",
		summary.Expected, len(o.categories), o.opts.OutputDir),
		fields.With("workers", o.opts.Workers))

	counts := &counter{summary: summary}
	jobs := make(chan job)

	var wg sync.WaitGroup
	for w := 0; w < o.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				status := o.process(ctx, bookkeeping, j)
				counts.add(status)
			}
		}()
	}

	o.dispatch(ctx, bookkeeping, jobs, counts)
	close(jobs)
	wg.Wait()

	summary.Duration = time.Since(start)
	summary.Cancelled = ctx.Err() != nil

	o.finishRun(bookkeeping, summary)
	o.metrics.RecordRunSummary(bookkeeping, summary.Produced, summary.Skipped, summary.Failed, summary.Duration)
	logger.Info(summary.String(), fields.With("duration", summary.Duration.String()))

	return summary, nil
}

// dispatch queues items category by category. Each directory is created
// before any of its items is queued.
func (o *Orchestrator) dispatch(ctx context.Context, bookkeeping context.Context, jobs chan<- job, counts *counter) {
	for _, category := range o.categories {
		if ctx.Err() != nil {
			return
		}

		dir := filepath.Join(o.opts.OutputDir, category.Dir())
		if err := o.mkdirAll(dir, 0o755); err != nil {
			logger.Error("Failed to create category directory", err, logger.Fields{
				"run_id":   o.runID,
				"category": category.Dir(),
			})
			for i := 0; i < o.opts.SongsPerCategory; i++ {
				o.record(bookkeeping, category, i, ledger.StatusFailed, nil, "", err)
				counts.add(ledger.StatusFailed)
			}
			continue
		}

		counts.mu.Lock()
		counts.summary.Directories++
		counts.mu.Unlock()

		for i := 0; i < o.opts.SongsPerCategory; i++ {
			path := filepath.Join(dir, models.ArtifactName(i))

			if o.opts.Resume && fileExists(path) {
				o.record(bookkeeping, category, i, ledger.StatusResumed, nil, path, nil)
				counts.add(ledger.StatusResumed)
				continue
			}

			select {
			case jobs <- job{category: category, index: i, path: path}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// process generates and writes one item and returns its outcome
func (o *Orchestrator) process(ctx context.Context, bookkeeping context.Context, j job) ledger.Status {
	transaction := sentry.StartTransaction(ctx, "dataset.item")
	defer transaction.Finish()
	transaction.SetTag("run_id", o.runID)
	transaction.SetTag("category", j.category.Dir())
	ctx = transaction.Context()

	result := o.generator.Generate(ctx, j.category, j.index)
	if !result.Succeeded() {
		transaction.SetTag("status", string(ledger.StatusSkipped))
		o.record(bookkeeping, j.category, j.index, ledger.StatusSkipped, result, "", result.LastErr)
		return ledger.StatusSkipped
	}

	span := transaction.StartChild("midi.write")
	err := o.write(j.path, result.TrackSet, o.opts.Tempo)
	span.Finish()
	if err != nil {
		transaction.SetTag("status", string(ledger.StatusFailed))
		logger.Error("Failed to write MIDI file", err, logger.ItemFields(j.category.Dir(), j.index).With("path", j.path))
		o.record(bookkeeping, j.category, j.index, ledger.StatusFailed, result, j.path, err)
		return ledger.StatusFailed
	}

	if o.opts.KeepResponses && result.RawOutput != "" {
		responsePath := strings.TrimSuffix(j.path, models.ArtifactExt) + responseExt
		if err := os.WriteFile(responsePath, []byte(result.RawOutput), 0o644); err != nil {
			logger.Warn("Failed to keep oracle response", logger.ItemFields(j.category.Dir(), j.index).
				With("path", responsePath).With("error", err.Error()))
		}
	}

	transaction.SetTag("status", string(ledger.StatusProduced))
	logger.Debug("MIDI file written", logger.ItemFields(j.category.Dir(), j.index).
		With("path", j.path).With("attempts", result.Attempts))
	o.record(bookkeeping, j.category, j.index, ledger.StatusProduced, result, j.path, nil)
	return ledger.StatusProduced
}

func (o *Orchestrator) record(
	ctx context.Context,
	category models.Category,
	index int,
	status ledger.Status,
	result *generation.Result,
	path string,
	cause error,
) {
	attempts := 0
	if result != nil {
		attempts = result.Attempts
	}
	o.metrics.RecordItemOutcome(ctx, category.Dir(), string(status), attempts)

	if o.store == nil {
		return
	}

	item := ledger.Item{
		RunID:    o.runID,
		Category: category.Dir(),
		Index:    index,
		Status:   status,
		Attempts: attempts,
		Path:     path,
	}
	if result != nil {
		item.Mood = result.Mood
		item.Temperature = result.Temperature
	}
	if cause != nil {
		item.LastError = cause.Error()
	}

	if err := o.store.RecordItem(ctx, item); err != nil {
		logger.Warn("Failed to record item in ledger", logger.ItemFields(category.Dir(), index).With("error", err.Error()))
	}
}

func (o *Orchestrator) startRun(ctx context.Context, start time.Time, expected int) {
	if o.store == nil {
		return
	}

	err := o.store.StartRun(ctx, ledger.Run{
		ID:               o.runID,
		StartedAt:        start,
		Provider:         o.opts.Provider,
		Model:            o.opts.Model,
		OutputDir:        o.opts.OutputDir,
		SongsPerCategory: o.opts.SongsPerCategory,
		Categories:       len(o.categories),
		Totals:           ledger.Totals{Expected: expected},
	})
	if err != nil {
		logger.Error("Failed to start run in ledger, continuing without it", err, logger.Fields{"run_id": o.runID})
		o.store = nil
	}
}

func (o *Orchestrator) finishRun(ctx context.Context, summary *Summary) {
	if o.store == nil {
		return
	}

	if err := o.store.FinishRun(ctx, o.runID, summary.Totals(), time.Now()); err != nil {
		logger.Error("Failed to finish run in ledger", err, logger.Fields{"run_id": o.runID})
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
