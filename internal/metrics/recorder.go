package metrics

import (
	"context"
	"time"
)

// Recorder is implemented by every metrics backend
type Recorder interface {
	RecordAttempt(ctx context.Context, model string, duration time.Duration, success bool)
	RecordTokenUsage(ctx context.Context, model string, totalTokens, inputTokens, outputTokens, reasoningTokens int64)
	RecordItemOutcome(ctx context.Context, category, status string, attempts int)
	RecordRunSummary(ctx context.Context, produced, skipped, failed int, duration time.Duration)
}

// Multi fans every record out to all backends
type Multi []Recorder

func (m Multi) RecordAttempt(ctx context.Context, model string, duration time.Duration, success bool) {
	for _, r := range m {
		r.RecordAttempt(ctx, model, duration, success)
	}
}

func (m Multi) RecordTokenUsage(ctx context.Context, model string, totalTokens, inputTokens, outputTokens, reasoningTokens int64) {
	for _, r := range m {
		r.RecordTokenUsage(ctx, model, totalTokens, inputTokens, outputTokens, reasoningTokens)
	}
}

func (m Multi) RecordItemOutcome(ctx context.Context, category, status string, attempts int) {
	for _, r := range m {
		r.RecordItemOutcome(ctx, category, status, attempts)
	}
}

func (m Multi) RecordRunSummary(ctx context.Context, produced, skipped, failed int, duration time.Duration) {
	for _, r := range m {
		r.RecordRunSummary(ctx, produced, skipped, failed, duration)
	}
}

// Noop discards all metrics
type Noop struct{}

func (Noop) RecordAttempt(context.Context, string, time.Duration, bool) {}
func (Noop) RecordTokenUsage(context.Context, string, int64, int64, int64, int64) {}
func (Noop) RecordItemOutcome(context.Context, string, string, int) {}
func (Noop) RecordRunSummary(context.Context, int, int, int, time.Duration) {}
