package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryMetrics handles custom metrics for Sentry
type SentryMetrics struct {
	enabled bool
}

// NewSentryMetrics creates a new Sentry metrics client
func NewSentryMetrics(enabled bool) *SentryMetrics {
	return &SentryMetrics{
		enabled: enabled,
	}
}

// RecordAttempt records one oracle call as a span
func (m *SentryMetrics) RecordAttempt(ctx context.Context, model string, duration time.Duration, success bool) {
	if !m.enabled {
		return
	}

	span := sentry.StartSpan(ctx, "generation.attempt")
	defer span.Finish()

	span.SetTag("model", model)
	span.SetTag("success", fmt.Sprintf("%t", success))
	span.SetData("duration_ms", duration.Milliseconds())

	if success {
		span.Status = sentry.SpanStatusOK
	} else {
		span.Status = sentry.SpanStatusInternalError
	}

	span.Description = fmt.Sprintf("Oracle attempt: %s", model)
}

// RecordTokenUsage attaches token counts to the current transaction
func (m *SentryMetrics) RecordTokenUsage(ctx context.Context, model string, totalTokens, inputTokens, outputTokens, reasoningTokens int64) {
	if !m.enabled {
		return
	}

	if transaction := sentry.TransactionFromContext(ctx); transaction != nil {
		transaction.SetTag("llm.model", model)
		transaction.SetData("llm.total_tokens", totalTokens)
		transaction.SetData("llm.input_tokens", inputTokens)
		transaction.SetData("llm.output_tokens", outputTokens)
		transaction.SetData("llm.reasoning_tokens", reasoningTokens)
	}

	span := sentry.StartSpan(ctx, "llm.token_usage")
	defer span.Finish()

	span.SetTag("model", model)
	span.SetData("total_tokens", totalTokens)
	span.SetData("input_tokens", inputTokens)
	span.SetData("output_tokens", outputTokens)
	span.SetData("reasoning_tokens", reasoningTokens)

	span.Status = sentry.SpanStatusOK
	span.Description = fmt.Sprintf("Token Usage: %s", model)
}

// RecordItemOutcome tags the item transaction with its final status
func (m *SentryMetrics) RecordItemOutcome(ctx context.Context, category, status string, attempts int) {
	if !m.enabled {
		return
	}

	if transaction := sentry.TransactionFromContext(ctx); transaction != nil {
		transaction.SetTag("category", category)
		transaction.SetTag("status", status)
		transaction.SetData("attempts", attempts)
	}
}

// RecordRunSummary sends the run totals as a Sentry message
func (m *SentryMetrics) RecordRunSummary(_ context.Context, produced, skipped, failed int, duration time.Duration) {
	if !m.enabled {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("metric_type", "run_summary")
		scope.SetContext("run_summary", map[string]interface{}{
			"produced":         produced,
			"skipped":          skipped,
			"failed":           failed,
			"duration_seconds": duration.Seconds(),
		})

		sentry.CaptureMessage(fmt.Sprintf("Run finished: %d produced, %d skipped, %d failed", produced, skipped, failed))
	})
}
