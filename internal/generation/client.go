package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Conceptual-Machines/magda-midigen/internal/llm"
	"github.com/Conceptual-Machines/magda-midigen/internal/logger"
	"github.com/Conceptual-Machines/magda-midigen/internal/midi"
	"github.com/Conceptual-Machines/magda-midigen/internal/models"
	"github.com/Conceptual-Machines/magda-midigen/internal/observability"
	"github.com/Conceptual-Machines/magda-midigen/internal/prompt"
	"github.com/Conceptual-Machines/magda-midigen/internal/tracks"
)

const (
	DefaultMaxRetries = 5
	DefaultBackoff    = time.Second

	roleUser = "user"
)

// Options control how one item is requested and retried
type Options struct {
	Model           string
	ReasoningMode   string
	MaxRetries      int // total attempts per item
	Backoff         time.Duration
	BaseTemperature float64
	TemperatureStep float64
	TopP            float64
	MaxOutputTokens int64
	Tempo           int // BPM quoted in the instruction; must match the encoder's tempo

	// StructuredOutput attaches the track set JSON schema to requests
	StructuredOutput bool
}

// DefaultOptions returns the options used when nothing is configured
func DefaultOptions() Options {
	return Options{
		Model:           "gpt-4o",
		MaxRetries:      DefaultMaxRetries,
		Backoff:         DefaultBackoff,
		BaseTemperature: DefaultBaseTemperature,
		TemperatureStep: DefaultTemperatureStep,
		TopP:            DefaultTopP,
		MaxOutputTokens: DefaultMaxOutputTokens,
		Tempo:           midi.DefaultTempo,
	}
}

// Metrics receives per-attempt measurements
type Metrics interface {
	RecordAttempt(ctx context.Context, model string, duration time.Duration, success bool)
	RecordTokenUsage(ctx context.Context, model string, totalTokens, inputTokens, outputTokens, reasoningTokens int64)
}

// Result is the outcome of one item. Status is StateSucceeded or StateExhausted.
type Result struct {
	Status      State
	TrackSet    *models.TrackSet
	Attempts    int
	LastErr     error
	Mood        string
	Temperature float64
	RawOutput   string         // output of the successful attempt
	Tokens      llm.TokenUsage // summed over all attempts
}

// Succeeded reports whether the item produced a valid track set
func (r *Result) Succeeded() bool {
	return r.Status == StateSucceeded
}

// Client runs the request, decode, validate and retry loop for single items
type Client struct {
	provider     llm.Provider
	prompts      *prompt.Builder
	moods        *MoodPicker
	opts         Options
	sleep        func(ctx context.Context, d time.Duration) error
	tracer       *observability.LangfuseClient
	metrics      Metrics
	onTransition func(Transition)
}

// Option configures a Client
type Option func(*Client)

// WithMoodPicker replaces the clock-seeded mood source
func WithMoodPicker(p *MoodPicker) Option {
	return func(c *Client) { c.moods = p }
}

// WithSleep replaces the context-aware backoff wait
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = sleep }
}

// WithTracer records every attempt in Langfuse
func WithTracer(tracer *observability.LangfuseClient) Option {
	return func(c *Client) { c.tracer = tracer }
}

// WithMetrics records attempt latency and token usage
func WithMetrics(m Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithTransitionHook is called on every state change
func WithTransitionHook(fn func(Transition)) Option {
	return func(c *Client) { c.onTransition = fn }
}

// NewClient creates a generation client over provider
func NewClient(provider llm.Provider, opts Options, options ...Option) *Client {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if opts.Backoff < 0 {
		opts.Backoff = 0
	}

	c := &Client{
		provider: provider,
		prompts:  prompt.NewPromptBuilder(),
		opts:     opts,
		sleep:    sleepContext,
		tracer:   observability.Disabled(),
	}
	for _, option := range options {
		option(c)
	}
	if c.moods == nil {
		c.moods = NewMoodPicker(0, DefaultMoods)
	}

	return c
}

// Options returns the effective options
func (c *Client) Options() Options {
	return c.opts
}

// Generate produces one item. Failures never escape as errors: after
// MaxRetries failed attempts the result is Exhausted and carries the last failure.
func (c *Client) Generate(ctx context.Context, category models.Category, index int) *Result {
	result := &Result{
		Mood:        c.moods.Pick(category.Dir(), index),
		Temperature: Temperature(c.opts.BaseTemperature, c.opts.TemperatureStep, index),
	}
	fields := logger.ItemFields(category.Dir(), index)

	instruction, err := c.prompts.BuildInstruction(category.Prompt(), result.Mood, c.opts.Tempo)
	if err != nil {
		result.Status = StateExhausted
		result.LastErr = err
		return result
	}

	request := &llm.GenerationRequest{
		Model:         c.opts.Model,
		ReasoningMode: c.opts.ReasoningMode,
		SystemPrompt:  c.prompts.BuildSystemPrompt(),
		InputArray: []map[string]any{
			{"role": roleUser, "content": instruction},
		},
		Temperature:     llm.Float(result.Temperature),
		TopP:            llm.Float(c.opts.TopP),
		MaxOutputTokens: c.opts.MaxOutputTokens,
	}
	if c.opts.StructuredOutput {
		request.OutputSchema = llm.TrackSetSchema()
	}

	trace := c.tracer.StartTrace(ctx, "song", map[string]interface{}{
		"category":    category.Dir(),
		"index":       index,
		"mood":        result.Mood,
		"temperature": result.Temperature,
	})
	defer func() {
		trace.Finish(map[string]interface{}{
			"status":   string(result.Status),
			"attempts": result.Attempts,
		})
	}()

	var from State // zero before the first attempt
	for {
		result.Attempts++
		c.transition(category, index, result.Attempts, from, StateRequesting, nil)
		from = StateRetrying

		ts, raw, err := c.attempt(ctx, trace, category, index, result, request)
		if err == nil {
			result.Status = StateSucceeded
			result.TrackSet = ts
			result.RawOutput = raw
			c.transition(category, index, result.Attempts, StateValidating, StateSucceeded, nil)
			return result
		}

		result.LastErr = err
		logger.Warn(fmt.Sprintf("Attempt %d/%d failed for '%s' (song %d)",
			result.Attempts, c.opts.MaxRetries, category.Prompt(), index+1), fields.With("error", err.Error()))

		if result.Attempts >= c.opts.MaxRetries {
			result.Status = StateExhausted
			c.transition(category, index, result.Attempts, failedState(err), StateExhausted, err)
			logger.Info(fmt.Sprintf("Skipping '%s' (song %d) after %d failed attempts",
				category.Prompt(), index+1, result.Attempts), fields)
			return result
		}

		c.transition(category, index, result.Attempts, failedState(err), StateRetrying, err)

		if err := c.sleep(ctx, c.opts.Backoff); err != nil {
			result.Status = StateExhausted
			result.LastErr = err
			c.transition(category, index, result.Attempts, StateRetrying, StateExhausted, err)
			return result
		}
	}
}

// attempt runs Requesting, Decoding and Validating once
func (c *Client) attempt(
	ctx context.Context,
	trace *observability.Trace,
	category models.Category,
	index int,
	result *Result,
	request *llm.GenerationRequest,
) (*models.TrackSet, string, error) {
	gen := trace.Generation(fmt.Sprintf("attempt-%d", result.Attempts), map[string]interface{}{
		"attempt": result.Attempts,
	})
	defer gen.Finish()

	start := time.Now()
	resp, err := c.provider.Generate(ctx, request)
	if c.metrics != nil {
		c.metrics.RecordAttempt(ctx, request.Model, time.Since(start), err == nil)
	}
	if err != nil {
		gen.SetLevel("ERROR")
		gen.Metadata(map[string]interface{}{"error": err.Error()})
		var transportErr *llm.TransportError
		if !errors.As(err, &transportErr) {
			err = &llm.TransportError{Provider: c.provider.Name(), Err: err}
		}
		return nil, "", err
	}

	gen.LogResponse(request.Model, request.InputArray, resp)
	result.Tokens.Input += resp.Tokens.Input
	result.Tokens.Output += resp.Tokens.Output
	result.Tokens.Total += resp.Tokens.Total
	result.Tokens.Reasoning += resp.Tokens.Reasoning
	if c.metrics != nil {
		c.metrics.RecordTokenUsage(ctx, request.Model,
			resp.Tokens.Total, resp.Tokens.Input, resp.Tokens.Output, resp.Tokens.Reasoning)
	}

	c.transition(category, index, result.Attempts, StateRequesting, StateDecoding, nil)
	raw, err := tracks.Decode(resp.RawOutput)
	if err != nil {
		gen.SetLevel("WARNING")
		return nil, "", err
	}

	c.transition(category, index, result.Attempts, StateDecoding, StateValidating, nil)
	ts, err := tracks.Sanitize(raw)
	if err != nil {
		gen.SetLevel("WARNING")
		return nil, "", err
	}

	return ts, resp.RawOutput, nil
}

func (c *Client) transition(category models.Category, index, attempt int, from, to State, err error) {
	if c.onTransition == nil {
		return
	}
	c.onTransition(Transition{
		Category: category.Dir(),
		Index:    index,
		Attempt:  attempt,
		From:     from,
		To:       to,
		Err:      err,
	})
}

// failedState maps a failure to the state it happened in
func failedState(err error) State {
	var decodeErr *tracks.DecodeError
	var schemaErr *tracks.SchemaError
	switch {
	case errors.As(err, &decodeErr):
		return StateDecoding
	case errors.As(err, &schemaErr):
		return StateValidating
	default:
		return StateRequesting
	}
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
