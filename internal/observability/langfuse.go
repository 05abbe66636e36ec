package observability

import (
	"context"
	"log"
	"time"

	"github.com/Conceptual-Machines/magda-midigen/internal/config"
	"github.com/Conceptual-Machines/magda-midigen/internal/llm"
	langfuse "github.com/henomis/langfuse-go"
	"github.com/henomis/langfuse-go/model"
)

// LangfuseClient wraps the Langfuse client with our configuration
type LangfuseClient struct {
	client  *langfuse.Langfuse
	enabled bool
	ctx     context.Context
}

// InitializeLangfuse creates the Langfuse client. The SDK reads its keys and
// host from the LANGFUSE_* environment variables.
func InitializeLangfuse(ctx context.Context, cfg *config.Config) *LangfuseClient {
	if !cfg.LangfuseEnabled || cfg.LangfuseSecretKey == "" {
		log.Println("⚠️  Langfuse not configured (LANGFUSE_ENABLED=false or LANGFUSE_SECRET_KEY not set)")
		return Disabled()
	}

	lf := langfuse.New(ctx)
	log.Printf("✅ Langfuse initialized (host: %s)", cfg.LangfuseHost)

	return &LangfuseClient{
		client:  lf,
		enabled: true,
		ctx:     ctx,
	}
}

// Disabled returns a client whose traces are no-ops
func Disabled() *LangfuseClient {
	return &LangfuseClient{enabled: false, ctx: context.Background()}
}

// IsEnabled returns whether Langfuse is enabled
func (c *LangfuseClient) IsEnabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// Flush waits until queued events are sent
func (c *LangfuseClient) Flush() {
	if c.IsEnabled() {
		log.Printf("🔍 Langfuse: Flushing queued events...")
		c.client.Flush(c.ctx)
	}
}

// StartTrace starts a new trace in Langfuse
func (c *LangfuseClient) StartTrace(ctx context.Context, name string, metadata map[string]interface{}) *Trace {
	if !c.IsEnabled() {
		return &Trace{enabled: false, ctx: ctx}
	}

	trace, err := c.client.Trace(&model.Trace{
		Name:     name,
		Metadata: metadata,
	})
	if err != nil {
		log.Printf("⚠️  Failed to create Langfuse trace: %v", err)
		return &Trace{enabled: false, ctx: ctx}
	}

	md := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		md[k] = v
	}

	return &Trace{
		trace:    trace,
		metadata: md,
		enabled:  true,
		ctx:      ctx,
		client:   c.client,
	}
}

// Trace represents a Langfuse trace
type Trace struct {
	trace    *model.Trace
	metadata map[string]interface{}
	enabled  bool
	ctx      context.Context
	client   *langfuse.Langfuse
}

// Generation creates a new generation span within the trace
func (t *Trace) Generation(name string, metadata map[string]interface{}) *Generation {
	if !t.enabled {
		return &Generation{enabled: false}
	}

	now := time.Now()
	gen, err := t.client.Generation(&model.Generation{
		TraceID:   t.trace.ID,
		Name:      name,
		StartTime: &now,
		Metadata:  metadata,
	}, nil)
	if err != nil {
		log.Printf("⚠️  Failed to create Langfuse generation: %v", err)
		return &Generation{enabled: false}
	}

	return &Generation{
		generation: gen,
		enabled:    true,
		client:     t.client,
	}
}

// Finish records the trace outcome. Events are sent in the background and
// flushed by LangfuseClient.Flush.
func (t *Trace) Finish(metadata map[string]interface{}) {
	if !t.enabled || t.trace == nil {
		return
	}

	for k, v := range metadata {
		t.metadata[k] = v
	}
	t.trace.Metadata = t.metadata

	if _, err := t.client.Trace(t.trace); err != nil {
		log.Printf("⚠️  Failed to update Langfuse trace: %v", err)
	}
}

// Generation represents a Langfuse generation span
type Generation struct {
	generation *model.Generation
	enabled    bool
	client     *langfuse.Langfuse
}

// Input sets the input for the generation
func (g *Generation) Input(input interface{}) {
	if g.enabled && g.generation != nil {
		g.generation.Input = input
	}
}

// Output sets the output for the generation
func (g *Generation) Output(output interface{}) {
	if g.enabled && g.generation != nil {
		g.generation.Output = output
	}
}

// Metadata adds metadata to the generation
func (g *Generation) Metadata(metadata map[string]interface{}) {
	if g.enabled && g.generation != nil {
		if g.generation.Metadata == nil {
			g.generation.Metadata = make(map[string]interface{})
		}
		if md, ok := g.generation.Metadata.(map[string]interface{}); ok {
			for k, v := range metadata {
				md[k] = v
			}
		} else {
			g.generation.Metadata = metadata
		}
	}
}

// SetLevel sets the level of the generation
func (g *Generation) SetLevel(level string) {
	if g.enabled && g.generation != nil {
		g.generation.Level = model.ObservationLevel(level)
	}
}

// LogResponse records the model, output and token usage of one oracle call
func (g *Generation) LogResponse(modelName string, inputMessages []map[string]any, resp *llm.GenerationResponse) {
	if !g.enabled || g.generation == nil || resp == nil {
		return
	}

	cost := CalculateCost(modelName, resp.Tokens)

	g.Input(inputMessages)
	if resp.RawOutput != "" {
		g.Output(resp.RawOutput)
	}
	g.generation.Model = modelName
	g.generation.Usage = model.Usage{
		Input:     int(resp.Tokens.Input),
		Output:    int(resp.Tokens.Output),
		Total:     int(resp.Tokens.Total),
		Unit:      model.ModelUsageUnitTokens,
		TotalCost: cost,
	}
	g.Metadata(map[string]interface{}{
		"model":    modelName,
		"cost_usd": cost,
	})
}

// Finish completes the generation and sends it to Langfuse
func (g *Generation) Finish() {
	if g.enabled && g.generation != nil && g.client != nil {
		now := time.Now()
		g.generation.EndTime = &now
		if _, err := g.client.GenerationEnd(g.generation); err != nil {
			log.Printf("⚠️  Failed to end Langfuse generation: %v", err)
		}
	}
}
