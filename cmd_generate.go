package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/openai/openai-go/option"
	"github.com/spf13/cobra"

	"github.com/Conceptual-Machines/magda-midigen/internal/config"
	"github.com/Conceptual-Machines/magda-midigen/internal/dataset"
	"github.com/Conceptual-Machines/magda-midigen/internal/generation"
	"github.com/Conceptual-Machines/magda-midigen/internal/ledger"
	"github.com/Conceptual-Machines/magda-midigen/internal/llm"
	"github.com/Conceptual-Machines/magda-midigen/internal/logger"
	"github.com/Conceptual-Machines/magda-midigen/internal/metrics"
	"github.com/Conceptual-Machines/magda-midigen/internal/models"
	"github.com/Conceptual-Machines/magda-midigen/internal/observability"
)

// generateFlags holds the flags that override config values
type generateFlags struct {
	output        string
	songs         int
	workers       int
	maxRetries    int
	backoff       time.Duration
	tempo         int
	model         string
	provider      string
	reasoning     string
	seed          int64
	genres        string
	styles        string
	ledger        string
	resume        bool
	keepResponses bool
	structured    bool
}

// overrides converts the flags the user set into a config overlay
func (f *generateFlags) overrides(cmd *cobra.Command) *config.File {
	changed := cmd.Flags().Changed
	file := &config.File{}

	if changed("output") {
		file.OutputDir = f.output
	}
	if changed("songs") {
		file.SongsPerCombo = &f.songs
	}
	if changed("workers") {
		file.Workers = &f.workers
	}
	if changed("max-retries") {
		file.MaxRetries = &f.maxRetries
	}
	if changed("backoff") {
		file.Backoff = f.backoff.String()
	}
	if changed("tempo") {
		file.Tempo = &f.tempo
	}
	if changed("model") {
		file.Model = f.model
	}
	if changed("provider") {
		file.Provider = f.provider
	}
	if changed("seed") {
		file.Seed = &f.seed
	}
	if changed("genres") {
		file.Genres = config.SplitList(f.genres)
	}
	if changed("styles") {
		file.Styles = config.SplitList(f.styles)
	}
	if changed("ledger") {
		file.Ledger = f.ledger
	}

	return file
}

func newGenerateCmd(load func() (*config.Config, error)) *cobra.Command {
	flags := &generateFlags{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the MIDI dataset",
		Long: "Generate songs for every genre × style category. Each song is requested from the LLM,\n" +
			"validated, retried on failure and written to <output>/<genre>_<style>/NNN.mid.\n" +
			"Songs that fail every attempt are skipped.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if err := flags.overrides(cmd).Apply(cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			flush := initSentry(cfg)
			defer flush()

			return runGenerate(cmd.Context(), cfg, flags, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&flags.output, "output", "midi_data", "output directory (MIDIGEN_OUTPUT_DIR)")
	cmd.Flags().IntVar(&flags.songs, "songs", 50, "songs per genre × style category (MIDIGEN_SONGS_PER_COMBO)")
	cmd.Flags().IntVar(&flags.workers, "workers", 1, "concurrent generation workers (MIDIGEN_WORKERS)")
	cmd.Flags().IntVar(&flags.maxRetries, "max-retries", generation.DefaultMaxRetries, "attempts per song before it is skipped")
	cmd.Flags().DurationVar(&flags.backoff, "backoff", generation.DefaultBackoff, "wait between attempts")
	cmd.Flags().IntVar(&flags.tempo, "tempo", 120, "tempo in BPM written to every file")
	cmd.Flags().StringVar(&flags.model, "model", "gpt-4o", "LLM model (MIDIGEN_MODEL)")
	cmd.Flags().StringVar(&flags.provider, "provider", "", "LLM provider: openai or gemini (inferred from the model when empty)")
	cmd.Flags().StringVar(&flags.reasoning, "reasoning", "", "reasoning effort for reasoning models (minimal|low|medium|high)")
	cmd.Flags().Int64Var(&flags.seed, "seed", 0, "mood seed, 0 seeds from the clock")
	cmd.Flags().StringVar(&flags.genres, "genres", "", "comma separated genres")
	cmd.Flags().StringVar(&flags.styles, "styles", "", "comma separated styles")
	cmd.Flags().StringVar(&flags.ledger, "ledger", "", "sqlite run ledger path, \"off\" disables it")
	cmd.Flags().BoolVar(&flags.resume, "resume", false, "skip songs whose file already exists")
	cmd.Flags().BoolVar(&flags.keepResponses, "keep-responses", false, "store each raw LLM response as NNN.json next to the MIDI file")
	cmd.Flags().BoolVar(&flags.structured, "structured", false, "attach a JSON schema to requests (structured output)")

	return cmd
}

func runGenerate(ctx context.Context, cfg *config.Config, flags *generateFlags, out io.Writer) error {
	// retries are counted by the generation client
	factory := llm.NewProviderFactory(cfg.OpenAIAPIKey, cfg.GeminiAPIKey, option.WithMaxRetries(0))
	provider, err := factory.GetProvider(ctx, cfg.Model, cfg.Provider)
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}

	tracer := observability.InitializeLangfuse(ctx, cfg)
	defer tracer.Flush()

	recorder := metrics.Multi{metrics.NewSentryMetrics(cfg.SentryDSN != "")}
	cloudwatch, err := metrics.NewClient(ctx, cfg.Environment)
	if err != nil {
		log.Printf("⚠️  CloudWatch metrics unavailable: %v", err)
	} else if cloudwatch.Enabled() {
		recorder = append(recorder, cloudwatch)
		defer cloudwatch.Close()
	}

	opts := generation.DefaultOptions()
	opts.Model = cfg.Model
	opts.ReasoningMode = flags.reasoning
	opts.MaxRetries = cfg.MaxRetries
	opts.Backoff = cfg.Backoff
	opts.Tempo = cfg.Tempo
	opts.StructuredOutput = flags.structured

	client := generation.NewClient(provider, opts,
		generation.WithMoodPicker(generation.NewMoodPicker(cfg.Seed, generation.DefaultMoods)),
		generation.WithTracer(tracer),
		generation.WithMetrics(recorder),
	)

	orchestratorOptions := []dataset.Option{dataset.WithMetrics(recorder)}

	store, err := ledger.Open(ctx, cfg.DatabaseURL, cfg.LedgerPath)
	if err != nil {
		logger.Warn("Run ledger unavailable, continuing without it", logger.Fields{"error": err.Error()})
	} else if store != nil {
		defer store.Close()
		orchestratorOptions = append(orchestratorOptions, dataset.WithLedger(store))
	}

	categories := models.Categories(cfg.Genres, cfg.Styles)
	orchestrator := dataset.NewOrchestrator(client, categories, dataset.Options{
		OutputDir:        cfg.OutputDir,
		SongsPerCategory: cfg.SongsPerCombo,
		Workers:          cfg.Workers,
		Tempo:            cfg.Tempo,
		Resume:           flags.resume,
		KeepResponses:    flags.keepResponses,
		Provider:         provider.Name(),
		Model:            cfg.Model,
	}, orchestratorOptions...)

	log.Printf("🚀 Starting run %s (model: %s, provider: %s)", orchestrator.RunID(), cfg.Model, provider.Name())

	summary, err := orchestrator.Run(ctx)
	if err != nil {
		return err
	}

	printSummary(out, summary, cfg.OutputDir)
	return nil
}

func printSummary(out io.Writer, summary *dataset.Summary, outputDir string) {
	fmt.Fprintf(out, "%s.\n", summary.String())
	fmt.Fprintf(out, "Files saved in %d subdirectories under '%s'.\n", summary.Directories, outputDir)
	fmt.Fprintf(out, "Run %s took %s.\n", summary.RunID, summary.Duration.Round(time.Millisecond))
}
