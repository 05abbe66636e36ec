package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Conceptual-Machines/magda-midigen/internal/midi"
	"github.com/Conceptual-Machines/magda-midigen/internal/models"
)

const (
	defaultModel           = "gpt-4o"
	defaultOutputDir       = "midi_data"
	defaultSongsPerCombo   = 50
	defaultMaxRetries      = 5
	defaultBackoff         = time.Second
	defaultTempo           = 120
	defaultWorkers         = 1
	defaultLedgerFileName  = "ledger.db"
	ledgerDisabled         = "off"
	environmentDevelopment = "development"
)

// Config holds the application configuration
type Config struct {
	// Environment
	Environment string

	// LLM API Keys
	OpenAIAPIKey string // OpenAI API key for GPT models
	GeminiAPIKey string // Google Gemini API key

	// Generation
	Provider      string // openai, gemini or empty to infer from Model
	Model         string
	OutputDir     string
	SongsPerCombo int
	MaxRetries    int
	Backoff       time.Duration
	Tempo         int
	Workers       int
	Seed          int64 // 0 seeds from the clock
	Genres        []string
	Styles        []string

	// Run ledger
	LedgerPath  string // sqlite file; empty disables the local ledger
	DatabaseURL string // postgres DSN; takes precedence over LedgerPath

	// Observability
	SentryDSN         string // Sentry DSN for error tracking
	LangfusePublicKey string // Langfuse public key
	LangfuseSecretKey string // Langfuse secret key
	LangfuseHost      string // Langfuse host URL (cloud or self-hosted)
	LangfuseEnabled   bool   // Feature flag for Langfuse
}

func Load() *Config {
	outputDir := getEnv("MIDIGEN_OUTPUT_DIR", defaultOutputDir)

	return &Config{
		Environment:       getEnv("ENVIRONMENT", environmentDevelopment),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		Provider:          getEnv("MIDIGEN_PROVIDER", ""),
		Model:             getEnv("MIDIGEN_MODEL", defaultModel),
		OutputDir:         outputDir,
		SongsPerCombo:     getEnvInt("MIDIGEN_SONGS_PER_COMBO", defaultSongsPerCombo),
		MaxRetries:        getEnvInt("MIDIGEN_MAX_RETRIES", defaultMaxRetries),
		Backoff:           getEnvDuration("MIDIGEN_BACKOFF", defaultBackoff),
		Tempo:             getEnvInt("MIDIGEN_TEMPO", defaultTempo),
		Workers:           getEnvInt("MIDIGEN_WORKERS", defaultWorkers),
		Seed:              int64(getEnvInt("MIDIGEN_SEED", 0)),
		Genres:            getEnvList("MIDIGEN_GENRES", models.DefaultGenres),
		Styles:            getEnvList("MIDIGEN_STYLES", models.DefaultStyles),
		LedgerPath:        ledgerPath(getEnv("MIDIGEN_LEDGER", ""), outputDir),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		SentryDSN:         getEnv("SENTRY_DSN", ""),
		LangfusePublicKey: getEnv("LANGFUSE_PUBLIC_KEY", ""),
		LangfuseSecretKey: getEnv("LANGFUSE_SECRET_KEY", ""),
		LangfuseHost:      getEnv("LANGFUSE_HOST", "https://cloud.langfuse.com"),
		LangfuseEnabled:   getEnv("LANGFUSE_ENABLED", "false") == "true",
	}
}

// Validate rejects settings the generator cannot run with
func (c *Config) Validate() error {
	switch {
	case c.SongsPerCombo < 0:
		return fmt.Errorf("songs per combo must not be negative, got %d", c.SongsPerCombo)
	case c.MaxRetries < 1:
		return fmt.Errorf("max retries must be at least 1, got %d", c.MaxRetries)
	case c.Backoff < 0:
		return fmt.Errorf("backoff must not be negative, got %s", c.Backoff)
	case c.Tempo < midi.MinTempo:
		return fmt.Errorf("tempo must be at least %d bpm, got %d", midi.MinTempo, c.Tempo)
	case c.Workers < 1:
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	case c.OutputDir == "":
		return fmt.Errorf("output directory is required")
	case len(c.Genres) == 0 || len(c.Styles) == 0:
		return fmt.Errorf("at least one genre and one style are required")
	}
	return nil
}

// IsProduction reports whether the process runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// ledgerPath resolves MIDIGEN_LEDGER: unset means a file in the output
// directory, "off" disables the local ledger
func ledgerPath(value, outputDir string) string {
	switch value {
	case "":
		return filepath.Join(outputDir, defaultLedgerFileName)
	case ledgerDisabled:
		return ""
	default:
		return value
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return d
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), defaultValue...)
	}
	return SplitList(value)
}

// SplitList splits a comma separated list and drops empty entries
func SplitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
