package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Conceptual-Machines/magda-midigen/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ENVIRONMENT", "MIDIGEN_PROVIDER", "MIDIGEN_MODEL", "MIDIGEN_OUTPUT_DIR",
		"MIDIGEN_SONGS_PER_COMBO", "MIDIGEN_MAX_RETRIES", "MIDIGEN_BACKOFF", "MIDIGEN_TEMPO",
		"MIDIGEN_WORKERS", "MIDIGEN_SEED", "MIDIGEN_GENRES", "MIDIGEN_STYLES", "MIDIGEN_LEDGER",
		"DATABASE_URL", "LANGFUSE_ENABLED",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, "midi_data", cfg.OutputDir)
	assert.Equal(t, 50, cfg.SongsPerCombo)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.Backoff)
	assert.Equal(t, 120, cfg.Tempo)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, int64(0), cfg.Seed)
	assert.Equal(t, models.DefaultGenres, cfg.Genres)
	assert.Equal(t, models.DefaultStyles, cfg.Styles)
	assert.Equal(t, filepath.Join("midi_data", "ledger.db"), cfg.LedgerPath)
	assert.False(t, cfg.LangfuseEnabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("MIDIGEN_MODEL", "gemini-2.5-flash")
	t.Setenv("MIDIGEN_OUTPUT_DIR", "/data/out")
	t.Setenv("MIDIGEN_SONGS_PER_COMBO", "3")
	t.Setenv("MIDIGEN_MAX_RETRIES", "2")
	t.Setenv("MIDIGEN_BACKOFF", "250ms")
	t.Setenv("MIDIGEN_WORKERS", "4")
	t.Setenv("MIDIGEN_SEED", "42")
	t.Setenv("MIDIGEN_GENRES", "Jazz, Rock ,")
	t.Setenv("MIDIGEN_LEDGER", "off")

	cfg := Load()
	assert.Equal(t, "gemini-2.5-flash", cfg.Model)
	assert.Equal(t, "/data/out", cfg.OutputDir)
	assert.Equal(t, 3, cfg.SongsPerCombo)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Backoff)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, []string{"Jazz", "Rock"}, cfg.Genres)
	assert.Empty(t, cfg.LedgerPath)
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("MIDIGEN_MAX_RETRIES", "many")
	t.Setenv("MIDIGEN_BACKOFF", "soon")

	cfg := Load()
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.Backoff)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{name: "zero retries", mutate: func(c *Config) { c.MaxRetries = 0 }, errMsg: "max retries"},
		{name: "zero tempo", mutate: func(c *Config) { c.Tempo = 0 }, errMsg: "tempo"},
		{name: "tempo too slow to encode", mutate: func(c *Config) { c.Tempo = 3 }, errMsg: "at least 4 bpm"},
		{name: "no workers", mutate: func(c *Config) { c.Workers = 0 }, errMsg: "workers"},
		{name: "negative songs", mutate: func(c *Config) { c.SongsPerCombo = -1 }, errMsg: "songs per combo"},
		{name: "negative backoff", mutate: func(c *Config) { c.Backoff = -time.Second }, errMsg: "backoff"},
		{name: "no genres", mutate: func(c *Config) { c.Genres = nil }, errMsg: "genre"},
		{name: "no output", mutate: func(c *Config) { c.OutputDir = "" }, errMsg: "output directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			cfg := Load()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

func TestLoadFile_YAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "midigen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
model: gpt-4o-mini
output_dir: dataset
songs_per_combo: 2
backoff: 10ms
genres: [Jazz]
styles: [Bebop, Swing]
`), 0o644))

	f, err := LoadFile(path)
	require.NoError(t, err)

	cfg := Load()
	require.NoError(t, f.Apply(cfg))
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, "dataset", cfg.OutputDir)
	assert.Equal(t, filepath.Join("dataset", "ledger.db"), cfg.LedgerPath)
	assert.Equal(t, 2, cfg.SongsPerCombo)
	assert.Equal(t, 10*time.Millisecond, cfg.Backoff)
	assert.Equal(t, []string{"Jazz"}, cfg.Genres)
	assert.Equal(t, []string{"Bebop", "Swing"}, cfg.Styles)
	assert.Equal(t, 5, cfg.MaxRetries, "unset keys keep their value")
}

func TestLoadFile_TOML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "midigen.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider = "gemini"
max_retries = 3
workers = 2
seed = 7
ledger = "off"
`), 0o644))

	f, err := LoadFile(path)
	require.NoError(t, err)

	cfg := Load()
	require.NoError(t, f.Apply(cfg))
	assert.Equal(t, "gemini", cfg.Provider)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Empty(t, cfg.LedgerPath)
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	jsonPath := filepath.Join(dir, "midigen.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{}`), 0o644))
	_, err = LoadFile(jsonPath)
	assert.ErrorContains(t, err, "unsupported config file type")

	badPath := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badPath, []byte("backoff: [1"), 0o644))
	_, err = LoadFile(badPath)
	assert.ErrorContains(t, err, "failed to parse config file")

	f := &File{Backoff: "forever"}
	assert.ErrorContains(t, f.Apply(Load()), "invalid backoff")
}
