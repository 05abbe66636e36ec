package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/magda-midigen/internal/config"
	"github.com/Conceptual-Machines/magda-midigen/internal/dataset"
	"github.com/Conceptual-Machines/magda-midigen/internal/ledger"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCategoriesCmd(t *testing.T) {
	out, err := execute(t, "categories", "--genres", "Jazz, Hip-Hop", "--styles", "Bossa Nova")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "DIRECTORY"))
	assert.Contains(t, lines[1], "jazz_bossanova")
	assert.Contains(t, lines[1], "Jazz song in Bossa Nova style")
	assert.Contains(t, lines[2], "hip-hop_bossanova")
	assert.Equal(t, "2 categories", lines[3])
}

func TestEncodeCmd(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "001.json")
	out := filepath.Join(dir, "001.mid")
	require.NoError(t, os.WriteFile(in, []byte(
		"```json\n"+`{"melody": [[60, 480, 80, 0], [62, 480, 80, 480]], "chords": [[60, 960, 70, 0]], "bass": [[36, 960, 90, 0]], "rhythm": [[35, 240, 100, 0]]}`+"\n```",
	), 0o644))

	stdout, err := execute(t, "encode", in, out, "--tempo", "90")
	require.NoError(t, err)
	assert.Contains(t, stdout, "5 events, 90 BPM")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.True(t, len(data) > 14)
	assert.Equal(t, "MThd", string(data[:4]))
}

func TestEncodeCmd_InvalidInput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "bad.json")
	out := filepath.Join(dir, "bad.mid")
	require.NoError(t, os.WriteFile(in, []byte(`{"melody": [], "chords": [], "rhythm": []}`), 0o644))

	_, err := execute(t, "encode", in, out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bass")
	assert.NoFileExists(t, out)

	_, err = execute(t, "encode", filepath.Join(dir, "missing.json"), out)
	assert.Error(t, err)

	_, err = execute(t, "encode", in)
	assert.Error(t, err)
}

func TestRunsCmd(t *testing.T) {
	ctx := context.Background()
	store, err := ledger.NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.StartRun(ctx, ledger.Run{ID: "run-a", StartedAt: time.Now(), Model: "gpt-4o", Totals: ledger.Totals{Expected: 2}}))
	require.NoError(t, store.RecordItem(ctx, ledger.Item{RunID: "run-a", Category: "pop_chill", Index: 0, Status: ledger.StatusProduced, Attempts: 1, Path: "midi_data/pop_chill/001.mid"}))
	require.NoError(t, store.RecordItem(ctx, ledger.Item{RunID: "run-a", Category: "pop_chill", Index: 1, Status: ledger.StatusSkipped, Attempts: 5, LastError: "decode oracle output: empty response"}))

	t.Run("lists_runs", func(t *testing.T) {
		cmd := newRunsCmdWithStore(store)
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{})
		require.NoError(t, cmd.Execute())

		assert.Contains(t, out.String(), "run-a")
		assert.Contains(t, out.String(), "running")
	})

	t.Run("lists_items", func(t *testing.T) {
		cmd := newRunsCmdWithStore(store)
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"run-a"})
		require.NoError(t, cmd.Execute())

		assert.Contains(t, out.String(), "midi_data/pop_chill/001.mid")
		assert.Contains(t, out.String(), "empty response")
		assert.Contains(t, out.String(), "skipped")
	})

	t.Run("unknown_run", func(t *testing.T) {
		cmd := newRunsCmdWithStore(store)
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"nope"})
		require.NoError(t, cmd.Execute())
		assert.Equal(t, "No items recorded.\n", out.String())
	})
}

func TestGenerateFlags_Overrides(t *testing.T) {
	cmd := newGenerateCmd(func() (*config.Config, error) { return config.Load(), nil })
	require.NoError(t, cmd.ParseFlags([]string{
		"--output", "out", "--songs", "3", "--max-retries", "2", "--backoff", "250ms",
		"--genres", "Pop,Rock", "--seed", "7",
	}))

	cfg := &config.Config{
		OutputDir:     "midi_data",
		LedgerPath:    filepath.Join("midi_data", "ledger.db"),
		SongsPerCombo: 50,
		MaxRetries:    5,
		Backoff:       time.Second,
		Tempo:         120,
		Workers:       1,
		Model:         "gpt-4o",
		Genres:        []string{"Jazz"},
		Styles:        []string{"Swing"},
	}

	flags := &generateFlags{output: "out", songs: 3, maxRetries: 2, backoff: 250 * time.Millisecond, genres: "Pop,Rock", seed: 7}
	require.NoError(t, flags.overrides(cmd).Apply(cfg))

	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, filepath.Join("out", "ledger.db"), cfg.LedgerPath)
	assert.Equal(t, 3, cfg.SongsPerCombo)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Backoff)
	assert.Equal(t, []string{"Pop", "Rock"}, cfg.Genres)
	assert.Equal(t, []string{"Swing"}, cfg.Styles, "unset flags keep config values")
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 120, cfg.Tempo)
	assert.Equal(t, "gpt-4o", cfg.Model)
}

func TestGenerateCmd_InvalidConfig(t *testing.T) {
	_, err := execute(t, "generate", "--workers", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "midigen.yaml")
	require.NoError(t, os.WriteFile(path, []byte("songs_per_combo: 2\nstyles: [Chill]\n"), 0o644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.SongsPerCombo)
	assert.Equal(t, []string{"Chill"}, cfg.Styles)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestPrintSummary(t *testing.T) {
	var out bytes.Buffer
	printSummary(&out, &dataset.Summary{
		RunID:       "r1",
		Expected:    4,
		Produced:    3,
		Skipped:     1,
		Directories: 2,
		Duration:    1500 * time.Millisecond,
	}, "midi_data")

	assert.Equal(t,
		"Attempted 4 of 4 expected songs: generated 3 MIDI files, skipped 1 due to generation failures, 0 failed to write.\n"+
			"Files saved in 2 subdirectories under 'midi_data'.\n"+
			"Run r1 took 1.5s.\n",
		out.String())
}
