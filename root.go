package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Conceptual-Machines/magda-midigen/internal/config"
)

// newRootCmd creates the root midigen command with all subcommands attached.
func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "midigen",
		Short:         "Generate a genre and style labelled MIDI dataset",
		Long:          "midigen asks an LLM for four-track note descriptions (melody, chords, bass, rhythm)\nfor every genre and style combination and writes them as Standard MIDI Files.",
		Version:       fmt.Sprintf("midigen %s", GetVersion()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML or TOML config file")

	load := func() (*config.Config, error) {
		return loadConfig(configPath)
	}

	cmd.AddCommand(
		newGenerateCmd(load),
		newEncodeCmd(),
		newCategoriesCmd(load),
		newRunsCmd(load),
	)

	return cmd
}

// loadConfig reads the environment and overlays the optional config file
func loadConfig(path string) (*config.Config, error) {
	cfg := config.Load()
	if path == "" {
		return cfg, nil
	}

	file, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := file.Apply(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
