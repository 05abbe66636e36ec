package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// File is the optional config file. Unset fields keep the value from the environment.
type File struct {
	Provider      string   `yaml:"provider" toml:"provider"`
	Model         string   `yaml:"model" toml:"model"`
	OutputDir     string   `yaml:"output_dir" toml:"output_dir"`
	SongsPerCombo *int     `yaml:"songs_per_combo" toml:"songs_per_combo"`
	MaxRetries    *int     `yaml:"max_retries" toml:"max_retries"`
	Backoff       string   `yaml:"backoff" toml:"backoff"`
	Tempo         *int     `yaml:"tempo" toml:"tempo"`
	Workers       *int     `yaml:"workers" toml:"workers"`
	Seed          *int64   `yaml:"seed" toml:"seed"`
	Genres        []string `yaml:"genres" toml:"genres"`
	Styles        []string `yaml:"styles" toml:"styles"`
	Ledger        string   `yaml:"ledger" toml:"ledger"`
}

// LoadFile reads a YAML or TOML config file, chosen by extension
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var f File
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	case ".toml":
		err = toml.Unmarshal(data, &f)
	default:
		return nil, fmt.Errorf("unsupported config file type %q (use .yaml, .yml or .toml)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return &f, nil
}

// Apply overlays the file values onto c
func (f *File) Apply(c *Config) error {
	if f.Provider != "" {
		c.Provider = f.Provider
	}
	if f.Model != "" {
		c.Model = f.Model
	}
	if f.OutputDir != "" {
		// the default ledger lives next to the artifacts
		if c.LedgerPath == filepath.Join(c.OutputDir, defaultLedgerFileName) {
			c.LedgerPath = filepath.Join(f.OutputDir, defaultLedgerFileName)
		}
		c.OutputDir = f.OutputDir
	}
	if f.SongsPerCombo != nil {
		c.SongsPerCombo = *f.SongsPerCombo
	}
	if f.MaxRetries != nil {
		c.MaxRetries = *f.MaxRetries
	}
	if f.Backoff != "" {
		d, err := time.ParseDuration(f.Backoff)
		if err != nil {
			return fmt.Errorf("invalid backoff %q: %w", f.Backoff, err)
		}
		c.Backoff = d
	}
	if f.Tempo != nil {
		c.Tempo = *f.Tempo
	}
	if f.Workers != nil {
		c.Workers = *f.Workers
	}
	if f.Seed != nil {
		c.Seed = *f.Seed
	}
	if len(f.Genres) > 0 {
		c.Genres = append([]string(nil), f.Genres...)
	}
	if len(f.Styles) > 0 {
		c.Styles = append([]string(nil), f.Styles...)
	}
	if f.Ledger != "" {
		c.LedgerPath = ledgerPath(f.Ledger, c.OutputDir)
	}
	return nil
}
