package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config is the CLI defaults file (~/.config/tokengen/config.yaml). Pointer
// fields distinguish "not set" from zero values.
type Config struct {
	ModelsDir string `yaml:"models_dir,omitempty"`

	// Sampling defaults
	Temperature       *float64 `yaml:"temperature,omitempty"`
	TopK              *int64   `yaml:"top_k,omitempty"`
	TopP              *float64 `yaml:"top_p,omitempty"`
	RepetitionPenalty *float64 `yaml:"repetition_penalty,omitempty"`
	PenaltyWindow     *int64   `yaml:"penalty_window,omitempty"`
	Seed              *int64   `yaml:"seed,omitempty"`
	MaxLength         *int64   `yaml:"max_length,omitempty"`
	Capacity          *int64   `yaml:"capacity,omitempty"`
	MaxMemory         *int64   `yaml:"max_memory,omitempty"`

	// Output
	StreamMode string `yaml:"stream_mode,omitempty"`
	LogLevel   string `yaml:"log_level,omitempty"`
	LogFormat  string `yaml:"log_format,omitempty"`
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "tokengen", "config.yaml")
}

// LoadConfig reads the defaults file. A missing file yields a zero Config.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg as YAML, refusing to replace an existing file unless
// overwrite is set.
func SaveConfig(path string, cfg Config, overwrite bool) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

type configKey struct{}

func withConfig(ctx context.Context, cfg Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

func configFromContext(ctx context.Context) Config {
	cfg, _ := ctx.Value(configKey{}).(Config)
	return cfg
}

// applyLoggingConfig applies config file defaults to the logging flags when
// they were not set explicitly.
func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyModelConfig applies config file defaults to the model flags.
func applyModelConfig(c *cli.Command, cfg Config) {
	if cfg.ModelsDir != "" && !c.IsSet("models-path") {
		modelsPath = cfg.ModelsDir
	}
	if cfg.MaxMemory != nil && !c.IsSet("max-memory") {
		maxMemory = *cfg.MaxMemory
	}
}

// applySamplingConfig applies config file defaults to the sampling flags and
// records which ones it touched so they still override the model's
// generation config.
func applySamplingConfig(c *cli.Command, cfg Config, s *samplingFlags) {
	s.fromConfig = make(map[string]bool)
	set := func(name string, apply func()) {
		if !c.IsSet(name) {
			apply()
			s.fromConfig[name] = true
		}
	}
	if cfg.Temperature != nil {
		set("temp", func() { s.temperature = *cfg.Temperature })
	}
	if cfg.TopK != nil {
		set("top-k", func() { s.topK = *cfg.TopK })
	}
	if cfg.TopP != nil {
		set("top-p", func() { s.topP = *cfg.TopP })
	}
	if cfg.RepetitionPenalty != nil {
		set("repeat-penalty", func() { s.repetitionPenalty = *cfg.RepetitionPenalty })
	}
	if cfg.PenaltyWindow != nil {
		set("repeat-last-n", func() { s.penaltyWindow = *cfg.PenaltyWindow })
	}
	if cfg.Seed != nil {
		set("seed", func() { s.seed = *cfg.Seed })
	}
	if cfg.MaxLength != nil {
		set("max-length", func() { s.maxLength = *cfg.MaxLength })
	}
	if cfg.Capacity != nil {
		set("capacity", func() { s.capacity = *cfg.Capacity })
	}
}
