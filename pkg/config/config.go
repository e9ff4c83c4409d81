package config

import (
	"github.com/sdejongh/dircompare/pkg/compare"
	"github.com/sdejongh/dircompare/pkg/engine"
	"github.com/sdejongh/dircompare/pkg/models"
	"github.com/sdejongh/dircompare/pkg/pointer"
	"github.com/sdejongh/dircompare/pkg/ratelimit"
	"github.com/sdejongh/dircompare/pkg/workspace"
)

// Config represents the application configuration
type Config struct {
	Compare CompareConfig `yaml:"compare" toml:"compare"`
	Pointer PointerConfig `yaml:"pointer" toml:"pointer"`
	Output  OutputConfig  `yaml:"output" toml:"output"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// CompareConfig holds comparison settings
type CompareConfig struct {
	BufferSize    int    `yaml:"buffer_size" toml:"buffer_size"`
	SkipVanished  bool   `yaml:"skip_vanished" toml:"skip_vanished"`
	NewBucket     string `yaml:"new_bucket" toml:"new_bucket"`
	ChangedBucket string `yaml:"changed_bucket" toml:"changed_bucket"`
	EventBuffer   int    `yaml:"event_buffer" toml:"event_buffer"`
	ReadLimit     string `yaml:"read_limit" toml:"read_limit"` // e.g. "10M" per second, empty = unlimited
}

// PointerConfig selects how result pointers are written
type PointerConfig struct {
	Kind string `yaml:"kind" toml:"kind"` // "auto", "symlink", "url" or "desktop"
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format      string `yaml:"format" toml:"format"`             // "human" or "json"
	Progress    bool   `yaml:"progress" toml:"progress"`         // Show a progress bar on terminals
	Quiet       bool   `yaml:"quiet" toml:"quiet"`               // Suppress non-error output
	MetricsFile string `yaml:"metrics_file" toml:"metrics_file"` // Prometheus textfile written after each run
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Enabled    bool   `yaml:"enabled" toml:"enabled"`
	Format     string `yaml:"format" toml:"format"` // "json" or "text"
	Level      string `yaml:"level" toml:"level"`   // "debug", "info", "warn", "error"
	File       string `yaml:"file" toml:"file"`     // Log file path (empty = stderr)
	MaxSize    int64  `yaml:"max_size" toml:"max_size"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Compare: CompareConfig{
			BufferSize:    compare.DefaultBufferSize,
			SkipVanished:  false,
			NewBucket:     workspace.DefaultNewBucket,
			ChangedBucket: workspace.DefaultChangedBucket,
			EventBuffer:   engine.DefaultEventBuffer,
			ReadLimit:     "",
		},
		Pointer: PointerConfig{
			Kind: string(pointer.KindAuto),
		},
		Output: OutputConfig{
			Format:      "human",
			Progress:    true,
			Quiet:       false,
			MetricsFile: "",
		},
		Logging: LoggingConfig{
			Enabled:    false,
			Format:     "text",
			Level:      "info",
			File:       "",
			MaxSize:    10 * 1024 * 1024,
			MaxBackups: 3,
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Compare.BufferSize < 1024 {
		return &models.ValidationError{
			Field:   "compare.buffer_size",
			Message: "must be at least 1024 bytes",
		}
	}

	if c.Compare.EventBuffer < 1 {
		return &models.ValidationError{
			Field:   "compare.event_buffer",
			Message: "must be at least 1",
		}
	}

	if _, err := ratelimit.ParseRate(c.Compare.ReadLimit); err != nil {
		return &models.ValidationError{
			Field:   "compare.read_limit",
			Message: "must be a byte rate such as 512K, 10M or 1G",
		}
	}

	if c.Compare.NewBucket == "" || c.Compare.ChangedBucket == "" {
		return &models.ValidationError{
			Field:   "compare.new_bucket",
			Message: "bucket names must not be empty",
		}
	}

	if c.Compare.NewBucket == c.Compare.ChangedBucket {
		return &models.ValidationError{
			Field:   "compare.changed_bucket",
			Message: "must differ from compare.new_bucket",
		}
	}

	validKinds := map[string]bool{
		string(pointer.KindAuto):    true,
		string(pointer.KindSymlink): true,
		string(pointer.KindURL):     true,
		string(pointer.KindDesktop): true,
	}
	if !validKinds[c.Pointer.Kind] {
		return &models.ValidationError{
			Field:   "pointer.kind",
			Message: "must be 'auto', 'symlink', 'url', or 'desktop'",
		}
	}

	validFormats := map[string]bool{"human": true, "json": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{
			Field:   "output.format",
			Message: "must be 'human' or 'json'",
		}
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'text'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &models.ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	if c.Logging.MaxSize < 0 || c.Logging.MaxBackups < 0 {
		return &models.ValidationError{
			Field:   "logging.max_size",
			Message: "rotation limits must not be negative",
		}
	}

	return nil
}
