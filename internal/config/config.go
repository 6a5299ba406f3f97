// Package config handles conversion settings loading and management.
package config

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/lwo2mesh/internal/logger"
	"github.com/Faultbox/lwo2mesh/pkg/encoding"
	"github.com/Faultbox/lwo2mesh/pkg/lwo"
	"github.com/Faultbox/lwo2mesh/pkg/mesh"
)

// Config holds all conversion settings.
type Config struct {
	Decode   DecodeConfig   `yaml:"decode"`
	Mesh     MeshConfig     `yaml:"mesh"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DecodeConfig holds object decoding settings.
type DecodeConfig struct {
	StringEncoding string `yaml:"string_encoding"` // utf-8, windows-1252, iso-8859-1 or euc-kr
}

// MeshConfig holds geometry reconstruction settings.
type MeshConfig struct {
	Winding   string `yaml:"winding"`    // preserve or reverse
	WeightMap string `yaml:"weight_map"` // empty selects each layer's first weight map
}

// PipelineConfig holds batch conversion settings.
type PipelineConfig struct {
	Workers    int           `yaml:"workers"` // 0 uses one worker per CPU
	Extensions []string      `yaml:"extensions"`
	Timeout    time.Duration `yaml:"timeout"` // whole batch; 0 disables
	FailFast   bool          `yaml:"fail_fast"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
	JSON    bool   `yaml:"json"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Decode: DecodeConfig{
			StringEncoding: "utf-8",
		},
		Mesh: MeshConfig{
			Winding: "preserve",
		},
		Pipeline: PipelineConfig{
			Workers:    0,
			Extensions: []string{".lwo"},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks that every setting names something that exists.
func (c *Config) Validate() error {
	if _, err := encoding.Lookup(c.Decode.StringEncoding); err != nil {
		return fmt.Errorf("decode.string_encoding: %w", err)
	}
	if _, err := mesh.ParseWinding(c.Mesh.Winding); err != nil {
		return fmt.Errorf("mesh.winding: %w", err)
	}
	if c.Pipeline.Workers < 0 {
		return fmt.Errorf("pipeline.workers: must not be negative, got %d", c.Pipeline.Workers)
	}
	if c.Pipeline.Timeout < 0 {
		return fmt.Errorf("pipeline.timeout: must not be negative, got %v", c.Pipeline.Timeout)
	}
	for _, ext := range c.Pipeline.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("pipeline.extensions: %q must start with a dot", ext)
		}
	}
	return nil
}

// DecodeOptions returns the object decoder settings.
func (c *Config) DecodeOptions() (lwo.Options, error) {
	cp, err := encoding.Lookup(c.Decode.StringEncoding)
	if err != nil {
		return lwo.Options{}, err
	}
	return lwo.Options{Codepage: cp}, nil
}

// MeshOptions returns the reconstruction settings, logging to log.
func (c *Config) MeshOptions(log *zap.Logger) (mesh.Options, error) {
	w, err := mesh.ParseWinding(c.Mesh.Winding)
	if err != nil {
		return mesh.Options{}, err
	}
	return mesh.Options{Logger: log, Winding: w, WeightMap: c.Mesh.WeightMap}, nil
}

// LoggerOptions returns the logger settings.
func (c *Config) LoggerOptions() logger.Options {
	opts := logger.DefaultOptions(c.Logging.Level, c.Logging.LogFile)
	opts.JSON = c.Logging.JSON
	return opts
}
