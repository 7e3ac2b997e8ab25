// Package logging configures the zerolog loggers used across nanoquery.
//
// Library code asks for a component logger at the point of use. Until Setup
// is called every component logger discards its output, so importing the
// library never writes to the host program's streams.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logging configuration
type Config struct {
	// Level is one of trace, debug, info, warn, error
	Level string `mapstructure:"level" json:"level"`

	// Format is console or json
	Format string `mapstructure:"format" json:"format"`

	// OutputFile optionally mirrors logs to a file
	OutputFile string `mapstructure:"output_file" json:"output_file"`

	// Output defaults to stderr
	Output io.Writer `mapstructure:"-" json:"-"`
}

// DefaultConfig returns the configuration used by the CLI
func DefaultConfig() Config {
	return Config{
		Level:  "warn",
		Format: "console",
	}
}

var base atomic.Pointer[zerolog.Logger]

func init() {
	nop := zerolog.Nop()
	base.Store(&nop)
}

// Setup replaces the base logger
func Setup(cfg Config) error {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var writers []io.Writer
	switch cfg.Format {
	case "", "console":
		writers = append(writers, zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	case "json":
		writers = append(writers, out)
	default:
		return fmt.Errorf("invalid log format %q", cfg.Format)
	}

	if cfg.OutputFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.OutputFile), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, f)
	}

	var w io.Writer = writers[0]
	if len(writers) > 1 {
		w = zerolog.MultiLevelWriter(writers...)
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	base.Store(&logger)
	return nil
}

// Use installs logger as the base logger
func Use(logger zerolog.Logger) {
	base.Store(&logger)
}

// GetLogger returns a contextual logger for a component
func GetLogger(component string) zerolog.Logger {
	return base.Load().With().Str("component", component).Logger()
}
