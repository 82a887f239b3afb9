// Package logging builds zerolog loggers for docflow programs.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config selects the level, encoding and destination of a logger.
type Config struct {
	Level    string `yaml:"level"`    // trace, debug, info, warn, error; default info
	Format   string `yaml:"format"`   // json or console; default json
	Output   string `yaml:"output"`   // stdout, stderr or file; default stderr
	FilePath string `yaml:"filePath"` // used when Output is file
	Caller   bool   `yaml:"caller"`

	// Writer overrides Output when set.
	Writer io.Writer `yaml:"-"`
}

// NewConfigFromEnv reads LOG_LEVEL, LOG_FORMAT, LOG_OUTPUT and LOG_FILE.
func NewConfigFromEnv() Config {
	return Config{
		Level:    getEnvOrDefault("LOG_LEVEL", "info"),
		Format:   getEnvOrDefault("LOG_FORMAT", "json"),
		Output:   getEnvOrDefault("LOG_OUTPUT", "stderr"),
		FilePath: getEnvOrDefault("LOG_FILE", "logs/docflow.log"),
	}
}

// New builds a logger from cfg. The returned close function releases the log
// file, if one was opened, and is always safe to call.
func New(cfg Config) (zerolog.Logger, func() error, error) {
	noop := func() error { return nil }

	levelName := strings.ToLower(cfg.Level)
	if levelName == "" {
		levelName = "info"
	}
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		return zerolog.Nop(), noop, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	output := cfg.Writer
	closer := noop
	if output == nil {
		switch strings.ToLower(cfg.Output) {
		case "", "stderr":
			output = os.Stderr
		case "stdout":
			output = os.Stdout
		case "file":
			if cfg.FilePath == "" {
				return zerolog.Nop(), noop, fmt.Errorf("log output is file but no file path is set")
			}
			if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
				return zerolog.Nop(), noop, fmt.Errorf("create log directory: %w", err)
			}
			file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return zerolog.Nop(), noop, fmt.Errorf("open log file %q: %w", cfg.FilePath, err)
			}
			output = file
			closer = file.Close
		default:
			return zerolog.Nop(), noop, fmt.Errorf("unknown log output %q", cfg.Output)
		}
	}

	switch strings.ToLower(cfg.Format) {
	case "", "json":
	case "console":
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	default:
		_ = closer()
		return zerolog.Nop(), noop, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	ctx := zerolog.New(output).Level(level).With().Timestamp()
	if cfg.Caller {
		ctx = ctx.Caller()
	}
	return ctx.Logger(), closer, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
