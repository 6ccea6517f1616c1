package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// LogFilePermissions is the default file permissions for log files (rw-------)
const LogFilePermissions = 0o600

// Config selects level, format and destinations for the process logger.
type Config struct {
	Level    string `mapstructure:"level" yaml:"level"`
	Format   string `mapstructure:"format" yaml:"format"` // "text" or "json"
	File     string `mapstructure:"file" yaml:"file"`     // optional, appended in addition to stdout
	Timezone string `mapstructure:"timezone" yaml:"timezone"`
}

// Open builds a logger from cfg. The returned closer releases the log file
// and must be called on shutdown.
func Open(cfg Config, stdout io.Writer) (*SlogLogger, io.Closer, error) {
	if stdout == nil {
		stdout = os.Stdout
	}

	tz := time.UTC
	if cfg.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid log timezone %q: %w", cfg.Timezone, err)
		}
		tz = loc
	}

	var (
		writer = stdout
		closer io.Closer = nopCloser{}
	)
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, LogFilePermissions)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %s: %w", cfg.File, err)
		}
		writer = io.MultiWriter(stdout, file)
		closer = file
	}

	level := LogLevel(cfg.Level)
	if cfg.Format == "json" {
		return NewSlogLogger(writer, level, tz), closer, nil
	}
	return NewTextLogger(writer, level, tz), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
