package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"
)

// levelTrace sits below slog's Debug (-4).
const levelTrace = slog.Level(-8)

// SlogLogger implements Logger on top of a slog.Handler.
type SlogLogger struct {
	handler slog.Handler
	level   slog.Level
	module  string
	fields  []Field
}

// NewSlogLogger creates a logger writing JSON lines to writer (stdout when nil).
func NewSlogLogger(writer io.Writer, level LogLevel, timezone *time.Location) *SlogLogger {
	if writer == nil {
		writer = os.Stdout
	}
	lvl := parseSlogLevel(level)
	return &SlogLogger{
		handler: slog.NewJSONHandler(writer, handlerOptions(lvl, timezone)),
		level:   lvl,
	}
}

// NewTextLogger creates a logger with human-readable key=value output.
func NewTextLogger(writer io.Writer, level LogLevel, timezone *time.Location) *SlogLogger {
	if writer == nil {
		writer = os.Stdout
	}
	lvl := parseSlogLevel(level)
	return &SlogLogger{
		handler: slog.NewTextHandler(writer, handlerOptions(lvl, timezone)),
		level:   lvl,
	}
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *SlogLogger {
	return &SlogLogger{
		handler: slog.DiscardHandler,
		level:   slog.LevelError + 1,
	}
}

func handlerOptions(level slog.Level, timezone *time.Location) *slog.HandlerOptions {
	if timezone == nil {
		timezone = time.UTC
	}
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.TimeValue(t.In(timezone))
				}
			case slog.LevelKey:
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl <= levelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
}

func (l *SlogLogger) derive(module string, fields []Field) *SlogLogger {
	return &SlogLogger{
		handler: l.handler,
		level:   l.level,
		module:  module,
		fields:  fields,
	}
}

// Module returns a logger scoped to a specific module
func (l *SlogLogger) Module(name string) Logger {
	moduleName := name
	if l.module != "" {
		moduleName = l.module + "." + name
	}
	return l.derive(moduleName, l.fields)
}

// Trace logs a trace message (most verbose level)
func (l *SlogLogger) Trace(msg string, fields ...Field) {
	l.log(levelTrace, msg, fields...)
}

// Debug logs a debug message
func (l *SlogLogger) Debug(msg string, fields ...Field) {
	l.log(slog.LevelDebug, msg, fields...)
}

// Info logs an info message
func (l *SlogLogger) Info(msg string, fields ...Field) {
	l.log(slog.LevelInfo, msg, fields...)
}

// Warn logs a warning message
func (l *SlogLogger) Warn(msg string, fields ...Field) {
	l.log(slog.LevelWarn, msg, fields...)
}

// Error logs an error message
func (l *SlogLogger) Error(msg string, fields ...Field) {
	l.log(slog.LevelError, msg, fields...)
}

// Log logs a message with explicit level
func (l *SlogLogger) Log(level LogLevel, msg string, fields ...Field) {
	l.log(parseSlogLevel(level), msg, fields...)
}

// With returns a new logger with accumulated fields
func (l *SlogLogger) With(fields ...Field) Logger {
	return l.derive(l.module, slices.Concat(l.fields, fields))
}

// WithContext returns a logger carrying the context's trace ID, if any.
func (l *SlogLogger) WithContext(ctx context.Context) Logger {
	if traceID := TraceID(ctx); traceID != "" {
		return l.With(String("trace_id", traceID))
	}
	return l
}

// Flush is a no-op; handlers write synchronously.
func (l *SlogLogger) Flush() error {
	return nil
}

func (l *SlogLogger) log(level slog.Level, msg string, fields ...Field) {
	if l == nil || level < l.level {
		return
	}

	attrs := make([]slog.Attr, 0, len(l.fields)+len(fields)+1)
	if l.module != "" {
		attrs = append(attrs, slog.String("module", l.module))
	}
	for _, f := range l.fields {
		attrs = append(attrs, fieldToAttr(f))
	}
	for _, f := range fields {
		attrs = append(attrs, fieldToAttr(f))
	}

	slog.New(l.handler).LogAttrs(context.Background(), level, msg, attrs...)
}

func fieldToAttr(f Field) slog.Attr {
	switch v := f.Value.(type) {
	case string:
		return slog.String(f.Key, v)
	case int:
		return slog.Int(f.Key, v)
	case int64:
		return slog.Int64(f.Key, v)
	case uint64:
		return slog.Uint64(f.Key, v)
	case float64:
		return slog.Float64(f.Key, v)
	case bool:
		return slog.Bool(f.Key, v)
	case time.Time:
		return slog.Time(f.Key, v)
	default:
		return slog.Any(f.Key, v)
	}
}

func parseSlogLevel(level LogLevel) slog.Level {
	switch level {
	case LogLevelTrace:
		return levelTrace
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
