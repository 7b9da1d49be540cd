// Package logger provides a structured slog-based logger that is passed
// explicitly to every component.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// LoggerInterface is the logging contract consumed by business code.
type LoggerInterface interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
	Debugc(ctx context.Context, caller int, msg string, args ...any)
	Infoc(ctx context.Context, caller int, msg string, args ...any)
	Warnc(ctx context.Context, caller int, msg string, args ...any)
	Errorc(ctx context.Context, caller int, msg string, args ...any)
}

// Level represents a logging level.
type Level slog.Level

// Supported levels.
const (
	LevelDebug = Level(slog.LevelDebug)
	LevelInfo  = Level(slog.LevelInfo)
	LevelWarn  = Level(slog.LevelWarn)
	LevelError = Level(slog.LevelError)
)

// ParseLevel maps a config string to a Level. Unknown values map to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// TraceIDFn extracts a trace id from the context, if any.
type TraceIDFn func(ctx context.Context) string

// Logger writes JSON records through slog.
type Logger struct {
	handler   slog.Handler
	traceIDFn TraceIDFn
}

var _ LoggerInterface = (*Logger)(nil)

// New constructs a Logger writing to w at or above minLevel.
func New(w io.Writer, minLevel Level, serviceName string, traceIDFn TraceIDFn) *Logger {
	f := func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.SourceKey {
			if source, ok := a.Value.Any().(*slog.Source); ok {
				v := fmt.Sprintf("%s:%d", filepath.Base(source.File), source.Line)
				return slog.Attr{Key: "file", Value: slog.StringValue(v)}
			}
		}
		return a
	}

	handler := slog.Handler(slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource:   true,
		Level:       slog.Level(minLevel),
		ReplaceAttr: f,
	}))

	if serviceName != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("service", serviceName)})
	}

	return &Logger{
		handler:   handler,
		traceIDFn: traceIDFn,
	}
}

// With returns a logger that always includes the given key/value pairs.
func (l *Logger) With(args ...any) *Logger {
	r := slog.Record{}
	r.Add(args...)

	attrs := make([]slog.Attr, 0, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})

	return &Logger{
		handler:   l.handler.WithAttrs(attrs),
		traceIDFn: l.traceIDFn,
	}
}

func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.write(ctx, LevelDebug, 3, msg, args...)
}

func (l *Logger) Debugc(ctx context.Context, caller int, msg string, args ...any) {
	l.write(ctx, LevelDebug, caller, msg, args...)
}

func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.write(ctx, LevelInfo, 3, msg, args...)
}

func (l *Logger) Infoc(ctx context.Context, caller int, msg string, args ...any) {
	l.write(ctx, LevelInfo, caller, msg, args...)
}

func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.write(ctx, LevelWarn, 3, msg, args...)
}

func (l *Logger) Warnc(ctx context.Context, caller int, msg string, args ...any) {
	l.write(ctx, LevelWarn, caller, msg, args...)
}

func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	l.write(ctx, LevelError, 3, msg, args...)
}

func (l *Logger) Errorc(ctx context.Context, caller int, msg string, args ...any) {
	l.write(ctx, LevelError, caller, msg, args...)
}

func (l *Logger) write(ctx context.Context, level Level, caller int, msg string, args ...any) {
	slogLevel := slog.Level(level)

	if !l.handler.Enabled(ctx, slogLevel) {
		return
	}

	var pcs [1]uintptr
	runtime.Callers(caller, pcs[:])

	r := slog.NewRecord(time.Now(), slogLevel, msg, pcs[0])

	if l.traceIDFn != nil {
		if id := l.traceIDFn(ctx); id != "" {
			args = append(args, "trace_id", id)
		}
	}
	r.Add(args...)

	l.handler.Handle(ctx, r)
}
