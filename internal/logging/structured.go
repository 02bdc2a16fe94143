// Package logging provides structured JSON logging for seccompare components.
// It wraps log/slog so every event carries the component that emitted it,
// plus the session and operation it belongs to when known.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents log severity
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

var (
	outMu    sync.RWMutex
	levelVar = new(slog.LevelVar)
	root     = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))
)

// SetOutput redirects every logger to w. Intended for tests and for the
// TUI, which must keep stderr clean while it owns the terminal.
func SetOutput(w io.Writer) {
	outMu.Lock()
	defer outMu.Unlock()
	root = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: levelVar}))
}

// SetLevel sets the minimum level for all loggers. Unknown values mean info.
func SetLevel(level string) {
	levelVar.Set(parseLevel(level))
}

func parseLevel(level string) slog.Level {
	switch Level(strings.ToLower(level)) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func base() *slog.Logger {
	outMu.RLock()
	defer outMu.RUnlock()
	return root
}

// Logger provides structured logging
type Logger struct {
	component string
	session   string
	operation Operation
}

// New creates a new logger for a component
func New(component string) *Logger {
	return &Logger{component: component}
}

// WithSession sets the session context
func (l *Logger) WithSession(sessionID string) *Logger {
	cp := *l
	cp.session = sessionID
	return &cp
}

// WithContext picks up the operation carried by ctx, if any.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	op, ok := OperationFrom(ctx)
	if !ok {
		return l
	}
	cp := *l
	cp.operation = op
	return &cp
}

// log emits a structured log event
func (l *Logger) log(level slog.Level, event string, extra map[string]any, err error) {
	attrs := make([]slog.Attr, 0, 5+len(extra))
	attrs = append(attrs, slog.String("component", l.component))
	if l.session != "" {
		attrs = append(attrs, slog.String("session_id", l.session))
	}
	if l.operation.ID != "" {
		attrs = append(attrs, slog.String("op_id", l.operation.ID), slog.String("op", l.operation.Name))
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	for k, v := range extra {
		attrs = append(attrs, slog.Any(k, v))
	}
	base().LogAttrs(context.Background(), level, event, attrs...)
}

// Debug logs a debug event
func (l *Logger) Debug(event string, extra map[string]any) {
	l.log(slog.LevelDebug, event, extra, nil)
}

// Info logs an info event
func (l *Logger) Info(event string, extra map[string]any) {
	l.log(slog.LevelInfo, event, extra, nil)
}

// Warn logs a warning event
func (l *Logger) Warn(event string, extra map[string]any, err error) {
	l.log(slog.LevelWarn, event, extra, err)
}

// Error logs an error event
func (l *Logger) Error(event string, extra map[string]any, err error) {
	l.log(slog.LevelError, event, extra, err)
}

// TimedEvent logs an event with its duration since start
func (l *Logger) TimedEvent(event string, start time.Time, extra map[string]any) {
	merged := make(map[string]any, len(extra)+1)
	for k, v := range extra {
		merged[k] = v
	}
	merged["duration_ms"] = time.Since(start).Milliseconds()
	l.log(slog.LevelDebug, event, merged, nil)
}
