package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// LogLevel is the severity threshold of a RunLogger.
type LogLevel = slog.Level

// Supported levels.
const (
	LogLevelDebug = slog.LevelDebug
	LogLevelInfo  = slog.LevelInfo
	LogLevelWarn  = slog.LevelWarn
	LogLevelError = slog.LevelError
)

// ParseLevel parses a level name case-insensitively. The empty string means
// info and "warning" is accepted as an alias of warn.
func ParseLevel(s string) (LogLevel, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return LogLevelInfo, nil
	case strings.EqualFold(s, "warning"):
		return LogLevelWarn, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return LogLevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return lvl, nil
}

// Logger defines the minimal logging interface.
// This allows users to provide their own logger implementation.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// RunLogger is a log/slog backed Logger that carries experiment scoped
// attributes and offers helpers for the entries a deliberation run emits.
// With* methods return a copy; setting a key twice keeps the latest value.
type RunLogger struct {
	handler slog.Handler
	level   LogLevel
	scope   []slog.Attr
}

var _ Logger = (*RunLogger)(nil)

// LoggerConfig configures construction of a RunLogger.
type LoggerConfig struct {
	Level       LogLevel
	Format      string // json or text
	Output      io.Writer
	AddSource   bool
	CustomAttrs map[string]any
}

// DefaultLoggerConfig returns a JSON info level configuration writing to
// stderr, keeping stdout free for command output.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{Level: LogLevelInfo, Format: "json", Output: os.Stderr}
}

// NewLogger builds a RunLogger from a config (or defaults if nil).
func NewLogger(cfg *LoggerConfig) *RunLogger {
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	hopts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}
	var h slog.Handler = slog.NewJSONHandler(out, hopts)
	if cfg.Format == "text" {
		h = slog.NewTextHandler(out, hopts)
	}

	l := &RunLogger{handler: h, level: cfg.Level}
	for k, v := range cfg.CustomAttrs {
		l.scope = append(l.scope, slog.Any(k, v))
	}
	return l
}

// NewDiscardLogger returns a RunLogger that drops every entry. Library
// components default to it so that only callers opt into log output.
func NewDiscardLogger() *RunLogger {
	return &RunLogger{handler: slog.DiscardHandler, level: LogLevelError}
}

// NewSlogLogger creates a RunLogger on stderr with the given level, format
// and source option.
func NewSlogLogger(level LogLevel, format string, addSource bool) *RunLogger {
	cfg := DefaultLoggerConfig()
	cfg.Level = level
	if format != "" {
		cfg.Format = format
	}
	cfg.AddSource = addSource
	return NewLogger(cfg)
}

// WithContext attaches a key/value attribute to every entry.
func (l *RunLogger) WithContext(key string, value any) *RunLogger {
	scope := make([]slog.Attr, 0, len(l.scope)+1)
	for _, a := range l.scope {
		if a.Key != key {
			scope = append(scope, a)
		}
	}
	return &RunLogger{handler: l.handler, level: l.level, scope: append(scope, slog.Any(key, value))}
}

// WithComponent sets the logical component (engine, invoker, runner, ...).
func (l *RunLogger) WithComponent(c string) *RunLogger { return l.WithContext("component", c) }

// WithExperiment attaches the experiment id.
func (l *RunLogger) WithExperiment(id string) *RunLogger { return l.WithContext("experiment_id", id) }

// WithRound attaches the current round number.
func (l *RunLogger) WithRound(round int) *RunLogger { return l.WithContext("round", round) }

func (l *RunLogger) emit(level slog.Level, msg string, args []any) {
	ctx := context.Background()
	if level < l.level || !l.handler.Enabled(ctx, level) {
		return
	}
	r := slog.NewRecord(time.Now(), level, msg, 0)
	r.AddAttrs(l.scope...)
	r.Add(args...)
	_ = l.handler.Handle(ctx, r)
}

// Debug logs at debug level.
func (l *RunLogger) Debug(msg string, args ...any) { l.emit(slog.LevelDebug, msg, args) }

// Info logs at info level.
func (l *RunLogger) Info(msg string, args ...any) { l.emit(slog.LevelInfo, msg, args) }

// Warn logs at warn level.
func (l *RunLogger) Warn(msg string, args ...any) { l.emit(slog.LevelWarn, msg, args) }

// Error logs at error level.
func (l *RunLogger) Error(msg string, args ...any) { l.emit(slog.LevelError, msg, args) }

// LogModelCall records the outcome of one agent's model invocation. Failures
// are warnings, successes debug entries.
func (l *RunLogger) LogModelCall(agentID, model, outcome string, attempts int, dur time.Duration, err error) {
	args := []any{"agent_id", agentID, "model", model, "outcome", outcome, "attempts", attempts, "duration", dur}
	if err != nil {
		l.emit(slog.LevelWarn, "Model call failed", append(args, "error", err.Error()))
		return
	}
	l.emit(slog.LevelDebug, "Model call completed", args)
}

// LogRound records the aggregate state at the end of a round.
func (l *RunLogger) LogRound(round int, distribution string, entropy float64, changes int, dur time.Duration) {
	l.emit(slog.LevelInfo, "Round completed",
		[]any{"round", round, "distribution", distribution, "entropy", entropy, "changes", changes, "duration", dur})
}

// NoOpLogger discards everything.
type NoOpLogger struct{}

func (NoOpLogger) Debug(string, ...any) {}
func (NoOpLogger) Info(string, ...any)  {}
func (NoOpLogger) Warn(string, ...any)  {}
func (NoOpLogger) Error(string, ...any) {}
