// Package logging provides a minimal logging interface and a log/slog
// backed implementation.
//
// The Logger interface defines the leveled methods (Debug, Info, Warn, Error)
// the engine, invoker and runner use for observability. This package includes:
//
//   - Logger interface for dependency injection (engine hooks accept any Logger)
//   - RunLogger, a log/slog backed Logger carrying experiment / round context
//     plus helpers for model calls and round summaries
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	eng := engine.New(func(o *engine.Options) { o.Logger = logger })
//
// Arguments after the message are slog-style key/value pairs.
package logging
