// Package logging provides structured logging for mycelicmemory.
//
// This package wraps Go's log/slog package. Every log line goes to
// stderr: stdout carries the MCP JSON-RPC stream, and a stray log line
// there would corrupt the wire.
//
// Usage:
//
//	import "github.com/MycelicMemory/mycelicmemory/internal/logging"
//
//	// Initialize once at startup, after configuration is loaded
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	// Get a logger for a subsystem
//	log := logging.GetLogger("storage")
//
//	// Log with context
//	log.Info("opening storage engine", "path", path)
//	log.Error("save failed", "error", err, "memory_id", id)
package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Config holds logging configuration
type Config struct {
	// Level is the minimum log level: debug, info, warn, error
	Level string
	// Format is the output format: console, json
	Format string
}

var (
	defaultLogger *slog.Logger
	loggerMu      sync.RWMutex
)

func init() {
	// Console logger at info level until Init runs
	defaultLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// Init initializes the global logger with the given configuration.
// This should be called once at application startup, before the storage
// engine or MCP server are constructed.
func Init(cfg Config) {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	level := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{
		Level: level,
		// Add source location for debug level
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	defaultLogger = slog.New(handler)
}

// parseLevel converts a string level to slog.Level
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetLogger returns a logger scoped to one subsystem of the memory
// service: "mcp" for the protocol adapter, "storage" for the SQLite
// engine, "usecase" for the remember/recall layer. The subsystem name
// is added as an attribute to all log entries.
func GetLogger(subsystem string) *Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return &Logger{
		slog: defaultLogger.With("subsystem", subsystem),
	}
}

// Logger wraps slog.Logger with convenience methods
type Logger struct {
	slog *slog.Logger
}

// With returns a new Logger with the given attributes added
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...)}
}

// Debug logs at debug level
func (l *Logger) Debug(msg string, args ...any) {
	l.slog.Debug(msg, args...)
}

// Info logs at info level
func (l *Logger) Info(msg string, args ...any) {
	l.slog.Info(msg, args...)
}

// Warn logs at warn level
func (l *Logger) Warn(msg string, args ...any) {
	l.slog.Warn(msg, args...)
}

// Error logs at error level
func (l *Logger) Error(msg string, args ...any) {
	l.slog.Error(msg, args...)
}

// ToolCall logs an incoming tools/call invocation
func (l *Logger) ToolCall(tool string, args ...any) {
	allArgs := append([]any{"tool", tool}, args...)
	l.slog.Info("tool_call", allArgs...)
}

// ToolDone logs a completed tool invocation with its duration
func (l *Logger) ToolDone(tool string, durationMs float64, args ...any) {
	allArgs := append([]any{"tool", tool, "duration_ms", durationMs}, args...)
	l.slog.Info("tool_done", allArgs...)
}

// ToolFailed logs a failed tool invocation
func (l *Logger) ToolFailed(tool string, err error, args ...any) {
	allArgs := append([]any{"tool", tool, "error", err.Error()}, args...)
	l.slog.Error("tool_failed", allArgs...)
}

// Debug logs at debug level using the default logger
func Debug(msg string, args ...any) {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	defaultLogger.Debug(msg, args...)
}
