// Package logger is a structured JSON log sink.
//
// Calls take a message and a field map, e.g.
//
//	logger.Warn("order not found", map[string]any{"order_id": id})
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync/atomic"
)

var current atomic.Pointer[slog.Logger]

func init() {
	current.Store(New(os.Stdout, slog.LevelInfo))
}

// New returns a JSON slog logger writing to w.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})).
		With("service", "coinbridge")
}

// ParseLevel maps debug, info, warn and error to a slog level; anything else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// SetDefault replaces the package logger.
func SetDefault(l *slog.Logger) {
	current.Store(l)
}

// Default returns the package logger.
func Default() *slog.Logger {
	return current.Load()
}

func Info(message string, fields map[string]any) {
	log(slog.LevelInfo, message, fields)
}

func Warn(message string, fields map[string]any) {
	log(slog.LevelWarn, message, fields)
}

func Error(message string, fields map[string]any) {
	log(slog.LevelError, message, fields)
}

// Fatal logs at error level and exits.
func Fatal(message string, fields map[string]any) {
	log(slog.LevelError, message, fields)
	os.Exit(1)
}

func log(level slog.Level, message string, fields map[string]any) {
	l := current.Load()
	if !l.Enabled(context.Background(), level) {
		return
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, fields[k]))
	}
	l.LogAttrs(context.Background(), level, message, attrs...)
}
