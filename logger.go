package scalebloom

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with scalebloom-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithPath adds the filter file path to the logger.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{
		Logger: l.Logger.With("path", path),
	}
}

// LogOpen logs a create or load.
func (l *Logger) LogOpen(op string, subFilters int, seqnum uint64, err error) {
	if err != nil {
		l.Error(op+" failed",
			"error", err,
		)
	} else {
		l.Debug(op+" completed",
			"sub_filters", subFilters,
			"seqnum", seqnum,
		)
	}
}

// LogAdd logs an add operation.
func (l *Logger) LogAdd(id uint64, err error) {
	if err != nil {
		l.Error("add failed",
			"id", id,
			"error", err,
		)
	} else {
		l.Debug("add completed",
			"id", id,
		)
	}
}

// LogDelete logs a delete operation.
func (l *Logger) LogDelete(id uint64, removed bool, err error) {
	if err != nil {
		l.Error("delete failed",
			"id", id,
			"error", err,
		)
	} else {
		l.Debug("delete completed",
			"id", id,
			"removed", removed,
		)
	}
}

// LogFlush logs a flush operation.
func (l *Logger) LogFlush(seqnum uint64, err error) {
	if err != nil {
		l.Error("flush failed",
			"error", err,
		)
	} else {
		l.Debug("flush completed",
			"disk_seqnum", seqnum,
		)
	}
}

// LogScale logs the creation of a new sub-filter.
func (l *Logger) LogScale(subFilters int) {
	l.Info("filter scaled",
		"sub_filters", subFilters,
	)
}

// LogSnapshot logs a snapshot or restore operation.
func (l *Logger) LogSnapshot(op string, bytes int64, err error) {
	if err != nil {
		l.Error(op+" failed",
			"error", err,
		)
	} else {
		l.Info(op+" completed",
			"bytes", bytes,
		)
	}
}
