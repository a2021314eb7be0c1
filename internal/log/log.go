// Package log provides functionality for logging commands, errors and diagnostics
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// Fields carries structured key/value pairs attached to a log record
type Fields map[string]interface{}

// Config holds the log folder and file names
type Config struct {
	Folder     string `yaml:"folder"`
	CommandLog string `yaml:"command_log"`
	ErrorLog   string `yaml:"error_log"`
	InfoLog    string `yaml:"info_log"`
	Level      string `yaml:"level"`
}

// Logger writes commands, errors and diagnostic messages to separate slog JSON streams
type Logger struct {
	commandLogger *slog.Logger
	errorLogger   *slog.Logger
	infoLogger    *slog.Logger
	files         []*os.File
	level         LogLevel
}

// NewLogger creates a new Logger instance writing into the configured log folder
func NewLogger(cfg Config, level LogLevel) (*Logger, error) {
	if err := os.MkdirAll(cfg.Folder, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	var files []*os.File
	open := func(name string) (*os.File, error) {
		f, err := os.OpenFile(filepath.Join(cfg.Folder, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			for _, opened := range files {
				opened.Close()
			}
			return nil, err
		}
		files = append(files, f)
		return f, nil
	}

	commandFile, err := open(cfg.CommandLog)
	if err != nil {
		return nil, fmt.Errorf("failed to open command log file: %w", err)
	}
	errorFile, err := open(cfg.ErrorLog)
	if err != nil {
		return nil, fmt.Errorf("failed to open error log file: %w", err)
	}
	infoFile, err := open(cfg.InfoLog)
	if err != nil {
		return nil, fmt.Errorf("failed to open info log file: %w", err)
	}

	return &Logger{
		commandLogger: newJSONLogger(commandFile, LevelCommand),
		errorLogger:   newJSONLogger(errorFile, LevelError),
		infoLogger:    newJSONLogger(infoFile, LevelDebug),
		files:         files,
		level:         level,
	}, nil
}

// NewWriterLogger creates a Logger sending every stream to a single writer
func NewWriterLogger(w io.Writer, level LogLevel) *Logger {
	l := newJSONLogger(w, LevelDebug)
	return &Logger{
		commandLogger: l,
		errorLogger:   l,
		infoLogger:    l,
		level:         level,
	}
}

// NewNopLogger returns a Logger that discards everything
func NewNopLogger() *Logger {
	return NewWriterLogger(io.Discard, LevelError)
}

func newJSONLogger(w io.Writer, level LogLevel) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level.toSlogLevel()}))
}

// Command records an executed user command
func (l *Logger) Command(ctx context.Context, msg string, fields Fields) {
	l.commandLogger.LogAttrs(ctx, LevelCommand.toSlogLevel(), msg, attrs(LevelCommand, fields)...)
}

// Error records a failure
func (l *Logger) Error(ctx context.Context, msg string, fields Fields) {
	l.errorLogger.LogAttrs(ctx, slog.LevelError, msg, attrs(LevelError, fields)...)
}

// Warn records a recoverable problem
func (l *Logger) Warn(ctx context.Context, msg string, fields Fields) {
	l.info(ctx, LevelWarn, msg, fields)
}

// Info records normal operation
func (l *Logger) Info(ctx context.Context, msg string, fields Fields) {
	l.info(ctx, LevelInfo, msg, fields)
}

// Debug records detailed diagnostics
func (l *Logger) Debug(ctx context.Context, msg string, fields Fields) {
	l.info(ctx, LevelDebug, msg, fields)
}

func (l *Logger) info(ctx context.Context, level LogLevel, msg string, fields Fields) {
	if !l.Enabled(level) {
		return
	}
	l.infoLogger.LogAttrs(ctx, level.toSlogLevel(), msg, attrs(level, fields)...)
}

// Enabled reports whether messages at the given level are written to the info stream
func (l *Logger) Enabled(level LogLevel) bool {
	return level <= l.level
}

// SetLevel changes the most verbose level written to the info stream
func (l *Logger) SetLevel(level LogLevel) {
	l.level = level
}

// Close closes all log files
func (l *Logger) Close() error {
	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close log file %s: %w", f.Name(), err)
		}
	}
	l.files = nil
	return firstErr
}

func attrs(level LogLevel, fields Fields) []slog.Attr {
	out := make([]slog.Attr, 0, len(fields)+1)
	out = append(out, slog.String("type", level.String()))
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := fields[k]
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		out = append(out, slog.Any(k, v))
	}
	return out
}
