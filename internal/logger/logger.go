// Package logger provides a structured logging wrapper around Go's slog package.
// Output goes to stdout, stderr, a file path or nowhere ("discard").
//
// Example usage:
//
//	log, err := logger.New(logger.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	})
//	if err != nil {
//	    return err
//	}
//
//	ctx = logger.ContextWith(ctx, logger.Field{Key: "reminder_id", Value: id})
//	log.Component("dispatch").InfoCtx(ctx, "reminder delivered")
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config представляет конфигурацию logger
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, text
	Output string // stdout, stderr, discard или путь к файлу
}

// Field представляет поле для structured logging
type Field struct {
	Key   string
	Value any
}

// Logger wraps slog.Logger. Loggers derived with With or Component share
// the level of their root, so SetLevel on any of them affects all.
type Logger struct {
	slog  *slog.Logger
	level *slog.LevelVar
}

// New создает новый logger с заданной конфигурацией
func New(cfg Config) (*Logger, error) {
	level := new(slog.LevelVar)
	if err := setLevel(level, cfg.Level); err != nil {
		return nil, err
	}

	w, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}

	h, err := newHandler(w, cfg.Format, level)
	if err != nil {
		return nil, err
	}
	return &Logger{slog: slog.New(contextHandler{h}), level: level}, nil
}

func openOutput(output string) (io.Writer, error) {
	switch strings.ToLower(output) {
	case "stdout", "":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	case "discard":
		return io.Discard, nil
	}

	path := output
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, rest)
	}
	path = filepath.Clean(path)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return f, nil
}

func newHandler(w io.Writer, format string, level slog.Leveler) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(format) {
	case "json":
		return slog.NewJSONHandler(w, opts), nil
	case "text":
		return slog.NewTextHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("invalid log format: %s (expected: json, text)", format)
	}
}

func setLevel(v *slog.LevelVar, level string) error {
	switch strings.ToLower(level) {
	case "debug":
		v.Set(slog.LevelDebug)
	case "info":
		v.Set(slog.LevelInfo)
	case "warn":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		return fmt.Errorf("invalid log level: %s (expected: debug, info, warn, error)", level)
	}
	return nil
}

// SetLevel changes the minimum level at runtime.
func (l *Logger) SetLevel(level string) error {
	if l.level == nil {
		return fmt.Errorf("logger has a fixed level")
	}
	return setLevel(l.level, level)
}

// Level returns the current minimum level.
func (l *Logger) Level() slog.Level {
	if l.level == nil {
		return slog.LevelInfo
	}
	return l.level.Level()
}

// Debug логирует сообщение на уровне debug
func (l *Logger) Debug(msg string, fields ...Field) {
	l.slog.Debug(msg, attrs(fields)...)
}

// Info логирует сообщение на уровне info
func (l *Logger) Info(msg string, fields ...Field) {
	l.slog.Info(msg, attrs(fields)...)
}

// Warn логирует сообщение на уровне warn
func (l *Logger) Warn(msg string, fields ...Field) {
	l.slog.Warn(msg, attrs(fields)...)
}

// Error логирует сообщение на уровне error; nil err is omitted.
func (l *Logger) Error(msg string, err error, fields ...Field) {
	l.slog.Error(msg, attrs(withError(err, fields))...)
}

// DebugCtx логирует с полями из контекста
func (l *Logger) DebugCtx(ctx context.Context, msg string, fields ...Field) {
	l.slog.DebugContext(ctx, msg, attrs(fields)...)
}

// InfoCtx логирует с полями из контекста
func (l *Logger) InfoCtx(ctx context.Context, msg string, fields ...Field) {
	l.slog.InfoContext(ctx, msg, attrs(fields)...)
}

// WarnCtx логирует с полями из контекста
func (l *Logger) WarnCtx(ctx context.Context, msg string, fields ...Field) {
	l.slog.WarnContext(ctx, msg, attrs(fields)...)
}

// ErrorCtx логирует с полями из контекста; nil err is omitted.
func (l *Logger) ErrorCtx(ctx context.Context, msg string, err error, fields ...Field) {
	l.slog.ErrorContext(ctx, msg, attrs(withError(err, fields))...)
}

func withError(err error, fields []Field) []Field {
	if err == nil {
		return fields
	}
	return append([]Field{{Key: "error", Value: err.Error()}}, fields...)
}

func attrs(fields []Field) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, slog.Any(f.Key, f.Value))
	}
	return out
}

// With возвращает новый logger с добавленными полями
func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{slog: l.slog.With(attrs(fields)...), level: l.level}
}

// Component возвращает logger с полем component
func (l *Logger) Component(name string) *Logger {
	return l.With(Field{Key: "component", Value: name})
}

// Nop возвращает logger, который ничего не пишет
func Nop() *Logger {
	return &Logger{slog: slog.New(slog.DiscardHandler)}
}

// SetDefault устанавливает стандартный logger
func SetDefault(l *Logger) {
	slog.SetDefault(l.slog)
}

type ctxKey struct{}

// ContextWith returns a context whose *Ctx log records carry fields,
// in addition to fields attached by outer calls.
func ContextWith(ctx context.Context, fields ...Field) context.Context {
	prev, _ := ctx.Value(ctxKey{}).([]slog.Attr)
	next := make([]slog.Attr, 0, len(prev)+len(fields))
	next = append(next, prev...)
	for _, f := range fields {
		next = append(next, slog.Any(f.Key, f.Value))
	}
	return context.WithValue(ctx, ctxKey{}, next)
}

// contextHandler adds the fields stored by ContextWith to every record.
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if extra, ok := ctx.Value(ctxKey{}).([]slog.Attr); ok {
			r.AddAttrs(extra...)
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(as []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(as)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name)}
}
