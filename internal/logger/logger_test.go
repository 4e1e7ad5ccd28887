package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newBufferLogger builds a logger the way New does, writing into buf.
func newBufferLogger(t *testing.T, buf *bytes.Buffer, format, level string) *Logger {
	t.Helper()
	lv := new(slog.LevelVar)
	require.NoError(t, setLevel(lv, level))
	h, err := newHandler(buf, format, lv)
	require.NoError(t, err)
	return &Logger{slog: slog.New(contextHandler{h}), level: lv}
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{name: "json stdout", config: Config{Level: "debug", Format: "json", Output: "stdout"}},
		{name: "text stderr", config: Config{Level: "info", Format: "text", Output: "stderr"}},
		{name: "discard", config: Config{Level: "error", Format: "text", Output: "discard"}},
		{name: "file", config: Config{Level: "warn", Format: "json", Output: filepath.Join(t.TempDir(), "logs", "bot.log")}},
		{name: "invalid level", config: Config{Level: "verbose", Format: "json", Output: "stdout"}, wantErr: "invalid log level"},
		{name: "invalid format", config: Config{Level: "debug", Format: "xml", Output: "stdout"}, wantErr: "invalid log format"},
		{name: "unwritable path", config: Config{Level: "debug", Format: "json", Output: "/proc/rereminder/bot.log"}, wantErr: "log"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.config)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, log)
		})
	}
}

func TestLogger_Fields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := newBufferLogger(t, buf, "json", "debug")

	log.Component("dispatch").Info("reminder delivered",
		Field{Key: "reminder_id", Value: "r1"},
		Field{Key: "message_id", Value: 42})

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "reminder delivered", lines[0]["msg"])
	assert.Equal(t, "dispatch", lines[0]["component"])
	assert.Equal(t, "r1", lines[0]["reminder_id"])
	assert.Equal(t, 42.0, lines[0]["message_id"])
}

func TestLogger_Error(t *testing.T) {
	buf := &bytes.Buffer{}
	log := newBufferLogger(t, buf, "json", "debug")

	log.Error("send failed", errors.New("chat not found"), Field{Key: "chat_id", Value: 70})
	log.Error("no error value", nil)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "chat not found", lines[0]["error"])
	assert.Equal(t, "ERROR", lines[0]["level"])
	assert.NotContains(t, lines[1], "error")
}

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{"debug", []string{"debug", "info", "warn", "error"}},
		{"info", []string{"info", "warn", "error"}},
		{"warn", []string{"warn", "error"}},
		{"error", []string{"error"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf := &bytes.Buffer{}
			log := newBufferLogger(t, buf, "text", tt.level)

			log.Debug("debug")
			log.Info("info")
			log.Warn("warn")
			log.Error("error", nil)

			var got []string
			for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
				_, msg, _ := strings.Cut(line, "msg=")
				got = append(got, strings.Fields(msg)[0])
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLogger_SetLevelSharedByDerived(t *testing.T) {
	buf := &bytes.Buffer{}
	root := newBufferLogger(t, buf, "json", "info")
	child := root.Component("cron")

	child.Debug("hidden")
	assert.Zero(t, buf.Len())

	require.NoError(t, root.SetLevel("debug"))
	child.Debug("shown")
	assert.Contains(t, buf.String(), "shown")
	assert.Equal(t, slog.LevelDebug, child.Level())

	assert.Error(t, child.SetLevel("loud"))
	assert.Error(t, Nop().SetLevel("debug"))
}

func TestContextWith(t *testing.T) {
	buf := &bytes.Buffer{}
	log := newBufferLogger(t, buf, "json", "debug")

	ctx := ContextWith(context.Background(), Field{Key: "update_id", Value: 7})
	inner := ContextWith(ctx, Field{Key: "reminder_id", Value: "r1"})

	log.InfoCtx(inner, "callback handled", Field{Key: "action", Value: "done"})
	log.WarnCtx(ctx, "outer only")
	log.Info("no context")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 3)
	assert.Equal(t, 7.0, lines[0]["update_id"])
	assert.Equal(t, "r1", lines[0]["reminder_id"])
	assert.Equal(t, "done", lines[0]["action"])
	assert.Equal(t, 7.0, lines[1]["update_id"])
	assert.NotContains(t, lines[1], "reminder_id")
	assert.NotContains(t, lines[2], "update_id")
}

func TestContextWith_SurvivesWith(t *testing.T) {
	buf := &bytes.Buffer{}
	log := newBufferLogger(t, buf, "json", "debug").With(Field{Key: "component", Value: "telegram"})

	log.ErrorCtx(ContextWith(context.Background(), Field{Key: "chat_id", Value: 70}), "edit failed", io.ErrUnexpectedEOF)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "telegram", lines[0]["component"])
	assert.Equal(t, 70.0, lines[0]["chat_id"])
	assert.Equal(t, io.ErrUnexpectedEOF.Error(), lines[0]["error"])
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Info("nothing")
	log.Error("nothing", errors.New("x"))
	assert.Equal(t, slog.LevelInfo, log.Level())
}

func BenchmarkLogger_Info(b *testing.B) {
	lv := new(slog.LevelVar)
	log := &Logger{slog: slog.New(contextHandler{slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: lv})}), level: lv}
	ctx := ContextWith(context.Background(), Field{Key: "reminder_id", Value: "r1"})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		log.InfoCtx(ctx, "benchmark", Field{Key: "iteration", Value: i})
	}
}
