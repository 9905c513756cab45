package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"taskrecover/pkg/config"
)

func newBufferLogger(t *testing.T, level string) (Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := NewWithWriter(&config.LoggingConfig{Level: level}, &buf)
	require.NoError(t, err)
	return l, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var events []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var ev map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &ev))
		events = append(events, ev)
	}
	return events
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"info level", &config.LoggingConfig{Level: "info"}, false},
		{"debug level", &config.LoggingConfig{Level: "debug"}, false},
		{"invalid level", &config.LoggingConfig{Level: "invalid"}, true},
		{"file output", &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "run.log")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	l, err := New(&config.LoggingConfig{Level: "info", File: path})
	require.NoError(t, err)

	l.WithField("worker_id", 1).Info("Checkpoint saved")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"Checkpoint saved"`)
	assert.Contains(t, string(data), `"worker_id":1`)
}

func TestConsoleWriterColor(t *testing.T) {
	event := []byte(`{"level":"info","message":"hi","worker_id":1}` + "\n")

	t.Run("plain", func(t *testing.T) {
		var buf bytes.Buffer
		w := newConsoleWriter(&buf, true)
		_, err := w.Write(event)
		require.NoError(t, err)

		out := buf.String()
		assert.NotContains(t, out, "\x1b[")
		assert.Contains(t, out, "INFO")
		assert.Contains(t, out, "| hi")
		assert.Contains(t, out, "worker_id:1")
	})

	t.Run("colored", func(t *testing.T) {
		var buf bytes.Buffer
		w := newConsoleWriter(&buf, false)
		_, err := w.Write(event)
		require.NoError(t, err)

		out := buf.String()
		assert.Contains(t, out, "\x1b[32mINFO\x1b[0m")
		assert.Contains(t, out, "\x1b[36mworker_id\x1b[0m:")
	})
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"DEBUG", zerolog.DebugLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"warn", zerolog.WarnLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"invalid", zerolog.InfoLevel, true},
		{"", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(t, "warn")

	l.Debug("debug message")
	l.Info("info message")
	l.Warn("warn message")
	l.Error("error message")

	events := decodeLines(t, buf)
	require.Len(t, events, 2)
	assert.Equal(t, "warn message", events[0]["message"])
	assert.Equal(t, "error message", events[1]["message"])
}

func TestWithFields(t *testing.T) {
	l, buf := newBufferLogger(t, "debug")

	l.WithField("worker_id", 2).
		WithFields(map[string]interface{}{
			"task_count": 4,
			"restored":   true,
			"elapsed":    1500 * time.Millisecond,
		}).
		Info("chained fields")

	events := decodeLines(t, buf)
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, "chained fields", ev["message"])
	assert.Equal(t, float64(2), ev["worker_id"])
	assert.Equal(t, float64(4), ev["task_count"])
	assert.Equal(t, true, ev["restored"])
	assert.Equal(t, "taskrecover", ev["app"])
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	l, buf := newBufferLogger(t, "info")

	_ = l.WithField("worker_id", 7)
	l.Info("parent")

	events := decodeLines(t, buf)
	require.Len(t, events, 1)
	assert.NotContains(t, events[0], "worker_id")
}

func TestWithError(t *testing.T) {
	l, buf := newBufferLogger(t, "info")

	assert.Same(t, l, l.WithError(nil))

	l.WithError(errors.New("disk full")).Error("save failed")

	events := decodeLines(t, buf)
	require.Len(t, events, 1)
	assert.Equal(t, "disk full", events[0]["error"])
}

func TestStructuredLogging(t *testing.T) {
	l, buf := newBufferLogger(t, "debug")

	l.InfoWithFields("Checkpoint saved", map[string]interface{}{
		"worker_id":  0,
		"task_count": 3,
		"path":       "checkpoints/checkpoint_0.json",
	})
	l.DebugWithFields("debug event", map[string]interface{}{"n": int64(5)})

	events := decodeLines(t, buf)
	require.Len(t, events, 2)
	assert.Equal(t, "checkpoints/checkpoint_0.json", events[0]["path"])
	assert.Equal(t, float64(5), events[1]["n"])
}

func TestGlobalLogger(t *testing.T) {
	require.NoError(t, Initialize(&config.LoggingConfig{Level: "disabled"}))

	assert.NotNil(t, GetLogger())

	// Convenience functions must not panic
	Info("info message")
	Error("error message")
	WithField("key", "value").Info("with field")
	WithFields(map[string]interface{}{"k1": "v1"}).Info("with fields")
	WithError(errors.New("boom")).Error("with error")
}

func TestTestLogger(t *testing.T) {
	tl := NewTestLogger()
	child := tl.WithField("worker_id", 1)

	child.Info("Checkpoint saved")
	child.WithError(errors.New("boom")).ErrorWithFields("Save failed", map[string]interface{}{"attempt": 2})
	tl.Warn("plain")

	messages := tl.GetMessages()
	require.Len(t, messages, 3)
	assert.Equal(t, 1, messages[0].Fields["worker_id"])
	assert.Equal(t, 2, messages[1].Fields["attempt"])
	assert.EqualError(t, messages[1].Error, "boom")
	assert.Equal(t, 1, tl.CountMessages("Checkpoint saved"))
	assert.True(t, tl.HasError())

	tl.Clear()
	assert.Empty(t, tl.GetMessages())
}
