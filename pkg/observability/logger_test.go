package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func decodeLogLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not valid JSON: %v", err)
	}
	return entry
}

func TestLoggerLevels(t *testing.T) {
	t.Run("emits at or above configured level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(WarnLevel, &buf)

		logger.Info("filtered out")
		if buf.Len() != 0 {
			t.Fatalf("info line should be suppressed at warn level, got %q", buf.String())
		}

		logger.Warn("grant sweep lagging")
		entry := decodeLogLine(t, &buf)
		if entry["msg"] != "grant sweep lagging" {
			t.Errorf("msg = %v, want grant sweep lagging", entry["msg"])
		}
		if entry["level"] != "WARN" {
			t.Errorf("level = %v, want WARN", entry["level"])
		}
	})

	t.Run("debug level emits everything", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(DebugLevel, &buf)

		logger.Debug("resolver cache miss")
		entry := decodeLogLine(t, &buf)
		if entry["level"] != "DEBUG" {
			t.Errorf("level = %v, want DEBUG", entry["level"])
		}
	})

	t.Run("formatted variants", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(InfoLevel, &buf)

		logger.Infof("evaluated %d criteria", 4)
		entry := decodeLogLine(t, &buf)
		if entry["msg"] != "evaluated 4 criteria" {
			t.Errorf("msg = %v, want evaluated 4 criteria", entry["msg"])
		}
	})
}

func TestLoggerFields(t *testing.T) {
	t.Run("WithField", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(InfoLevel, &buf)

		logger.WithField("corpus_id", 42).Info("visibility changed")
		entry := decodeLogLine(t, &buf)
		if entry["corpus_id"] != float64(42) {
			t.Errorf("corpus_id = %v, want 42", entry["corpus_id"])
		}
	})

	t.Run("WithFields", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(InfoLevel, &buf)

		logger.WithFields(map[string]interface{}{
			"profile_id": 7,
			"action":     "lock",
		}).Info("moderation applied")
		entry := decodeLogLine(t, &buf)
		if entry["profile_id"] != float64(7) {
			t.Errorf("profile_id = %v, want 7", entry["profile_id"])
		}
		if entry["action"] != "lock" {
			t.Errorf("action = %v, want lock", entry["action"])
		}
	})

	t.Run("WithError", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(InfoLevel, &buf)

		logger.WithError(errors.New("connection refused")).Error("vote recount failed")
		entry := decodeLogLine(t, &buf)
		if entry["error"] != "connection refused" {
			t.Errorf("error = %v, want connection refused", entry["error"])
		}
	})

	t.Run("WithError nil is a no-op", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(InfoLevel, &buf)

		logger.WithError(nil).Info("steady state")
		entry := decodeLogLine(t, &buf)
		if _, ok := entry["error"]; ok {
			t.Error("nil error should not add an error field")
		}
	})

	t.Run("fields do not leak back to the parent", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(InfoLevel, &buf)

		_ = logger.WithField("scoped", true)
		logger.Info("bare line")
		entry := decodeLogLine(t, &buf)
		if _, ok := entry["scoped"]; ok {
			t.Error("derived field leaked into the parent logger")
		}
	})
}

func TestLogLevelString(t *testing.T) {
	levels := map[LogLevel]string{
		DebugLevel: "DEBUG",
		InfoLevel:  "INFO",
		WarnLevel:  "WARN",
		ErrorLevel: "ERROR",
	}
	for level, want := range levels {
		if got := level.String(); got != want {
			t.Errorf("LogLevel(%d).String() = %q, want %q", level, got, want)
		}
	}
}
