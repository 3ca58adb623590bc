package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew_DefaultLevel(t *testing.T) {
	log := New(Options{})
	if log.GetLevel() != zerolog.InfoLevel {
		t.Errorf("Expected info level, got %s", log.GetLevel())
	}
}

func TestNew_ParsesLevel(t *testing.T) {
	log := New(Options{Level: "debug"})
	if log.GetLevel() != zerolog.DebugLevel {
		t.Errorf("Expected debug level, got %s", log.GetLevel())
	}
}

func TestNew_InvalidLevelFallsBack(t *testing.T) {
	log := New(Options{Level: "shouting"})
	if log.GetLevel() != zerolog.InfoLevel {
		t.Errorf("Expected info level fallback, got %s", log.GetLevel())
	}
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Msg("test message")

	output := buf.String()
	if output == "" {
		t.Error("Expected log output, got empty string")
	}
	if !strings.Contains(output, "test message") {
		t.Errorf("Expected output to contain 'test message', got: %s", output)
	}
}

func TestNew_LevelFilters(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{Level: "warn", Writer: buf})

	log.Info().Msg("suppressed")
	log.Warn().Msg("kept")

	output := buf.String()
	if strings.Contains(output, "suppressed") {
		t.Errorf("Expected info message to be filtered, got: %s", output)
	}
	if !strings.Contains(output, "kept") {
		t.Errorf("Expected warn message in output, got: %s", output)
	}
}

func TestWithContext(t *testing.T) {
	log := New(Options{})
	ctx := context.Background()

	ctxWithLogger := WithContext(ctx, log)

	if ctxWithLogger.Value(LoggerKey) == nil {
		t.Error("Expected logger in context, got nil")
	}
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	testLog := NewWithWriter(buf)
	ctx := WithContext(context.Background(), testLog)

	retrievedLog := FromContext(ctx)
	retrievedLog.Info().Msg("test")

	if buf.Len() == 0 {
		t.Error("Expected log output from retrieved logger")
	}
}

func TestFromContext_DefaultLogger(t *testing.T) {
	ctx := context.Background()

	// Should return a default logger when none is in context
	log := FromContext(ctx)

	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected default logger to be enabled")
	}
}

func TestWithUser(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	userLog := WithUser(log, "user-123")
	userLog.Info().Msg("hello")

	output := buf.String()
	if !strings.Contains(output, "user_id") || !strings.Contains(output, "user-123") {
		t.Errorf("Expected output to contain user_id field, got: %s", output)
	}
}
