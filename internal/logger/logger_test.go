package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLevelParsing(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"nonsense", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		log := New(tt.level)
		if log.GetLevel() != tt.want {
			t.Errorf("New(%q) level = %v, want %v", tt.level, log.GetLevel(), tt.want)
		}
	}
}

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf)

	log.Info().Str("component", "store").Msg("test message")

	out := buf.String()
	if !strings.Contains(out, "test message") {
		t.Errorf("output missing message: %s", out)
	}
	if !strings.Contains(out, `"component":"store"`) {
		t.Errorf("output missing field: %s", out)
	}
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf)

	ctx := WithContext(context.Background(), log)
	got := FromContext(ctx)

	got.Info().Msg("from context")
	if !strings.Contains(buf.String(), "from context") {
		t.Error("logger retrieved from context should write to the original writer")
	}
}

func TestFromContextFallsBack(t *testing.T) {
	// Must not panic and must return a usable logger.
	log := FromContext(context.Background())
	log.Debug().Msg("fallback")
}
