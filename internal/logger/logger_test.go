package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel},
		{"WARN", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil {
			t.Fatalf("ParseLevel(%q): unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q): expected %v, got %v", tt.in, tt.want, got)
		}
	}

	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNew(t *testing.T) {
	t.Run("development", func(t *testing.T) {
		l, err := New("development", "debug")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !l.Desugar().Core().Enabled(zapcore.DebugLevel) {
			t.Error("expected debug to be enabled")
		}
	})

	t.Run("production_respects_level", func(t *testing.T) {
		l, err := New("production", "warn")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if l.Desugar().Core().Enabled(zapcore.InfoLevel) {
			t.Error("expected info to be disabled at warn level")
		}
	})

	t.Run("invalid_level", func(t *testing.T) {
		if _, err := New("development", "loud"); err == nil {
			t.Error("expected error, got nil")
		}
	})
}

func TestGet_InitializesDefault(t *testing.T) {
	if Get() == nil {
		t.Fatal("expected a logger, got nil")
	}
}
