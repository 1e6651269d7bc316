package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", DEBUG, false},
		{"INFO", INFO, false},
		{"warning", WARN, false},
		{"error", ERROR, false},
		{"none", SILENT, false},
		{"verbose", INFO, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(WARN, &buf, false)

	l.Info("Test", "hidden %d", 1)
	l.Warn("Test", "shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("INFO message written at WARN level: %q", out)
	}
	if !strings.Contains(out, "[WARN] [Test] shown 2") {
		t.Errorf("missing WARN line, got %q", out)
	}
}

func TestSilentWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	l := New(SILENT, &buf, false)
	l.Error("Test", "boom")
	if buf.Len() != 0 {
		t.Errorf("SILENT logger wrote %q", buf.String())
	}
}

func TestModuleUsesGlobalLogger(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(New(DEBUG, &buf, false))
	defer SetDefault(nil)

	m := For("Renderer")
	m.Debug("cycle %d", 7)

	if !strings.Contains(buf.String(), "[DEBUG] [Renderer] cycle 7") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestModuleWithoutLoggerIsSilent(t *testing.T) {
	SetDefault(nil)
	// Must not panic.
	For("Nobody").Error("dropped")
}

func TestBoundModule(t *testing.T) {
	var buf bytes.Buffer
	l := New(INFO, &buf, true)
	l.For("HUD").Info("ready")

	out := buf.String()
	if !strings.Contains(out, levelColors[INFO]) {
		t.Errorf("expected colored prefix, got %q", out)
	}
	if !strings.Contains(out, "[HUD] ready") {
		t.Errorf("expected module tag, got %q", out)
	}
}
