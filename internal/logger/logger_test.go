package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestColorHandlerAddsLevelColor(t *testing.T) {
	var buf bytes.Buffer
	h := NewColorTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	l := slog.New(h)
	l.Warn("disk almost full")
	out := buf.String()
	if !strings.Contains(out, "\033[33m") {
		t.Fatalf("expected yellow escape for warn, got %q", out)
	}
	if !strings.Contains(out, "disk almost full") {
		t.Fatalf("message lost: %q", out)
	}
}

func TestTeeHandlerWritesBoth(t *testing.T) {
	var a, b bytes.Buffer
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	h := teeHandler{slog.NewTextHandler(&a, opts), slog.NewTextHandler(&b, opts)}
	l := slog.New(h)
	l.Info("wave complete", "wave", 2)
	for _, buf := range []*bytes.Buffer{&a, &b} {
		if !strings.Contains(buf.String(), "wave complete") {
			t.Fatalf("record not duplicated: a=%q b=%q", a.String(), b.String())
		}
	}
	if !h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("tee handler should be enabled at info")
	}
}

func TestLevelParsing(t *testing.T) {
	if (Config{Level: "debug"}).level() != slog.LevelDebug {
		t.Fatal("debug level")
	}
	if (Config{Level: ""}).level() != slog.LevelInfo {
		t.Fatal("default level should be info")
	}
}
