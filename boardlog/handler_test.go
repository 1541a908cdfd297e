package boardlog

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestHandle_PlainMessage(t *testing.T) {
	var buf bytes.Buffer
	h := NewCompactHandler(&buf, slog.LevelInfo)

	r := slog.NewRecord(time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC), slog.LevelInfo, "board ready", 0)
	r.AddAttrs(slog.Int("rows", 3), slog.Int("cols", 3))

	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	got := buf.String()
	want := "2026/01/02 15:04:05 board ready rows=3 cols=3\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestHandle_TagPrefix(t *testing.T) {
	var buf bytes.Buffer
	h := NewCompactHandler(&buf, slog.LevelInfo)

	r := slog.NewRecord(time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC), slog.LevelInfo, "flip applied", 0)
	r.AddAttrs(BoardTag("lobby"), slog.String("actor", "a"))

	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	got := buf.String()
	if !strings.HasPrefix(got, "2026/01/02 15:04:05 [lobby] flip applied") {
		t.Errorf("got %q, want tag-prefixed line", got)
	}
	if strings.Contains(got, "tag=") {
		t.Errorf("tag attribute should not also appear in key=value list: %q", got)
	}
}

func TestEnabled_RespectsLevel(t *testing.T) {
	h := NewCompactHandler(&bytes.Buffer{}, slog.LevelWarn)
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Info should not be enabled when level floor is Warn")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("Error should be enabled when level floor is Warn")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"unknown": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
