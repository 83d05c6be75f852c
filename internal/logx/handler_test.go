package logx

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestHandlerWritesMessageAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.UseColor = false
	opts.ShowSource = false
	h := NewHandler(&buf, opts)

	logger := slog.New(h)
	logger.Info("peer connected", slog.String("username", "alice"), slog.Int("token", 7))

	out := buf.String()
	if !strings.Contains(out, "peer connected") {
		t.Fatalf("missing message: %q", out)
	}
	if !strings.Contains(out, "alice") {
		t.Fatalf("missing attr value: %q", out)
	}
	if !strings.Contains(out, "INFO") {
		t.Fatalf("missing level: %q", out)
	}
}

func TestHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.UseColor = false
	opts.Level = slog.LevelWarn
	h := NewHandler(&buf, opts)

	logger := slog.New(h)
	logger.Info("should not appear")
	logger.Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Fatalf("info record should have been filtered: %q", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Fatalf("warn record missing: %q", out)
	}
}

func TestHandlerWithAttrsAccumulates(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.UseColor = false
	opts.ShowSource = false
	h := NewHandler(&buf, opts)

	logger := slog.New(h).With(slog.String("component", "pool"))
	logger.Info("admitted connection")

	if !strings.Contains(buf.String(), "pool") {
		t.Fatalf("expected accumulated attr in output: %q", buf.String())
	}
}
