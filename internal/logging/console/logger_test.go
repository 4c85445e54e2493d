package console_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-kuebico/internal/logging"
	"github.com/goliatone/go-kuebico/internal/logging/console"
)

func TestConsoleLogger_WritesStructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2024, 3, 14, 15, 9, 26, 535897000, time.UTC)

	minLevel := console.LevelDebug
	provider := console.NewProvider(console.Options{
		Writer:   &buf,
		TimeFunc: func() time.Time { return now },
		MinLevel: &minLevel,
	})

	logger := logging.ModuleLogger(provider, "kuebico.export")
	ctx := logging.ContextWithFields(context.Background(), map[string]any{
		"run": "r-1",
	})
	logger = logger.WithContext(ctx)

	logger.Info("export.page.written",
		"page", "faq/long-answer",
		"bytes", 42,
		"error", errors.New("disk full now"),
	)

	got := strings.TrimSpace(buf.String())
	want := `2024-03-14T15:09:26.535897Z INFO export.page.written bytes=42 error="disk full now" logger=kuebico.export module=kuebico.export page=faq/long-answer run=r-1`
	if got != want {
		t.Fatalf("unexpected log entry\nwant: %s\ngot:  %s", want, got)
	}
}

func TestConsoleLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	minLevel := console.LevelInfo
	provider := console.NewProvider(console.Options{
		Writer:   &buf,
		MinLevel: &minLevel,
	})

	logger := provider.GetLogger("kuebico.test")
	logger.Debug("ignored.debug", "foo", "bar")
	logger.Info("included.info", "foo", "bar")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected single log line, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "included.info") {
		t.Fatalf("expected info log to be written, got %s", lines[0])
	}
}

func TestConsoleLogger_DanglingArgument(t *testing.T) {
	var buf bytes.Buffer
	provider := console.NewProvider(console.Options{Writer: &buf})

	provider.GetLogger("kuebico.test").Info("odd.args", "key", "value", "orphan")

	if !strings.Contains(buf.String(), "field_1=orphan") {
		t.Fatalf("expected orphan argument to be kept, got %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]console.Level{
		"trace":   console.LevelTrace,
		"DEBUG":   console.LevelDebug,
		"":        console.LevelInfo,
		"warning": console.LevelWarn,
		"error":   console.LevelError,
	}
	for input, want := range cases {
		got, err := console.ParseLevel(input)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q) = %s, want %s", input, got, want)
		}
	}
	if _, err := console.ParseLevel("loud"); err == nil {
		t.Fatal("expected unknown level to fail")
	}
}
