package extensions

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/cellgraph/cellgraph"
)

func newCapturingLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestLoggingHook_RecordsWriteAndRecompute(t *testing.T) {
	var buf bytes.Buffer
	rt := cellgraph.NewRuntime()
	rt.Use(NewLoggingHook(newCapturingLogger(&buf)))

	src := cellgraph.NewSourceOnRuntime(rt, "count", 0)
	doubled := cellgraph.NewComputedOnRuntime(rt, "doubled", func() int { return src.Read() * 2 })
	doubled.Read()
	src.Write(5)

	out := buf.String()
	if !strings.Contains(out, "cell=count") {
		t.Fatalf("expected a log line mentioning the count cell, got:\n%s", out)
	}
	if !strings.Contains(out, "recompute") {
		t.Fatalf("expected a recompute log line, got:\n%s", out)
	}
}

func TestLoggingHook_SuppressedWriteIsLoggedDistinctly(t *testing.T) {
	var buf bytes.Buffer
	rt := cellgraph.NewRuntime()
	rt.Use(NewLoggingHook(newCapturingLogger(&buf)))

	src := cellgraph.NewSourceOnRuntime(rt, "count", 5)
	src.Write(5)

	if !strings.Contains(buf.String(), "write suppressed") {
		t.Fatalf("expected a suppressed-write log line, got:\n%s", buf.String())
	}
}

func TestLoggingHook_BodyFailureLogsAtErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	rt := cellgraph.NewRuntime()
	rt.Use(NewLoggingHook(newCapturingLogger(&buf), WithLevel(slog.LevelDebug)))

	trigger := cellgraph.NewSourceOnRuntime(rt, "", false)
	c := cellgraph.NewComputedOnRuntime(rt, "flaky", func() int {
		if trigger.Read() {
			panic("boom")
		}
		return 1
	})
	c.Read()
	trigger.Write(true)
	c.Read()

	out := buf.String()
	if !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "body failure") {
		t.Fatalf("expected an ERROR-level body failure line, got:\n%s", out)
	}
}

func TestNewLoggingHook_NilLoggerFallsBackToDefault(t *testing.T) {
	h := NewLoggingHook(nil)
	if h.Name() != "logging" {
		t.Fatalf("expected Name() to be \"logging\", got %q", h.Name())
	}
	// exercising the fallback logger should not panic
	h.OnWrite(cellgraph.WriteEvent{CellName: "x"})
	_ = context.Background()
}
