package extensions

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/cellgraph/cellgraph"
)

func TestGraphDebugHook_RendersDependencyTreeOnFailure(t *testing.T) {
	var buf bytes.Buffer
	rt := cellgraph.NewRuntime()
	hook := NewGraphDebugHook(rt, NewHumanHandler(&buf, -1000))
	rt.Use(hook)

	trigger := cellgraph.NewSourceOnRuntime(rt, "trigger", false)
	flaky := cellgraph.NewComputedOnRuntime(rt, "flaky", func() int {
		if trigger.Read() {
			panic("boom")
		}
		return 1
	})
	flaky.Read()
	trigger.Write(true)
	flaky.Read()

	out := buf.String()
	if !strings.Contains(out, "cellgraph body failure") {
		t.Fatalf("expected a body failure block, got:\n%s", out)
	}
	if !strings.Contains(out, "trigger") {
		t.Fatalf("expected the dependency graph dump to mention trigger, got:\n%s", out)
	}
}

func TestGraphDebugHook_UnnamedCellReportsNoEntry(t *testing.T) {
	var buf bytes.Buffer
	rt := cellgraph.NewRuntime()
	hook := NewGraphDebugHook(rt, NewHumanHandler(&buf, -1000))
	rt.Use(hook)

	trigger := cellgraph.NewSourceOnRuntime(rt, "", false)
	c := cellgraph.NewComputedOnRuntime(rt, "", func() int {
		if trigger.Read() {
			panic("boom")
		}
		return 1
	})
	c.Read()
	trigger.Write(true)
	c.Read()

	if out := buf.String(); !strings.Contains(out, "(unnamed cell; no dependency graph entry)") {
		t.Fatalf("expected the unnamed-cell placeholder in the dump, got:\n%s", out)
	}
}

func TestSilentHandler_NeverEnabled(t *testing.T) {
	h := SilentHandler{}
	if h.Enabled(nil, 1000) {
		t.Fatalf("expected SilentHandler to never be enabled")
	}
	record := slog.NewRecord(time.Time{}, slog.LevelError, "ignored", 0)
	if err := h.Handle(nil, record); err != nil {
		t.Fatalf("expected Handle to be a no-op, got %v", err)
	}
}

func TestHumanHandler_FormatsDependencyGraphAttrSeparately(t *testing.T) {
	var buf bytes.Buffer
	h := NewHumanHandler(&buf, -1000)
	rt := cellgraph.NewRuntime()
	hook := NewGraphDebugHook(rt, h)

	src := cellgraph.NewSourceOnRuntime(rt, "s", 1)
	failing := cellgraph.NewComputedOnRuntime(rt, "f", func() int {
		_ = src.Read()
		panic("boom")
	})
	rt.Use(hook)
	failing.Read()

	out := buf.String()
	if !strings.Contains(out, "upstream of \"f\":") {
		t.Fatalf("expected the dependency graph text to be written, got:\n%s", out)
	}
	if strings.Contains(out, "dependency_graph:") {
		t.Fatalf("expected the dependency_graph attr to be written raw, not as a key: value line, got:\n%s", out)
	}
}
