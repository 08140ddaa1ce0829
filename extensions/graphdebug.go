package extensions

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/cellgraph/cellgraph"
	"github.com/m1gwings/treedrawer/tree"
)

// GraphDebugHook renders an ASCII dependency tree through a slog.Logger
// whenever a computed/observer/action body fails, the same diagnostic the
// teacher's GraphDebugExtension drew for a dependency-resolution error —
// here walking cellgraph's cell dependency graph (sources -> computed ->
// observers) instead of an executor graph.
type GraphDebugHook struct {
	cellgraph.BaseHook
	graph  *cellgraph.DependencyGraph
	logger *slog.Logger
}

// NewGraphDebugHook builds a GraphDebugHook that walks rt's dependency
// graph and logs through a slog.Logger built from logHandler. A nil
// handler falls back to slog.Default().Handler().
func NewGraphDebugHook(rt *cellgraph.Runtime, logHandler slog.Handler) *GraphDebugHook {
	if logHandler == nil {
		logHandler = slog.Default().Handler()
	}
	return &GraphDebugHook{graph: rt.Graph(), logger: slog.New(logHandler)}
}

func (h *GraphDebugHook) Name() string { return "graph-debug" }

func (h *GraphDebugHook) OnBodyFailure(bf *cellgraph.BodyFailure) {
	h.logger.Error("cellgraph body failure",
		"kind", bf.Kind, "cell", bf.CellName, "error", bf.Cause,
		"dependency_graph", h.formatDependencyGraph(bf.CellName))
}

// formatDependencyGraph first lists every root node (a node with no
// recorded upstream) that transitively feeds name, then appends a
// treedrawer tree rooted at name. Since cellgraph records downstream
// edges (dependency -> dependent), that tree shows what name feeds.
func (h *GraphDebugHook) formatDependencyGraph(name string) string {
	if name == "" {
		return "(unnamed cell; no dependency graph entry)"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "upstream of %q:\n", name)
	upstream := reverseFind(h.graph, name)
	if len(upstream) == 0 {
		b.WriteString("  (no named upstream dependencies recorded)\n")
	} else {
		sort.Strings(upstream)
		for _, u := range upstream {
			fmt.Fprintf(&b, "  %s [%s]\n", u, h.graph.KindOf(u))
		}
	}

	if t, ok := h.tryFormatHorizontalTree(name); ok {
		b.WriteString(t.String())
		b.WriteString("\n")
	}

	return b.String()
}

// reverseFind walks every registered root looking for name among its
// transitive dependents, the cheapest way to answer "what feeds this cell"
// given DependencyGraph only indexes the downstream direction.
func reverseFind(g *cellgraph.DependencyGraph, name string) []string {
	var upstream []string
	for _, root := range g.Roots() {
		for _, dependent := range g.FindDependents(root) {
			if dependent == name {
				upstream = append(upstream, root)
			}
		}
	}
	return upstream
}

// tryFormatHorizontalTree builds a treedrawer tree rooted at name, showing
// everything downstream of it, with cycle protection via a visited set (a
// misbehaving dependency graph should never hang the logger).
func (h *GraphDebugHook) tryFormatHorizontalTree(name string) (*tree.Tree, bool) {
	defer func() { recover() }() // treedrawer panics on a pathological tree; degrade silently

	root := tree.NewTree(tree.NodeString(name))
	visited := map[string]bool{name: true}
	h.addTreeAsChild(root, name, visited)
	return root, true
}

func (h *GraphDebugHook) addTreeAsChild(parent *tree.Tree, name string, visited map[string]bool) {
	children := h.graph.DirectDependents(name)
	sort.Strings(children)
	for _, child := range children {
		if visited[child] {
			continue
		}
		visited[child] = true
		label := fmt.Sprintf("%s [%s]", child, h.graph.KindOf(child))
		childTree := parent.AddChild(tree.NodeString(label))
		h.addTreeAsChild(childTree, child, visited)
	}
}

// SilentHandler is a slog.Handler that discards everything, useful for
// tests that want GraphDebugHook wired up without any log noise.
type SilentHandler struct{}

func (SilentHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (SilentHandler) Handle(context.Context, slog.Record) error { return nil }
func (h SilentHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h SilentHandler) WithGroup(string) slog.Handler           { return h }

// HumanHandler formats "cellgraph body failure" records as a boxed,
// human-readable block instead of key=value pairs, intended for local
// development rather than aggregated log shipping.
type HumanHandler struct {
	writer io.Writer
	level  slog.Level
	attrs  []slog.Attr
}

// NewHumanHandler builds a HumanHandler writing to w at the given minimum
// level.
func NewHumanHandler(w io.Writer, level slog.Level) *HumanHandler {
	return &HumanHandler{writer: w, level: level}
}

func (h *HumanHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *HumanHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	fmt.Fprintf(&b, "=== %s ===\n", r.Message)
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "dependency_graph" {
			fmt.Fprintf(&b, "%s\n", a.Value.String())
			return true
		}
		fmt.Fprintf(&b, "  %s: %v\n", a.Key, a.Value.Any())
		return true
	})
	for _, a := range h.attrs {
		fmt.Fprintf(&b, "  %s: %v\n", a.Key, a.Value.Any())
	}
	b.WriteString(strings.Repeat("-", 40) + "\n")
	_, err := io.WriteString(h.writer, b.String())
	return err
}

func (h *HumanHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &HumanHandler{writer: h.writer, level: h.level, attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...)}
}

func (h *HumanHandler) WithGroup(string) slog.Handler { return h }
