// Package extensions collects optional Hook implementations for observing
// a cellgraph Runtime: structured logging and dependency-graph diagnostics.
package extensions

import (
	"context"
	"log/slog"

	"github.com/cellgraph/cellgraph"
)

// LoggingHook logs every write, recompute, observer run, action invocation
// and body failure through a structured slog.Logger, generalizing the
// teacher's fmt.Printf timing wrapper to the slog idiom its own
// graph_debug.go already used.
type LoggingHook struct {
	cellgraph.BaseHook
	logger *slog.Logger
	level  slog.Level
}

// LoggingOption configures a LoggingHook at construction time.
type LoggingOption func(*LoggingHook)

// WithLevel overrides the log level used for routine (non-failure) events.
// Defaults to slog.LevelDebug.
func WithLevel(level slog.Level) LoggingOption {
	return func(h *LoggingHook) { h.level = level }
}

// NewLoggingHook builds a LoggingHook writing through logger. A nil logger
// falls back to slog.Default().
func NewLoggingHook(logger *slog.Logger, opts ...LoggingOption) *LoggingHook {
	if logger == nil {
		logger = slog.Default()
	}
	h := &LoggingHook{logger: logger, level: slog.LevelDebug}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *LoggingHook) Name() string { return "logging" }

func (h *LoggingHook) OnWrite(e cellgraph.WriteEvent) {
	if e.Suppressed {
		h.logger.Log(context.Background(), h.level, "write suppressed (equal value)", "cell", e.CellName)
		return
	}
	h.logger.Log(context.Background(), h.level, "write", "cell", e.CellName)
}

func (h *LoggingHook) OnRecompute(e cellgraph.RecomputeEvent) {
	if e.Err != nil {
		h.logger.Error("recompute failed", "cell", e.CellName, "error", e.Err)
		return
	}
	h.logger.Log(context.Background(), h.level, "recompute", "cell", e.CellName)
}

func (h *LoggingHook) OnObserverRun(e cellgraph.ObserverRunEvent) {
	if e.Err != nil {
		h.logger.Error("observer run failed", "observer", e.ObserverName, "trigger", e.Trigger, "error", e.Err)
		return
	}
	h.logger.Log(context.Background(), h.level, "observer run", "observer", e.ObserverName, "trigger", e.Trigger)
}

func (h *LoggingHook) OnActionInvoke(e cellgraph.ActionInvokeEvent) {
	if e.Err != nil {
		h.logger.Error("action invocation failed", "action", e.ActionName, "error", e.Err)
		return
	}
	h.logger.Log(context.Background(), h.level, "action invoked", "action", e.ActionName)
}

func (h *LoggingHook) OnBodyFailure(bf *cellgraph.BodyFailure) {
	h.logger.Error("body failure", "kind", bf.Kind, "cell", bf.CellName, "error", bf.Cause)
}
