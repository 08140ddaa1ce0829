package cellgraph

import (
	"sync"

	"github.com/google/uuid"
)

// EventKind classifies a recorded lifecycle Event.
type EventKind string

const (
	EventWrite          EventKind = "write"
	EventRecompute      EventKind = "recompute"
	EventObserverRun    EventKind = "observer_run"
	EventActionInvoke   EventKind = "action_invoke"
	EventBodyFailure    EventKind = "body_failure"
)

// Event is a single recorded lifecycle occurrence: a cell write, a
// computed recompute, an observer run, an action invocation, or a body
// failure. devtools.Bridge streams these; EventLog is what bounds and
// stores them.
type Event struct {
	ID     string
	Kind   EventKind
	Name   string
	Err    string
}

// EventLog is a bounded, FIFO-eviction backlog of lifecycle events,
// adapted from the teacher's ExecutionTree bounded-node-eviction logic —
// flattened from a parent/child tree into a flat ring because reactive
// propagation, unlike nested flow execution, has no natural parent/child
// shape to index on.
type EventLog struct {
	mu    sync.Mutex
	limit int
	order []string
	byID  map[string]Event
}

// NewEventLog creates an EventLog retaining at most limit events.
func NewEventLog(limit int) *EventLog {
	if limit <= 0 {
		limit = 200
	}
	return &EventLog{limit: limit, byID: make(map[string]Event, limit)}
}

func (l *EventLog) record(kind EventKind, name string, errStr string) Event {
	ev := Event{ID: uuid.NewString(), Kind: kind, Name: name, Err: errStr}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.byID[ev.ID] = ev
	l.order = append(l.order, ev.ID)
	if len(l.order) > l.limit {
		evicted := l.order[0]
		l.order = l.order[1:]
		delete(l.byID, evicted)
	}
	return ev
}

// Snapshot returns a copy of every currently retained event, oldest
// first.
func (l *EventLog) Snapshot() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.byID[id])
	}
	return out
}

// Filter returns every retained event for which pred returns true.
func (l *EventLog) Filter(pred func(Event) bool) []Event {
	all := l.Snapshot()
	out := all[:0:0]
	for _, e := range all {
		if pred(e) {
			out = append(out, e)
		}
	}
	return out
}

// Len reports how many events are currently retained.
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}

// AsHook adapts an EventLog into a Hook so it can be registered directly
// with Runtime.Use.
func (l *EventLog) AsHook() Hook { return &eventLogHook{log: l} }

type eventLogHook struct {
	BaseHook
	log *EventLog
}

func (h *eventLogHook) Name() string { return "event-log" }

func (h *eventLogHook) OnWrite(e WriteEvent) {
	if !e.Suppressed {
		h.log.record(EventWrite, e.CellName, "")
	}
}

func (h *eventLogHook) OnRecompute(e RecomputeEvent) {
	errStr := ""
	if e.Err != nil {
		errStr = e.Err.Error()
	}
	h.log.record(EventRecompute, e.CellName, errStr)
}

func (h *eventLogHook) OnObserverRun(e ObserverRunEvent) {
	errStr := ""
	if e.Err != nil {
		errStr = e.Err.Error()
	}
	h.log.record(EventObserverRun, e.ObserverName, errStr)
}

func (h *eventLogHook) OnActionInvoke(e ActionInvokeEvent) {
	errStr := ""
	if e.Err != nil {
		errStr = e.Err.Error()
	}
	h.log.record(EventActionInvoke, e.ActionName, errStr)
}

func (h *eventLogHook) OnBodyFailure(bf *BodyFailure) {
	h.log.record(EventBodyFailure, bf.CellName, bf.Error())
}
