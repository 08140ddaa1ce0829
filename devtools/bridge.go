// Package devtools exposes a cellgraph Runtime to an external inspector:
// Bridge enumerates the named registry and snapshots current values,
// Relay fans a bounded backlog of lifecycle events out over a websocket
// connection, replaying the backlog to a new subscriber before switching
// it to live events.
package devtools

import (
	"encoding/json"
	"time"

	"github.com/cellgraph/cellgraph"
	"github.com/google/uuid"
)

// Snapshot is a point-in-time dump of every named cell's current value.
type Snapshot struct {
	TakenAt time.Time      `json:"taken_at"`
	Values  map[string]any `json:"values"`
}

// Message is a single devtools wire record: either a replayed/live
// lifecycle Event or a Snapshot, discriminated by Type.
type Message struct {
	ID       string            `json:"id"`
	Type     string            `json:"type"` // "event" or "snapshot"
	Event    *cellgraph.Event  `json:"event,omitempty"`
	Snapshot *Snapshot         `json:"snapshot,omitempty"`
}

// Bridge connects a Runtime's registry and event log to external
// inspectors. It registers itself as a Hook on construction so every
// lifecycle event reaches both the EventLog and any attached Relay.
type Bridge struct {
	rt  *cellgraph.Runtime
	log *cellgraph.EventLog
	relay *Relay
}

// NewBridge builds a Bridge over rt, retaining at most logLimit events
// (0 uses EventLog's default of 200).
func NewBridge(rt *cellgraph.Runtime, logLimit int) *Bridge {
	log := cellgraph.NewEventLog(logLimit)
	rt.Use(log.AsHook())
	return &Bridge{rt: rt, log: log}
}

// Names returns every registered source/computed/observer/action name.
func (b *Bridge) Names() []string { return b.rt.RegisteredNames() }

// TakeSnapshot dumps every named Source/Computed's current value.
func (b *Bridge) TakeSnapshot() Snapshot {
	return Snapshot{TakenAt: time.Now(), Values: b.rt.Snapshot()}
}

// RecentEvents returns every event still retained in the backlog, oldest
// first.
func (b *Bridge) RecentEvents() []cellgraph.Event { return b.log.Snapshot() }

// AttachRelay wires r to stream this Bridge's events: r's backlog is
// seeded with the current EventLog contents, then b itself pushes every future
// event to r as it's recorded.
func (b *Bridge) AttachRelay(r *Relay) {
	b.relay = r
	for _, ev := range b.log.Snapshot() {
		r.seed(ev)
	}
	b.rt.Use(relayHook{relay: r})
}

type relayHook struct {
	cellgraph.BaseHook
	relay *Relay
}

func (h relayHook) Name() string { return "devtools-relay" }

func (h relayHook) OnWrite(e cellgraph.WriteEvent) {
	if !e.Suppressed {
		h.relay.push(cellgraph.Event{ID: uuid.NewString(), Kind: cellgraph.EventWrite, Name: e.CellName})
	}
}

func (h relayHook) OnRecompute(e cellgraph.RecomputeEvent) {
	ev := cellgraph.Event{ID: uuid.NewString(), Kind: cellgraph.EventRecompute, Name: e.CellName}
	if e.Err != nil {
		ev.Err = e.Err.Error()
	}
	h.relay.push(ev)
}

func (h relayHook) OnObserverRun(e cellgraph.ObserverRunEvent) {
	ev := cellgraph.Event{ID: uuid.NewString(), Kind: cellgraph.EventObserverRun, Name: e.ObserverName}
	if e.Err != nil {
		ev.Err = e.Err.Error()
	}
	h.relay.push(ev)
}

func (h relayHook) OnActionInvoke(e cellgraph.ActionInvokeEvent) {
	ev := cellgraph.Event{ID: uuid.NewString(), Kind: cellgraph.EventActionInvoke, Name: e.ActionName}
	if e.Err != nil {
		ev.Err = e.Err.Error()
	}
	h.relay.push(ev)
}

func (h relayHook) OnBodyFailure(bf *cellgraph.BodyFailure) {
	h.relay.push(cellgraph.Event{ID: uuid.NewString(), Kind: cellgraph.EventBodyFailure, Name: bf.CellName, Err: bf.Error()})
}

func encodeMessage(m Message) ([]byte, error) { return json.Marshal(m) }
