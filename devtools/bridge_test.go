package devtools

import (
	"testing"

	"github.com/cellgraph/cellgraph"
)

func TestBridge_NamesListsRegisteredCells(t *testing.T) {
	rt := cellgraph.NewRuntime()
	cellgraph.NewSourceOnRuntime(rt, "count", 0)
	cellgraph.NewComputedOnRuntime(rt, "doubled", func() int { return 0 })

	b := NewBridge(rt, 0)
	names := b.Names()

	found := map[string]bool{}
	for _, n := range names {
		found[n] = true
	}
	if !found["count"] || !found["doubled"] {
		t.Fatalf("expected both count and doubled in Names(), got %v", names)
	}
}

func TestBridge_TakeSnapshotReflectsCurrentValues(t *testing.T) {
	rt := cellgraph.NewRuntime()
	src := cellgraph.NewSourceOnRuntime(rt, "count", 1)
	cellgraph.NewComputedOnRuntime(rt, "doubled", func() int { return src.Read() * 2 }).Read()

	b := NewBridge(rt, 0)
	snap := b.TakeSnapshot()

	if snap.Values["count"] != 1 {
		t.Fatalf("expected count=1 in snapshot, got %v", snap.Values["count"])
	}
	if snap.Values["doubled"] != 2 {
		t.Fatalf("expected doubled=2 in snapshot, got %v", snap.Values["doubled"])
	}
}

func TestBridge_RecentEventsRecordsWrites(t *testing.T) {
	rt := cellgraph.NewRuntime()
	src := cellgraph.NewSourceOnRuntime(rt, "count", 0)

	b := NewBridge(rt, 10)
	src.Write(5)

	events := b.RecentEvents()
	found := false
	for _, e := range events {
		if e.Kind == cellgraph.EventWrite && e.Name == "count" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a write event for count, got %v", events)
	}
}

func TestBridge_AttachRelaySeedsBacklogAndStreamsFutureEvents(t *testing.T) {
	rt := cellgraph.NewRuntime()
	src := cellgraph.NewSourceOnRuntime(rt, "count", 0)

	b := NewBridge(rt, 10)
	src.Write(1) // recorded in the event log before the relay is attached

	relay := NewRelay(10)
	b.AttachRelay(relay)

	src.Write(2) // recorded after, pushed straight to the relay

	backlog := relay.backlogSnapshot()
	if len(backlog) < 2 {
		t.Fatalf("expected the relay backlog to contain both the seeded and the live event, got %v", backlog)
	}
}
