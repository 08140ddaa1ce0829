package devtools

import (
	"testing"
	"time"

	"github.com/cellgraph/cellgraph"
)

func TestRelay_PushRetainsEventsInBacklog(t *testing.T) {
	r := NewRelay(5)
	r.push(cellgraph.Event{ID: "1", Kind: cellgraph.EventWrite, Name: "a"})
	r.push(cellgraph.Event{ID: "2", Kind: cellgraph.EventWrite, Name: "b"})

	backlog := r.backlogSnapshot()
	if len(backlog) != 2 {
		t.Fatalf("expected 2 retained events, got %d", len(backlog))
	}
	if backlog[0].Name != "a" || backlog[1].Name != "b" {
		t.Fatalf("expected push order [a, b], got %v", backlog)
	}
}

func TestRelay_BacklogEvictsBeyondCapacity(t *testing.T) {
	r := NewRelay(2)
	r.push(cellgraph.Event{ID: "1", Kind: cellgraph.EventWrite, Name: "a"})
	r.push(cellgraph.Event{ID: "2", Kind: cellgraph.EventWrite, Name: "b"})
	r.push(cellgraph.Event{ID: "3", Kind: cellgraph.EventWrite, Name: "c"})

	backlog := r.backlogSnapshot()
	if len(backlog) != 2 {
		t.Fatalf("expected the backlog to be bounded at 2 events, got %d", len(backlog))
	}
	for _, ev := range backlog {
		if ev.Name == "a" {
			t.Fatalf("expected the oldest event to have been evicted, got %v", backlog)
		}
	}
}

func TestRelay_PushFansOutToLiveSubscribers(t *testing.T) {
	r := NewRelay(10)

	sub := &subscriber{out: make(chan cellgraph.Event, 4)}
	r.mu.Lock()
	r.subs[sub] = struct{}{}
	r.mu.Unlock()

	r.push(cellgraph.Event{ID: "1", Kind: cellgraph.EventWrite, Name: "count"})

	select {
	case ev := <-sub.out:
		if ev.Name != "count" {
			t.Fatalf("expected to receive the pushed event, got %v", ev)
		}
	default:
		t.Fatalf("expected the live subscriber to receive the pushed event")
	}
}

func TestRelay_SlowSubscriberDropsRatherThanBlocks(t *testing.T) {
	r := NewRelay(10)

	sub := &subscriber{out: make(chan cellgraph.Event)} // unbuffered, nobody reading
	r.mu.Lock()
	r.subs[sub] = struct{}{}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.push(cellgraph.Event{ID: "1", Kind: cellgraph.EventWrite, Name: "count"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected push to return immediately even with no subscriber draining sub.out")
	}
}
