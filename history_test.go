package cellgraph

import "testing"

func TestEventLog_RecordsWritesAndRecomputes(t *testing.T) {
	rt := NewRuntime()
	log := NewEventLog(0)
	rt.Use(log.AsHook())

	src := NewSourceOnRuntime(rt, "count", 0)
	NewComputedOnRuntime(rt, "doubled", func() int { return src.Read() * 2 }).Read()

	src.Write(1)

	events := log.Snapshot()
	if len(events) == 0 {
		t.Fatalf("expected at least one recorded event")
	}

	writes := log.Filter(func(e Event) bool { return e.Kind == EventWrite })
	if len(writes) != 1 || writes[0].Name != "count" {
		t.Fatalf("expected one write event for count, got %v", writes)
	}
}

func TestEventLog_SuppressedWritesAreNotRecorded(t *testing.T) {
	rt := NewRuntime()
	log := NewEventLog(0)
	rt.Use(log.AsHook())

	src := NewSourceOnRuntime(rt, "count", 5)
	src.Write(5) // equal value, suppressed

	writes := log.Filter(func(e Event) bool { return e.Kind == EventWrite })
	if len(writes) != 0 {
		t.Fatalf("expected no write event for a suppressed write, got %v", writes)
	}
}

func TestEventLog_EvictsOldestBeyondLimit(t *testing.T) {
	rt := NewRuntime()
	log := NewEventLog(3)
	rt.Use(log.AsHook())

	src := NewSourceOnRuntime(rt, "count", 0)
	for i := 1; i <= 5; i++ {
		src.Write(i)
	}

	if log.Len() != 3 {
		t.Fatalf("expected the log to be bounded at 3 events, got %d", log.Len())
	}

	events := log.Snapshot()
	// the oldest two writes (to 1 and 2) should have been evicted
	if events[0].Name != "count" {
		t.Fatalf("unexpected retained event: %v", events[0])
	}
}

func TestEventLog_RecordsBodyFailures(t *testing.T) {
	rt := NewRuntime()
	log := NewEventLog(0)
	rt.Use(log.AsHook())

	trigger := NewSourceOnRuntime(rt, "", false)
	c := NewComputedOnRuntime(rt, "flaky", func() int {
		if trigger.Read() {
			panic("boom")
		}
		return 1
	})
	c.Read()
	trigger.Write(true)
	c.Read()

	failures := log.Filter(func(e Event) bool { return e.Kind == EventBodyFailure })
	if len(failures) != 1 || failures[0].Name != "flaky" {
		t.Fatalf("expected one body-failure event for flaky, got %v", failures)
	}
}
