package cellgraph

import "sync"

// Unsubscribe cancels a subscription registered with Source.Subscribe,
// Computed.Subscribe, or Container.Subscribe. Calling it more than once
// is a no-op.
type Unsubscribe func()

// subscribers is the bidirectional-edge bookkeeping shared by Source,
// Computed and Container: a set of zero-argument notify callbacks keyed
// by a monotonically increasing id so individual subscriptions can be
// removed in O(1).
type subscribers struct {
	mu     sync.RWMutex
	nextID uint64
	fns    map[uint64]func()
}

func (s *subscribers) add(fn func()) Unsubscribe {
	s.mu.Lock()
	if s.fns == nil {
		s.fns = make(map[uint64]func())
	}
	id := s.nextID
	s.nextID++
	s.fns[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.fns, id)
			s.mu.Unlock()
		})
	}
}

// notify invokes every subscriber's callback with a stable snapshot taken
// under the lock, then released before calling out — avoiding deadlock if
// a subscriber callback itself subscribes or unsubscribes.
func (s *subscribers) notify() {
	s.mu.RLock()
	snapshot := make([]func(), 0, len(s.fns))
	for _, fn := range s.fns {
		snapshot = append(snapshot, fn)
	}
	s.mu.RUnlock()

	for _, fn := range snapshot {
		fn()
	}
}

func (s *subscribers) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.fns)
}

// edges tracks which cells a computed/observer last read, so that on the
// next recomputation stale edges can be dropped before new ones are
// added — the "edge set is rebuilt every recomputation" invariant.
type edges struct {
	unsubs map[anyCell]Unsubscribe
}

func (e *edges) clear() {
	for _, u := range e.unsubs {
		u()
	}
	e.unsubs = nil
}

func (e *edges) add(c anyCell, u Unsubscribe) {
	if e.unsubs == nil {
		e.unsubs = make(map[anyCell]Unsubscribe)
	}
	e.unsubs[c] = u
}
