package cellgraph

import (
	"reflect"
	"sync"
)

// Source is a mutable reactive cell: the leaf of the dependency graph.
// Reads register the source with whatever computed or observer body is
// currently running; writes notify every direct subscriber and, through
// them, every computed cell and observer that transitively depends on
// this source.
type Source[T any] struct {
	TagStore

	rt   *Runtime
	name string
	subs subscribers

	mu    sync.Mutex
	value T
	equal func(a, b T) bool
}

// SourceOption configures a Source at construction time.
type SourceOption[T any] func(*Source[T])

// WithEqual overrides the default equality used to short-circuit no-op
// writes. The default falls back to reflect.DeepEqual, the same
// short-circuit the basementui and edgarvarela24 signal implementations
// in the pack use; supply WithEqual for types where a cheaper or more
// specific comparison is available.
func WithEqual[T any](eq func(a, b T) bool) SourceOption[T] {
	return func(s *Source[T]) { s.equal = eq }
}

// NewSource creates an unnamed Source on the Default runtime.
func NewSource[T any](initial T, opts ...SourceOption[T]) *Source[T] {
	return NewSourceOnRuntime(Default, "", initial, opts...)
}

// NewNamedSource creates a Source registered under name on the Default
// runtime. Registering a duplicate name is a UsageError unless the
// runtime was built WithDevMode().
func NewNamedSource[T any](name string, initial T, opts ...SourceOption[T]) (*Source[T], error) {
	return newNamedSourceOnRuntime(Default, name, initial, opts...)
}

// NewSourceOnRuntime creates a Source bound to an explicit Runtime,
// registered under name unless name is empty. It panics if the name is
// already registered.
func NewSourceOnRuntime[T any](rt *Runtime, name string, initial T, opts ...SourceOption[T]) *Source[T] {
	s, err := newNamedSourceOnRuntime(rt, name, initial, opts...)
	if err != nil {
		// Unnamed sources never fail registration; name == "" short-circuits it.
		panic(err)
	}
	return s
}

// NewNamedSourceOnRuntime creates a named Source bound to an explicit
// Runtime, returning a UsageError on duplicate registration.
func NewNamedSourceOnRuntime[T any](rt *Runtime, name string, initial T, opts ...SourceOption[T]) (*Source[T], error) {
	return newNamedSourceOnRuntime(rt, name, initial, opts...)
}

func newNamedSourceOnRuntime[T any](rt *Runtime, name string, initial T, opts ...SourceOption[T]) (*Source[T], error) {
	s := &Source[T]{rt: rt, name: name, value: initial}
	for _, opt := range opts {
		opt(s)
	}
	if err := rt.registry.registerSource(name, s, rt.devMode); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Source[T]) cellName() string { return s.name }

func (s *Source[T]) subscribeInternal(fn func()) Unsubscribe {
	return s.subs.add(fn)
}

func (s *Source[T]) isEqual(a, b T) bool {
	if s.equal != nil {
		return s.equal(a, b)
	}
	return reflect.DeepEqual(a, b)
}

// Read returns the current value, attributing this read to whatever
// computed/observer body is currently tracking.
func (s *Source[T]) Read() T {
	s.rt.recordRead(s)
	s.mu.Lock()
	v := s.value
	s.mu.Unlock()
	return v
}

// Peek returns the current value without registering a dependency edge,
// the Go rendering of spec.md's readUntracked applied to a single cell.
func (s *Source[T]) Peek() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// PeekAny returns the current value boxed as any, satisfying Peeker for
// introspection callers (devtools.Bridge) that can't know T statically.
func (s *Source[T]) PeekAny() any { return s.Peek() }

// Write sets a new value. Writing the value currently held (per the
// Source's equality function) is a documented no-op: no subscribers are
// notified and no observer re-runs.
func (s *Source[T]) Write(v T) {
	s.mu.Lock()
	if s.isEqual(s.value, v) {
		s.mu.Unlock()
		s.rt.emit(func(h Hook) { h.OnWrite(WriteEvent{CellName: s.name, Suppressed: true}) })
		return
	}
	s.value = v
	s.mu.Unlock()

	s.rt.noteWrite(s)
	s.rt.emit(func(h Hook) { h.OnWrite(WriteEvent{CellName: s.name}) })
	s.subs.notify()
}

// WriteFunc computes the next value from the current one and writes it,
// the updater-function overload every reactive implementation in the
// pack provides alongside a plain setter.
func (s *Source[T]) WriteFunc(updater func(current T) T) {
	s.mu.Lock()
	next := updater(s.value)
	s.mu.Unlock()
	s.Write(next)
}

// Subscribe registers fn to be called with the new value whenever this
// source changes. fn runs synchronously on every non-suppressed write,
// including writes made inside a Batch: batching defers Observer runs
// only, not Subscribe callbacks. The returned Unsubscribe is idempotent.
func (s *Source[T]) Subscribe(fn func(T)) Unsubscribe {
	return s.subs.add(func() { fn(s.Peek()) })
}
