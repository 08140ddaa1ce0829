package cellgraph

import (
	"reflect"
	"sync"
)

type computedState int32

const (
	stateDirty computedState = iota
	stateComputing
	stateClean
)

// Computed is a lazily-recomputed, memoized reactive cell. Its body runs
// at most once between any two reads: a read while clean returns the
// cached value; a read while dirty recomputes first. Its dependency edge
// set is rebuilt on every recomputation by clearing prior edges before
// re-invoking the body, so a branch no longer taken stops subscribing to
// cells it no longer reads — the same clear/push/invoke/pop sequence the
// pack's memo implementations use.
type Computed[T any] struct {
	TagStore

	rt   *Runtime
	name string
	fn   func() T
	subs subscribers

	mu    sync.Mutex
	state computedState
	value T
	deps  edges

	notifyOnChangeOnly bool
	equal              func(a, b T) bool
}

// ComputedOption configures a Computed at construction time.
type ComputedOption[T any] func(*Computed[T])

// WithComputedEqual overrides the equality used when
// WithNotifyOnChangeOnly is set. Defaults to reflect.DeepEqual.
func WithComputedEqual[T any](eq func(a, b T) bool) ComputedOption[T] {
	return func(c *Computed[T]) { c.equal = eq }
}

// WithNotifyOnChangeOnly switches a Computed from the default "always
// notify on dirty recompute" behavior to recomputing eagerly as soon as
// it is marked dirty and only notifying its own subscribers if the
// recomputed value actually differs. This trades the cell's laziness for
// the ability to filter no-op notifications, the alternative spec.md's
// Open Question flags as plausible.
func WithNotifyOnChangeOnly[T any]() ComputedOption[T] {
	return func(c *Computed[T]) { c.notifyOnChangeOnly = true }
}

// NewComputed creates an unnamed Computed on the Default runtime whose
// dependencies are discovered implicitly from whichever cells fn reads.
func NewComputed[T any](fn func() T, opts ...ComputedOption[T]) *Computed[T] {
	return NewComputedOnRuntime(Default, "", fn, opts...)
}

// NewNamedComputed creates a Computed registered under name on the
// Default runtime.
func NewNamedComputed[T any](name string, fn func() T, opts ...ComputedOption[T]) (*Computed[T], error) {
	return newNamedComputedOnRuntime(Default, name, fn, opts...)
}

// NewComputedOnRuntime creates a Computed bound to an explicit Runtime,
// registered under name unless name is empty. It panics if the name is
// already registered.
func NewComputedOnRuntime[T any](rt *Runtime, name string, fn func() T, opts ...ComputedOption[T]) *Computed[T] {
	c, err := newNamedComputedOnRuntime(rt, name, fn, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

func newNamedComputedOnRuntime[T any](rt *Runtime, name string, fn func() T, opts ...ComputedOption[T]) (*Computed[T], error) {
	c := &Computed[T]{rt: rt, name: name, fn: fn, state: stateDirty}
	for _, opt := range opts {
		opt(c)
	}
	if err := rt.registry.registerComputed(name, c, rt.devMode); err != nil {
		return nil, err
	}
	return c, nil
}

// Computed1 adapts the teacher's Derive1-style explicit single-dependency
// constructor onto this engine's implicit tracking: it reads dep once at
// construction-recompute time via the ordinary tracked Read path, so the
// dependency edge is still discovered and rebuilt the same way a
// multi-dependency implicit body would.
func Computed1[A, T any](dep *Source[A], fn func(A) T, opts ...ComputedOption[T]) *Computed[T] {
	return NewComputed(func() T { return fn(dep.Read()) }, opts...)
}

// Computed2 is Computed1 generalized to two dependencies.
func Computed2[A, B, T any](depA *Source[A], depB *Source[B], fn func(A, B) T, opts ...ComputedOption[T]) *Computed[T] {
	return NewComputed(func() T { return fn(depA.Read(), depB.Read()) }, opts...)
}

func (c *Computed[T]) cellName() string { return c.name }

func (c *Computed[T]) subscribeInternal(fn func()) Unsubscribe {
	return c.subs.add(fn)
}

func (c *Computed[T]) isEqual(a, b T) bool {
	if c.equal != nil {
		return c.equal(a, b)
	}
	return reflect.DeepEqual(a, b)
}

// Read returns the current (possibly freshly recomputed) value,
// attributing this read to whatever outer computed/observer body is
// currently tracking.
func (c *Computed[T]) Read() T {
	c.rt.recordRead(c)
	c.ensureFresh()
	c.mu.Lock()
	v := c.value
	c.mu.Unlock()
	return v
}

// Peek returns the cached value without recomputing and without
// registering a dependency edge.
func (c *Computed[T]) Peek() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// PeekAny returns the cached value boxed as any, satisfying Peeker for
// introspection callers (devtools.Bridge) that can't know T statically. It
// does not force a recompute.
func (c *Computed[T]) PeekAny() any { return c.Peek() }

func (c *Computed[T]) invokeSafely() (result T, err error, failed bool) {
	defer func() {
		if r := recover(); r != nil {
			failed = true
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = &panicValue{v: r}
			}
		}
	}()
	result = c.fn()
	return result, nil, false
}

// ensureFresh recomputes the body if the cell is currently dirty. On a
// body panic or error the stale cached value is kept (matching the
// coregx computed implementation's panic-safe recompute) and the
// failure is reported via BodyFailure/Hook instead of propagating.
func (c *Computed[T]) ensureFresh() {
	c.mu.Lock()
	if c.state == stateClean {
		c.mu.Unlock()
		return
	}
	c.state = stateComputing
	prevValue := c.value
	c.mu.Unlock()

	var newVal T
	var bodyErr error
	var failed bool
	t := c.rt.withReadTracker(func() {
		newVal, bodyErr, failed = c.invokeSafely()
	})

	c.deps.clear()
	c.rt.graph.removeDependent(c.name)
	for dep := range t.reads {
		unsub := dep.subscribeInternal(c.markDirty)
		c.deps.add(dep, unsub)
		c.rt.graph.addEdge(dep.cellName(), kindOfCell(c.rt, dep), c.name, "computed")
	}

	if failed {
		c.mu.Lock()
		c.state = stateDirty
		c.mu.Unlock()
		bf := newBodyFailure("computed", c.name, bodyErr)
		c.rt.emit(func(h Hook) {
			h.OnBodyFailure(bf)
			h.OnRecompute(RecomputeEvent{CellName: c.name, Err: bf})
		})
		return
	}

	c.mu.Lock()
	changed := !c.isEqual(prevValue, newVal)
	c.value = newVal
	c.state = stateClean
	c.mu.Unlock()

	c.rt.emit(func(h Hook) { h.OnRecompute(RecomputeEvent{CellName: c.name}) })

	if c.notifyOnChangeOnly && changed {
		c.subs.notify()
	}
}

// markDirty is registered as the notify callback on every cell this
// Computed reads. The first transition from clean to dirty propagates to
// this cell's own subscribers immediately (spec.md's default "always
// notify on dirty" choice); subsequent notifications while already dirty
// or computing are absorbed, matching the pack's memo.notify()
// early-exit.
func (c *Computed[T]) markDirty() {
	c.mu.Lock()
	if c.state != stateClean {
		c.mu.Unlock()
		return
	}
	c.state = stateDirty
	eager := c.notifyOnChangeOnly
	c.mu.Unlock()

	if eager {
		c.ensureFresh()
		return
	}
	c.subs.notify()
}

// Subscribe registers fn to be called whenever this cell's dirty status
// transitions (default mode) or whenever its recomputed value actually
// changes (WithNotifyOnChangeOnly mode). fn receives the freshly
// recomputed value, which may force an out-of-band recompute.
func (c *Computed[T]) Subscribe(fn func(T)) Unsubscribe {
	return c.subs.add(func() { fn(c.Read()) })
}

type panicValue struct{ v any }

func (p *panicValue) Error() string { return "panic recovered in cell body" }
