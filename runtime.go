package cellgraph

import (
	"sync"
)

// tracker is a single read-tracking frame: the set of cells read while a
// computed body or observer body was running. It is pooled because a
// recompute allocates one on every read-path entry.
type tracker struct {
	reads map[anyCell]struct{}
}

func (t *tracker) reset() {
	for k := range t.reads {
		delete(t.reads, k)
	}
}

func (t *tracker) add(c anyCell) {
	if t.reads == nil {
		t.reads = make(map[anyCell]struct{}, 8)
	}
	t.reads[c] = struct{}{}
}

// anyCell is satisfied by Source, Computed and Container cells. It lets
// the runtime, and computed cells tracking their dependencies, register
// and notify subscribers without knowing the underlying value type,
// mirroring the type-erased Dependency/Subscriber interfaces used
// throughout the reactive implementations in the pack.
type anyCell interface {
	cellName() string
	subscribeInternal(fn func()) Unsubscribe
}

// observerFrame is pushed while an observer body is executing so that
// nested reads attribute to it and so loop-prevention can inspect which
// cells the body itself wrote.
type observerFrame struct {
	observer *Observer
	written  map[anyCell]struct{}
}

func (f *observerFrame) reset() {
	f.observer = nil
	for k := range f.written {
		delete(f.written, k)
	}
}

// Runtime holds every piece of process-wide mutable state the reactive
// engine needs: the current read-tracker, the current active observer,
// the batching depth, the set of observers pending a flush, and the
// named-cell registry. A single Default instance backs the package-level
// constructors; tests and multi-tenant hosts construct their own with
// NewRuntime so state never leaks across test cases.
type Runtime struct {
	mu sync.Mutex

	trackerStack []*tracker
	observerStack []*observerFrame

	batchDepth int
	pending    map[*Observer]struct{}
	pendingOrd []*Observer

	registry *registry
	hooks    []Hook
	graph    *DependencyGraph

	trackerPool  sync.Pool
	obsFramePool sync.Pool

	devMode bool
}

// NewRuntime constructs an independent Runtime. Tests that must not share
// state with other tests (or with the package Default) should create one
// of these instead of relying on the global singleton.
func NewRuntime(opts ...RuntimeOption) *Runtime {
	rt := &Runtime{
		pending:  make(map[*Observer]struct{}),
		registry: newRegistry(),
		graph:    newDependencyGraph(),
	}
	rt.trackerPool.New = func() any { return &tracker{} }
	rt.obsFramePool.New = func() any { return &observerFrame{} }
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// RuntimeOption configures a Runtime at construction time.
type RuntimeOption func(*Runtime)

// WithDevMode relaxes the named-cell registry's duplicate-name check from
// a hard UsageError to a silent overwrite, convenient for REPL-like
// hot-reload workflows.
func WithDevMode() RuntimeOption {
	return func(rt *Runtime) { rt.devMode = true }
}

// WithHook registers an observability hook at construction time. See
// Hook and Runtime.Use.
func WithHook(h Hook) RuntimeOption {
	return func(rt *Runtime) { rt.hooks = append(rt.hooks, h) }
}

// Default is the process-wide Runtime backing every package-level
// constructor (NewSource, Computed1, Observe, ...). It exists purely for
// ergonomics: large applications with isolated subsystems, and all
// tests, should construct their own Runtime instead.
var Default = NewRuntime()

// Reset discards all state on the Default runtime and replaces it with a
// fresh one. Intended for test suites that rely on the package-level
// constructors but need isolation between test cases.
func Reset() {
	Default = NewRuntime()
}

// Use registers an observability hook on an already-constructed Runtime.
func (rt *Runtime) Use(h Hook) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.hooks = append(rt.hooks, h)
}

func (rt *Runtime) acquireTracker() *tracker {
	t := rt.trackerPool.Get().(*tracker)
	t.reset()
	return t
}

func (rt *Runtime) releaseTracker(t *tracker) {
	rt.trackerPool.Put(t)
}

// withReadTracker pushes a fresh tracker frame, runs fn, and always pops
// the frame back off on return, including on panic, so a failing computed
// body never leaves a stale frame for its caller's subsequent reads.
func (rt *Runtime) withReadTracker(fn func()) *tracker {
	t := rt.acquireTracker()
	rt.mu.Lock()
	rt.trackerStack = append(rt.trackerStack, t)
	rt.mu.Unlock()

	defer func() {
		rt.mu.Lock()
		rt.trackerStack = rt.trackerStack[:len(rt.trackerStack)-1]
		rt.mu.Unlock()
	}()

	fn()
	return t
}

// recordRead attributes a cell read to the current tracker frame, if any.
// Called with no active frame (e.g. a plain Read() outside any computed
// or observer body) it is a no-op: the read is untracked.
func (rt *Runtime) recordRead(c anyCell) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if len(rt.trackerStack) == 0 {
		return
	}
	rt.trackerStack[len(rt.trackerStack)-1].add(c)
}

// readUntracked runs fn with tracking suspended: any cell read inside fn
// is invisible to the enclosing computed/observer body's dependency set.
func (rt *Runtime) readUntracked(fn func()) {
	rt.mu.Lock()
	saved := rt.trackerStack
	rt.trackerStack = nil
	rt.mu.Unlock()

	defer func() {
		rt.mu.Lock()
		rt.trackerStack = saved
		rt.mu.Unlock()
	}()

	fn()
}

func (rt *Runtime) isTracking() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return len(rt.trackerStack) > 0
}

func (rt *Runtime) acquireObserverFrame() *observerFrame {
	f := rt.obsFramePool.Get().(*observerFrame)
	f.reset()
	return f
}

func (rt *Runtime) releaseObserverFrame(f *observerFrame) {
	rt.obsFramePool.Put(f)
}

// withActiveObserver pushes obs as the currently-running observer so that
// writes performed by its body can be attributed to it (for loop
// prevention), runs fn, and restores the previous frame on every exit
// path.
func (rt *Runtime) withActiveObserver(obs *Observer, fn func()) *observerFrame {
	f := rt.acquireObserverFrame()
	f.observer = obs
	rt.mu.Lock()
	rt.observerStack = append(rt.observerStack, f)
	rt.mu.Unlock()

	defer func() {
		rt.mu.Lock()
		rt.observerStack = rt.observerStack[:len(rt.observerStack)-1]
		rt.mu.Unlock()
	}()

	fn()
	return f
}

// currentObserverFrame returns the innermost active observer frame, or
// nil if no observer body is currently executing.
func (rt *Runtime) currentObserverFrame() *observerFrame {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if len(rt.observerStack) == 0 {
		return nil
	}
	return rt.observerStack[len(rt.observerStack)-1]
}

// noteWrite records that the given cell was written by the currently
// active observer, if any, for later loop-prevention comparison.
func (rt *Runtime) noteWrite(c anyCell) {
	f := rt.currentObserverFrame()
	if f == nil {
		return
	}
	if f.written == nil {
		f.written = make(map[anyCell]struct{}, 4)
	}
	f.written[c] = struct{}{}
}

// Batch defers observer notification until fn (and any nested Batch
// calls) return. Nested batches collapse: only the outermost call
// flushes. Observers enqueued multiple times during a batch run once,
// in first-enqueued order.
func (rt *Runtime) Batch(fn func()) {
	rt.mu.Lock()
	rt.batchDepth++
	rt.mu.Unlock()

	defer func() {
		rt.mu.Lock()
		rt.batchDepth--
		flush := rt.batchDepth == 0
		var toRun []*Observer
		if flush {
			toRun = rt.pendingOrd
			rt.pendingOrd = nil
			rt.pending = make(map[*Observer]struct{})
		}
		rt.mu.Unlock()

		for _, obs := range toRun {
			obs.run(triggerBatchFlush)
		}
	}()

	fn()
}

// BatchOnRuntime batches on an explicit Runtime, the form to use when not
// relying on Default.
func BatchOnRuntime(rt *Runtime, fn func()) { rt.Batch(fn) }

// Batch batches on the package-level Default runtime.
func Batch(fn func()) { Default.Batch(fn) }

func (rt *Runtime) enqueueObserver(obs *Observer) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.batchDepth == 0 {
		rt.mu.Unlock()
		obs.run(triggerImmediate)
		rt.mu.Lock()
		return
	}

	if _, ok := rt.pending[obs]; ok {
		return
	}
	rt.pending[obs] = struct{}{}
	rt.pendingOrd = append(rt.pendingOrd, obs)
}

// Graph returns the runtime's named-cell dependency graph, kept up to date
// incrementally as computeds and observers rediscover their edges. Used by
// extensions/graphdebug to render a dependency tree on a body failure.
func (rt *Runtime) Graph() *DependencyGraph { return rt.graph }

// RegisteredNames returns every registered source/computed/observer/action
// name, for devtools.Bridge enumeration.
func (rt *Runtime) RegisteredNames() []string { return rt.registry.Names() }

// Snapshot returns every named Source/Computed's current value, boxed as
// any, for devtools.Bridge.Snapshot.
func (rt *Runtime) Snapshot() map[string]any { return rt.registry.snapshot() }

func (rt *Runtime) emit(fn func(h Hook)) {
	rt.mu.Lock()
	hooks := rt.hooks
	rt.mu.Unlock()
	for _, h := range hooks {
		fn(h)
	}
}
