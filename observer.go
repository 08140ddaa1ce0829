package cellgraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// triggerKind records why an Observer body ran, surfaced to Hooks/devtools
// for diagnostics.
type triggerKind int

const (
	triggerInitial triggerKind = iota
	triggerImmediate
	triggerBatchFlush
	triggerRerunCoalesced
)

func (k triggerKind) String() string {
	switch k {
	case triggerInitial:
		return "initial"
	case triggerImmediate:
		return "immediate"
	case triggerBatchFlush:
		return "batch-flush"
	case triggerRerunCoalesced:
		return "rerun-coalesced"
	default:
		return "unknown"
	}
}

// AbortToken is handed to an Observer or Action body so it can cooperate
// with cancellation. It is a thin wrapper over context.Context — in Go
// that type already is the {flag, wakers} shape spec.md's AbortToken
// describes, so no separate struct is invented.
type AbortToken struct {
	ctx context.Context
}

func (a AbortToken) Done() <-chan struct{} { return a.ctx.Done() }
func (a AbortToken) Err() error             { return a.ctx.Err() }
func (a AbortToken) Context() context.Context { return a.ctx }

// ObserverBody is the function an Observer re-runs whenever one of its
// tracked dependencies changes. Synchronous bodies should ignore ctx/abort
// and use SyncBody; bodies that launch async work should select on
// abort.Done() to cooperate with preventOverlap/dispose cancellation.
type ObserverBody func(ctx context.Context, abort AbortToken) error

// SyncBody adapts a plain side-effecting function with no return value
// into an ObserverBody.
func SyncBody(fn func()) ObserverBody {
	return func(context.Context, AbortToken) error {
		fn()
		return nil
	}
}

var errLoopDetected = errors.New("cellgraph: observer auto-disposed after detecting a probable infinite loop")

const defaultLoopWindow = 20
const defaultLoopThreshold = 10 // executions per second within the window

// Observer is a side-effecting reactive subscriber: it re-runs its body
// whenever a cell it read during its last run changes, in a batch
// triggered by that change, subject to overlap and loop-prevention
// guards.
type Observer struct {
	TagStore

	rt   *Runtime
	name string
	body ObserverBody

	once           bool
	preventOverlap bool
	preventLoops   bool
	loopWindow     int
	loopThreshold  int
	logger         *slog.Logger

	mu              sync.Mutex
	disposed        bool
	ranOnce         bool
	running         bool
	rerunRequested  bool
	deps            edges
	triggeringCells map[anyCell]struct{}
	lastWritten     map[anyCell]struct{}
	execTimes       []time.Time
	currentCancel   context.CancelFunc
}

// ObserverOption configures an Observer at construction time.
type ObserverOption func(*Observer)

// Once disposes the observer automatically after its first real run.
func Once() ObserverOption { return func(o *Observer) { o.once = true } }

// PreventOverlap controls whether a re-run while the body is still
// in-flight is coalesced into a single pending re-run instead of running
// concurrently. Defaults to true.
func PreventOverlap(enabled bool) ObserverOption {
	return func(o *Observer) { o.preventOverlap = enabled }
}

// PreventLoops controls both loop guards: a re-run triggered only by cells
// this observer itself wrote during its previous run is dropped, and the
// rolling-execution-rate heuristic auto-disposes a runaway observer.
// Defaults to true.
func PreventLoops(enabled bool) ObserverOption {
	return func(o *Observer) { o.preventLoops = enabled }
}

// WithLoopWindow overrides the rolling timestamp window size used by the
// infinite-loop heuristic. Default 20.
func WithLoopWindow(n int) ObserverOption { return func(o *Observer) { o.loopWindow = n } }

// WithLoopThreshold overrides the executions-per-second threshold used
// by the infinite-loop heuristic. Default 10.
func WithLoopThreshold(n int) ObserverOption { return func(o *Observer) { o.loopThreshold = n } }

// WithObserverLogger overrides the slog.Logger used for loop-detection
// diagnostics. Defaults to slog.Default().
func WithObserverLogger(l *slog.Logger) ObserverOption { return func(o *Observer) { o.logger = l } }

// Observe constructs and immediately runs an Observer on the Default
// runtime.
func Observe(body ObserverBody, opts ...ObserverOption) *Observer {
	return ObserveOnRuntime(Default, "", body, opts...)
}

// ObserveNamed constructs a named Observer on the Default runtime.
func ObserveNamed(name string, body ObserverBody, opts ...ObserverOption) (*Observer, error) {
	return newObserverOnRuntime(Default, name, body, opts...)
}

// ObserveOnRuntime constructs and immediately runs an Observer bound to an
// explicit Runtime, registered under name unless name is empty. It panics
// if the name is already registered.
func ObserveOnRuntime(rt *Runtime, name string, body ObserverBody, opts ...ObserverOption) *Observer {
	o, err := newObserverOnRuntime(rt, name, body, opts...)
	if err != nil {
		panic(err)
	}
	return o
}

func newObserverOnRuntime(rt *Runtime, name string, body ObserverBody, opts ...ObserverOption) (*Observer, error) {
	o := &Observer{
		rt:             rt,
		name:           name,
		body:           body,
		preventOverlap: true,
		preventLoops:   true,
		loopWindow:     defaultLoopWindow,
		loopThreshold:  defaultLoopThreshold,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := rt.registry.registerObserver(name, o, rt.devMode); err != nil {
		return nil, err
	}
	o.run(triggerInitial)
	return o, nil
}

func (o *Observer) invokeSafely(ctx context.Context, token AbortToken) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("observer panic: %v", r)
			}
		}
	}()
	return o.body(ctx, token)
}

func (o *Observer) scheduleFrom(dep anyCell) {
	o.mu.Lock()
	if o.triggeringCells == nil {
		o.triggeringCells = make(map[anyCell]struct{})
	}
	o.triggeringCells[dep] = struct{}{}
	o.mu.Unlock()
	o.rt.enqueueObserver(o)
}

func isSubsetOfCells(subset, superset map[anyCell]struct{}) bool {
	if len(subset) == 0 {
		return false
	}
	for k := range subset {
		if _, ok := superset[k]; !ok {
			return false
		}
	}
	return true
}

func executionRateExceeds(times []time.Time, windowSize, perSecond int) bool {
	if len(times) < windowSize {
		return false
	}
	span := times[len(times)-1].Sub(times[0])
	if span <= 0 {
		return true
	}
	rate := float64(len(times)-1) / span.Seconds()
	return rate > float64(perSecond)
}

// run executes the observer body once, respecting once/preventOverlap/
// preventLoops, then rebuilds its dependency edges and re-enqueues a
// coalesced pending re-run if one was requested while it was busy.
func (o *Observer) run(trigger triggerKind) {
	o.mu.Lock()
	if o.disposed {
		o.mu.Unlock()
		return
	}
	if o.once && o.ranOnce {
		o.mu.Unlock()
		return
	}
	if o.preventOverlap && o.running {
		o.rerunRequested = true
		o.mu.Unlock()
		return
	}

	triggering := o.triggeringCells
	o.triggeringCells = nil

	if o.preventLoops && isSubsetOfCells(triggering, o.lastWritten) {
		// Every cell that fired this re-run was also written by this
		// observer's own previous run: it is chasing its own tail. Drop
		// the re-run — spec.md's rule, distinct from the rolling-window
		// safety net below — without touching subscriptions or
		// lastWritten, so a later change from outside the observer still
		// triggers normally.
		o.mu.Unlock()
		return
	}

	if o.preventLoops {
		o.execTimes = append(o.execTimes, time.Now())
		if len(o.execTimes) > o.loopWindow {
			o.execTimes = o.execTimes[len(o.execTimes)-o.loopWindow:]
		}
		if executionRateExceeds(o.execTimes, o.loopWindow, o.loopThreshold) {
			o.disposed = true
			o.mu.Unlock()
			o.logger.Warn("cellgraph: observer auto-disposed, probable infinite loop",
				"observer", o.name, "trigger", trigger.String())
			o.deps.clear()
			o.rt.emit(func(h Hook) {
				h.OnObserverRun(ObserverRunEvent{ObserverName: o.name, Trigger: trigger, Err: errLoopDetected})
			})
			return
		}
	}

	o.running = true
	o.mu.Unlock()

	o.deps.clear()
	o.rt.graph.removeDependent(o.name)

	ctx, cancel := context.WithCancel(context.Background())
	o.mu.Lock()
	o.currentCancel = cancel
	o.mu.Unlock()
	token := AbortToken{ctx: ctx}

	var bodyErr error
	frame := o.rt.withActiveObserver(o, func() {
		t := o.rt.withReadTracker(func() {
			o.rt.Batch(func() {
				bodyErr = o.invokeSafely(ctx, token)
			})
		})
		for dep := range t.reads {
			unsub := dep.subscribeInternal(func() { o.scheduleFrom(dep) })
			o.deps.add(dep, unsub)
			o.rt.graph.addEdge(dep.cellName(), kindOfCell(o.rt, dep), o.name, "observer")
		}
	})

	written := frame.written

	o.mu.Lock()
	o.running = false
	o.ranOnce = true
	rerun := o.rerunRequested
	o.rerunRequested = false
	o.lastWritten = written
	o.mu.Unlock()

	if bodyErr != nil {
		bf := newBodyFailure("observer", o.name, bodyErr)
		o.rt.emit(func(h Hook) {
			h.OnBodyFailure(bf)
			h.OnObserverRun(ObserverRunEvent{ObserverName: o.name, Trigger: trigger, Err: bf})
		})
	} else {
		o.rt.emit(func(h Hook) { h.OnObserverRun(ObserverRunEvent{ObserverName: o.name, Trigger: trigger}) })
	}

	if o.once {
		o.Dispose()
		return
	}

	if rerun {
		o.run(triggerRerunCoalesced)
	}
}

// Dispose stops the observer: its dependency edges are unsubscribed, its
// in-flight async body (if any) is cancelled via AbortToken, and further
// triggers are ignored.
func (o *Observer) Dispose() {
	o.mu.Lock()
	if o.disposed {
		o.mu.Unlock()
		return
	}
	o.disposed = true
	cancel := o.currentCancel
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	o.deps.clear()
}

// IsDisposed reports whether the observer has been disposed, either
// explicitly or by the loop-prevention heuristic.
func (o *Observer) IsDisposed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.disposed
}
