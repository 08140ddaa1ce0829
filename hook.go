package cellgraph

// Peeker is implemented by Source and Computed (and by Container, through
// its embedded Source): it lets an introspection caller that can't know a cell's type parameter statically
// — devtools.Bridge — read its current value boxed as any, without
// forcing a recompute or registering a dependency.
type Peeker interface {
	PeekAny() any
}

// Hook is the cross-cutting observability interface the reactive core
// calls into on every cell write, computed recompute, observer run, and
// action invocation. The logging and graph-debug extensions under
// extensions/ are Hooks; devtools.Bridge is driven by one internally.
//
// Embed BaseHook to implement only the events you care about, the same
// embed-and-override convention the rest of this codebase uses for
// optional interfaces.
type Hook interface {
	Name() string

	// OnWrite fires after every Source or Container write, including a
	// write suppressed as equal to the current value (Suppressed set).
	OnWrite(event WriteEvent)

	// OnRecompute fires after a Computed cell finishes recomputing,
	// successfully or not.
	OnRecompute(event RecomputeEvent)

	// OnObserverRun fires after an Observer body finishes running.
	OnObserverRun(event ObserverRunEvent)

	// OnActionInvoke fires after an Action body finishes running.
	OnActionInvoke(event ActionInvokeEvent)

	// OnBodyFailure fires whenever a computed/observer/action body
	// panics or returns an error.
	OnBodyFailure(failure *BodyFailure)
}

// WriteEvent describes a single Source/Container write.
type WriteEvent struct {
	CellName string
	Suppressed bool // true if the write was a no-op due to value equality
}

// RecomputeEvent describes a single Computed recomputation.
type RecomputeEvent struct {
	CellName string
	Err      error
}

// ObserverRunEvent describes a single Observer execution.
type ObserverRunEvent struct {
	ObserverName string
	Trigger      triggerKind
	Err          error
}

// ActionInvokeEvent describes a single Action invocation.
type ActionInvokeEvent struct {
	ActionName string
	Err        error
}

// BaseHook provides no-op defaults for every Hook method so that a
// concrete hook only needs to override the events it cares about.
type BaseHook struct {
	name string
}

// NewBaseHook constructs a BaseHook with the given name.
func NewBaseHook(name string) BaseHook { return BaseHook{name: name} }

func (h *BaseHook) Name() string                                  { return h.name }
func (h *BaseHook) OnWrite(WriteEvent)                            {}
func (h *BaseHook) OnRecompute(RecomputeEvent)                    {}
func (h *BaseHook) OnObserverRun(ObserverRunEvent)                {}
func (h *BaseHook) OnActionInvoke(ActionInvokeEvent)               {}
func (h *BaseHook) OnBodyFailure(*BodyFailure)                    {}
