package cellgraph

import "sync"

// registry is the per-Runtime name-keyed directory of live cells,
// observers and actions. It exists purely for introspection — devtools
// enumeration and snapshots — and never participates in propagation
// itself.
type registry struct {
	mu        sync.RWMutex
	sources   map[string]anyCell
	computeds map[string]anyCell
	observers map[string]*Observer
	actions   map[string]anyAction
}

func newRegistry() *registry {
	return &registry{
		sources:   make(map[string]anyCell),
		computeds: make(map[string]anyCell),
		observers: make(map[string]*Observer),
		actions:   make(map[string]anyAction),
	}
}

// anyAction is the type-erased face of Action[In, Out], used only for
// registry bookkeeping and devtools enumeration.
type anyAction interface {
	actionName() string
}

func (r *registry) registerNamed(bucket map[string]anyCell, name string, c anyCell, devMode bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name == "" {
		return nil
	}
	if _, exists := bucket[name]; exists && !devMode {
		return newUsageError("registry", &duplicateNameError{name: name})
	}
	bucket[name] = c
	return nil
}

func (r *registry) registerSource(name string, c anyCell, devMode bool) error {
	return r.registerNamed(r.sources, name, c, devMode)
}

func (r *registry) registerComputed(name string, c anyCell, devMode bool) error {
	return r.registerNamed(r.computeds, name, c, devMode)
}

func (r *registry) registerObserver(name string, o *Observer, devMode bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name == "" {
		return nil
	}
	if _, exists := r.observers[name]; exists && !devMode {
		return newUsageError("registry", &duplicateNameError{name: name})
	}
	r.observers[name] = o
	return nil
}

func (r *registry) registerAction(name string, a anyAction, devMode bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name == "" {
		return nil
	}
	if _, exists := r.actions[name]; exists && !devMode {
		return newUsageError("registry", &duplicateNameError{name: name})
	}
	r.actions[name] = a
	return nil
}

// Names returns every registered cell/observer/action name, for devtools
// enumeration.
func (r *registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sources)+len(r.computeds)+len(r.observers)+len(r.actions))
	for n := range r.sources {
		names = append(names, n)
	}
	for n := range r.computeds {
		names = append(names, n)
	}
	for n := range r.observers {
		names = append(names, n)
	}
	for n := range r.actions {
		names = append(names, n)
	}
	return names
}

// snapshot returns every named Source/Computed's current value, boxed as
// any via Peeker, for devtools.Bridge.Snapshot.
func (r *registry) snapshot() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]any, len(r.sources)+len(r.computeds))
	for n, c := range r.sources {
		if p, ok := c.(Peeker); ok {
			out[n] = p.PeekAny()
		}
	}
	for n, c := range r.computeds {
		if p, ok := c.(Peeker); ok {
			out[n] = p.PeekAny()
		}
	}
	return out
}

// kindOfCell reports whether c is registered as a source or a computed, for
// DependencyGraph labeling. Unnamed or unregistered cells report "cell".
func kindOfCell(rt *Runtime, c anyCell) string {
	r := rt.registry
	r.mu.RLock()
	defer r.mu.RUnlock()
	name := c.cellName()
	if _, ok := r.sources[name]; ok {
		return "source"
	}
	if _, ok := r.computeds[name]; ok {
		return "computed"
	}
	return "cell"
}

type duplicateNameError struct{ name string }

func (e *duplicateNameError) Error() string {
	return "duplicate registered name: " + e.name
}
