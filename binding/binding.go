// Package binding defines the contract a view-layer integration implements
// to subscribe to a cellgraph cell without depending on any particular UI
// framework — intentionally left as an interface, not an implementation,
// per spec.md's explicit scoping: no concrete UI framework appears
// anywhere in the retrieved pack to ground a real binding against.
package binding

import "github.com/cellgraph/cellgraph"

// Cleanup stops a binding's subscription. Calling it more than once is a
// no-op. Declared as an alias of cellgraph.Unsubscribe (rather than a
// distinct named type) so cellgraph.Source[T] and cellgraph.Computed[T]
// satisfy Source[T] below without an adapter shim.
type Cleanup = cellgraph.Unsubscribe

// Source is satisfied by cellgraph.Source[T] and cellgraph.Computed[T]:
// anything a binding can read and subscribe to.
type Source[T any] interface {
	Read() T
	Subscribe(fn func(T)) Cleanup
}

// Use is the hook a view framework's adapter implements: given a Source,
// return its current value and a Cleanup that stops the binding when the
// consuming component unmounts. Modeled on the accessor-subscribe-cleanup
// pattern cellgraph's own doc.go examples use directly against Source and
// Computed.
type Use[T any] func(src Source[T]) (value T, cleanup Cleanup)

// DefaultUse is a Use implementation requiring no framework integration at
// all: it returns the value read once at bind time, and a Cleanup that
// unsubscribes a re-render callback supplied by the caller. Framework
// adapters (React-like, Vue-like, a TUI's redraw loop) wrap this with
// their own scheduling instead of reimplementing subscription bookkeeping.
func DefaultUse[T any](onChange func(T)) Use[T] {
	return func(src Source[T]) (T, Cleanup) {
		value := src.Read()
		cleanup := src.Subscribe(onChange)
		return value, cleanup
	}
}
