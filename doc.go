// Package cellgraph implements a fine-grained reactive runtime: mutable
// Source cells, lazily-recomputed Computed cells, side-effecting
// Observers, and named concurrency-aware Actions, wired together by
// implicit dependency tracking and batched propagation.
//
// # Basic usage
//
//	count := cellgraph.NewSource(0)
//	doubled := cellgraph.NewComputed(func() int { return count.Read() * 2 })
//
//	stop := cellgraph.Observe(cellgraph.SyncBody(func() {
//		fmt.Println("doubled is now", doubled.Read())
//	}))
//	defer stop.Dispose()
//
//	count.Write(1) // observer re-runs, prints "doubled is now 2"
//
// # Dependency tracking
//
// A Computed's or Observer's dependency set is discovered implicitly:
// whatever Source/Computed cells its body calls Read() on during one
// execution become its dependencies for the next. The set is rebuilt
// every time the body runs, so a branch no longer taken stops
// subscribing to cells it no longer reads. Use a cell's Peek method to
// read its current value without registering a dependency edge.
//
// # Batching
//
//	cellgraph.Batch(func() {
//		a.Write(1)
//		b.Write(2)
//	}) // observers depending on both run once, not twice
//
// # Containers
//
// Container[T] refines Source[[]T] with a full accessor surface (At,
// Range, Map, Filter, Reduce, ...) and copy-on-write mutators (Append,
// Splice, Sort, ...), plus a Batch(fn) draft that publishes once.
//
// # Observers
//
// Observers re-run their body when a dependency changes, subject to
// PreventOverlap (coalesce a re-run triggered while still running) and
// PreventLoops (auto-dispose a runaway observer, diagnosed via
// log/slog). Once(...) disposes an observer after its first real run.
//
// # Actions
//
//	createUser, _ := cellgraph.NewNamedAction("create-user",
//		func(ctx context.Context, in CreateUserReq, abort cellgraph.AbortToken) (User, error) {
//			return repo.Create(ctx, in)
//		})
//	future := createUser.Invoke(ctx, req)
//	user, err := future.Wait(ctx)
//
// Named actions default to SerialQueue: concurrent invocations sharing a
// name run one at a time. DropPrevious cancels an in-flight invocation's
// AbortToken in favor of a newer one. UnnamedFree runs with no
// coordination at all.
//
// # Hooks
//
// Implement Hook (or embed BaseHook and override selectively) and
// register it with Runtime.Use to observe every write, recompute,
// observer run, action invocation, and body failure — the basis for the
// extensions/logging and extensions/graphdebug packages, and for
// devtools.Bridge.
//
// # Multiple runtimes
//
// Every constructor has a Default-runtime form (NewSource, Observe, ...)
// and an explicit-runtime form (NewSourceOnRuntime, ObserveOnRuntime,
// ...). Tests, and hosts running isolated subsystems, should construct
// their own *Runtime with NewRuntime instead of relying on Default.
//
// # Thread safety
//
// Every exported type in this package is safe for concurrent use. Reads
// and writes may happen from any goroutine; batching and the
// dependency-tracking stacks are synchronized on the owning Runtime.
package cellgraph
