package persistence

import (
	"sync"

	"github.com/cellgraph/cellgraph"
)

// Watcher notifies an Adapter that the underlying storage changed outside
// of a Write the adapter itself issued — a cross-process edit, or another
// tab/instance updating the same key. Adapters with no Watcher are
// write-only: they persist local writes but never learn about external
// ones, the degraded mode spec.md's Open Question on persistence sync
// leaves as acceptable when no watcher is wired.
type Watcher interface {
	// Watch invokes onChange(data) whenever the storage for key changes
	// out of band. Stop() tears down the watch.
	Watch(key string, onChange func(data []byte)) (stop func(), err error)
}

// Store is the storage backend an Adapter reads from and writes to: a
// single key/byte-slice round trip, deliberately minimal so any backend
// (file, key-value store, remote config service) can implement it.
type Store interface {
	Load(key string) ([]byte, error)
	Save(key string, data []byte) error
}

// Adapter wires a cellgraph.Source[T] to a Store through a Serializer,
// loading the cell's initial value from storage (if LoadOnInit is set) and
// persisting every subsequent write, the Go rendering of spec.md's
// persistence-adapter contract.
type Adapter[T any] struct {
	source     *cellgraph.Source[T]
	store      Store
	serializer Serializer[T]
	key        string
	onError    func(*cellgraph.PersistenceFailure)
	watcher    Watcher

	loadOnInit bool

	mu               sync.Mutex
	unsub            cellgraph.Unsubscribe
	stopWatch        func()
	applyingExternal bool
}

// AdapterOption configures an Adapter at construction time.
type AdapterOption[T any] func(*Adapter[T])

// WithSerializer overrides the default JSONSerializer.
func WithSerializer[T any](s Serializer[T]) AdapterOption[T] {
	return func(a *Adapter[T]) { a.serializer = s }
}

// WithErrorHandler registers a callback invoked with every load/save
// PersistenceFailure. The default handler discards the error silently —
// supply one to log or surface it.
func WithErrorHandler[T any](fn func(*cellgraph.PersistenceFailure)) AdapterOption[T] {
	return func(a *Adapter[T]) { a.onError = fn }
}

// WithWatcher wires a Watcher so the adapter reacts to out-of-process
// storage changes by writing the decoded value back into the source.
func WithWatcher[T any](w Watcher) AdapterOption[T] {
	return func(a *Adapter[T]) { a.watcher = w }
}

// LoadOnInit attempts to load the current value from store under key and,
// on success, writes it into source before subscribing to further writes.
// A missing key or a decode failure is reported via the error handler and
// the source keeps its existing value.
func LoadOnInit[T any](enabled bool) AdapterOption[T] {
	return func(a *Adapter[T]) { a.loadOnInit = enabled }
}

// NewAdapter binds source to store under key, persisting every subsequent
// write. Call Close to stop persisting and tear down any watcher.
func NewAdapter[T any](source *cellgraph.Source[T], store Store, key string, opts ...AdapterOption[T]) (*Adapter[T], error) {
	a := &Adapter[T]{
		source:     source,
		store:      store,
		key:        key,
		serializer: JSONSerializer[T]{},
		onError:    func(*cellgraph.PersistenceFailure) {},
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.loadOnInit {
		if data, err := store.Load(key); err != nil {
			a.onError(&cellgraph.PersistenceFailure{Key: key, Op: "load", Cause: err})
		} else {
			var v T
			if err := a.serializer.Unmarshal(data, &v); err != nil {
				a.onError(&cellgraph.PersistenceFailure{Key: key, Op: "load", Cause: err})
			} else {
				source.Write(v)
			}
		}
	}

	a.unsub = source.Subscribe(func(v T) {
		a.mu.Lock()
		skip := a.applyingExternal
		a.mu.Unlock()
		if skip {
			return
		}
		data, err := a.serializer.Marshal(v)
		if err != nil {
			a.onError(&cellgraph.PersistenceFailure{Key: key, Op: "save", Cause: err})
			return
		}
		if err := store.Save(key, data); err != nil {
			a.onError(&cellgraph.PersistenceFailure{Key: key, Op: "save", Cause: err})
		}
	})

	if a.watcher != nil {
		stop, err := a.watcher.Watch(key, func(data []byte) {
			var v T
			if err := a.serializer.Unmarshal(data, &v); err != nil {
				a.onError(&cellgraph.PersistenceFailure{Key: key, Op: "load", Cause: err})
				return
			}
			a.mu.Lock()
			a.applyingExternal = true
			a.mu.Unlock()
			source.Write(v)
			a.mu.Lock()
			a.applyingExternal = false
			a.mu.Unlock()
		})
		if err != nil {
			a.unsub()
			return nil, &cellgraph.PersistenceFailure{Key: key, Op: "load", Cause: err}
		}
		a.stopWatch = stop
	}

	return a, nil
}

// Close stops persisting future writes and tears down any watcher.
func (a *Adapter[T]) Close() {
	a.mu.Lock()
	unsub, stopWatch := a.unsub, a.stopWatch
	a.mu.Unlock()
	if unsub != nil {
		unsub()
	}
	if stopWatch != nil {
		stopWatch()
	}
}
