package persistence

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileStore is a Store backed by one file per key under a root directory,
// the simplest backend an Adapter can target without pulling in a real
// database driver.
type FileStore struct {
	root string
}

// NewFileStore creates a FileStore rooted at dir, creating it if absent.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{root: dir}, nil
}

func (fs *FileStore) path(key string) string {
	return filepath.Join(fs.root, key)
}

func (fs *FileStore) Load(key string) ([]byte, error) {
	return os.ReadFile(fs.path(key))
}

func (fs *FileStore) Save(key string, data []byte) error {
	return os.WriteFile(fs.path(key), data, 0o644)
}

// FileWatcher is a Watcher backed by fsnotify, reporting external edits to
// a FileStore's files — the cross-process persistence-sync mechanism
// spec.md's Open Question leaves optional.
type FileWatcher struct {
	store *FileStore

	mu       sync.Mutex
	watchers map[*fsnotify.Watcher]struct{}
}

// NewFileWatcher builds a FileWatcher over the same directory a FileStore
// persists to.
func NewFileWatcher(store *FileStore) *FileWatcher {
	return &FileWatcher{store: store, watchers: make(map[*fsnotify.Watcher]struct{})}
}

// Watch starts an fsnotify watch on key's backing file, invoking onChange
// with the file's new contents on every write event. The returned stop
// func closes the underlying fsnotify.Watcher.
func (w *FileWatcher) Watch(key string, onChange func(data []byte)) (func(), error) {
	path := w.store.path(key)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}

	w.mu.Lock()
	w.watchers[fw] = struct{}{}
	w.mu.Unlock()

	go func() {
		for {
			select {
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(path) {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				data, err := os.ReadFile(path)
				if err != nil {
					continue
				}
				onChange(data)
			case _, ok := <-fw.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	stop := func() {
		w.mu.Lock()
		delete(w.watchers, fw)
		w.mu.Unlock()
		fw.Close()
	}
	return stop, nil
}
