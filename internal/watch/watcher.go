package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"vaultnorm/internal/errors"
	"vaultnorm/internal/log"
	"vaultnorm/internal/vault"
	"vaultnorm/pkg/types"

	"github.com/fsnotify/fsnotify"
)

// Watcher turns filesystem notifications for an FS vault into vault
// events. Every folder of the vault is watched; folders that appear later
// are added as they are created.
type Watcher struct {
	vault.Subscribers

	store     *vault.FS
	fsWatcher *fsnotify.Watcher

	// Lock for running state and the directory set
	mutex       sync.RWMutex
	directories map[string]struct{}
	running     bool

	// The Rename notification just handled. Only a Create that comes next,
	// within renamePairWindow, is reported as its rename.
	lastRenamed pendingRename
}

type pendingRename struct {
	path string
	at   time.Time
}

// renamePairWindow bounds the gap between the two halves of a move inside
// the vault. A Rename with no Create in time was a move out of the vault.
const renamePairWindow = 50 * time.Millisecond

var _ vault.Notifier = (*Watcher)(nil)

// NewWatcher creates a watcher for store.
func NewWatcher(store *vault.FS) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	return &Watcher{
		store:       store,
		fsWatcher:   fsWatcher,
		directories: make(map[string]struct{}),
	}, nil
}

// Watch adds the vault directory and every folder below it.
func (w *Watcher) Watch() error {
	return w.addTree(w.store.Dir())
}

// addTree watches dir and all directories beneath it. Symlinked
// directories are not followed.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return w.addDirectory(p)
	})
}

func (w *Watcher) addDirectory(dir string) error {
	if err := w.fsWatcher.Add(dir); err != nil {
		return errors.NewFileError("failed to watch directory", dir, errors.FileAccessDenied, err)
	}
	w.mutex.Lock()
	w.directories[dir] = struct{}{}
	w.mutex.Unlock()
	log.LogWithFields(log.F("directory", dir)).Debug("Watching directory")
	return nil
}

func (w *Watcher) removeDirectory(dir string) {
	w.mutex.Lock()
	_, ok := w.directories[dir]
	delete(w.directories, dir)
	w.mutex.Unlock()
	if ok {
		// The watch may already be gone with the directory.
		_ = w.fsWatcher.Remove(dir)
	}
}

// Directories returns the watched directories, sorted.
func (w *Watcher) Directories() []string {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	dirs := make([]string, 0, len(w.directories))
	for dir := range w.directories {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs
}

// IsRunning returns whether the event loop is active.
func (w *Watcher) IsRunning() bool {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return w.running
}

// Run processes notifications until ctx is done, then closes the
// underlying watcher. A Watcher can run only once.
func (w *Watcher) Run(ctx context.Context) error {
	w.mutex.Lock()
	if w.running {
		w.mutex.Unlock()
		return errors.New("watcher already running")
	}
	w.running = true
	w.mutex.Unlock()

	defer func() {
		w.mutex.Lock()
		w.running = false
		w.mutex.Unlock()
		if err := w.fsWatcher.Close(); err != nil {
			log.LogWithFields(log.F("error", err)).Error("Error closing fsnotify watcher")
		}
		log.Info("Watcher stopped.")
	}()

	log.LogWithFields(log.F("vault", w.store.Dir())).Info("Watcher started.")
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			log.LogWithFields(log.F("error", err)).Error("fsnotify watcher error")

		case <-ctx.Done():
			return nil
		}
	}
}

// Close stops a watcher that was never run.
func (w *Watcher) Close() error {
	return w.fsWatcher.Close()
}

func (w *Watcher) handle(event fsnotify.Event) {
	renamed := w.lastRenamed
	w.lastRenamed = pendingRename{}

	switch {
	case event.Op.Has(fsnotify.Rename), event.Op.Has(fsnotify.Remove):
		w.removeDirectory(event.Name)
		if event.Op.Has(fsnotify.Rename) {
			w.lastRenamed = pendingRename{path: event.Name, at: time.Now()}
		}

	case event.Op.Has(fsnotify.Create):
		var oldAbs string
		if renamed.path != "" && time.Since(renamed.at) <= renamePairWindow {
			oldAbs = renamed.path
		}

		rel, err := w.store.Rel(event.Name)
		if err != nil {
			return
		}
		item, err := w.store.Get(rel)
		if err != nil {
			// Gone again before we looked, or a symlink.
			if !errors.IsFileNotFound(err) {
				log.LogWithError(err).Warn("Error reading created item")
			}
			return
		}

		ev := vault.Event{Op: vault.Created, Item: item}
		if oldAbs != "" {
			if oldRel, err := w.store.Rel(oldAbs); err == nil {
				ev = vault.Event{Op: vault.Renamed, Item: item, OldPath: oldRel}
			}
		}

		if item.IsFolder() {
			if err := w.addTree(event.Name); err != nil {
				log.LogWithError(err).Warn("Could not watch new folder")
			}
		}
		w.Emit(ev)

		// Items inside a folder moved in from elsewhere produce no events
		// of their own.
		if item.IsFolder() && ev.Op == vault.Created {
			w.emitContents(rel)
		}
	}
}

func (w *Watcher) emitContents(folder string) {
	tree, err := w.store.Tree(folder)
	if err != nil {
		return
	}
	for _, child := range tree.Children {
		child.Walk(func(n *types.Item) {
			w.Emit(vault.Event{Op: vault.Created, Item: n})
		})
	}
}
