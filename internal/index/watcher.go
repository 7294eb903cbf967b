package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/taskcollector/internal/checksum"
	"github.com/starford/taskcollector/internal/parser"
	"github.com/starford/taskcollector/internal/storage"
)

// Change kinds passed to EventCallback.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

// EventCallback is called after a watcher-driven index change.
type EventCallback func(kind, path string)

const reconcileDelay = 200 * time.Millisecond

// Watcher keeps the index in step with the vault while it runs.
type Watcher struct {
	db       TaskIndex
	store    storage.Provider
	scanner  parser.Scanner
	root     string
	logger   *slog.Logger
	onChange EventCallback
}

// NewWatcher creates a watcher for the vault at root. onChange may be nil.
func NewWatcher(db TaskIndex, store storage.Provider, scanner parser.Scanner, root string, logger *slog.Logger, onChange EventCallback) *Watcher {
	return &Watcher{
		db:       db,
		store:    store,
		scanner:  scanner,
		root:     root,
		logger:   logger,
		onChange: onChange,
	}
}

// Run processes file events until ctx is cancelled.
//
// Directories created at runtime are added to the watch list. A rename
// deletes the old path and schedules a debounced reconciliation that picks
// up whatever the new path turned out to be. Writes that leave a document's
// checksum unchanged do not fire the callback.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := addDirsRecursive(fw, w.root); err != nil {
		return err
	}
	w.logger.Info("watcher: started", slog.String("root", w.root))

	var (
		reconcileTimer *time.Timer
		reconcileCh    <-chan time.Time
	)
	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			w.logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			w.reconcile()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(fw, ev, scheduleReconcile)

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (w *Watcher) handle(fw *fsnotify.Watcher, ev fsnotify.Event, scheduleReconcile func()) {
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if hiddenDir(filepath.Base(ev.Name)) {
				return
			}
			if err := addDirsRecursive(fw, ev.Name); err != nil {
				w.logger.Warn("watcher: add new dir failed", slog.String("path", ev.Name), slog.String("error", err.Error()))
			} else {
				w.logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
			}
			w.indexDir(ev.Name)
			return
		}
	}

	if !storage.IsDocument(ev.Name) {
		return
	}
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		kind := KindUpdated
		if ev.Op&fsnotify.Create != 0 {
			kind = KindCreated
		}
		w.index(rel, kind)

	case ev.Op&fsnotify.Remove != 0:
		w.remove(rel)

	case ev.Op&fsnotify.Rename != 0:
		// fsnotify reports the old name only; the new one arrives as a
		// Create if it stays inside a watched directory.
		w.remove(rel)
		scheduleReconcile()
	}
}

// index re-indexes rel and fires the callback when its content changed.
func (w *Watcher) index(rel, kind string) {
	data, err := w.store.Read(rel)
	if err != nil {
		w.logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if w.unchanged(rel, data) {
		return
	}
	if err := IndexDocument(w.db, w.scanner, rel, data, time.Now()); err != nil {
		w.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
	w.notify(kind, rel)
}

func (w *Watcher) unchanged(rel string, data []byte) bool {
	cs, err := w.db.GetChecksum(rel)
	return err == nil && cs != "" && cs == checksum.Sum(data)
}

func (w *Watcher) remove(rel string) {
	if err := w.db.DeleteDocument(rel); err != nil {
		w.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: deleted", slog.String("path", rel))
	w.notify(KindDeleted, rel)
}

func (w *Watcher) notify(kind, rel string) {
	if w.onChange != nil {
		w.onChange(kind, rel)
	}
}

// reconcile removes index entries whose files are gone and indexes files
// that are missing or stale.
func (w *Watcher) reconcile() {
	checksums, err := w.db.AllChecksums()
	if err != nil {
		w.logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := w.store.List("")
	if err != nil {
		w.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			w.remove(p)
		}
	}
	for p, cs := range disk {
		if checksums[p] != cs {
			w.index(p, KindCreated)
		}
	}
}

// indexDir indexes the documents of a newly created directory.
func (w *Watcher) indexDir(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !storage.IsDocument(path) {
			return nil
		}
		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return nil
		}
		w.index(filepath.ToSlash(rel), KindCreated)
		return nil
	})
}

// addDirsRecursive watches root and its non-hidden subdirectories.
func addDirsRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && hiddenDir(d.Name()) {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}

func hiddenDir(name string) bool {
	return len(name) > 1 && strings.HasPrefix(name, ".")
}
