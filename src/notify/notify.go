// Package notify reports file-system changes below a directory tree.
package notify

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"auto-backup/src/target"
)

// Event is a change somewhere in the watched tree.
type Event struct {
	Path string
	Op   fsnotify.Op
}

// Options configures a Watcher.
type Options struct {
	// Ignore lists absolute paths whose subtrees produce no events. Paths that
	// contain the watched root are dropped.
	Ignore []string
	Log    logrus.FieldLogger
}

// Watcher watches a directory tree recursively. fsnotify only watches single
// directories, so every subdirectory is registered, including ones created later.
type Watcher struct {
	fsw    *fsnotify.Watcher
	root   string
	ignore []string
	log    logrus.FieldLogger
}

// New creates a Watcher for root and all of its subdirectories.
func New(root string, opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	w := &Watcher{
		fsw:  fsw,
		root: filepath.Clean(root),
		log:  log,
	}
	for _, ig := range opts.Ignore {
		// A prefix at or above the root would silence the whole tree.
		if target.Within(ig, w.root) {
			continue
		}
		w.ignore = append(w.ignore, ig)
	}
	if err := w.addTree(w.root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run forwards changes to onEvent until ctx is cancelled or the watcher is closed.
// onEvent is called on the Run goroutine and must not block.
func (w *Watcher) Run(ctx context.Context, onEvent func(Event)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev, onEvent)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("file watcher error")
		}
	}
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) handle(ev fsnotify.Event, onEvent func(Event)) {
	// Only react to meaningful operations.
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if w.ignored(ev.Name) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if info, err := os.Lstat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				w.log.WithFields(logrus.Fields{"path": ev.Name, "err": err}).Warn("cannot watch new directory")
			}
			// A new empty directory is not a change on its own; one that arrived
			// with content (moved in, copied) may have no file events of its own.
			if empty, _ := isEmptyDir(ev.Name); empty {
				return
			}
		}
	}
	w.log.WithFields(logrus.Fields{"path": ev.Name, "op": ev.Op.String()}).Debug("change detected")
	onEvent(Event{Path: ev.Name, Op: ev.Op})
}

// addTree registers dir and every directory below it. Only a failure on dir
// itself is returned; unreadable subdirectories are logged and skipped.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			w.log.WithFields(logrus.Fields{"path": path, "err": err}).Warn("cannot watch directory")
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			if path == dir {
				return err
			}
			w.log.WithFields(logrus.Fields{"path": path, "err": err}).Warn("cannot watch directory")
		}
		return nil
	})
}

func (w *Watcher) ignored(path string) bool {
	for _, ig := range w.ignore {
		if target.Within(ig, path) {
			return true
		}
	}
	return false
}

func isEmptyDir(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	names, err := f.Readdirnames(1)
	if len(names) > 0 {
		return false, nil
	}
	return err != nil, nil
}
