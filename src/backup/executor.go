package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"auto-backup/src/backend"
	dir "auto-backup/src/backend/directory"
	"auto-backup/src/config"
	"auto-backup/src/retention"
	"auto-backup/src/util/progress"
)

// StampLayout formats entry timestamps so that lexical order is chronological.
const StampLayout = "20060102_150405"

// maxSameSecond bounds the _NN suffixes tried for backups taken within one second.
const maxSameSecond = 99

// ErrSourceMissing means the watched tree is gone; no further backup is meaningful.
var ErrSourceMissing = errors.New("source path no longer exists")

// Result describes one completed backup.
type Result struct {
	Entry    backend.Entry
	Files    int
	Dirs     int
	Bytes    int64
	Skipped  int
	Removed  []backend.Entry
	Duration time.Duration
}

// Executor materializes snapshots of the source tree and applies retention after each one.
type Executor struct {
	cfg config.Config
	log logrus.FieldLogger
	now func() time.Time
}

type Option func(*Executor)

func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Executor) { e.log = log }
}

// WithClock replaces time.Now for entry naming.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

func NewExecutor(cfg config.Config, opts ...Option) *Executor {
	e := &Executor{cfg: cfg, log: logrus.StandardLogger(), now: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Run takes one backup and prunes old ones. Per-file problems are skipped and
// counted. A partially written entry is left in place when Run fails. The error
// wraps ErrSourceMissing when the source tree has disappeared.
func (e *Executor) Run(ctx context.Context) (Result, error) {
	started := time.Now()
	if err := e.checkSource(); err != nil {
		return Result{}, err
	}
	if err := os.MkdirAll(e.cfg.BackupRoot, 0o755); err != nil {
		return Result{}, fmt.Errorf("create backup root: %w", err)
	}

	stamp, err := e.nextStamp(e.now())
	if err != nil {
		return Result{}, err
	}

	counter := progress.NewCounter(5*time.Second, func(total int64) {
		e.log.WithFields(logrus.Fields{"entry": stamp, "bytes": total}).Debug("backup in progress")
	})
	src := e.cfg.SourcePath
	if resolved, err := filepath.EvalSymlinks(src); err == nil {
		src = resolved
	}
	w := &walker{src: src, log: e.log, counter: counter}

	entry := backend.Entry{Stamp: stamp}
	if e.cfg.UseZip {
		entry.Name = stamp + backend.ZipExt
		entry.Kind = backend.KindZip
		entry.Path = filepath.Join(e.cfg.BackupRoot, entry.Name)
		err = w.zipTree(ctx, entry.Path)
	} else {
		entry.Name = stamp
		entry.Kind = backend.KindFolder
		entry.Path = filepath.Join(e.cfg.BackupRoot, entry.Name)
		err = w.copyTree(ctx, entry.Path)
	}

	res := Result{
		Entry:   entry,
		Files:   w.files,
		Dirs:    w.dirs,
		Bytes:   counter.Total(),
		Skipped: w.skipped,
	}
	if err != nil {
		res.Duration = time.Since(started)
		if srcErr := e.checkSource(); srcErr != nil {
			return res, srcErr
		}
		return res, fmt.Errorf("backup %s: %w", entry.Name, err)
	}
	if info, err := os.Stat(entry.Path); err == nil {
		res.Entry.ModTime = info.ModTime()
		if entry.Kind == backend.KindZip {
			res.Entry.Size = info.Size()
		}
	}

	fields := logrus.Fields{"entry": entry.Name, "files": res.Files, "bytes": res.Bytes}
	if res.Skipped > 0 {
		fields["skipped"] = res.Skipped
	}
	if e.cfg.UseZip {
		e.log.WithFields(fields).Info("created zip backup")
	} else {
		e.log.WithFields(fields).Info("copied folder backup")
	}

	res.Removed = e.prune()
	res.Duration = time.Since(started)
	return res, nil
}

func (e *Executor) prune() []backend.Entry {
	if e.cfg.MaxBackups <= 0 {
		return nil
	}
	store, err := dir.New(e.cfg.BackupRoot)
	if err != nil {
		e.log.WithError(err).Warn("retention skipped")
		return nil
	}
	report, err := retention.Prune(store, e.cfg.MaxBackups, retention.Options{Log: e.log})
	if err != nil {
		e.log.WithError(err).Warn("retention skipped")
		return nil
	}
	return report.Removed
}

func (e *Executor) checkSource() error {
	info, err := os.Stat(e.cfg.SourcePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrSourceMissing, e.cfg.SourcePath)
		}
		return fmt.Errorf("stat source %s: %w", e.cfg.SourcePath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is no longer a directory", ErrSourceMissing, e.cfg.SourcePath)
	}
	return nil
}

// nextStamp returns backup_<stamp>, adding a _NN suffix when an entry for the same
// second already exists. backup_X sorts before backup_X_01, so order is kept.
func (e *Executor) nextStamp(t time.Time) (string, error) {
	base := backend.Prefix + t.Format(StampLayout)
	if !e.taken(base) {
		return base, nil
	}
	for i := 1; i <= maxSameSecond; i++ {
		candidate := fmt.Sprintf("%s_%02d", base, i)
		if !e.taken(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("too many backups named %s", base)
}

func (e *Executor) taken(stamp string) bool {
	for _, name := range []string{stamp, stamp + backend.ZipExt} {
		if _, err := os.Lstat(filepath.Join(e.cfg.BackupRoot, name)); err == nil || !errors.Is(err, os.ErrNotExist) {
			return true
		}
	}
	return false
}
