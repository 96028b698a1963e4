package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"auto-backup/src/util/progress"
)

// openSource opens a source file for reading.
var openSource = func(path string) (io.ReadCloser, error) { return os.Open(path) }

// walker walks the source tree for one backup and keeps its counters.
type walker struct {
	src     string
	log     logrus.FieldLogger
	counter *progress.Counter

	files   int
	dirs    int
	skipped int
}

// visit handles the error half of a WalkDir callback. It returns done=true when
// the callback should return err as-is.
func (w *walker) visit(ctx context.Context, path string, d fs.DirEntry, walkErr error) (done bool, err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return true, ctxErr
	}
	if walkErr == nil {
		return false, nil
	}
	if path == w.src {
		return true, walkErr
	}
	w.skip(path, walkErr)
	if d != nil && d.IsDir() {
		return true, filepath.SkipDir
	}
	return true, nil
}

func (w *walker) skip(path string, err error) {
	w.skipped++
	if errors.Is(err, fs.ErrNotExist) {
		w.log.WithField("path", path).Debug("skipping vanished path")
		return
	}
	w.log.WithFields(logrus.Fields{"path": path, "err": err}).Warn("skipping unreadable path")
}

// copyTree recreates the source tree under dest: directories, regular files with
// their permission bits and modification times, and symlinks as links.
func (w *walker) copyTree(ctx context.Context, dest string) error {
	return filepath.WalkDir(w.src, func(path string, d fs.DirEntry, walkErr error) error {
		if done, err := w.visit(ctx, path, d, walkErr); done {
			return err
		}

		rel, err := filepath.Rel(w.src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)

		switch {
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				w.skip(path, err)
				return nil
			}
			if err := os.Symlink(link, target); err != nil {
				w.skip(path, err)
				return nil
			}
			w.files++
		case d.IsDir():
			perm := fs.FileMode(0o755)
			if info, err := d.Info(); err == nil {
				perm = info.Mode().Perm() | 0o700
			}
			if err := os.MkdirAll(target, perm); err != nil {
				// the destination is unusable, not the source
				return fmt.Errorf("create directory %s: %w", target, err)
			}
			if rel != "." {
				w.dirs++
			}
		case d.Type().IsRegular():
			info, err := d.Info()
			if err != nil {
				w.skip(path, err)
				return nil
			}
			if err := w.copyFile(path, target, info); err != nil {
				var destErr *destinationError
				if errors.As(err, &destErr) {
					return destErr.err
				}
				w.skip(path, err)
				return nil
			}
			w.files++
		default:
			w.log.WithField("path", path).Debug("skipping special file")
		}
		return nil
	})
}

// destinationError marks failures writing the backup, which abort the whole run
// (for example a full disk), as opposed to failures reading a single source file.
type destinationError struct{ err error }

func (e *destinationError) Error() string { return e.err.Error() }

func (w *walker) copyFile(src, dest string, info fs.FileInfo) error {
	in, err := openSource(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return &destinationError{fmt.Errorf("create %s: %w", dest, err)}
	}
	r := &trackedReader{r: w.counter.Reader(in)}
	_, copyErr := io.Copy(out, r)
	closeErr := out.Close()
	if copyErr != nil {
		_ = os.Remove(dest)
		if r.err != nil {
			return fmt.Errorf("read %s: %w", src, r.err)
		}
		return &destinationError{fmt.Errorf("copy %s to %s: %w", src, dest, copyErr)}
	}
	if closeErr != nil {
		return &destinationError{fmt.Errorf("close %s: %w", dest, closeErr)}
	}
	_ = os.Chtimes(dest, info.ModTime(), info.ModTime())
	return nil
}

// trackedReader remembers a read failure so it can be told apart from a write failure.
type trackedReader struct {
	r   io.Reader
	err error
}

func (t *trackedReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF {
		t.err = err
	}
	return n, err
}
