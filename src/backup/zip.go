package backup

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// zipTree writes every regular file of the source tree into a single archive at
// dest, stored under its slash-separated relative path. Directories get their own
// entries so empty ones survive extraction.
func (w *walker) zipTree(ctx context.Context, dest string) (err error) {
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create archive %s: %w", dest, err)
	}
	zw := zip.NewWriter(f)
	defer func() {
		if cerr := zw.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("finish archive %s: %w", dest, cerr)
		}
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close archive %s: %w", dest, cerr)
		}
	}()

	return filepath.WalkDir(w.src, func(path string, d fs.DirEntry, walkErr error) error {
		if done, err := w.visit(ctx, path, d, walkErr); done {
			return err
		}
		rel, err := filepath.Rel(w.src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		name := filepath.ToSlash(rel)

		if d.IsDir() {
			info, err := d.Info()
			if err != nil {
				w.skip(path, err)
				return filepath.SkipDir
			}
			hdr, err := zip.FileInfoHeader(info)
			if err != nil {
				return err
			}
			hdr.Name = name + "/"
			hdr.Method = zip.Store
			if _, err := zw.CreateHeader(hdr); err != nil {
				return fmt.Errorf("add %s: %w", name, err)
			}
			w.dirs++
			return nil
		}

		// Symlinked files are archived with their content, like a plain read would.
		info, err := os.Stat(path)
		if err != nil {
			w.skip(path, err)
			return nil
		}
		if !info.Mode().IsRegular() {
			w.log.WithField("path", path).Debug("skipping special file")
			return nil
		}
		return w.addFile(zw, path, name, info)
	})
}

// addFile streams one file into the archive. Read failures are skipped like in
// folder mode; the member already started stays in the archive truncated.
func (w *walker) addFile(zw *zip.Writer, path, name string, info fs.FileInfo) error {
	// Open before writing the header so a vanished file leaves no empty entry.
	in, err := openSource(path)
	if err != nil {
		w.skip(path, err)
		return nil
	}
	defer in.Close()

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	out, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	r := &trackedReader{r: w.counter.Reader(in)}
	if _, err := io.Copy(out, r); err != nil {
		if r.err != nil {
			w.skip(path, fmt.Errorf("read %s: %w", path, r.err))
			return nil
		}
		return fmt.Errorf("write %s: %w", name, err)
	}
	w.files++
	return nil
}
