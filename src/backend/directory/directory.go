package directory

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"auto-backup/src/backend"
)

// ErrOutsideRoot is returned when asked to remove something that is not a direct
// child of the backup root.
var ErrOutsideRoot = errors.New("path is not an entry of the backup root")

// Backend implements backend.StorageBackend for a flat backup root:
//
//	<root>/backup_<stamp>/      folder entries
//	<root>/backup_<stamp>.zip   zip entries
//
// The directory listing is the only index.
type Backend struct {
	Root string // absolute directory path
}

func New(root string) (*Backend, error) {
	if root == "" {
		return nil, errors.New("backup root must not be empty")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat backup root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("backup root is not a directory: %s", root)
	}
	return &Backend{Root: filepath.Clean(root)}, nil
}

// List returns every backup entry directly under the root, oldest first.
func (b *Backend) List() ([]backend.Entry, error) {
	dirEntries, err := os.ReadDir(b.Root)
	if err != nil {
		return nil, fmt.Errorf("read backup root: %w", err)
	}
	entries := make([]backend.Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		// skip hidden
		if strings.HasPrefix(name, ".") {
			continue
		}
		isDir := de.IsDir()
		if !isDir && !de.Type().IsRegular() {
			continue
		}
		stamp, kind, ok := backend.ParseName(name, isDir)
		if !ok {
			continue
		}
		info, err := de.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		e := backend.Entry{
			Name:    name,
			Stamp:   stamp,
			Kind:    kind,
			Path:    filepath.Join(b.Root, name),
			ModTime: info.ModTime(),
		}
		if kind == backend.KindZip {
			e.Size = info.Size()
		}
		entries = append(entries, e)
	}
	backend.SortByStamp(entries)
	return entries, nil
}

// Remove deletes a folder entry recursively or a zip entry as a file.
func (b *Backend) Remove(e backend.Entry) error {
	clean := filepath.Clean(e.Path)
	if filepath.Dir(clean) != b.Root || clean == b.Root {
		return fmt.Errorf("%w: %s", ErrOutsideRoot, e.Path)
	}
	info, err := os.Lstat(clean)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return os.RemoveAll(clean)
	}
	return os.Remove(clean)
}
