package cli_test

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

func mustMkdirAll(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir -p %s: %v", path, err)
	}
}

func mustWrite(t *testing.T, path, body string) {
	t.Helper()
	mustMkdirAll(t, filepath.Dir(path))
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// newWorld lays out a small source tree and an empty backup root.
func newWorld(t *testing.T) (src, root string) {
	t.Helper()
	base := t.TempDir()
	src = filepath.Join(base, "world")
	root = filepath.Join(base, "backups")
	mustWrite(t, filepath.Join(src, "level.dat"), "level")
	mustWrite(t, filepath.Join(src, "region", "r.0.0.mca"), "region")
	mustMkdirAll(t, root)
	return src, root
}

func entryNames(t *testing.T, root string) []string {
	t.Helper()
	items, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("read %s: %v", root, err)
	}
	var names []string
	for _, it := range items {
		if it.Name() == "backup_log.txt" {
			continue
		}
		names = append(names, it.Name())
	}
	sort.Strings(names)
	return names
}

// backupNames returns only the backup entries, for roots shared with other files.
func backupNames(t *testing.T, root string) []string {
	t.Helper()
	var names []string
	for _, name := range entryNames(t, root) {
		if strings.HasPrefix(name, "backup_") {
			names = append(names, name)
		}
	}
	return names
}
