package directory_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"auto-backup/src/backend"
	dir "auto-backup/src/backend/directory"
)

func TestDirectory_List_FoldersAndZips(t *testing.T) {
	root := t.TempDir()

	mustMkdirAll(t, filepath.Join(root, "backup_20250102_020202"))
	mustWrite(t, filepath.Join(root, "backup_20250101_010101.zip"), "PK")
	mustWrite(t, filepath.Join(root, "backup_20250103_030303.zip"), "PK..")
	// not entries
	mustWrite(t, filepath.Join(root, "backup_log.txt"), "log")
	mustWrite(t, filepath.Join(root, "backup_20250104_040404"), "plain file without .zip")
	mustMkdirAll(t, filepath.Join(root, ".backup_hidden"))
	mustMkdirAll(t, filepath.Join(root, "manual-copy"))

	b, err := dir.New(root)
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	entries, err := b.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []struct{ name, kind string }{
		{"backup_20250101_010101.zip", backend.KindZip},
		{"backup_20250102_020202", backend.KindFolder},
		{"backup_20250103_030303.zip", backend.KindZip},
	}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d: %+v", len(entries), len(want), entries)
	}
	for i, w := range want {
		if entries[i].Name != w.name || entries[i].Kind != w.kind {
			t.Fatalf("entries[%d] = %s (%s), want %s (%s)", i, entries[i].Name, entries[i].Kind, w.name, w.kind)
		}
	}
	if entries[2].Size != 4 {
		t.Fatalf("zip size = %d, want 4", entries[2].Size)
	}
}

func TestDirectory_List_Empty(t *testing.T) {
	b, err := dir.New(t.TempDir())
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	entries, err := b.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("got %d entries, want 0", len(entries))
	}
}

func TestDirectory_New_Invalid(t *testing.T) {
	if _, err := dir.New(""); err == nil {
		t.Fatal("expected error for empty root")
	}
	if _, err := dir.New(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing root")
	}
	file := filepath.Join(t.TempDir(), "f")
	mustWrite(t, file, "x")
	if _, err := dir.New(file); err == nil {
		t.Fatal("expected error for file root")
	}
}

func TestDirectory_Remove(t *testing.T) {
	root := t.TempDir()
	mustMkdirAll(t, filepath.Join(root, "backup_1", "nested"))
	mustWrite(t, filepath.Join(root, "backup_1", "nested", "level.dat"), "data")
	mustWrite(t, filepath.Join(root, "backup_2.zip"), "PK")

	b, err := dir.New(root)
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	entries, err := b.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, e := range entries {
		if err := b.Remove(e); err != nil {
			t.Fatalf("remove %s: %v", e.Name, err)
		}
	}
	left, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 0 {
		t.Fatalf("expected empty root, found %d items", len(left))
	}

	// already gone is not an error
	if err := b.Remove(entries[0]); err != nil {
		t.Fatalf("second remove: %v", err)
	}
}

func TestDirectory_Remove_RefusesOutsideRoot(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	mustMkdirAll(t, filepath.Join(outside, "backup_1"))

	b, err := dir.New(root)
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	for _, p := range []string{
		filepath.Join(outside, "backup_1"),
		root,
		filepath.Join(root, "backup_1", "..", "..", filepath.Base(outside), "backup_1"),
	} {
		err := b.Remove(backend.Entry{Name: "backup_1", Path: p})
		if !errors.Is(err, dir.ErrOutsideRoot) {
			t.Fatalf("Remove(%s) error = %v, want ErrOutsideRoot", p, err)
		}
	}
	if _, err := os.Stat(filepath.Join(outside, "backup_1")); err != nil {
		t.Fatalf("outside entry must survive: %v", err)
	}
}

func mustMkdirAll(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir -p %s: %v", path, err)
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
