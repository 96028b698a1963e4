package backup_test

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"auto-backup/src/backend"
	"auto-backup/src/backup"
	"auto-backup/src/config"
)

var sampleTree = map[string]string{
	"level.dat":                "level-data",
	"region/r.0.0.mca":         strings.Repeat("chunk", 1000),
	"region/r.0.1.mca":         "",
	"players/a/inventory.dat":  "sword,shield",
	"config/server.properties": "motd=hello\n",
}

func TestRun_FolderRoundTrip(t *testing.T) {
	cfg := newConfig(t, false)
	writeTree(t, cfg.SourcePath, sampleTree)
	mustMkdirAll(t, filepath.Join(cfg.SourcePath, "empty"))

	exec := backup.NewExecutor(cfg, backup.WithLogger(nullLogger()), backup.WithClock(fixedClock("2024-03-01T12:00:00Z")))
	res, err := exec.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if res.Entry.Name != "backup_20240301_120000" || res.Entry.Kind != backend.KindFolder {
		t.Fatalf("entry = %+v, want folder backup_20240301_120000", res.Entry)
	}
	if res.Files != len(sampleTree) || res.Skipped != 0 {
		t.Fatalf("files=%d skipped=%d, want %d and 0", res.Files, res.Skipped, len(sampleTree))
	}
	var wantBytes int64
	for _, c := range sampleTree {
		wantBytes += int64(len(c))
	}
	if res.Bytes != wantBytes {
		t.Fatalf("bytes = %d, want %d", res.Bytes, wantBytes)
	}

	got := readTree(t, res.Entry.Path)
	assertTree(t, got, sampleTree)
	if info, err := os.Stat(filepath.Join(res.Entry.Path, "empty")); err != nil || !info.IsDir() {
		t.Fatalf("empty directory not copied: %v", err)
	}
}

func TestRun_ZipRoundTrip(t *testing.T) {
	cfg := newConfig(t, true)
	writeTree(t, cfg.SourcePath, sampleTree)
	mustMkdirAll(t, filepath.Join(cfg.SourcePath, "empty"))

	exec := backup.NewExecutor(cfg, backup.WithLogger(nullLogger()), backup.WithClock(fixedClock("2024-03-01T12:00:00Z")))
	res, err := exec.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.Entry.Name != "backup_20240301_120000.zip" || res.Entry.Kind != backend.KindZip {
		t.Fatalf("entry = %+v, want zip backup_20240301_120000.zip", res.Entry)
	}
	if res.Entry.Size == 0 {
		t.Fatal("expected archive size to be recorded")
	}

	zr, err := zip.OpenReader(res.Entry.Path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer zr.Close()

	got := map[string]string{}
	var sawEmptyDir bool
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			if f.Name == "empty/" {
				sawEmptyDir = true
			}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		got[f.Name] = string(data)
	}
	assertTree(t, got, sampleTree)
	if !sawEmptyDir {
		t.Fatal("expected a directory entry for the empty directory")
	}
}

func TestRun_RetentionKeepsNewest(t *testing.T) {
	for _, useZip := range []bool{false, true} {
		cfg := newConfig(t, useZip)
		cfg.MaxBackups = 3
		writeTree(t, cfg.SourcePath, map[string]string{"save.dat": "v"})

		base := mustParse(t, "2024-01-01T00:00:00Z")
		var i int
		clock := func() time.Time {
			i++
			return base.Add(time.Duration(i) * time.Minute)
		}
		exec := backup.NewExecutor(cfg, backup.WithLogger(nullLogger()), backup.WithClock(clock))

		var removed int
		for n := 0; n < 5; n++ {
			res, err := exec.Run(context.Background())
			if err != nil {
				t.Fatalf("Run %d returned error: %v", n, err)
			}
			removed += len(res.Removed)
		}
		if removed != 2 {
			t.Fatalf("zip=%v: removed %d entries, want 2", useZip, removed)
		}

		ext := ""
		if useZip {
			ext = ".zip"
		}
		assertDirNames(t, cfg.BackupRoot,
			"backup_20240101_000300"+ext,
			"backup_20240101_000400"+ext,
			"backup_20240101_000500"+ext,
		)
	}
}

func TestRun_SameSecondGetsSuffix(t *testing.T) {
	cfg := newConfig(t, false)
	cfg.MaxBackups = 0
	writeTree(t, cfg.SourcePath, map[string]string{"a": "1"})
	exec := backup.NewExecutor(cfg, backup.WithLogger(nullLogger()), backup.WithClock(fixedClock("2024-03-01T12:00:00Z")))

	var names []string
	for n := 0; n < 3; n++ {
		res, err := exec.Run(context.Background())
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
		names = append(names, res.Entry.Name)
	}
	want := []string{"backup_20240301_120000", "backup_20240301_120000_01", "backup_20240301_120000_02"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
	assertDirNames(t, cfg.BackupRoot, want...)
}

func TestRun_SourceMissing(t *testing.T) {
	cfg := newConfig(t, false)
	writeTree(t, cfg.SourcePath, map[string]string{"a": "1"})
	if err := os.RemoveAll(cfg.SourcePath); err != nil {
		t.Fatal(err)
	}

	exec := backup.NewExecutor(cfg, backup.WithLogger(nullLogger()))
	_, err := exec.Run(context.Background())
	if !errors.Is(err, backup.ErrSourceMissing) {
		t.Fatalf("Run error = %v, want ErrSourceMissing", err)
	}
	assertDirNames(t, cfg.BackupRoot)
}

func TestRun_SkipsUnreadableFiles(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	cfg := newConfig(t, false)
	writeTree(t, cfg.SourcePath, map[string]string{"ok.txt": "fine", "locked/secret.txt": "no"})
	locked := filepath.Join(cfg.SourcePath, "locked")
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	log, hook := logtest.NewNullLogger()
	exec := backup.NewExecutor(cfg, backup.WithLogger(log))
	res, err := exec.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.Skipped == 0 {
		t.Fatal("expected the unreadable directory to be skipped")
	}
	if _, err := os.Stat(filepath.Join(res.Entry.Path, "ok.txt")); err != nil {
		t.Fatalf("readable file missing from backup: %v", err)
	}
	if len(hook.AllEntries()) == 0 {
		t.Fatal("expected a warning to be logged")
	}
}

func TestRun_CopiesSymlinksAsLinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	cfg := newConfig(t, false)
	writeTree(t, cfg.SourcePath, map[string]string{"real.txt": "data"})
	if err := os.Symlink("real.txt", filepath.Join(cfg.SourcePath, "link.txt")); err != nil {
		t.Fatal(err)
	}

	exec := backup.NewExecutor(cfg, backup.WithLogger(nullLogger()))
	res, err := exec.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	link, err := os.Readlink(filepath.Join(res.Entry.Path, "link.txt"))
	if err != nil || link != "real.txt" {
		t.Fatalf("Readlink = %q, %v; want real.txt", link, err)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	cfg := newConfig(t, true)
	writeTree(t, cfg.SourcePath, sampleTree)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := backup.NewExecutor(cfg, backup.WithLogger(nullLogger()))
	if _, err := exec.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
}

func newConfig(t *testing.T, useZip bool) config.Config {
	t.Helper()
	parent := t.TempDir()
	cfg := config.Default()
	cfg.SourcePath = filepath.Join(parent, "world")
	cfg.BackupRoot = filepath.Join(parent, "backups")
	cfg.UseZip = useZip
	cfg.LogFile = config.LogFileDisabled
	mustMkdirAll(t, cfg.SourcePath)
	return cfg
}

func nullLogger() *logrus.Logger {
	log, _ := logtest.NewNullLogger()
	return log
}

func fixedClock(ts string) func() time.Time {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t.UTC() }
}

func mustParse(t *testing.T, ts string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		t.Fatal(err)
	}
	return v.UTC()
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		mustMkdirAll(t, filepath.Dir(p))
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
}

func readTree(t *testing.T, root string) map[string]string {
	t.Helper()
	got := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		got[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("read tree %s: %v", root, err)
	}
	return got
}

func assertTree(t *testing.T, got, want map[string]string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d files, want %d: %v", len(got), len(want), keys(got))
	}
	for name, content := range want {
		if g, ok := got[name]; !ok || g != content {
			t.Fatalf("file %s: got %q (present=%v), want %q", name, g, ok, content)
		}
	}
}

func assertDirNames(t *testing.T, root string, want ...string) {
	t.Helper()
	items, err := os.ReadDir(root)
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	var got []string
	for _, it := range items {
		got = append(got, it.Name())
	}
	if len(got) != len(want) {
		t.Fatalf("backup root holds %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("backup root holds %v, want %v", got, want)
		}
	}
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func mustMkdirAll(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir -p %s: %v", path, err)
	}
}
