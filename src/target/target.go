package target

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Location is a resolved filesystem location for a source tree or a backup root.
// Accepted forms: dir:/mnt/backups, /mnt/backups, ./relative, ~/Saves
type Location struct {
	// Raw is the original input string.
	Raw string
	// Scheme is the backend scheme. Only "dir" is supported.
	Scheme string
	// Path is the cleaned absolute path.
	Path string
}

// SupportedSchemes lists the schemes the parser accepts.
var SupportedSchemes = map[string]struct{}{
	"dir": {},
}

// Parse resolves raw into a Location. Plain paths are treated as dir: targets
// and resolved against the working directory.
func Parse(raw string) (Location, error) {
	loc := Location{Raw: raw, Scheme: "dir"}
	s := strings.TrimSpace(raw)
	if s == "" {
		return loc, fmt.Errorf("path must not be empty")
	}

	if i := strings.Index(s, ":"); i > 0 && !isDriveLetter(i) && !strings.ContainsAny(s[:i], `/\.~`) {
		scheme := strings.ToLower(s[:i])
		if _, ok := SupportedSchemes[scheme]; !ok {
			return loc, fmt.Errorf("unsupported scheme %q in %q; expected a path or 'dir:/path'", scheme, raw)
		}
		s = strings.TrimSpace(s[i+1:])
		if s == "" {
			return loc, fmt.Errorf("directory path must not be empty in %q", raw)
		}
	}

	abs, err := filepath.Abs(ExpandHome(s))
	if err != nil {
		return loc, fmt.Errorf("resolve absolute path for %q: %w", raw, err)
	}
	loc.Path = filepath.Clean(abs)
	return loc, nil
}

// Resolve is Parse for callers that only need the path.
func Resolve(raw string) (string, error) {
	loc, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return loc.Path, nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

// Within reports whether child is parent or lies below it. Both paths must be absolute.
func Within(parent, child string) bool {
	rel, err := filepath.Rel(filepath.Clean(parent), filepath.Clean(child))
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// String returns the canonical dir: form.
func (l Location) String() string {
	if l.Path == "" {
		return l.Raw
	}
	return fmt.Sprintf("%s:%s", l.Scheme, l.Path)
}

// isDriveLetter treats "C:\..." as a Windows path rather than a scheme.
func isDriveLetter(colon int) bool {
	return runtime.GOOS == "windows" && colon == 1
}
