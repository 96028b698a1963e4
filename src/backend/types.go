package backend

import (
	"sort"
	"strings"
	"time"
)

const (
	// Prefix starts the name of every backup entry.
	Prefix = "backup_"
	// ZipExt is the extension of zip-mode entries.
	ZipExt = ".zip"

	KindFolder = "folder"
	KindZip    = "zip"
)

// Entry is one backup snapshot under the backup root, either a folder or a zip archive.
type Entry struct {
	Name    string    `json:"name"`
	Stamp   string    `json:"stamp"` // Name without the .zip extension; the sort key
	Kind    string    `json:"kind"`  // folder|zip
	Path    string    `json:"path"`
	Size    int64     `json:"size,omitempty"` // zip entries only
	ModTime time.Time `json:"modTime"`
}

// StorageBackend lists and removes backup entries.
type StorageBackend interface {
	List() ([]Entry, error)
	Remove(e Entry) error
}

// ParseName splits an entry name into its stamp and kind. ok is false for names
// that are not backup entries.
func ParseName(name string, isDir bool) (stamp, kind string, ok bool) {
	if !strings.HasPrefix(name, Prefix) || len(name) == len(Prefix) {
		return "", "", false
	}
	if isDir {
		return name, KindFolder, true
	}
	if strings.HasSuffix(name, ZipExt) && len(name) > len(Prefix)+len(ZipExt) {
		return strings.TrimSuffix(name, ZipExt), KindZip, true
	}
	return "", "", false
}

// SortByStamp orders entries oldest first.
func SortByStamp(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Stamp != entries[j].Stamp {
			return entries[i].Stamp < entries[j].Stamp
		}
		return entries[i].Name < entries[j].Name
	})
}
