// Package workspace supplies the host side of activity tracking when
// codepulse runs standalone: the workspace folder list and a file
// watcher that reports saves.
package workspace

import (
	"path/filepath"
	"sort"
	"strings"
)

// Folders is the set of workspace folders being tracked.
type Folders struct {
	paths []string // longest first
}

// NewFolders cleans and deduplicates paths.
func NewFolders(paths []string) *Folders {
	seen := make(map[string]bool, len(paths))
	var cleaned []string
	for _, p := range paths {
		if p == "" {
			continue
		}
		p = filepath.Clean(p)
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		cleaned = append(cleaned, p)
	}
	sort.Slice(cleaned, func(i, j int) bool {
		if len(cleaned[i]) != len(cleaned[j]) {
			return len(cleaned[i]) > len(cleaned[j])
		}
		return cleaned[i] < cleaned[j]
	})
	return &Folders{paths: cleaned}
}

// Paths returns the folders sorted by path.
func (f *Folders) Paths() []string {
	paths := append([]string(nil), f.paths...)
	sort.Strings(paths)
	return paths
}

// RootFor returns the innermost folder containing path.
func (f *Folders) RootFor(path string) (string, bool) {
	path = filepath.Clean(path)
	for _, folder := range f.paths {
		if path == folder || strings.HasPrefix(path, folder+string(filepath.Separator)) {
			return folder, true
		}
	}
	return "", false
}
