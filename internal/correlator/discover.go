package correlator

import (
	"os"
	"path/filepath"
	"strings"
)

// Discover walks each folder depth-first and returns every directory
// holding a .git entry. A found root is not descended further, so
// repositories nested inside another repository are not reported.
// Symlinks, hidden directories and node_modules are skipped.
func Discover(folders []string) []string {
	var roots []string
	seen := make(map[string]bool)

	for _, folder := range folders {
		stack := []string{filepath.Clean(folder)}
		for len(stack) > 0 {
			dir := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if seen[dir] {
				continue
			}
			seen[dir] = true

			if isRoot(dir) {
				roots = append(roots, dir)
				continue
			}

			entries, err := os.ReadDir(dir)
			if err != nil {
				continue
			}
			// Push in reverse so siblings are visited in name order.
			for i := len(entries) - 1; i >= 0; i-- {
				entry := entries[i]
				if !entry.IsDir() || skipDir(entry.Name()) {
					continue
				}
				stack = append(stack, filepath.Join(dir, entry.Name()))
			}
		}
	}

	return roots
}

func isRoot(dir string) bool {
	_, err := os.Lstat(filepath.Join(dir, ".git"))
	return err == nil
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "node_modules"
}
