// Package utils holds filesystem helpers shared by the commands.
package utils

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// FindSourceDirs returns every directory under root that holds a non-test
// Go file, sorted. Directories the go command ignores are skipped: names
// starting with "." or "_", testdata and vendor.
func FindSourceDirs(root string) ([]string, error) {
	seen := make(map[string]bool)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && IgnoredDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if IsSourceFile(path) {
			seen[filepath.Dir(path)] = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	dirs := make([]string, 0, len(seen))
	for dir := range seen {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs, nil
}

// IgnoredDir reports whether the go command skips a directory with this
// name when expanding "./...".
func IgnoredDir(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") ||
		name == "testdata" || name == "vendor"
}

// IsSourceFile reports whether path names a non-test Go file.
func IsSourceFile(path string) bool {
	base := filepath.Base(path)
	return filepath.Ext(base) == ".go" && !strings.HasSuffix(base, "_test.go") &&
		!strings.HasPrefix(base, ".") && !strings.HasPrefix(base, "_")
}
