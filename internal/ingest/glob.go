package ingest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Expand resolves each pattern to the files it names. Plain paths are
// returned as-is; patterns may use ** to match across directories.
// Results keep pattern order and are sorted within a pattern.
func Expand(patterns ...string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		var matches []string
		if !hasMeta(pattern) {
			matches = []string{pattern}
		} else {
			found, err := globFiles(pattern)
			if err != nil {
				return nil, err
			}
			if len(found) == 0 {
				return nil, fmt.Errorf("glob %s: no files matched", pattern)
			}
			matches = found
		}

		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out, nil
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

func globFiles(pattern string) ([]string, error) {
	base, rest := doublestar.SplitPattern(filepath.ToSlash(pattern))
	basePath := filepath.FromSlash(base)

	var matches []string
	fsys := os.DirFS(basePath)
	err := doublestar.GlobWalk(fsys, rest, func(path string, d fs.DirEntry) error {
		if !d.IsDir() {
			matches = append(matches, filepath.Join(basePath, filepath.FromSlash(path)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("glob: %w", err)
	}

	sort.Strings(matches)
	return matches, nil
}
