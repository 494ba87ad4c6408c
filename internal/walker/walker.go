// Package walker provides exclude-pattern matching and a cheap pre-scan of
// a directory tree, used for progress totals before a build.
package walker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

type ScanResult struct {
	Files       int
	Directories int
	Bytes       int64
	Errors      []error
}

// Entries returns the number of entries a build will visit.
func (r *ScanResult) Entries() int {
	return r.Files + r.Directories
}

// Scan counts files, directories and bytes under rootPath, honoring the
// exclude patterns. Unreadable entries are collected, not fatal, matching
// the build's skip policy.
func Scan(fsys afero.Fs, rootPath string, exclude []string) (*ScanResult, error) {
	result := &ScanResult{}

	err := afero.Walk(fsys, rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == rootPath {
				return err
			}
			result.Errors = append(result.Errors, err)
			return nil
		}

		rel, err := filepath.Rel(rootPath, path)
		if err != nil {
			result.Errors = append(result.Errors, err)
			return nil
		}
		if rel != "." && Excluded(rel, exclude) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			result.Directories++
		} else if info.Mode().IsRegular() {
			result.Files++
			result.Bytes += info.Size()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	return result, nil
}

// Excluded reports whether the relative path matches any exclude pattern.
// Patterns ending with "/" match any path segment (directory excludes);
// other patterns glob-match the base name, or the full relative path when
// they contain a separator.
func Excluded(relPath string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.HasSuffix(pattern, "/") {
			dirPattern := strings.TrimSuffix(pattern, "/")
			for _, part := range strings.Split(relPath, string(filepath.Separator)) {
				if matched, _ := filepath.Match(dirPattern, part); matched {
					return true
				}
				if part == dirPattern {
					return true
				}
			}
			continue
		}

		if matched, err := filepath.Match(pattern, filepath.Base(relPath)); err == nil && matched {
			return true
		}
		if strings.Contains(pattern, "/") {
			if matched, err := filepath.Match(pattern, relPath); err == nil && matched {
				return true
			}
		}
	}
	return false
}
