// Package compare diffs two built trees (typically a saved snapshot against
// a fresh build of the same directory) by their flattened file manifests.
package compare

import (
	"fmt"
	"sort"
	"strings"

	"mtfs/internal/tree"
)

type ChangeType string

const (
	Added    ChangeType = "ADDED"
	Modified ChangeType = "MODIFIED"
	Deleted  ChangeType = "DELETED"
)

type Change struct {
	Type ChangeType
	Path string
	Old  *tree.FileEntry
	New  *tree.FileEntry
}

type Result struct {
	Added    []Change
	Modified []Change
	Deleted  []Change
}

func (r *Result) HasChanges() bool {
	return len(r.Added) > 0 || len(r.Modified) > 0 || len(r.Deleted) > 0
}

// Trees diffs the file manifests of two trees.
func Trees(prev, curr *tree.Tree) *Result {
	return Manifests(prev.FileManifest(), curr.FileManifest())
}

// Manifests classifies every path as added, modified, deleted, or unchanged.
func Manifests(prev, curr map[string]tree.FileEntry) *Result {
	result := &Result{}

	for path, currEntry := range curr {
		if prevEntry, ok := prev[path]; ok {
			if modified(prevEntry, currEntry) {
				prevCopy, currCopy := prevEntry, currEntry
				result.Modified = append(result.Modified, Change{
					Type: Modified,
					Path: path,
					Old:  &prevCopy,
					New:  &currCopy,
				})
			}
		} else {
			currCopy := currEntry
			result.Added = append(result.Added, Change{Type: Added, Path: path, New: &currCopy})
		}
	}

	for path, prevEntry := range prev {
		if _, ok := curr[path]; !ok {
			prevCopy := prevEntry
			result.Deleted = append(result.Deleted, Change{Type: Deleted, Path: path, Old: &prevCopy})
		}
	}

	// Sort for deterministic output
	for _, changes := range [][]Change{result.Added, result.Modified, result.Deleted} {
		sort.Slice(changes, func(i, j int) bool {
			return changes[i].Path < changes[j].Path
		})
	}

	return result
}

// modified reports whether two manifest entries differ. Size and xxHash
// fingerprint are cheap mismatch checks; the content hash is authoritative.
func modified(prev, curr tree.FileEntry) bool {
	if prev.Size != curr.Size {
		return true
	}
	if prev.Fingerprint != 0 && curr.Fingerprint != 0 && prev.Fingerprint != curr.Fingerprint {
		return true
	}
	return prev.Hash != curr.Hash
}

func FormatReport(result *Result) string {
	if !result.HasChanges() {
		return "No changes detected."
	}

	var b strings.Builder
	b.WriteString("Changes detected:\n\n")

	if len(result.Added) > 0 {
		fmt.Fprintf(&b, "ADDED (%d files):\n", len(result.Added))
		for _, change := range result.Added {
			fmt.Fprintf(&b, "  + %s (hash: %s, size: %d bytes)\n",
				change.Path, change.New.Hash, change.New.Size)
		}
		b.WriteString("\n")
	}

	if len(result.Modified) > 0 {
		fmt.Fprintf(&b, "MODIFIED (%d files):\n", len(result.Modified))
		for _, change := range result.Modified {
			fmt.Fprintf(&b, "  ~ %s\n", change.Path)
			fmt.Fprintf(&b, "    Old: hash=%s, size=%d bytes\n", change.Old.Hash, change.Old.Size)
			fmt.Fprintf(&b, "    New: hash=%s, size=%d bytes\n", change.New.Hash, change.New.Size)
		}
		b.WriteString("\n")
	}

	if len(result.Deleted) > 0 {
		fmt.Fprintf(&b, "DELETED (%d files):\n", len(result.Deleted))
		for _, change := range result.Deleted {
			fmt.Fprintf(&b, "  - %s (hash: %s, size: %d bytes)\n",
				change.Path, change.Old.Hash, change.Old.Size)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Summary: %d added, %d modified, %d deleted\n",
		len(result.Added), len(result.Modified), len(result.Deleted))

	return b.String()
}
