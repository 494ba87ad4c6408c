package compare

import (
	"strings"
	"testing"

	"github.com/spf13/afero"

	"mtfs/internal/tree"
)

func TestManifests_Classification(t *testing.T) {
	prev := map[string]tree.FileEntry{
		"unchanged.txt": {Hash: "h1", Size: 10},
		"modified.txt":  {Hash: "h2", Size: 20},
		"deleted.txt":   {Hash: "h3", Size: 30},
	}
	curr := map[string]tree.FileEntry{
		"unchanged.txt": {Hash: "h1", Size: 10},
		"modified.txt":  {Hash: "h2-changed", Size: 20},
		"added.txt":     {Hash: "h4", Size: 40},
	}

	result := Manifests(prev, curr)

	if !result.HasChanges() {
		t.Fatal("changes expected")
	}
	if len(result.Added) != 1 || result.Added[0].Path != "added.txt" {
		t.Errorf("unexpected added set: %+v", result.Added)
	}
	if len(result.Modified) != 1 || result.Modified[0].Path != "modified.txt" {
		t.Errorf("unexpected modified set: %+v", result.Modified)
	}
	if len(result.Deleted) != 1 || result.Deleted[0].Path != "deleted.txt" {
		t.Errorf("unexpected deleted set: %+v", result.Deleted)
	}
}

func TestManifests_NoChanges(t *testing.T) {
	entries := map[string]tree.FileEntry{
		"a.txt": {Hash: "h1", Size: 1, Fingerprint: 7},
	}

	result := Manifests(entries, entries)
	if result.HasChanges() {
		t.Errorf("identical manifests should report no changes, got %+v", result)
	}
	if FormatReport(result) != "No changes detected." {
		t.Error("unexpected no-change report")
	}
}

func TestManifests_SizeAndFingerprintShortCircuit(t *testing.T) {
	prev := map[string]tree.FileEntry{
		"grew.txt":      {Hash: "same", Size: 5},
		"rewritten.txt": {Hash: "a", Size: 5, Fingerprint: 1},
	}
	curr := map[string]tree.FileEntry{
		"grew.txt":      {Hash: "same", Size: 6},
		"rewritten.txt": {Hash: "b", Size: 5, Fingerprint: 2},
	}

	result := Manifests(prev, curr)
	if len(result.Modified) != 2 {
		t.Errorf("expected 2 modified entries, got %+v", result.Modified)
	}
}

func TestManifests_SortedOutput(t *testing.T) {
	curr := map[string]tree.FileEntry{
		"c.txt": {Hash: "h3"},
		"a.txt": {Hash: "h1"},
		"b.txt": {Hash: "h2"},
	}

	result := Manifests(map[string]tree.FileEntry{}, curr)
	if len(result.Added) != 3 {
		t.Fatalf("expected 3 added entries, got %d", len(result.Added))
	}
	for i, want := range []string{"a.txt", "b.txt", "c.txt"} {
		if result.Added[i].Path != want {
			t.Errorf("added[%d] = %s, want %s", i, result.Added[i].Path, want)
		}
	}
}

func TestTrees(t *testing.T) {
	buildTree := func(content string) *tree.Tree {
		fsys := afero.NewMemMapFs()
		if err := afero.WriteFile(fsys, "/data/a.txt", []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
		tr, err := tree.New(tree.Options{Fs: fsys})
		if err != nil {
			t.Fatalf("tree.New failed: %v", err)
		}
		if _, err := tr.Build("/data"); err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		return tr
	}

	prev := buildTree("before")
	curr := buildTree("after!")

	result := Trees(prev, curr)
	if len(result.Modified) != 1 || result.Modified[0].Path != "a.txt" {
		t.Errorf("expected a.txt modified, got %+v", result)
	}

	report := FormatReport(result)
	if !strings.Contains(report, "MODIFIED (1 files)") || !strings.Contains(report, "a.txt") {
		t.Errorf("unexpected report:\n%s", report)
	}
}
