package tree

import (
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
)

func TestExportJSON_EmptyTree(t *testing.T) {
	tr := newTestTree(t, afero.NewMemMapFs())

	out, err := tr.ExportJSON()
	if err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}
	if out != "{}" {
		t.Errorf("absent tree should serialize to an empty object, got %s", out)
	}
}

func TestExportJSON_Shape(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/data/a.txt", "hello")
	if err := fsys.MkdirAll("/data/empty", 0o755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}

	tr := newTestTree(t, fsys)
	if _, err := tr.Build("/data"); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	out, err := tr.ExportJSON()
	if err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}

	type exported struct {
		Type        string              `json:"type"`
		Hash        string              `json:"hash"`
		Size        *int64              `json:"size"`
		Chunks      *int                `json:"chunks"`
		ContentHash string              `json:"content_hash"`
		Children    map[string]exported `json:"children"`
	}
	var doc map[string]exported
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}

	root, ok := doc["data"]
	if !ok {
		t.Fatalf("export should be keyed by root name, got %v", doc)
	}
	if root.Type != "directory" || root.Hash != tr.Root().Hash {
		t.Errorf("unexpected root projection: %+v", root)
	}

	a, ok := root.Children["a.txt"]
	if !ok {
		t.Fatal("a.txt missing from export")
	}
	if a.Type != "file" || a.Size == nil || *a.Size != 5 || a.Chunks == nil || *a.Chunks != 1 {
		t.Errorf("unexpected file projection: %+v", a)
	}
	if a.ContentHash != tr.hasher.Sum([]byte("hello")) {
		t.Error("file projection missing content hash")
	}

	empty, ok := root.Children["empty"]
	if !ok {
		t.Fatal("empty/ missing from export")
	}
	if empty.Type != "directory" || len(empty.Children) != 0 {
		t.Errorf("unexpected empty directory projection: %+v", empty)
	}
}

func TestSnapshot_RoundTrip(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/data/a.txt", "alpha")
	writeFile(t, fsys, "/data/sub/b.txt", "beta")

	tr, err := New(Options{Fs: fsys, ChunkSize: 2048})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := tr.Build("/data"); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if err := tr.Save("/snapshots/data.json"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(fsys, "/snapshots/data.json")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Root().Hash != tr.Root().Hash {
		t.Error("root hash not preserved across save/load")
	}
	if loaded.ChunkSize() != 2048 {
		t.Errorf("chunk size not preserved, got %d", loaded.ChunkSize())
	}
	if loaded.Algorithm() != tr.Algorithm() {
		t.Error("algorithm not preserved")
	}
	if loaded.RootPath() != "/data" {
		t.Errorf("root path not preserved, got %s", loaded.RootPath())
	}

	got, want := loaded.Stats(), tr.Stats()
	if got != want {
		t.Errorf("stats mismatch after load: got %+v, want %+v", got, want)
	}

	if !loaded.Verify() {
		t.Error("a loaded snapshot should verify against its own hashes")
	}

	if loaded.LookupContent(tr.hasher.Sum([]byte("beta"))) == nil {
		t.Error("content index not rebuilt on load")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(afero.NewMemMapFs(), "/absent.json"); err == nil {
		t.Error("Load should fail for a missing snapshot")
	}
}
