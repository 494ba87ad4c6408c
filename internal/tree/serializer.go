package tree

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/afero"

	"mtfs/internal/hash"
)

// nodeExport is the structural projection emitted by ExportJSON. Children
// are keyed by name; encoding/json emits map keys sorted, which matches the
// hash composition order.
type nodeExport struct {
	Type        string                 `json:"type"`
	Hash        string                 `json:"hash"`
	Size        *int64                 `json:"size,omitempty"`
	Chunks      *int                   `json:"chunks,omitempty"`
	ContentHash string                 `json:"content_hash,omitempty"`
	ChunkRoot   string                 `json:"chunk_root,omitempty"`
	Children    map[string]*nodeExport `json:"children,omitempty"`
}

func exportNode(n *Node) *nodeExport {
	e := &nodeExport{Type: n.Kind.String(), Hash: n.Hash}
	if n.Kind == File {
		size, chunks := n.Size, len(n.ChunkHashes)
		e.Size = &size
		e.Chunks = &chunks
		e.ContentHash = n.ContentHash
		e.ChunkRoot = n.ChunkRoot
		return e
	}
	if len(n.Children) > 0 {
		e.Children = make(map[string]*nodeExport, len(n.Children))
		for name, child := range n.Children {
			e.Children[name] = exportNode(child)
		}
	}
	return e
}

// ExportJSON renders the structural projection of the tree for external
// consumption. An absent tree serializes to an empty object. The projection
// is one-way; the core never re-parses it.
func (t *Tree) ExportJSON() (string, error) {
	if t.root == nil {
		return "{}", nil
	}
	data, err := json.MarshalIndent(map[string]*nodeExport{t.root.Name: exportNode(t.root)}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal tree: %w", err)
	}
	return string(data), nil
}

// Snapshot is the on-disk form of a built tree, used by the compare command
// to diff a directory against an earlier build.
type Snapshot struct {
	Generator string    `json:"generator"`
	Version   string    `json:"version"`
	Created   time.Time `json:"created"`
	RootPath  string    `json:"root_path"`
	Algorithm string    `json:"algorithm"`
	ChunkSize int64     `json:"chunk_size"`
	Tree      *Node     `json:"tree"`
}

const (
	snapshotGenerator = "mtfs"
	snapshotVersion   = "1.0"
)

// Save writes the built tree as a JSON snapshot.
func (t *Tree) Save(path string) error {
	snap := Snapshot{
		Generator: snapshotGenerator,
		Version:   snapshotVersion,
		Created:   time.Now(),
		RootPath:  t.rootPath,
		Algorithm: string(t.hasher.Algorithm()),
		ChunkSize: t.chunkSize,
		Tree:      t.root,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := afero.WriteFile(t.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// Load reads a snapshot back into a Tree, rebuilding the content index from
// the loaded nodes. fsys nil means the OS filesystem.
func Load(fsys afero.Fs, path string) (*Tree, error) {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	algo := hash.Algorithm(snap.Algorithm)
	if snap.Algorithm == "" {
		algo = hash.Default
	}
	hasher, err := hash.New(algo)
	if err != nil {
		return nil, fmt.Errorf("snapshot uses %w", err)
	}

	t, err := New(Options{Fs: fsys, Hasher: hasher, ChunkSize: snap.ChunkSize})
	if err != nil {
		return nil, err
	}
	t.root = snap.Tree
	t.rootPath = snap.RootPath
	indexFiles(t.root, t.contentIndex)
	return t, nil
}

func indexFiles(n *Node, index map[string]*Node) {
	if n == nil {
		return
	}
	if n.Kind == File {
		index[n.ContentHash] = n
		return
	}
	for _, child := range n.Children {
		indexFiles(child, index)
	}
}
