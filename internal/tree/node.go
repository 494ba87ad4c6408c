package tree

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"mtfs/internal/hash"
)

// Kind distinguishes file and directory nodes. Immutable after construction.
type Kind int

const (
	File Kind = iota
	Directory
)

func (k Kind) String() string {
	if k == File {
		return "file"
	}
	return "directory"
}

// ErrStructuralViolation marks a programming error in tree construction,
// like attaching a child to a file node. Unreachable with correct build
// logic.
var ErrStructuralViolation = errors.New("structural violation")

// Node is one filesystem entry in the Merkle tree. A directory exclusively
// owns its children; the content index and any other registry hold
// non-owning pointers into this structure.
type Node struct {
	Name        string           `json:"name"`
	Kind        Kind             `json:"kind"`
	Hash        string           `json:"hash"`
	ContentHash string           `json:"content_hash,omitempty"`
	ChunkHashes []string         `json:"chunk_hashes,omitempty"`
	ChunkRoot   string           `json:"chunk_root,omitempty"`
	Fingerprint uint64           `json:"fingerprint,omitempty"`
	Size        int64            `json:"size,omitempty"`
	Children    map[string]*Node `json:"children,omitempty"`

	depth      int
	depthValid bool
}

func NewNode(name string, kind Kind) *Node {
	n := &Node{Name: name, Kind: kind}
	if kind == Directory {
		n.Children = make(map[string]*Node)
	}
	return n
}

// AddChild attaches child, keyed by its name. Filesystem names are unique
// within one directory, so a second child with the same name replaces the
// first.
func (n *Node) AddChild(child *Node) error {
	if n.Kind == File {
		return fmt.Errorf("%w: cannot attach child to file node %q", ErrStructuralViolation, n.Name)
	}
	if child == nil {
		return fmt.Errorf("%w: nil child attached to %q", ErrStructuralViolation, n.Name)
	}
	n.Children[child.Name] = child
	n.depthValid = false
	return nil
}

// ComputeHash recomputes and stores the hash of this node and every
// descendant. Idempotent. The composition rule is load-bearing: a file's
// hash is its content hash, an empty directory hashes its bare name, and a
// directory with children hashes "name:childHash;" pairs concatenated in
// name-sorted order, making the result independent of filesystem enumeration
// order.
func (n *Node) ComputeHash(h *hash.Hasher) string {
	switch {
	case n.Kind == File:
		n.Hash = n.ContentHash
	case len(n.Children) == 0:
		n.Hash = h.SumString(n.Name)
	default:
		var sb strings.Builder
		for _, name := range n.sortedChildNames() {
			sb.WriteString(name)
			sb.WriteString(":")
			sb.WriteString(n.Children[name].ComputeHash(h))
			sb.WriteString(";")
		}
		n.Hash = h.SumString(sb.String())
	}
	return n.Hash
}

func (n *Node) sortedChildNames() []string {
	names := make([]string, 0, len(n.Children))
	for name := range n.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Depth returns the height of the subtree below n (0 for a leaf). Memoized;
// the cached value is dropped whenever the child set changes.
func (n *Node) Depth() int {
	if n.depthValid {
		return n.depth
	}
	d := 0
	for _, child := range n.Children {
		if cd := child.Depth() + 1; cd > d {
			d = cd
		}
	}
	n.depth = d
	n.depthValid = true
	return d
}

func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// TotalSize returns the file size for a file and the recursive sum of
// descendant file sizes for a directory.
func (n *Node) TotalSize() int64 {
	if n.Kind == File {
		return n.Size
	}
	var total int64
	for _, child := range n.Children {
		total += child.TotalSize()
	}
	return total
}

// FileCount returns the number of files in the subtree rooted at n.
func (n *Node) FileCount() int {
	if n.Kind == File {
		return 1
	}
	count := 0
	for _, child := range n.Children {
		count += child.FileCount()
	}
	return count
}

func (n *Node) ChunkCount() int {
	return len(n.ChunkHashes)
}
