package tree

import (
	"strings"

	"mtfs/internal/hash"
)

// Verify recomputes every hash in the tree and compares it against the
// value stored at build time. Recomputation goes into temporaries; stored
// hashes are never touched, so verification is repeatable and safe to
// observe. Returns false on the first mismatch. An absent root is vacuously
// valid.
func (t *Tree) Verify() bool {
	if t.root == nil {
		return true
	}
	return verifyNode(t.root, t.hasher)
}

func verifyNode(n *Node, h *hash.Hasher) bool {
	if recomputeHash(n, h) != n.Hash {
		return false
	}
	for _, child := range n.Children {
		if !verifyNode(child, h) {
			return false
		}
	}
	return true
}

// recomputeHash mirrors Node.ComputeHash without writing anything back.
func recomputeHash(n *Node, h *hash.Hasher) string {
	if n.Kind == File {
		return n.ContentHash
	}
	if len(n.Children) == 0 {
		return h.SumString(n.Name)
	}
	var sb strings.Builder
	for _, name := range n.sortedChildNames() {
		sb.WriteString(name)
		sb.WriteString(":")
		sb.WriteString(recomputeHash(n.Children[name], h))
		sb.WriteString(";")
	}
	return h.SumString(sb.String())
}
