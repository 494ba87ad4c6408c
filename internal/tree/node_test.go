package tree

import (
	"errors"
	"testing"

	"mtfs/internal/hash"
)

func TestAddChild_ToFile(t *testing.T) {
	file := NewNode("a.txt", File)
	child := NewNode("b.txt", File)

	err := file.AddChild(child)
	if !errors.Is(err, ErrStructuralViolation) {
		t.Errorf("expected ErrStructuralViolation, got %v", err)
	}
}

func TestAddChild_Nil(t *testing.T) {
	dir := NewNode("dir", Directory)

	err := dir.AddChild(nil)
	if !errors.Is(err, ErrStructuralViolation) {
		t.Errorf("expected ErrStructuralViolation, got %v", err)
	}
}

func TestDepth(t *testing.T) {
	root := NewNode("root", Directory)
	mid := NewNode("mid", Directory)
	leaf := NewNode("leaf", File)

	if err := mid.AddChild(leaf); err != nil {
		t.Fatalf("AddChild failed: %v", err)
	}
	if err := root.AddChild(mid); err != nil {
		t.Fatalf("AddChild failed: %v", err)
	}

	if leaf.Depth() != 0 {
		t.Errorf("expected leaf depth 0, got %d", leaf.Depth())
	}
	if mid.Depth() != 1 {
		t.Errorf("expected mid depth 1, got %d", mid.Depth())
	}
	if root.Depth() != 2 {
		t.Errorf("expected root depth 2, got %d", root.Depth())
	}
}

func TestDepth_InvalidatedOnAddChild(t *testing.T) {
	dir := NewNode("dir", Directory)
	if dir.Depth() != 0 {
		t.Errorf("expected depth 0, got %d", dir.Depth())
	}

	// The memoized value is dropped when the child set changes.
	if err := dir.AddChild(NewNode("a.txt", File)); err != nil {
		t.Fatalf("AddChild failed: %v", err)
	}
	if dir.Depth() != 1 {
		t.Errorf("expected depth 1 after attaching a child, got %d", dir.Depth())
	}
}

func TestComputeHash_Idempotent(t *testing.T) {
	h, err := hash.New(hash.SHA256)
	if err != nil {
		t.Fatalf("hash.New failed: %v", err)
	}

	root := NewNode("root", Directory)
	file := NewNode("a.txt", File)
	file.ContentHash = h.Sum([]byte("content"))
	if err := root.AddChild(file); err != nil {
		t.Fatalf("AddChild failed: %v", err)
	}

	first := root.ComputeHash(h)
	second := root.ComputeHash(h)
	if first != second {
		t.Error("ComputeHash should be idempotent")
	}
	if want := h.SumString("a.txt:" + file.ContentHash + ";"); first != want {
		t.Errorf("composition mismatch: expected %s, got %s", want, first)
	}
}

func TestComputeHash_EmptyDirectoriesByName(t *testing.T) {
	h, _ := hash.New(hash.SHA256)

	a := NewNode("cache", Directory)
	b := NewNode("cache", Directory)
	c := NewNode("logs", Directory)

	if a.ComputeHash(h) != b.ComputeHash(h) {
		t.Error("same-named empty directories should hash identically")
	}
	if a.ComputeHash(h) == c.ComputeHash(h) {
		t.Error("differently-named empty directories should hash differently")
	}
}

func TestTotalSizeAndFileCount(t *testing.T) {
	root := NewNode("root", Directory)
	sub := NewNode("sub", Directory)

	f1 := NewNode("a", File)
	f1.Size = 100
	f2 := NewNode("b", File)
	f2.Size = 250

	if err := root.AddChild(f1); err != nil {
		t.Fatalf("AddChild failed: %v", err)
	}
	if err := root.AddChild(sub); err != nil {
		t.Fatalf("AddChild failed: %v", err)
	}
	if err := sub.AddChild(f2); err != nil {
		t.Fatalf("AddChild failed: %v", err)
	}

	if got := root.TotalSize(); got != 350 {
		t.Errorf("expected total size 350, got %d", got)
	}
	if got := root.FileCount(); got != 2 {
		t.Errorf("expected 2 files, got %d", got)
	}
	if got := f1.TotalSize(); got != 100 {
		t.Errorf("expected file size 100, got %d", got)
	}
	if !f1.IsLeaf() || root.IsLeaf() {
		t.Error("leaf detection wrong")
	}
}
