// Package tree converts a directory tree into a content-addressed Merkle
// tree: every file is hashed (split into fixed-size chunks, each hashed
// independently), and every directory's hash derives deterministically from
// the sorted hashes of its children. The resulting structure supports
// integrity verification and lookup of files by content hash.
package tree

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/spf13/afero"

	"mtfs/internal/hash"
	"mtfs/internal/logging"
)

const (
	DefaultChunkSize int64 = 1 << 20
	MinChunkSize     int64 = 1 << 10
	MaxChunkSize     int64 = 100 << 20
)

var (
	ErrNotFound         = errors.New("path does not exist")
	ErrNotADirectory    = errors.New("path is not a directory")
	ErrInvalidChunkSize = errors.New("invalid chunk size")
)

// Options configures a Tree. The zero value is usable: OS filesystem,
// SHA-256, default chunk size, one worker per CPU.
type Options struct {
	Fs        afero.Fs
	Hasher    *hash.Hasher
	Logger    logging.Logger
	ChunkSize int64
	Workers   int
	Exclude   []string
	// OnEntry is invoked once per successfully processed filesystem entry
	// during a build, from multiple goroutines.
	OnEntry func(path string)
}

// Tree owns the root node and the content-addressed index built alongside
// it. Every build is a full re-walk; the previous tree and index are
// discarded wholesale.
type Tree struct {
	fs        afero.Fs
	hasher    *hash.Hasher
	log       logging.Logger
	chunkSize int64
	workers   int
	exclude   []string
	onEntry   func(path string)

	root     *Node
	rootPath string
	// contentIndex maps content hash to a file node sharing that hash.
	// Later files with an identical content hash overwrite the earlier
	// entry. Non-owning references into the node tree.
	contentIndex map[string]*Node
	warnings     []error
}

func New(opts Options) (*Tree, error) {
	t := &Tree{
		fs:           opts.Fs,
		hasher:       opts.Hasher,
		log:          opts.Logger,
		chunkSize:    DefaultChunkSize,
		workers:      opts.Workers,
		exclude:      opts.Exclude,
		onEntry:      opts.OnEntry,
		contentIndex: make(map[string]*Node),
	}
	if t.fs == nil {
		t.fs = afero.NewOsFs()
	}
	if t.hasher == nil {
		h, err := hash.New(hash.Default)
		if err != nil {
			return nil, err
		}
		t.hasher = h
	}
	if t.log == nil {
		t.log = logging.Noop()
	}
	if opts.ChunkSize != 0 {
		if err := t.SetChunkSize(opts.ChunkSize); err != nil {
			return nil, err
		}
	}
	if t.workers < 1 {
		t.workers = runtime.NumCPU()
	}
	return t, nil
}

// SetChunkSize changes the chunk size for subsequent builds. Out-of-range
// values are rejected and the previous value is retained.
func (t *Tree) SetChunkSize(size int64) error {
	if size < MinChunkSize || size > MaxChunkSize {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidChunkSize, size, MinChunkSize, MaxChunkSize)
	}
	t.chunkSize = size
	return nil
}

func (t *Tree) ChunkSize() int64 {
	return t.chunkSize
}

func (t *Tree) Algorithm() hash.Algorithm {
	return t.hasher.Algorithm()
}

// Root returns the root node of the last build, or nil before any build.
func (t *Tree) Root() *Node {
	return t.root
}

// RootPath returns the directory the last build walked.
func (t *Tree) RootPath() string {
	return t.rootPath
}

// Warnings returns the recoverable per-entry errors collected by the last
// build. A build that skipped entries still succeeds; callers needing
// all-or-nothing semantics must check this themselves.
func (t *Tree) Warnings() []error {
	return t.warnings
}

// LookupContent returns the file node indexed under contentHash, or nil.
// When several files share identical content the last one indexed wins.
func (t *Tree) LookupContent(contentHash string) *Node {
	return t.contentIndex[contentHash]
}

// FindNode returns the first node named name in an unspecified traversal
// order, or nil. Name-based, distinct from the content index.
func (t *Tree) FindNode(name string) *Node {
	if t.root == nil {
		return nil
	}
	return findRecursive(t.root, name)
}

func findRecursive(n *Node, name string) *Node {
	if n.Name == name {
		return n
	}
	for _, child := range n.Children {
		if found := findRecursive(child, name); found != nil {
			return found
		}
	}
	return nil
}

// Stats are the aggregate counts of the built tree.
type Stats struct {
	Files       int
	Directories int
	TotalSize   int64
	Depth       int
	RootHash    string
}

// Stats traverses the tree once and returns its aggregates. All zeros
// before any build.
func (t *Tree) Stats() Stats {
	var s Stats
	if t.root == nil {
		return s
	}
	statsRecursive(t.root, &s)
	s.Depth = t.root.Depth()
	s.RootHash = t.root.Hash
	return s
}

func statsRecursive(n *Node, s *Stats) {
	if n.Kind == File {
		s.Files++
		s.TotalSize += n.Size
		return
	}
	s.Directories++
	for _, child := range n.Children {
		statsRecursive(child, s)
	}
}

// FileEntry is one file in a flattened manifest.
type FileEntry struct {
	Hash        string
	Size        int64
	Fingerprint uint64
}

// FileManifest flattens the tree's files into a map keyed by slash-separated
// path relative to the root.
func (t *Tree) FileManifest() map[string]FileEntry {
	manifest := make(map[string]FileEntry)
	if t.root == nil {
		return manifest
	}
	var walk func(n *Node, prefix string)
	walk = func(n *Node, prefix string) {
		for name, child := range n.Children {
			rel := name
			if prefix != "" {
				rel = prefix + "/" + name
			}
			if child.Kind == File {
				manifest[rel] = FileEntry{
					Hash:        child.ContentHash,
					Size:        child.Size,
					Fingerprint: child.Fingerprint,
				}
			} else {
				walk(child, rel)
			}
		}
	}
	walk(t.root, "")
	return manifest
}
