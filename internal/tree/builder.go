package tree

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	mt "github.com/txaty/go-merkletree"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"mtfs/internal/hash"
	"mtfs/internal/walker"
)

// Build walks directoryPath and replaces the tree wholesale: one node per
// filesystem entry, built bottom-up, with a single recursive hash pass over
// the finished structure. Unreadable entries are skipped with a warning; only
// the top-level path validation is fatal.
func (t *Tree) Build(directoryPath string) (*Node, error) {
	info, err := t.fs.Stat(directoryPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, directoryPath)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", directoryPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotADirectory, directoryPath)
	}

	// A fresh build discards all prior state.
	t.root = nil
	t.rootPath = directoryPath
	t.contentIndex = make(map[string]*Node)
	t.warnings = nil

	b := &builder{
		tree: t,
		sem:  semaphore.NewWeighted(int64(t.workers)),
	}
	root, err := b.buildDirectory(directoryPath)
	if err != nil {
		return nil, err
	}
	root.ComputeHash(t.hasher)

	t.root = root
	t.warnings = b.warnings.WrappedErrors()
	return root, nil
}

type builder struct {
	tree *Tree
	// sem bounds concurrent file reads across the whole build.
	sem *semaphore.Weighted

	mu       sync.Mutex // guards warnings and tree.contentIndex
	warnings *multierror.Error
}

func (b *builder) warn(path string, err error) {
	b.tree.log.Warningf("skipping %s: %v", path, err)
	b.mu.Lock()
	b.warnings = multierror.Append(b.warnings, fmt.Errorf("%s: %w", path, err))
	b.mu.Unlock()
}

// buildDirectory enumerates path and builds each child in its own goroutine.
// Subtree hashes depend only on their own children and the hash pass sorts
// by name, so concurrency cannot change the result. A child whose
// construction fails is skipped with a warning; a failure enumerating path
// itself aborts this subtree.
func (b *builder) buildDirectory(path string) (*Node, error) {
	entries, err := afero.ReadDir(b.tree.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", path, err)
	}

	node := NewNode(filepath.Base(path), Directory)

	var (
		g  errgroup.Group
		mu sync.Mutex // guards node.Children
	)
	for _, entry := range entries {
		entry := entry
		entryPath := filepath.Join(path, entry.Name())
		rel, err := filepath.Rel(b.tree.rootPath, entryPath)
		if err != nil {
			b.warn(entryPath, err)
			continue
		}
		if walker.Excluded(rel, b.tree.exclude) {
			continue
		}
		if !entry.IsDir() && !entry.Mode().IsRegular() {
			b.warn(entryPath, errors.New("unsupported entry type"))
			continue
		}
		g.Go(func() error {
			var (
				child    *Node
				childErr error
			)
			if entry.IsDir() {
				child, childErr = b.buildDirectory(entryPath)
			} else {
				child, childErr = b.buildFile(entryPath, entry)
			}
			if childErr != nil {
				b.warn(entryPath, childErr)
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			return node.AddChild(child)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if b.tree.onEntry != nil {
		b.tree.onEntry(path)
	}
	return node, nil
}

func (b *builder) buildFile(path string, info os.FileInfo) (*Node, error) {
	if err := b.sem.Acquire(context.Background(), 1); err != nil {
		return nil, err
	}
	defer b.sem.Release(1)

	node := NewNode(info.Name(), File)
	contentHash, size, chunkHashes, fingerprint, err := b.hashFileContent(path)
	if err != nil {
		return nil, err
	}
	node.ContentHash = contentHash
	node.Size = size
	node.ChunkHashes = chunkHashes
	node.Fingerprint = fingerprint

	if len(chunkHashes) > 1 {
		root, err := chunkMerkleRoot(chunkHashes, b.tree)
		if err != nil {
			return nil, fmt.Errorf("failed to build chunk merkle root: %w", err)
		}
		node.ChunkRoot = root
	}

	b.mu.Lock()
	b.tree.contentIndex[contentHash] = node // last one wins for identical content
	b.mu.Unlock()

	if b.tree.onEntry != nil {
		b.tree.onEntry(path)
	}
	return node, nil
}

// hashFileContent reads path once in chunk-size slices, hashing each chunk
// independently and streaming the whole content through the full digest and
// the fingerprint. A zero-length file yields the digest of empty input and
// no chunks; otherwise the chunk count is ceil(size/chunkSize) with a
// shorter final chunk.
func (b *builder) hashFileContent(path string) (string, int64, []string, uint64, error) {
	f, err := b.tree.fs.Open(path)
	if err != nil {
		return "", 0, nil, 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	var (
		content     = b.tree.hasher.NewDigest()
		fingerprint = hash.NewFingerprint()
		chunkHashes []string
		size        int64
	)
	buf := make([]byte, b.tree.chunkSize)
	for {
		n, err := io.ReadFull(f, buf)
		if n > 0 {
			chunk := buf[:n]
			content.Write(chunk)
			fingerprint.Write(chunk)
			chunkHashes = append(chunkHashes, b.tree.hasher.Sum(chunk))
			size += int64(n)
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return "", 0, nil, 0, fmt.Errorf("failed to read file: %w", err)
		}
	}

	return hex.EncodeToString(content.Sum(nil)), size, chunkHashes, fingerprint.Sum64(), nil
}

// chunkBlock lets raw chunk digests act as go-merkletree data blocks.
type chunkBlock []byte

func (c chunkBlock) Serialize() ([]byte, error) {
	return c, nil
}

// chunkMerkleRoot builds a classic binary Merkle tree over the chunk hashes
// of one file, giving sub-file granularity a single root. Only called with
// two or more chunks; go-merkletree rejects fewer.
func chunkMerkleRoot(chunkHashes []string, t *Tree) (string, error) {
	blocks := make([]mt.DataBlock, len(chunkHashes))
	for i, ch := range chunkHashes {
		raw, err := hex.DecodeString(ch)
		if err != nil {
			return "", fmt.Errorf("malformed chunk hash: %w", err)
		}
		blocks[i] = chunkBlock(raw)
	}
	mtree, err := mt.New(&mt.Config{HashFunc: t.hasher.HashFunc()}, blocks)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(mtree.Root), nil
}
