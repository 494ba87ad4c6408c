// Package hash provides the digest engine for the Merkle tree: a fixed
// cryptographic algorithm per tree producing hex-encoded digests, plus fast
// non-cryptographic fingerprints for duplicate-candidate detection.
package hash

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	stdhash "hash"
	"io"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"
)

// Algorithm names a supported cryptographic digest. The algorithm must stay
// fixed for the lifetime of a tree: re-verification compares literal hex
// strings.
type Algorithm string

const (
	SHA256     Algorithm = "sha256"
	SHA512     Algorithm = "sha512"
	BLAKE2b256 Algorithm = "blake2b256"

	Default = SHA256
)

// Hasher produces hex-encoded digests with a fixed algorithm. Stateless and
// safe for concurrent use.
type Hasher struct {
	algo Algorithm
}

func New(algo Algorithm) (*Hasher, error) {
	switch algo {
	case SHA256, SHA512, BLAKE2b256:
		return &Hasher{algo: algo}, nil
	default:
		return nil, fmt.Errorf("unknown digest algorithm %q", algo)
	}
}

func (h *Hasher) Algorithm() Algorithm {
	return h.algo
}

// NewDigest returns a fresh streaming digest state.
func (h *Hasher) NewDigest() stdhash.Hash {
	switch h.algo {
	case SHA512:
		return sha512.New()
	case BLAKE2b256:
		d, _ := blake2b.New256(nil)
		return d
	default:
		return sha256.New()
	}
}

// Sum returns the hex-encoded digest of data.
func (h *Hasher) Sum(data []byte) string {
	d := h.NewDigest()
	d.Write(data)
	return hex.EncodeToString(d.Sum(nil))
}

// SumString is Sum over the raw bytes of s.
func (h *Hasher) SumString(s string) string {
	return h.Sum([]byte(s))
}

// SumReader streams r through the digest.
func (h *Hasher) SumReader(r io.Reader) (string, error) {
	d := h.NewDigest()
	if _, err := io.Copy(d, r); err != nil {
		return "", fmt.Errorf("failed to read content: %w", err)
	}
	return hex.EncodeToString(d.Sum(nil)), nil
}

// HashFunc is a hash function adapter for go-merkletree. It converts []byte
// input to the hasher's raw []byte digest.
func (h *Hasher) HashFunc() func(data []byte) ([]byte, error) {
	return func(data []byte) ([]byte, error) {
		d := h.NewDigest()
		d.Write(data)
		return d.Sum(nil), nil
	}
}

// Fingerprint returns the xxHash64 of data. Cheap and non-cryptographic;
// never used for tree hashes, only for spotting duplicate candidates and
// short-circuiting comparisons.
func Fingerprint(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// NewFingerprint returns a streaming xxHash64 state.
func NewFingerprint() *xxhash.Digest {
	return xxhash.New()
}
