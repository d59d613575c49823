// Package determinism provides primitives for guaranteeing deterministic execution.
// Hashes, IDs and orderings used by the scan engine go through this package so that
// identical inputs always produce identical outputs.
package determinism

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
)

// StableID is a hash-based unique identifier that's deterministic
type StableID string

// IDGenerator generates stable, deterministic IDs
type IDGenerator struct {
	namespace string
}

// NewIDGenerator creates an ID generator with a namespace
func NewIDGenerator(namespace string) *IDGenerator {
	return &IDGenerator{namespace: namespace}
}

// Generate creates a stable ID from inputs
func (g *IDGenerator) Generate(parts ...string) StableID {
	h := sha256.New()
	h.Write([]byte(g.namespace))
	h.Write([]byte{0})
	for _, part := range parts {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return StableID(hex.EncodeToString(h.Sum(nil))[:16])
}

// ContentHash is a SHA-256 hash for content integrity
type ContentHash [32]byte

// Hex returns the hash as a hex string
func (h ContentHash) Hex() string {
	return hex.EncodeToString(h[:])
}

// Short returns the first 16 hex characters
func (h ContentHash) Short() string {
	return h.Hex()[:16]
}

// Hasher accumulates values into a content hash.
// Values are written with %v so NaN and Inf floats hash consistently.
type Hasher struct {
	w   io.Writer
	sum func() []byte
}

// NewHasher creates an empty hasher
func NewHasher() *Hasher {
	h := sha256.New()
	return &Hasher{w: h, sum: func() []byte { return h.Sum(nil) }}
}

// Add writes each value followed by a separator
func (h *Hasher) Add(values ...any) *Hasher {
	for _, v := range values {
		fmt.Fprintf(h.w, "%v", v)
		h.w.Write([]byte{0})
	}
	return h
}

// Sum returns the accumulated hash
func (h *Hasher) Sum() ContentHash {
	var out ContentHash
	copy(out[:], h.sum())
	return out
}

// SortSlice sorts a slice in a stable, deterministic manner
func SortSlice[T any](slice []T, less func(a, b T) bool) {
	sort.SliceStable(slice, func(i, j int) bool {
		return less(slice[i], slice[j])
	})
}

// SortedKeys returns the keys of m in ascending order
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i] < keys[j]
	})
	return keys
}

// Chunk partitions items into consecutive slices of at most size elements
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
	}
	var chunks [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
