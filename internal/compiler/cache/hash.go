// Package cache provides the build-artifact cache. Compiled plans are keyed
// by a content hash of the plan document and the options that shaped the
// build, and stored in a pluggable backend (in-process LRU or redis).
package cache

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/blake2b"
)

// KeyVersion is mixed into every key so a change in the artifact layout
// never serves stale entries
const KeyVersion = "wpkgen/artifact/v1"

// Hasher computes content hashes for cache keys
type Hasher struct {
	key []byte
}

// NewHasher creates a hasher keyed with KeyVersion
func NewHasher() *Hasher {
	return &Hasher{key: []byte(KeyVersion)}
}

// HashFile computes a BLAKE2b-256 hash of the file contents
func (h *Hasher) HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	sum, err := blake2b.New256(h.key)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(sum, file); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(sum.Sum(nil)), nil
}

// HashContent computes a BLAKE2b-256 hash of content
func (h *Hasher) HashContent(content []byte) string {
	// New256 only fails for keys longer than 64 bytes
	sum, _ := blake2b.New256(h.key)
	sum.Write(content)
	return hex.EncodeToString(sum.Sum(nil))
}

// Key derives the cache key of a plan build. The fingerprint covers
// whatever besides the document changes the output, such as a
// base-controller override from the command line.
func (h *Hasher) Key(source []byte, fingerprint string) string {
	sum, _ := blake2b.New256(h.key)
	sum.Write([]byte(fingerprint))
	sum.Write([]byte{0})
	sum.Write(source)
	return hex.EncodeToString(sum.Sum(nil))
}
