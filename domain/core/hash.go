package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"io"
)

// Hash represents a hex-encoded SHA-256 digest
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// HashReader digests everything r yields
func HashReader(r io.Reader) (Hash, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, err
	}
	return Hash(hex.EncodeToString(h.Sum(nil))), n, nil
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// Short returns the 12-character prefix used in human-facing output
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Fingerprint accumulates ordered parts into a single hash. Parts are length-prefixed so
// ("ab","c") and ("a","bc") differ.
type Fingerprint struct {
	h hash.Hash
}

// NewFingerprint starts an empty fingerprint
func NewFingerprint() *Fingerprint {
	return &Fingerprint{h: sha256.New()}
}

// Add appends parts in order
func (f *Fingerprint) Add(parts ...string) *Fingerprint {
	for _, p := range parts {
		var size [8]byte
		binary.LittleEndian.PutUint64(size[:], uint64(len(p)))
		_, _ = f.h.Write(size[:])
		_, _ = f.h.Write([]byte(p))
	}
	return f
}

// Sum returns the digest of everything added so far
func (f *Fingerprint) Sum() Hash {
	return Hash(hex.EncodeToString(f.h.Sum(nil)))
}
