package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Supported checksum algorithms.
const (
	ChecksumSHA256  = "sha256"
	ChecksumBlake2b = "blake2b-256"
)

// NewHasher returns a fresh hash for the named algorithm.
func NewHasher(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case ChecksumSHA256:
		return sha256.New(), nil
	case ChecksumBlake2b:
		return blake2b.New256(nil)
	default:
		return nil, fmt.Errorf("unsupported checksum algorithm %q", algorithm)
	}
}

// FormatChecksum renders a digest as "<algorithm>:<hex>".
func FormatChecksum(algorithm string, sum []byte) string {
	return algorithm + ":" + hex.EncodeToString(sum)
}

// ParseChecksum splits a checksum produced by FormatChecksum.
func ParseChecksum(checksum string) (algorithm, digest string, err error) {
	algorithm, digest, ok := strings.Cut(checksum, ":")
	if !ok || algorithm == "" || digest == "" {
		return "", "", fmt.Errorf("malformed checksum %q", checksum)
	}
	return algorithm, digest, nil
}
