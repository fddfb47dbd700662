package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

// DigestAlgorithm names the per-file integrity hash stored in an archive
type DigestAlgorithm string

const (
	DigestNone   DigestAlgorithm = "none"
	DigestBLAKE3 DigestAlgorithm = "blake3"
	DigestSHA256 DigestAlgorithm = "sha256"
)

// ParseDigestAlgorithm parses an algorithm name. The empty string means none.
func ParseDigestAlgorithm(name string) (DigestAlgorithm, error) {
	switch alg := DigestAlgorithm(strings.ToLower(name)); alg {
	case "", DigestNone:
		return DigestNone, nil
	case DigestBLAKE3, DigestSHA256:
		return alg, nil
	default:
		return "", fmt.Errorf("unknown digest algorithm: %q", name)
	}
}

// Digest computes the hex digest of data. DigestNone returns "".
func Digest(data []byte, alg DigestAlgorithm) string {
	switch alg {
	case DigestBLAKE3:
		h := blake3.Sum256(data)
		return hex.EncodeToString(h[:])
	case DigestSHA256:
		h := sha256.Sum256(data)
		return hex.EncodeToString(h[:])
	default:
		return ""
	}
}

// VerifyDigest checks data against an expected hex digest.
// Returns (match, actual). An empty expected digest always matches.
func VerifyDigest(data []byte, alg DigestAlgorithm, expected string) (bool, string) {
	if expected == "" || alg == DigestNone {
		return true, ""
	}
	actual := Digest(data, alg)
	return strings.EqualFold(actual, expected), actual
}
