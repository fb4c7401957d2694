// Package checksum provides content checksums for migration files.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Calculate returns the hex-encoded SHA-256 digest of content.
//
// The digest covers the exact bytes. Two files with identical content
// always share a checksum, whatever their filename or location; a single
// changed byte (including whitespace) changes it.
func Calculate(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Equal reports whether two checksums refer to the same content.
// An empty checksum never matches, so rows written without a checksum
// are not mistaken for clean ones.
func Equal(a, b string) bool {
	return a != "" && a == b
}
