// Package promptkey derives the stable fingerprint used as the cache and job
// identity for a prompt. Client and server derive the same key from the same
// text, so cache identity never needs a round trip.
package promptkey

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Length of the hex fingerprint.
const Length = 16

// Derive returns the first 16 hex characters of the SHA-256 digest of the
// trimmed prompt text. Pure: identical text always yields the identical key.
func Derive(prompt string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(prompt)))
	return hex.EncodeToString(sum[:])[:Length]
}
