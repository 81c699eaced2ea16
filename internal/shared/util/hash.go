package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentHash returns the deterministic cache key for an exact input text.
// Byte-identical content always hashes to the same key.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
