// Package hashutil provides the single hashing primitive the rest of the
// blockchain packages build on: a stateless sha256 hex digest.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
)

// EmptyHash is the sentinel returned for empty input. It marks both an
// empty code entry and an empty storage map throughout the blockchain
// packages.
const EmptyHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

// Hex returns the sha256 digest of data as a lowercase 64 character hex
// string. No field separator is introduced; callers are responsible for
// any delimiting before the bytes reach this function.
func Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HexString is a convenience wrapper for hashing a string without an
// explicit conversion at every call site.
func HexString(data string) string {
	return Hex([]byte(data))
}
