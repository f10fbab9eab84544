package database

import (
	"fmt"

	"github.com/chainforge/chainstate/foundation/blockchain/hashutil"
)

// Address represents a 64 hex character account identifier: the sha256 hex
// digest of the account's uncompressed, hex-encoded public key. Addresses
// of contract-created accounts and the coinbase follow the same form even
// though they were never derived from a public key signature directly.
type Address string

// ToAddress validates a raw string is a properly formatted address and
// returns it typed.
func ToAddress(raw string) (Address, error) {
	a := Address(raw)
	if !a.IsAddress() {
		return "", fmt.Errorf("invalid address format: %q", raw)
	}

	return a, nil
}

// PublicKeyToAddress derives the Address for an uncompressed, hex-encoded
// public key.
func PublicKeyToAddress(publicKeyHex string) Address {
	return Address(hashutil.HexString(publicKeyHex))
}

// IsAddress reports whether the address is a well-formed 64 hex character
// string.
func (a Address) IsAddress() bool {
	const addressLength = 64

	if len(a) != addressLength {
		return false
	}

	for _, c := range []byte(a) {
		if !isHexCharacter(c) {
			return false
		}
	}

	return true
}

func isHexCharacter(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f')
}
