// Package database defines the account-model data types shared by the rest
// of the blockchain packages: addresses, accounts, transactions, blocks,
// and the code-entry convention the Persistence Adapter stores code under.
package database

import (
	"fmt"

	"github.com/chainforge/chainstate/foundation/blockchain/hashutil"
)

// ValidateCode checks invariant 4 of spec.md §3: for a non-empty codeHash,
// sha256_hex(body) must equal the hash it is filed under. The empty-code
// entry is the one reservation for hashutil.EmptyHash (§9): it always maps
// to the empty string, never to anything else.
func ValidateCode(hash, body string) error {
	if hash == hashutil.EmptyHash {
		if body != "" {
			return fmt.Errorf("code entry under the empty hash must be the empty string, got %d bytes", len(body))
		}
		return nil
	}

	if got := hashutil.HexString(body); got != hash {
		return fmt.Errorf("code body does not hash to its stored key: got %s, want %s", got, hash)
	}

	return nil
}
