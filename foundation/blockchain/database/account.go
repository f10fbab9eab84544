package database

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/chainforge/chainstate/foundation/blockchain/hashutil"
)

// Account represents the information stored for an individual address:
// balance and nonce tracking, plus the two commitments (codeHash,
// storageRoot) that tie an EOA or contract account to the code and
// persistent-storage stores.
type Account struct {
	Address     Address
	Balance     *big.Int
	Nonce       uint64
	CodeHash    string
	StorageRoot string
}

// NewAccount constructs a fresh EOA with a zero balance and the empty-hash
// sentinels for code and storage. This is the shape every account takes on
// first receipt of value (§3 "Lifecycles").
func NewAccount(address Address) Account {
	return Account{
		Address:     address,
		Balance:     new(big.Int),
		Nonce:       0,
		CodeHash:    hashutil.EmptyHash,
		StorageRoot: hashutil.EmptyHash,
	}
}

// Copy returns a deep copy of the account so the overlay can hold its own
// value without aliasing the balance pointer back into the caller's copy.
func (a Account) Copy() Account {
	cp := a
	cp.Balance = new(big.Int).Set(a.Balance)
	return cp
}

// IsContract reports whether the account has deployed code.
func (a Account) IsContract() bool {
	return a.CodeHash != hashutil.EmptyHash
}

// =============================================================================

// accountRecord is the wire/storage shape for an Account: balance as a
// decimal string per spec.md §3, everything else already string/uint64.
type accountRecord struct {
	Address     Address `json:"address"`
	Balance     string  `json:"balance"`
	Nonce       uint64  `json:"nonce"`
	CodeHash    string  `json:"codeHash"`
	StorageRoot string  `json:"storageRoot"`
}

// MarshalJSON serializes the account with the balance encoded as a decimal
// string, never as a JSON number, so arbitrary precision survives the
// round trip.
func (a Account) MarshalJSON() ([]byte, error) {
	balance := "0"
	if a.Balance != nil {
		balance = a.Balance.String()
	}

	return json.Marshal(accountRecord{
		Address:     a.Address,
		Balance:     balance,
		Nonce:       a.Nonce,
		CodeHash:    a.CodeHash,
		StorageRoot: a.StorageRoot,
	})
}

// UnmarshalJSON parses an account back from its wire/storage form.
func (a *Account) UnmarshalJSON(data []byte) error {
	var rec accountRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}

	balance, ok := new(big.Int).SetString(rec.Balance, 10)
	if !ok {
		return fmt.Errorf("invalid balance decimal string: %q", rec.Balance)
	}

	a.Address = rec.Address
	a.Balance = balance
	a.Nonce = rec.Nonce
	a.CodeHash = rec.CodeHash
	a.StorageRoot = rec.StorageRoot

	return nil
}
