package database

import (
	"fmt"

	"github.com/chainforge/chainstate/foundation/blockchain/hashutil"
	"github.com/chainforge/chainstate/foundation/blockchain/merkle"
)

// BlockHeader represents the common information every block carries,
// unchanged from spec.md §3.
type BlockHeader struct {
	BlockNumber uint64  `json:"blockNumber"`
	TimeStamp   uint64  `json:"timestamp"`
	Difficulty  uint64  `json:"difficulty"`
	ParentHash  string  `json:"parentHash"`
	Nonce       uint64  `json:"nonce"`
	TxRoot      string  `json:"txRoot"`
	Coinbase    Address `json:"coinbase"`
	Hash        string  `json:"hash"`
}

// Block represents a group of transactions batched together along with the
// header that commits to them.
type Block struct {
	Header BlockHeader `json:"header"`
	Trans  []BlockTx   `json:"trans"`
}

// NewBlock constructs a block from a header shell and an ordered list of
// transactions, computing TxRoot and Hash over them.
func NewBlock(header BlockHeader, trans []BlockTx) Block {
	header.TxRoot = TxRoot(trans)

	b := Block{Header: header, Trans: trans}
	b.Header.Hash = b.Header.ComputeHash()

	return b
}

// TxRoot computes the merkle root over the block's transactions, each
// paired with its ordinal index before hashing (§4.2), so reordering the
// same set of transactions changes the root.
func TxRoot(trans []BlockTx) string {
	leaves := make([]string, len(trans))
	for i, tx := range trans {
		leaves[i] = tx.IndexedLeaf(i)
	}

	return merkle.Root(leaves)
}

// ComputeHash derives the block hash per invariant 7 of spec.md §3:
// sha256_hex(blockNumber || timestamp || txRoot || difficulty || parentHash
// || nonce), integer fields in base-10 decimal, string fields literal.
func (h BlockHeader) ComputeHash() string {
	buf := fmt.Sprintf("%d", h.BlockNumber)
	buf += fmt.Sprintf("%d", h.TimeStamp)
	buf += h.TxRoot
	buf += fmt.Sprintf("%d", h.Difficulty)
	buf += h.ParentHash
	buf += fmt.Sprintf("%d", h.Nonce)

	return hashutil.HexString(buf)
}

// VerifyHash reports whether the header's stored Hash matches a freshly
// computed one, and whether TxRoot matches the block's own transactions.
// Both checks are required before a block is trusted.
func (b Block) VerifyHash() error {
	if got := b.Header.ComputeHash(); got != b.Header.Hash {
		return fmt.Errorf("block hash mismatch: header claims %s, computed %s", b.Header.Hash, got)
	}

	if got := TxRoot(b.Trans); got != b.Header.TxRoot {
		return fmt.Errorf("tx root mismatch: header claims %s, computed %s", b.Header.TxRoot, got)
	}

	return nil
}

// HasValidPropTypes performs the structural pre-filter from spec.md §4.4:
// transactions must be present with well-formed recipients, numeric fields
// must be non-nil, and string fields must be non-empty where required.
// This check runs before any cryptography and is intentionally cheap.
func (b Block) HasValidPropTypes() error {
	if !b.Header.Coinbase.IsAddress() {
		return fmt.Errorf("malformed block: coinbase %q is not a valid address", b.Header.Coinbase)
	}

	if b.Header.ParentHash == "" && b.Header.BlockNumber != 0 {
		return fmt.Errorf("malformed block: missing parent hash for block %d", b.Header.BlockNumber)
	}

	for i, tx := range b.Trans {
		if !tx.Recipient.IsAddress() {
			return fmt.Errorf("malformed block: tx[%d] has invalid recipient %q", i, tx.Recipient)
		}
		if tx.Amount == nil || tx.Amount.Sign() < 0 {
			return fmt.Errorf("malformed block: tx[%d] has invalid amount", i)
		}
		if tx.Gas == nil || tx.Gas.Sign() < 0 {
			return fmt.Errorf("malformed block: tx[%d] has invalid gas", i)
		}
		if tx.AdditionalData.ContractGas != nil && tx.AdditionalData.ContractGas.Sign() < 0 {
			return fmt.Errorf("malformed block: tx[%d] has negative contractGas", i)
		}
		if tx.V == nil || tx.R == nil || tx.S == nil {
			return fmt.Errorf("malformed block: tx[%d] is missing signature values", i)
		}
	}

	return nil
}
