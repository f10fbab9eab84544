package state

import (
	"context"
	"math/big"

	"github.com/chainforge/chainstate/foundation/blockchain/database"
)

// Rejection reason codes surfaced to logging (§7). These are not error
// types: every validation path collapses to accept/reject, and these
// strings exist only to make the reject observable.
const (
	ReasonInvalidSignature   = "INVALID_SIGNATURE"
	ReasonInsufficientBal    = "INSUFFICIENT_BALANCE"
	ReasonUnknownSender      = "UNKNOWN_SENDER"
	ReasonContractCannotSend = "CONTRACT_CANNOT_SEND"
	ReasonBadNonce           = "BAD_NONCE"
	ReasonGasLimitExceeded   = "GAS_LIMIT_EXCEEDED"
	ReasonMalformedBlock     = "MALFORMED_BLOCK"
	ReasonRuntimeError       = "RUNTIME_ERROR"
)

// IsValid implements §4.3's is_valid(tx, stateDB): signature verifies,
// amount is non-negative, gas meets the configured minimum, the sender
// exists in the persistent stateDB, and the sender's balance (as it
// stands in stateDB, before any of this block's own debits) covers
// amount + gas + contractGas. A false return with no error is an
// ordinary rejection; a non-nil error is a persistent-store fault and is
// fatal per §7.
func (s *State) IsValid(ctx context.Context, tx database.BlockTx) (bool, string, error) {
	if err := tx.HasValidSignature(); err != nil {
		return false, ReasonInvalidSignature, nil
	}

	sender, err := tx.FromAddress()
	if err != nil {
		return false, ReasonInvalidSignature, nil
	}

	if tx.Amount == nil || tx.Amount.Sign() < 0 {
		return false, ReasonMalformedBlock, nil
	}

	if tx.Gas == nil || tx.Gas.Cmp(s.cfg.MinTxGas) < 0 {
		return false, ReasonMalformedBlock, nil
	}

	acct, ok, err := s.accounts.Get(ctx, sender)
	if err != nil {
		return false, "", err
	}
	if !ok {
		return false, ReasonUnknownSender, nil
	}

	required := new(big.Int).Add(tx.Amount, tx.Gas)
	required.Add(required, tx.AdditionalData.ContractGasOrZero())

	if acct.Balance.Cmp(required) < 0 {
		return false, ReasonInsufficientBal, nil
	}

	return true, "", nil
}

// HasValidTxOrder implements §4.6: replaying each sender's transaction
// nonces in block order must produce preNonce+1, preNonce+2, … with no
// gaps and no reordering, where preNonce is that sender's nonce as
// currently persisted in stateDB.
func (s *State) HasValidTxOrder(ctx context.Context, block database.Block) (bool, error) {
	expected := map[database.Address]uint64{}

	for _, tx := range block.Trans {
		sender, err := tx.FromAddress()
		if err != nil {
			return false, nil
		}

		want, seen := expected[sender]
		if !seen {
			acct, ok, err := s.accounts.Get(ctx, sender)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
			want = acct.Nonce + 1
		}

		if tx.Nonce != want {
			return false, nil
		}

		expected[sender] = want + 1
	}

	return true, nil
}

// HasValidGasLimit implements §4.6: the sum of every transaction's
// contractGas must not exceed BlockGasLimit. Base gas is deliberately not
// counted here (§9 open question, preserved as specified).
func (s *State) HasValidGasLimit(block database.Block) bool {
	total := new(big.Int)
	for _, tx := range block.Trans {
		total.Add(total, tx.AdditionalData.ContractGasOrZero())
	}

	return total.Cmp(s.cfg.BlockGasLimit) <= 0
}
