package state

import (
	"context"
	"math/big"
	"sort"

	"github.com/chainforge/chainstate/foundation/blockchain/contract"
	"github.com/chainforge/chainstate/foundation/blockchain/database"
	"github.com/chainforge/chainstate/foundation/blockchain/hashutil"
	"github.com/chainforge/chainstate/foundation/blockchain/merkle"
	"github.com/chainforge/chainstate/foundation/blockchain/storage"
)

// overlay is the working set §4.5 step 3 calls for: address-keyed maps with
// value semantics, so the engine mutates its own copies and only reaches
// the persistent stores at commit time.
type overlay struct {
	states  map[database.Address]database.Account
	code    map[string]string
	storage map[database.Address]map[string]string
}

func newOverlay() *overlay {
	return &overlay{
		states:  map[database.Address]database.Account{},
		code:    map[string]string{},
		storage: map[database.Address]map[string]string{},
	}
}

// VerifyAndTransit implements §4.5's verify_and_transit(block, stateDB,
// codeDB, logging) -> bool. It is all-or-nothing: every write is staged in
// the overlay and only flushed to the persistent stores after every check
// in every step has passed. A false return with a nil error is an ordinary
// rejection and leaves the stores untouched; a non-nil error is a
// persistent-store fault and is fatal per §7.
func (s *State) VerifyAndTransit(ctx context.Context, block database.Block) (bool, error) {
	if err := block.HasValidPropTypes(); err != nil {
		s.evHandler("verify_and_transit: %s: %s", ReasonMalformedBlock, err)
		return false, nil
	}

	if err := block.VerifyHash(); err != nil {
		s.evHandler("verify_and_transit: %s: %s", ReasonMalformedBlock, err)
		return false, nil
	}

	orderOK, err := s.HasValidTxOrder(ctx, block)
	if err != nil {
		return false, err
	}
	if !orderOK {
		s.evHandler("verify_and_transit: %s", ReasonBadNonce)
		return false, nil
	}

	if !s.HasValidGasLimit(block) {
		s.evHandler("verify_and_transit: %s", ReasonGasLimitExceeded)
		return false, nil
	}

	// Step 1 - per-transaction validation against the untouched stateDB.
	for i, tx := range block.Trans {
		valid, reason, err := s.IsValid(ctx, tx)
		if err != nil {
			return false, err
		}
		if !valid {
			s.evHandler("verify_and_transit: tx[%d]: rejected: %s", i, reason)
			return false, nil
		}
	}

	// Step 2 - every sender must already exist in stateDB.
	senders := map[database.Address]bool{}
	for _, tx := range block.Trans {
		addr, err := tx.FromAddress()
		if err != nil {
			return false, nil
		}
		senders[addr] = true
	}
	for addr := range senders {
		_, ok, err := s.accounts.Get(ctx, addr)
		if err != nil {
			return false, err
		}
		if !ok {
			s.evHandler("verify_and_transit: sender %s: %s", addr, ReasonUnknownSender)
			return false, nil
		}
	}

	// Step 3 - overlay initialization.
	ov := newOverlay()

	// Step 4 - ordered replay.
	for i, tx := range block.Trans {
		ok, err := s.applyTx(ctx, ov, tx, block.Header)
		if err != nil {
			return false, err
		}
		if !ok {
			s.evHandler("verify_and_transit: tx[%d]: replay rejected the block", i)
			return false, nil
		}
	}

	// Step 5 - coinbase reward.
	if err := s.applyCoinbase(ctx, ov, block); err != nil {
		return false, err
	}

	// Step 6 - commit.
	if err := s.commit(ctx, ov); err != nil {
		return false, err
	}

	// Step 7.
	return true, nil
}

// resolve loads an account into the overlay on first touch, defaulting to
// a fresh EOA when the address has never been written to stateDB.
func (s *State) resolve(ctx context.Context, ov *overlay, addr database.Address) (database.Account, error) {
	if acct, ok := ov.states[addr]; ok {
		return acct, nil
	}

	acct, ok, err := s.accounts.Get(ctx, addr)
	if err != nil {
		return database.Account{}, err
	}
	if !ok {
		acct = database.NewAccount(addr)
	}

	ov.states[addr] = acct
	return acct, nil
}

// applyTx replays §4.5 step 4 for a single transaction against the overlay.
func (s *State) applyTx(ctx context.Context, ov *overlay, tx database.BlockTx, header database.BlockHeader) (bool, error) {
	senderAddr, err := tx.FromAddress()
	if err != nil {
		return false, nil
	}

	// 4a: resolve the sender. The contract-cannot-send check runs on
	// every touch, not just the first (§9: the source only checks on
	// first load, this implementation strengthens it as directed).
	sender, firstTouch, err := s.loadForTouch(ctx, ov, senderAddr)
	if err != nil {
		return false, err
	}

	if firstTouch {
		// The source looks up the sender's code unconditionally before
		// checking whether the codeHash is the empty sentinel (§9);
		// preserved here even though the lookup is redundant once the
		// check below runs.
		if _, cached := ov.code[sender.CodeHash]; !cached {
			body, exists, err := s.codes.Get(ctx, sender.CodeHash)
			if err != nil {
				return false, err
			}
			if exists {
				ov.code[sender.CodeHash] = body
			}
		}
	}

	if sender.IsContract() {
		s.evHandler("apply_tx: sender %s: %s", senderAddr, ReasonContractCannotSend)
		return false, nil
	}

	// 4b: debit.
	debit := new(big.Int).Add(tx.Amount, tx.Gas)
	debit.Add(debit, tx.AdditionalData.ContractGasOrZero())
	sender.Balance = new(big.Int).Sub(sender.Balance, debit)

	// 4c: contract deployment.
	if sender.CodeHash == hashutil.EmptyHash && tx.AdditionalData.SCBody != nil {
		body := *tx.AdditionalData.SCBody
		codeHash := hashutil.HexString(body)
		sender.CodeHash = codeHash
		ov.code[codeHash] = body
	}

	// 4d: nonce.
	sender.Nonce++
	ov.states[senderAddr] = sender

	// 4e: underflow rejects the whole block.
	if sender.Balance.Sign() < 0 {
		s.evHandler("apply_tx: sender %s: %s", senderAddr, ReasonInsufficientBal)
		return false, nil
	}

	// 4f: resolve the recipient.
	recipient, err := s.resolve(ctx, ov, tx.Recipient)
	if err != nil {
		return false, err
	}

	// 4g: credit.
	recipient.Balance = new(big.Int).Add(recipient.Balance, tx.Amount)
	ov.states[tx.Recipient] = recipient

	// 4h: contract invocation.
	if recipient.IsContract() {
		ok, err := s.invokeContract(ctx, ov, tx, header, senderAddr)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}

	return true, nil
}

// loadForTouch resolves an account into the overlay, reporting whether
// this call performed the first load (vs. returning an already-cached
// overlay entry).
func (s *State) loadForTouch(ctx context.Context, ov *overlay, addr database.Address) (database.Account, bool, error) {
	if acct, ok := ov.states[addr]; ok {
		return acct, false, nil
	}

	acct, ok, err := s.accounts.Get(ctx, addr)
	if err != nil {
		return database.Account{}, false, err
	}
	if !ok {
		acct = database.NewAccount(addr)
	}

	ov.states[addr] = acct
	return acct, true, nil
}

// invokeContract runs §4.5 step 4h: delegate to the Contract Runtime
// Adapter and fold its output back into the overlay.
func (s *State) invokeContract(ctx context.Context, ov *overlay, tx database.BlockTx, header database.BlockHeader, senderAddr database.Address) (bool, error) {
	recipient := ov.states[tx.Recipient]

	code, ok := ov.code[recipient.CodeHash]
	if !ok {
		loaded, exists, err := s.codes.Get(ctx, recipient.CodeHash)
		if err != nil {
			return false, err
		}
		if !exists {
			s.evHandler("apply_tx: recipient %s: %s: no code body for %s", tx.Recipient, ReasonRuntimeError, recipient.CodeHash)
			return false, nil
		}
		code = loaded
		ov.code[recipient.CodeHash] = loaded
	}

	currentStorage, ok := ov.storage[tx.Recipient]
	if !ok {
		loaded, err := s.loadAccountStorage(ctx, tx.Recipient)
		if err != nil {
			return false, err
		}
		currentStorage = loaded
	}

	req := contract.Request{
		Code:            code,
		StatesOverlay:   ov.states,
		CurrentStorage:  currentStorage,
		GasBudget:       tx.AdditionalData.ContractGasOrZero(),
		Block:           header,
		Tx:              tx,
		Sender:          senderAddr,
		ContractAddress: tx.Recipient,
		Logging:         s.evHandler,
	}

	res, err := s.runtime.Run(ctx, req)
	if err != nil {
		s.evHandler("apply_tx: contract %s: %s: %v", tx.Recipient, ReasonRuntimeError, err)
		return false, nil
	}

	for addr, acct := range res.NewStates {
		ov.states[addr] = acct
	}
	ov.storage[tx.Recipient] = res.NewStorage

	return true, nil
}

// applyCoinbase implements §4.5 step 5: the coinbase is resolved the same
// way any recipient is, then credited with BLOCK_REWARD plus the sum of
// every transaction's gas and contractGas.
func (s *State) applyCoinbase(ctx context.Context, ov *overlay, block database.Block) error {
	total := new(big.Int).Set(s.cfg.BlockReward)
	for _, tx := range block.Trans {
		total.Add(total, tx.Gas)
		total.Add(total, tx.AdditionalData.ContractGasOrZero())
	}

	coinbase, err := s.resolve(ctx, ov, block.Header.Coinbase)
	if err != nil {
		return err
	}

	coinbase.Balance = new(big.Int).Add(coinbase.Balance, total)
	ov.states[block.Header.Coinbase] = coinbase

	return nil
}

// loadAccountStorage opens an account's persistent storage namespace, reads
// every entry, and closes it. Used on a contract's first touch within a
// block, when the overlay has no cached view yet.
func (s *State) loadAccountStorage(ctx context.Context, addr database.Address) (map[string]string, error) {
	kv, err := s.opener.Open(ctx, storage.AccountStorePath(s.dataRoot, addr))
	if err != nil {
		return nil, err
	}
	defer kv.Close()

	acctStorage := storage.NewAccountStorage(kv)
	all, _, err := acctStorage.All(ctx)
	if err != nil {
		return nil, err
	}

	return all, nil
}

// commit implements §4.5 step 6: for every contract whose storage was
// touched, compute its new storageRoot over lexicographically ordered
// "key value" leaves, write the storage wholesale, then write every
// touched account and its code to the persistent stores.
func (s *State) commit(ctx context.Context, ov *overlay) error {
	for addr, touched := range ov.storage {
		keys := make([]string, 0, len(touched))
		for k := range touched {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		leaves := make([]string, len(keys))
		for i, k := range keys {
			leaves[i] = k + " " + touched[k]
		}
		root := merkle.Root(leaves)

		acct := ov.states[addr]
		acct.StorageRoot = root
		ov.states[addr] = acct

		kv, err := s.opener.Open(ctx, storage.AccountStorePath(s.dataRoot, addr))
		if err != nil {
			return err
		}

		acctStorage := storage.NewAccountStorage(kv)
		for _, k := range keys {
			if err := acctStorage.Put(ctx, k, touched[k]); err != nil {
				acctStorage.Close()
				return err
			}
		}
		if err := acctStorage.Close(); err != nil {
			return err
		}
	}

	for _, acct := range ov.states {
		if err := s.accounts.Put(ctx, acct); err != nil {
			return err
		}

		body, ok := ov.code[acct.CodeHash]
		switch {
		case ok:
			if err := s.codes.Put(ctx, acct.CodeHash, body); err != nil {
				return err
			}
		case acct.CodeHash == hashutil.EmptyHash:
			if err := s.codes.Put(ctx, hashutil.EmptyHash, ""); err != nil {
				return err
			}
		}
	}

	return nil
}
