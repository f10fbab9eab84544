// Package storage defines the Persistence Adapter: the ordered key/value
// store abstraction spec.md §6 requires, plus the typed wrappers the state
// engine uses for stateDB, codeDB, and per-account storage.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/chainforge/chainstate/foundation/blockchain/database"
)

// KVStore is the ordered key/value store abstraction spec.md §6 requires:
// get, put, an all-keys iterator in lexicographic order, and close. Every
// persistent store in this module — stateDB, codeDB, and each account's
// storageDB — is a KVStore under a typed wrapper.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// Opener constructs or opens the KVStore backing a given path. Swapping the
// Opener implementation (see storage/badgerkv) is the only thing required
// to change the storage engine the Persistence Adapter runs on.
type Opener interface {
	Open(ctx context.Context, path string) (KVStore, error)
}

// =============================================================================

// AccountStore is the typed view of a KVStore holding Address -> Account.
type AccountStore struct {
	kv KVStore
}

// NewAccountStore wraps a raw KVStore as the stateDB.
func NewAccountStore(kv KVStore) *AccountStore {
	return &AccountStore{kv: kv}
}

// Get loads an account by address. The bool return is false when the
// address has never been written.
func (s *AccountStore) Get(ctx context.Context, address database.Address) (database.Account, bool, error) {
	raw, ok, err := s.kv.Get(ctx, string(address))
	if err != nil {
		return database.Account{}, false, err
	}
	if !ok {
		return database.Account{}, false, nil
	}

	var acct database.Account
	if err := json.Unmarshal(raw, &acct); err != nil {
		return database.Account{}, false, fmt.Errorf("decoding account %s: %w", address, err)
	}

	return acct, true, nil
}

// Put writes an account by address.
func (s *AccountStore) Put(ctx context.Context, account database.Account) error {
	raw, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("encoding account %s: %w", account.Address, err)
	}

	return s.kv.Put(ctx, string(account.Address), raw)
}

// Keys returns every address that has ever been written, in lexicographic
// order.
func (s *AccountStore) Keys(ctx context.Context) ([]database.Address, error) {
	raw, err := s.kv.Keys(ctx)
	if err != nil {
		return nil, err
	}

	addrs := make([]database.Address, len(raw))
	for i, k := range raw {
		addrs[i] = database.Address(k)
	}
	return addrs, nil
}

// Close releases the underlying store.
func (s *AccountStore) Close() error {
	return s.kv.Close()
}

// =============================================================================

// CodeStore is the typed view of a KVStore holding CodeHash -> contract body.
type CodeStore struct {
	kv KVStore
}

// NewCodeStore wraps a raw KVStore as the codeDB.
func NewCodeStore(kv KVStore) *CodeStore {
	return &CodeStore{kv: kv}
}

// Get loads a code body by hash.
func (s *CodeStore) Get(ctx context.Context, hash string) (string, bool, error) {
	raw, ok, err := s.kv.Get(ctx, hash)
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return string(raw), true, nil
}

// Put writes a code body under its hash. Callers are expected to have
// already checked database.ValidateCode.
func (s *CodeStore) Put(ctx context.Context, hash, body string) error {
	return s.kv.Put(ctx, hash, []byte(body))
}

// Close releases the underlying store.
func (s *CodeStore) Close() error {
	return s.kv.Close()
}

// =============================================================================

// AccountStorage is the typed view of a per-account KVStore holding the
// account's contract variables.
type AccountStorage struct {
	kv KVStore
}

// NewAccountStorage wraps a raw KVStore as one account's storage namespace.
func NewAccountStorage(kv KVStore) *AccountStorage {
	return &AccountStorage{kv: kv}
}

// Get loads a single storage entry.
func (s *AccountStorage) Get(ctx context.Context, key string) (string, bool, error) {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return string(raw), true, nil
}

// Put writes a single storage entry.
func (s *AccountStorage) Put(ctx context.Context, key, value string) error {
	return s.kv.Put(ctx, key, []byte(value))
}

// All returns every key/value pair currently in the account's storage
// namespace, ordered lexicographically by key — the order spec.md §9
// requires for feeding storage leaves to the merkle builder.
func (s *AccountStorage) All(ctx context.Context) (map[string]string, []string, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		return nil, nil, err
	}

	out := make(map[string]string, len(keys))
	for _, k := range keys {
		v, ok, err := s.kv.Get(ctx, k)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			out[k] = string(v)
		}
	}

	return out, keys, nil
}

// Close releases the underlying per-account store.
func (s *AccountStorage) Close() error {
	return s.kv.Close()
}

// =============================================================================

// AccountStorePath joins a data root with the conventional accountStore
// sub-path for a given address, matching spec.md §6's
// "<data_root>/accountStore/<address>" layout.
func AccountStorePath(dataRoot string, address database.Address) string {
	return path.Join(dataRoot, "accountStore", string(address))
}
