package storage_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/chainforge/chainstate/foundation/blockchain/database"
	"github.com/chainforge/chainstate/foundation/blockchain/hashutil"
	"github.com/chainforge/chainstate/foundation/blockchain/storage"
	"github.com/chainforge/chainstate/foundation/blockchain/storage/badgerkv"
)

const (
	success = "✓"
	failed  = "✗"
)

func Test_AccountStoreRoundTrip(t *testing.T) {
	t.Log("Given the need to persist accounts through the KVStore abstraction.")
	{
		ctx := context.Background()

		kv, err := badgerkv.Open("")
		if err != nil {
			t.Fatalf("\t%s\tShould open an in-memory store: %s", failed, err)
		}
		defer kv.Close()

		store := storage.NewAccountStore(kv)

		addr := database.Address(hashutil.HexString("addr"))
		acct := database.NewAccount(addr)
		acct.Balance = big.NewInt(100)
		acct.Nonce = 3

		if err := store.Put(ctx, acct); err != nil {
			t.Fatalf("\t%s\tShould be able to write an account: %s", failed, err)
		}
		t.Logf("\t%s\tShould be able to write an account.", success)

		got, ok, err := store.Get(ctx, addr)
		if err != nil || !ok {
			t.Fatalf("\t%s\tShould be able to read the account back: %v %s", failed, ok, err)
		}
		if got.Balance.Cmp(acct.Balance) != 0 || got.Nonce != acct.Nonce {
			t.Fatalf("\t%s\tShould round-trip balance and nonce, got %v/%d", failed, got.Balance, got.Nonce)
		}
		t.Logf("\t%s\tShould be able to read the account back.", success)

		_, ok, err = store.Get(ctx, database.Address(hashutil.HexString("nobody")))
		if err != nil {
			t.Fatalf("\t%s\tShould not error for an unknown address: %s", failed, err)
		}
		if ok {
			t.Fatalf("\t%s\tShould report an unknown address as absent", failed)
		}
		t.Logf("\t%s\tShould report an unknown address as absent.", success)
	}
}

func Test_AccountStorageOrdersKeysLexicographically(t *testing.T) {
	t.Log("Given the need for a deterministic storage leaf order.")
	{
		ctx := context.Background()

		kv, err := badgerkv.Open("")
		if err != nil {
			t.Fatalf("\t%s\tShould open an in-memory store: %s", failed, err)
		}
		defer kv.Close()

		acctStorage := storage.NewAccountStorage(kv)

		for _, kvPair := range []struct{ k, v string }{
			{"zeta", "1"},
			{"alpha", "2"},
			{"mid", "3"},
		} {
			if err := acctStorage.Put(ctx, kvPair.k, kvPair.v); err != nil {
				t.Fatalf("\t%s\tShould be able to write a storage entry: %s", failed, err)
			}
		}

		_, keys, err := acctStorage.All(ctx)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to enumerate storage entries: %s", failed, err)
		}

		want := []string{"alpha", "mid", "zeta"}
		if len(keys) != len(want) {
			t.Fatalf("\t%s\tShould return all %d keys, got %d", failed, len(want), len(keys))
		}
		for i := range want {
			if keys[i] != want[i] {
				t.Fatalf("\t%s\tShould return keys in lexicographic order, got %v", failed, keys)
			}
		}
		t.Logf("\t%s\tShould return keys in lexicographic order.", success)
	}
}

func Test_CodeStoreRoundTrip(t *testing.T) {
	t.Log("Given the need to persist contract code under its hash.")
	{
		ctx := context.Background()

		kv, err := badgerkv.Open("")
		if err != nil {
			t.Fatalf("\t%s\tShould open an in-memory store: %s", failed, err)
		}
		defer kv.Close()

		codeStore := storage.NewCodeStore(kv)

		body := "function run(){}"
		hash := hashutil.HexString(body)

		if err := codeStore.Put(ctx, hash, body); err != nil {
			t.Fatalf("\t%s\tShould be able to write a code entry: %s", failed, err)
		}

		got, ok, err := codeStore.Get(ctx, hash)
		if err != nil || !ok || got != body {
			t.Fatalf("\t%s\tShould read back the same body, got %q ok=%v err=%v", failed, got, ok, err)
		}
		t.Logf("\t%s\tShould read back the same body.", success)
	}
}
