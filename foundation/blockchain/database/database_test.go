package database_test

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/chainforge/chainstate/foundation/blockchain/database"
	"github.com/chainforge/chainstate/foundation/blockchain/hashutil"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

const senderKeyHex = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"

func mustSignedTx(t *testing.T, recipient database.Address, amount, gas int64, nonce uint64) database.SignedTx {
	t.Helper()

	pk, err := crypto.HexToECDSA(senderKeyHex)
	if err != nil {
		t.Fatalf("should be able to load private key: %s", err)
	}

	tx := database.Tx{
		Recipient: recipient,
		Amount:    big.NewInt(amount),
		Gas:       big.NewInt(gas),
		Nonce:     nonce,
	}

	signedTx, err := tx.Sign(pk)
	if err != nil {
		t.Fatalf("should be able to sign transaction: %s", err)
	}

	return signedTx
}

func Test_AddressFormat(t *testing.T) {
	t.Log("Given the need to validate account addresses.")
	{
		good := hashutil.HexString("some-public-key")
		if _, err := database.ToAddress(good); err != nil {
			t.Fatalf("\t%s\tShould accept a 64 hex char address: %s", failed, err)
		}
		t.Logf("\t%s\tShould accept a 64 hex char address.", success)

		if _, err := database.ToAddress("not-hex"); err == nil {
			t.Fatalf("\t%s\tShould reject a malformed address", failed)
		}
		t.Logf("\t%s\tShould reject a malformed address.", success)
	}
}

func Test_TxSignAndRecover(t *testing.T) {
	t.Log("Given the need to sign and recover the sender of a transaction.")
	{
		recipient := database.PublicKeyToAddress("recipient-pubkey")
		signedTx := mustSignedTx(t, recipient, 10, 1, 1)

		if err := signedTx.HasValidSignature(); err != nil {
			t.Fatalf("\t%s\tShould have a valid signature: %s", failed, err)
		}
		t.Logf("\t%s\tShould have a valid signature.", success)

		from, err := signedTx.FromAddress()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to recover the sender: %s", failed, err)
		}
		if !from.IsAddress() {
			t.Fatalf("\t%s\tShould recover a well-formed address", failed)
		}
		t.Logf("\t%s\tShould be able to recover the sender.", success)
	}
}

func Test_CanonicalStringIsOrderSensitive(t *testing.T) {
	t.Log("Given the need for a deterministic canonical transaction string.")
	{
		recipient := database.PublicKeyToAddress("recipient-pubkey")

		tx1 := database.Tx{Recipient: recipient, Amount: big.NewInt(10), Gas: big.NewInt(1), Nonce: 1}
		tx2 := database.Tx{Recipient: recipient, Amount: big.NewInt(1), Gas: big.NewInt(10), Nonce: 1}

		if tx1.CanonicalString() == tx2.CanonicalString() {
			t.Fatalf("\t%s\tDifferent field values should not collide in the canonical string", failed)
		}
		t.Logf("\t%s\tDifferent field values should not collide in the canonical string.", success)
	}
}

func Test_BlockHashAndTxRoot(t *testing.T) {
	t.Log("Given the need to hash a block and commit to its transaction order.")
	{
		recipient := database.PublicKeyToAddress("recipient-pubkey")
		coinbase := database.PublicKeyToAddress("coinbase-pubkey")

		tx1 := database.BlockTx{SignedTx: mustSignedTx(t, recipient, 10, 1, 1)}
		tx2 := database.BlockTx{SignedTx: mustSignedTx(t, recipient, 20, 1, 2)}

		header := database.BlockHeader{
			BlockNumber: 1,
			TimeStamp:   1700000000,
			Difficulty:  1,
			ParentHash:  hashutil.EmptyHash,
			Coinbase:    coinbase,
		}

		blockAB := database.NewBlock(header, []database.BlockTx{tx1, tx2})
		blockBA := database.NewBlock(header, []database.BlockTx{tx2, tx1})

		if blockAB.Header.TxRoot == blockBA.Header.TxRoot {
			t.Fatalf("\t%s\tReordering transactions should change the tx root", failed)
		}
		t.Logf("\t%s\tReordering transactions should change the tx root.", success)

		if err := blockAB.VerifyHash(); err != nil {
			t.Fatalf("\t%s\tShould verify its own hash and tx root: %s", failed, err)
		}
		t.Logf("\t%s\tShould verify its own hash and tx root.", success)

		if err := blockAB.HasValidPropTypes(); err != nil {
			t.Fatalf("\t%s\tShould pass the structural pre-filter: %s", failed, err)
		}
		t.Logf("\t%s\tShould pass the structural pre-filter.", success)
	}
}

func Test_HasValidPropTypesRejectsMalformedBlock(t *testing.T) {
	t.Log("Given the need to reject structurally invalid blocks before any cryptography.")
	{
		bad := database.Block{
			Header: database.BlockHeader{Coinbase: "not-a-valid-address"},
		}

		if err := bad.HasValidPropTypes(); err == nil {
			t.Fatalf("\t%s\tShould reject a block with a malformed coinbase", failed)
		}
		t.Logf("\t%s\tShould reject a block with a malformed coinbase.", success)
	}
}

func Test_SignedTxJSONRoundTrip(t *testing.T) {
	t.Log("Given a signed transaction carrying a contract deployment.")
	{
		recipient := database.PublicKeyToAddress("recipient-pubkey")
		body := "chain.set('a','1');"

		pk, err := crypto.HexToECDSA(senderKeyHex)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to load private key: %s", failed, err)
		}

		tx := database.Tx{
			Recipient: recipient,
			Amount:    big.NewInt(123456789),
			Gas:       big.NewInt(5),
			Nonce:     7,
			AdditionalData: database.AdditionalData{
				ContractGas: big.NewInt(1000),
				SCBody:      &body,
			},
		}

		signed, err := tx.Sign(pk)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to sign the transaction: %s", failed, err)
		}

		raw, err := json.Marshal(signed)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to marshal the signed transaction: %s", failed, err)
		}
		t.Logf("\t%s\tShould be able to marshal the signed transaction.", success)

		var got database.SignedTx
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatalf("\t%s\tShould be able to unmarshal the signed transaction: %s", failed, err)
		}

		if got.Amount.Cmp(tx.Amount) != 0 || got.Gas.Cmp(tx.Gas) != 0 || got.Nonce != tx.Nonce {
			t.Fatalf("\t%s\tShould round-trip amount, gas and nonce, got %+v", failed, got)
		}
		if got.AdditionalData.ContractGas.Cmp(tx.AdditionalData.ContractGas) != 0 {
			t.Fatalf("\t%s\tShould round-trip contractGas", failed)
		}
		if got.AdditionalData.SCBody == nil || *got.AdditionalData.SCBody != body {
			t.Fatalf("\t%s\tShould round-trip scBody", failed)
		}
		if got.V.Cmp(signed.V) != 0 || got.R.Cmp(signed.R) != 0 || got.S.Cmp(signed.S) != 0 {
			t.Fatalf("\t%s\tShould round-trip the signature values", failed)
		}
		t.Logf("\t%s\tShould round-trip every field through JSON.", success)

		if err := got.HasValidSignature(); err != nil {
			t.Fatalf("\t%s\tShould still carry a valid signature after round-tripping: %s", failed, err)
		}
		t.Logf("\t%s\tShould still carry a valid signature after round-tripping.", success)
	}
}

func Test_ValidateCode(t *testing.T) {
	t.Log("Given the need to check a code body hashes to its stored key.")
	{
		body := "function run() { spend(1); }"
		hash := hashutil.HexString(body)

		if err := database.ValidateCode(hash, body); err != nil {
			t.Fatalf("\t%s\tShould accept a body matching its hash: %s", failed, err)
		}
		t.Logf("\t%s\tShould accept a body matching its hash.", success)

		if err := database.ValidateCode(hashutil.EmptyHash, ""); err != nil {
			t.Fatalf("\t%s\tShould accept the empty body under the empty hash: %s", failed, err)
		}
		t.Logf("\t%s\tShould accept the empty body under the empty hash.", success)

		if err := database.ValidateCode(hash, "tampered"); err == nil {
			t.Fatalf("\t%s\tShould reject a body that doesn't hash to its key", failed)
		}
		t.Logf("\t%s\tShould reject a body that doesn't hash to its key.", success)
	}
}
