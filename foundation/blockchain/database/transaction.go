package database

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/chainforge/chainstate/foundation/blockchain/hashutil"
	"github.com/chainforge/chainstate/foundation/blockchain/signature"
)

// AdditionalData carries the two optional fields a transaction may use to
// fund and drive a contract call: the gas budget handed to the contract
// runtime, and the source body of a contract being deployed by this
// transaction's sender.
type AdditionalData struct {
	ContractGas *big.Int
	SCBody      *string
}

// additionalDataRecord is AdditionalData's wire shape: contractGas encoded
// as a decimal string so arbitrary precision survives the round trip.
type additionalDataRecord struct {
	ContractGas *string `json:"contractGas,omitempty"`
	SCBody      *string `json:"scBody,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (ad AdditionalData) MarshalJSON() ([]byte, error) {
	rec := additionalDataRecord{SCBody: ad.SCBody}
	if ad.ContractGas != nil {
		s := ad.ContractGas.String()
		rec.ContractGas = &s
	}
	return json.Marshal(rec)
}

// UnmarshalJSON implements json.Unmarshaler.
func (ad *AdditionalData) UnmarshalJSON(data []byte) error {
	var rec additionalDataRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}

	if rec.ContractGas != nil {
		n, ok := new(big.Int).SetString(*rec.ContractGas, 10)
		if !ok {
			return fmt.Errorf("invalid contractGas decimal string: %q", *rec.ContractGas)
		}
		ad.ContractGas = n
	}
	ad.SCBody = rec.SCBody

	return nil
}

// HasContractGas reports whether a contract gas budget was supplied.
func (ad AdditionalData) HasContractGas() bool {
	return ad.ContractGas != nil
}

// ContractGasOrZero returns the contract gas budget, or zero if none was
// supplied.
func (ad AdditionalData) ContractGasOrZero() *big.Int {
	if ad.ContractGas == nil {
		return new(big.Int)
	}
	return ad.ContractGas
}

// =============================================================================

// Tx is the transactional information between two parties, opaque to this
// package beyond the fields spec.md §3 names.
type Tx struct {
	Recipient      Address
	Amount         *big.Int
	Gas            *big.Int
	Nonce          uint64
	AdditionalData AdditionalData
}

// canonicalBytes builds the deterministic, separator-free concatenation of
// fields every signer and validator must agree on: recipient, amount, gas,
// additionalData, nonce (§4.3).
func (tx Tx) canonicalBytes() []byte {
	var buf []byte

	buf = append(buf, []byte(tx.Recipient)...)
	buf = append(buf, []byte(bigString(tx.Amount))...)
	buf = append(buf, []byte(bigString(tx.Gas))...)
	buf = append(buf, tx.additionalDataBytes()...)
	buf = append(buf, []byte(fmt.Sprintf("%d", tx.Nonce))...)

	return buf
}

func (tx Tx) additionalDataBytes() []byte {
	ad := tx.AdditionalData

	var buf []byte
	if ad.ContractGas != nil {
		buf = append(buf, []byte(bigString(ad.ContractGas))...)
	}
	if ad.SCBody != nil {
		buf = append(buf, []byte(*ad.SCBody)...)
	}
	return buf
}

func bigString(n *big.Int) string {
	if n == nil {
		return "0"
	}
	return n.String()
}

// Sign uses the specified private key to sign the transaction.
func (tx Tx) Sign(privateKey *ecdsa.PrivateKey) (SignedTx, error) {
	v, r, s, err := signature.Sign(tx.canonicalBytes(), privateKey)
	if err != nil {
		return SignedTx{}, err
	}

	return SignedTx{Tx: tx, V: v, R: r, S: s}, nil
}

// txRecord is Tx's wire shape: amount and gas encoded as decimal strings
// per spec.md §3's arbitrary-precision requirement.
type txRecord struct {
	Recipient      Address        `json:"recipient"`
	Amount         string         `json:"amount"`
	Gas            string         `json:"gas"`
	Nonce          uint64         `json:"nonce"`
	AdditionalData AdditionalData `json:"additionalData"`
}

// MarshalJSON implements json.Marshaler.
func (tx Tx) MarshalJSON() ([]byte, error) {
	return json.Marshal(txRecord{
		Recipient:      tx.Recipient,
		Amount:         bigString(tx.Amount),
		Gas:            bigString(tx.Gas),
		Nonce:          tx.Nonce,
		AdditionalData: tx.AdditionalData,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (tx *Tx) UnmarshalJSON(data []byte) error {
	var rec txRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}

	amount, ok := new(big.Int).SetString(rec.Amount, 10)
	if !ok {
		return fmt.Errorf("invalid amount decimal string: %q", rec.Amount)
	}

	gas, ok := new(big.Int).SetString(rec.Gas, 10)
	if !ok {
		return fmt.Errorf("invalid gas decimal string: %q", rec.Gas)
	}

	tx.Recipient = rec.Recipient
	tx.Amount = amount
	tx.Gas = gas
	tx.Nonce = rec.Nonce
	tx.AdditionalData = rec.AdditionalData

	return nil
}

// =============================================================================

// SignedTx is a signed version of the transaction. This is how a sender
// submits a transaction for inclusion into a block.
type SignedTx struct {
	Tx
	V *big.Int
	R *big.Int
	S *big.Int
}

// signedTxRecord is SignedTx's wire shape. It duplicates Tx's fields rather
// than embedding Tx, because embedding a type that implements
// json.Marshaler makes the embedding struct promote that method wholesale
// and silently drop any sibling fields — here, V, R and S.
type signedTxRecord struct {
	Recipient      Address        `json:"recipient"`
	Amount         string         `json:"amount"`
	Gas            string         `json:"gas"`
	Nonce          uint64         `json:"nonce"`
	AdditionalData AdditionalData `json:"additionalData"`
	V              string         `json:"v"`
	R              string         `json:"r"`
	S              string         `json:"s"`
}

// MarshalJSON implements json.Marshaler.
func (tx SignedTx) MarshalJSON() ([]byte, error) {
	return json.Marshal(signedTxRecord{
		Recipient:      tx.Recipient,
		Amount:         bigString(tx.Amount),
		Gas:            bigString(tx.Gas),
		Nonce:          tx.Nonce,
		AdditionalData: tx.AdditionalData,
		V:              bigString(tx.V),
		R:              bigString(tx.R),
		S:              bigString(tx.S),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (tx *SignedTx) UnmarshalJSON(data []byte) error {
	var rec signedTxRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}

	amount, ok := new(big.Int).SetString(rec.Amount, 10)
	if !ok {
		return fmt.Errorf("invalid amount decimal string: %q", rec.Amount)
	}
	gas, ok := new(big.Int).SetString(rec.Gas, 10)
	if !ok {
		return fmt.Errorf("invalid gas decimal string: %q", rec.Gas)
	}
	v, ok := new(big.Int).SetString(rec.V, 10)
	if !ok {
		return fmt.Errorf("invalid v decimal string: %q", rec.V)
	}
	r, ok := new(big.Int).SetString(rec.R, 10)
	if !ok {
		return fmt.Errorf("invalid r decimal string: %q", rec.R)
	}
	s, ok := new(big.Int).SetString(rec.S, 10)
	if !ok {
		return fmt.Errorf("invalid s decimal string: %q", rec.S)
	}

	tx.Tx = Tx{
		Recipient:      rec.Recipient,
		Amount:         amount,
		Gas:            gas,
		Nonce:          rec.Nonce,
		AdditionalData: rec.AdditionalData,
	}
	tx.V, tx.R, tx.S = v, r, s

	return nil
}

// HasValidSignature verifies the signature conforms to this chain's
// recovery id and curve-parameter standards. It does not check the
// signature against any particular state; that is the job of the
// Transaction Validator (state package).
func (tx SignedTx) HasValidSignature() error {
	return signature.VerifySignature(tx.V, tx.R, tx.S)
}

// FromAddress extracts the address that signed the transaction by
// recovering the public key from the signature over the canonical bytes.
func (tx SignedTx) FromAddress() (Address, error) {
	addr, err := signature.RecoverAddress(tx.Tx.canonicalBytes(), tx.V, tx.R, tx.S)
	if err != nil {
		return "", err
	}

	return Address(addr), nil
}

// SignatureString returns the signature as a hex string.
func (tx SignedTx) SignatureString() string {
	return signature.SignatureString(tx.V, tx.R, tx.S)
}

// =============================================================================

// BlockTx represents the transaction as recorded inside a block body. At
// the point a transaction lands in a block there is nothing more to add
// beyond the signed payload itself; the index used for txRoot hashing
// comes from the transaction's position, not a stored field.
type BlockTx struct {
	SignedTx
}

// CanonicalString returns the canonical, separator-free field concatenation
// used both for signing and for building indexed merkle leaves.
func (tx Tx) CanonicalString() string {
	return string(tx.canonicalBytes())
}

// IndexedLeaf builds the merkle leaf form for a transaction at a given
// ordinal position: "index || canonicalTxString" (§4.2).
func (tx BlockTx) IndexedLeaf(index int) string {
	return fmt.Sprintf("%d", index) + tx.Tx.CanonicalString()
}

// Hash returns the sha256 hex digest of the signed transaction's wire
// representation, used for transaction lookup and logging, not for the
// merkle leaf form (that uses IndexedLeaf).
func (tx BlockTx) Hash() string {
	data, err := json.Marshal(tx)
	if err != nil {
		return hashutil.EmptyHash
	}
	return hashutil.Hex(data)
}
