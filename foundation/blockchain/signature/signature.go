// Package signature provides helper functions for handling the blockchain's
// signature needs: signing, recovery, and address derivation over secp256k1.
package signature

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/chainforge/chainstate/foundation/blockchain/hashutil"
)

// domainTag is an arbitrary number folded into the recovery id so a
// signature produced for this chain can't be silently replayed as a raw
// secp256k1 signature somewhere else. Ethereum and Bitcoin do the same
// thing with their own constants.
const domainTag = 37

// Sign uses the specified private key to sign the data. The value passed in
// must already be the canonical byte form agreed on by every node; this
// package does not impose a serialization of its own. The data is hashed
// with Keccak-256 and the signature is made over that 32 byte digest.
func Sign(data []byte, privateKey *ecdsa.PrivateKey) (v, r, s *big.Int, err error) {
	digest := crypto.Keccak256(data)

	sig, err := crypto.Sign(digest, privateKey)
	if err != nil {
		return nil, nil, nil, err
	}

	publicKey, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return nil, nil, nil, err
	}

	rs := sig[:crypto.RecoveryIDOffset]
	if !crypto.VerifySignature(crypto.FromECDSAPub(publicKey), digest, rs) {
		return nil, nil, nil, errors.New("invalid signature")
	}

	v, r, s = toSignatureValues(sig)
	return v, r, s, nil
}

// VerifySignature verifies the signature conforms to this chain's standards.
func VerifySignature(v, r, s *big.Int) error {
	uintV := v.Uint64() - domainTag
	if uintV != 0 && uintV != 1 {
		return errors.New("invalid recovery id")
	}

	if !crypto.ValidateSignatureValues(byte(uintV), r, s, false) {
		return errors.New("invalid signature values")
	}

	return nil
}

// RecoverPublicKey extracts the uncompressed public key, hex encoded, of
// the account that produced the signature over data.
func RecoverPublicKey(data []byte, v, r, s *big.Int) (string, error) {
	sig := ToSignatureBytes(v, r, s)

	publicKey, err := crypto.SigToPub(crypto.Keccak256(data), sig)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(crypto.FromECDSAPub(publicKey)), nil
}

// AddressFromPublicKey derives a chain address from an uncompressed,
// hex-encoded public key: the sha256 hex digest of the public key hex
// string itself.
func AddressFromPublicKey(publicKeyHex string) string {
	return hashutil.HexString(publicKeyHex)
}

// RecoverAddress is a convenience wrapper that recovers the public key from
// the signature over data and derives the signer's address from it.
func RecoverAddress(data []byte, v, r, s *big.Int) (string, error) {
	publicKeyHex, err := RecoverPublicKey(data, v, r, s)
	if err != nil {
		return "", err
	}

	return AddressFromPublicKey(publicKeyHex), nil
}

// SignatureString returns the signature as a hex string, domain tag included.
func SignatureString(v, r, s *big.Int) string {
	return "0x" + hex.EncodeToString(toSignatureBytesWithDomainTag(v, r, s))
}

// ToVRSFromHexSignature converts a hex representation of the signature into
// its R, S and V parts.
func ToVRSFromHexSignature(sigStr string) (v, r, s *big.Int, err error) {
	if len(sigStr) >= 2 && sigStr[:2] == "0x" {
		sigStr = sigStr[2:]
	}

	sig, err := hex.DecodeString(sigStr)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(sig) != crypto.SignatureLength {
		return nil, nil, nil, errors.New("invalid signature length")
	}

	r = new(big.Int).SetBytes(sig[:32])
	s = new(big.Int).SetBytes(sig[32:64])
	v = new(big.Int).SetBytes([]byte{sig[64]})

	return v, r, s, nil
}

// =============================================================================

// toSignatureValues converts the raw 65 byte signature into the r, s, v
// values, folding the domain tag into the recovery id.
func toSignatureValues(sig []byte) (v, r, s *big.Int) {
	r = new(big.Int).SetBytes(sig[:32])
	s = new(big.Int).SetBytes(sig[32:64])
	v = new(big.Int).SetBytes([]byte{sig[64] + domainTag})

	return v, r, s
}

// ToSignatureBytes converts the r, s, v values into a slice of bytes with
// the domain tag removed from the recovery id.
func ToSignatureBytes(v, r, s *big.Int) []byte {
	sig := make([]byte, crypto.SignatureLength)

	rBytes := r.Bytes()
	copy(sig[32-len(rBytes):32], rBytes)

	sBytes := s.Bytes()
	copy(sig[64-len(sBytes):64], sBytes)

	sig[64] = byte(v.Uint64() - domainTag)

	return sig
}

// toSignatureBytesWithDomainTag converts the r, s, v values into a slice of
// bytes keeping the domain tag in the recovery byte.
func toSignatureBytesWithDomainTag(v, r, s *big.Int) []byte {
	sig := ToSignatureBytes(v, r, s)
	sig[64] = byte(v.Uint64())

	return sig
}
