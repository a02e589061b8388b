package crypto

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/txscript"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// XOnlySize is the length of a BIP-340 public key.
const XOnlySize = 32

// ErrInvalidKey is returned for a zero or out-of-range private scalar.
var ErrInvalidKey = errors.New("invalid private key")

// PrivateKey is a secp256k1 key that signs taproot sighashes.
type PrivateKey struct {
	key *btcec.PrivateKey
}

// GenerateKey creates a random key.
func GenerateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes parses a 32-byte big-endian scalar in [1, n).
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(b))
	}
	var s secp256k1.ModNScalar
	if overflow := s.SetByteSlice(b); overflow || s.IsZero() {
		return nil, ErrInvalidKey
	}
	return &PrivateKey{key: secp256k1.NewPrivateKey(&s)}, nil
}

// Sign produces a BIP-340 signature over a 32-byte sighash.
func (pk *PrivateKey) Sign(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("hash must be 32 bytes, got %d", len(hash))
	}
	sig, err := schnorr.Sign(pk.key, hash)
	if err != nil {
		return nil, fmt.Errorf("schnorr sign: %w", err)
	}
	return sig.Serialize(), nil
}

// PublicKey returns the x-only public key.
func (pk *PrivateKey) PublicKey() []byte {
	return schnorr.SerializePubKey(pk.key.PubKey())
}

// PubKey returns the public key point.
func (pk *PrivateKey) PubKey() *btcec.PublicKey {
	return pk.key.PubKey()
}

// TapTweak returns the BIP-341 output key for a taproot output committing
// to scriptRoot. A nil root gives the BIP-86 key-path-only tweak.
func (pk *PrivateKey) TapTweak(scriptRoot []byte) *PrivateKey {
	return &PrivateKey{key: txscript.TweakTaprootPrivKey(*pk.key, scriptRoot)}
}

// Serialize returns the 32-byte scalar.
func (pk *PrivateKey) Serialize() []byte {
	return pk.key.Serialize()
}

// Zero wipes the scalar.
func (pk *PrivateKey) Zero() {
	pk.key.Zero()
}

// TaprootOutputKey returns the x-only output key of internal tweaked by
// scriptRoot, as found in a P2TR witness program.
func TaprootOutputKey(internal *btcec.PublicKey, scriptRoot []byte) []byte {
	return schnorr.SerializePubKey(txscript.ComputeTaprootOutputKey(internal, scriptRoot))
}

// VerifySignature checks a BIP-340 signature against an x-only key. Any
// parse failure is a failed verification.
func VerifySignature(hash, signature, publicKey []byte) bool {
	pubKey, err := schnorr.ParsePubKey(publicKey)
	if err != nil {
		return false
	}
	sig, err := schnorr.ParseSignature(signature)
	if err != nil {
		return false
	}
	return sig.Verify(hash, pubKey)
}
