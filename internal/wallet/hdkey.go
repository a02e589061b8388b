package wallet

import (
	"fmt"

	"github.com/Klingon-tech/cat721-cli/pkg/crypto"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/tyler-smith/go-bip32"
)

// BIP-86 derivation: m/86'/coin'/account'/change/index.
const (
	PurposeBIP86 = bip32.FirstHardenedChild + 86

	CoinTypeBitcoin = bip32.FirstHardenedChild + 0
	CoinTypeTestnet = bip32.FirstHardenedChild + 1

	ChangeExternal = 0
	ChangeInternal = 1
)

// CoinType returns the hardened BIP-44 coin type for params.
func CoinType(params *chaincfg.Params) uint32 {
	if params != nil && params.Net == chaincfg.MainNetParams.Net {
		return CoinTypeBitcoin
	}
	return CoinTypeTestnet
}

// HDKey is a BIP-32 extended key.
type HDKey struct {
	key *bip32.Key
}

// NewMasterKey creates the master key from a 64-byte seed.
func NewMasterKey(seed []byte) (*HDKey, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}
	return &HDKey{key: master}, nil
}

// DerivePath derives along a sequence of child indices.
func (k *HDKey) DerivePath(indices ...uint32) (*HDKey, error) {
	current := k.key
	for _, idx := range indices {
		child, err := current.NewChildKey(idx)
		if err != nil {
			return nil, fmt.Errorf("derive child %d: %w", idx, err)
		}
		current = child
	}
	return &HDKey{key: current}, nil
}

// DeriveTaproot derives the BIP-86 key for account/change/index.
func (k *HDKey) DeriveTaproot(params *chaincfg.Params, account, change, index uint32) (*HDKey, error) {
	return k.DerivePath(
		PurposeBIP86,
		CoinType(params),
		bip32.FirstHardenedChild+account,
		change,
		index,
	)
}

// IsPrivate reports whether the key carries a private scalar.
func (k *HDKey) IsPrivate() bool {
	return k.key.IsPrivate
}

// Depth returns the derivation depth.
func (k *HDKey) Depth() byte {
	return k.key.Depth
}

// PrivateKey returns the signing key. It fails for public-only keys.
func (k *HDKey) PrivateKey() (*crypto.PrivateKey, error) {
	if !k.key.IsPrivate {
		return nil, fmt.Errorf("public-only key")
	}
	return crypto.PrivateKeyFromBytes(k.key.Key)
}

// PublicKeyBytes returns the 33-byte compressed public key.
func (k *HDKey) PublicKeyBytes() []byte {
	if k.key.IsPrivate {
		return k.key.PublicKey().Key
	}
	return k.key.Key
}

// Neuter returns the public-only counterpart.
func (k *HDKey) Neuter() *HDKey {
	return &HDKey{key: k.key.PublicKey()}
}
