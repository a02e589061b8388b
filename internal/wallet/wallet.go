package wallet

import (
	"fmt"

	"github.com/Klingon-tech/cat721-cli/pkg/crypto"
	"github.com/Klingon-tech/cat721-cli/pkg/types"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// Wallet is a single BIP-86 taproot key. The internal key signs script-path
// spends of commit scripts; the tweaked key signs key-path fee inputs.
type Wallet struct {
	key     *crypto.PrivateKey
	tweaked *crypto.PrivateKey
	address *btcutil.AddressTaproot
	params  *chaincfg.Params
}

// FromSeed derives the wallet key at m/86'/coin'/0'/0/0.
func FromSeed(seed []byte, params *chaincfg.Params) (*Wallet, error) {
	master, err := NewMasterKey(seed)
	if err != nil {
		return nil, err
	}
	child, err := master.DeriveTaproot(params, 0, ChangeExternal, 0)
	if err != nil {
		return nil, err
	}
	key, err := child.PrivateKey()
	if err != nil {
		return nil, err
	}
	return New(key, params)
}

// FromMnemonic derives the wallet key from a BIP-39 mnemonic.
func FromMnemonic(mnemonic, passphrase string, params *chaincfg.Params) (*Wallet, error) {
	seed, err := SeedFromMnemonic(mnemonic, passphrase)
	if err != nil {
		return nil, err
	}
	return FromSeed(seed, params)
}

// New wraps an existing private key.
func New(key *crypto.PrivateKey, params *chaincfg.Params) (*Wallet, error) {
	addr, err := btcutil.NewAddressTaproot(crypto.TaprootOutputKey(key.PubKey(), nil), params)
	if err != nil {
		return nil, fmt.Errorf("taproot address: %w", err)
	}
	return &Wallet{
		key:     key,
		tweaked: key.TapTweak(nil),
		address: addr,
		params:  params,
	}, nil
}

// XOnlyPubKey returns the 32-byte internal key used in commit scripts.
func (w *Wallet) XOnlyPubKey() []byte {
	return w.key.PublicKey()
}

// Address returns the BIP-86 key-path address.
func (w *Wallet) Address() *btcutil.AddressTaproot {
	return w.address
}

// PkScript returns the P2TR output script of Address.
func (w *Wallet) PkScript() ([]byte, error) {
	return txscript.PayToAddrScript(w.address)
}

// TokenAddress returns the protocol owner of the wallet address.
func (w *Wallet) TokenAddress() types.TokenAddress {
	a, _ := types.TokenAddressFromAddress(w.address)
	return a
}

// SignSchnorr signs a script-path sighash with the internal key.
func (w *Wallet) SignSchnorr(hash []byte) ([]byte, error) {
	return w.key.Sign(hash)
}

// SignKeyPath signs a key-path sighash with the tweaked key.
func (w *Wallet) SignKeyPath(hash []byte) ([]byte, error) {
	return w.tweaked.Sign(hash)
}

// Zero wipes key material.
func (w *Wallet) Zero() {
	w.key.Zero()
	w.tweaked.Zero()
}
