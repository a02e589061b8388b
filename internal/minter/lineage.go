package minter

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"

	"github.com/Klingon-tech/cat721-cli/pkg/state"
)

// numsKeyHex is the BIP-341 provably unspendable internal key. Covenant
// outputs use it so they can only be spent through their script leaf.
const numsKeyHex = "50929b74c1a04954b78b4b6035e97a5e078a5a0f28ec96d547bfee9ace803ac0"

var numsKey *btcec.PublicKey

func init() {
	b, err := hex.DecodeString(numsKeyHex)
	if err != nil {
		panic(err)
	}
	numsKey, err = schnorr.ParsePubKey(b)
	if err != nil {
		panic(err)
	}
}

// ScriptToP2TR returns the P2TR locking script of an output committing to a
// single tapscript leaf under the NUMS internal key.
func ScriptToP2TR(leafScript []byte) ([]byte, error) {
	leaf := txscript.NewBaseTapLeaf(leafScript)
	tree := txscript.AssembleTaprootScriptTree(leaf)
	root := tree.RootNode.TapHash()
	outputKey := txscript.ComputeTaprootOutputKey(numsKey, root[:])
	return txscript.PayToTaprootScript(outputKey)
}

// AddressScript returns the locking script of addr on the given network.
func AddressScript(addr string, params *chaincfg.Params) ([]byte, error) {
	if addr == "" {
		return nil, fmt.Errorf("empty address")
	}
	decoded, err := btcutil.DecodeAddress(addr, params)
	if err != nil {
		return nil, fmt.Errorf("decode address %s: %w", addr, err)
	}
	if !decoded.IsForNet(params) {
		return nil, fmt.Errorf("address %s is not for %s", addr, params.Name)
	}
	return txscript.PayToAddrScript(decoded)
}

// nftScript returns the collection address as the minter state's NFT
// script field.
func nftScript(collectionAddr string, params *chaincfg.Params) (state.Script, error) {
	script, err := AddressScript(collectionAddr, params)
	if err != nil {
		return state.Script{}, &state.DecodeError{Layout: "collection address", Reason: err.Error()}
	}
	return state.ScriptFromBytes(script)
}
