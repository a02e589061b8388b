// Package types defines the primitive types shared by the CAT721 client.
package types

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// HashSize is the length of a txid in bytes.
const HashSize = chainhash.HashSize

// Hash is a txid in display order: the byte order of the hex strings used
// by the tracker and bitcoind RPC, reversed from btcd's wire order.
type Hash [HashSize]byte

func (h Hash) IsZero() bool { return h == Hash{} }

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// ChainHash returns h in wire order.
func (h Hash) ChainHash() chainhash.Hash {
	var ch chainhash.Hash
	for i, b := range h {
		ch[HashSize-1-i] = b
	}
	return ch
}

// HashFromChain converts a wire-order hash to display order.
func HashFromChain(ch chainhash.Hash) Hash {
	var h Hash
	for i, b := range ch {
		h[HashSize-1-i] = b
	}
	return h
}

// ParseHash decodes a 64-character hex txid.
func ParseHash(s string) (Hash, error) {
	var h Hash
	if len(s) != 2*HashSize {
		return h, fmt.Errorf("txid must be %d hex chars, got %d", 2*HashSize, len(s))
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return Hash{}, fmt.Errorf("invalid txid %q: %w", s, err)
	}
	return h, nil
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText accepts an empty string as the zero hash.
func (h *Hash) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*h = Hash{}
		return nil
	}
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
