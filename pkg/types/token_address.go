package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
)

// TokenAddressSize is the length of a token address in bytes.
const TokenAddressSize = 20

// TokenAddress identifies an NFT owner inside protocol state: the hash160 of
// a taproot output key, or the program of a p2wpkh address.
type TokenAddress [TokenAddressSize]byte

// IsZero returns true if the address is all zeros.
func (a TokenAddress) IsZero() bool {
	return a == TokenAddress{}
}

// String returns the hex-encoded address.
func (a TokenAddress) String() string {
	return hex.EncodeToString(a[:])
}

// MarshalJSON encodes the address as hex.
func (a TokenAddress) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes a hex string.
func (a *TokenAddress) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*a = TokenAddress{}
		return nil
	}
	parsed, err := ParseTokenAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseTokenAddress parses 40 hex characters, optionally prefixed with '#'.
func ParseTokenAddress(s string) (TokenAddress, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "#"))
	if err != nil {
		return TokenAddress{}, fmt.Errorf("invalid token address: %w", err)
	}
	if len(b) != TokenAddressSize {
		return TokenAddress{}, fmt.Errorf("token address must be %d bytes, got %d", TokenAddressSize, len(b))
	}
	var a TokenAddress
	copy(a[:], b)
	return a, nil
}

// TokenAddressFromAddress derives the token address of a taproot or p2wpkh
// address. Other address types cannot own protocol outputs.
func TokenAddressFromAddress(addr btcutil.Address) (TokenAddress, error) {
	var a TokenAddress
	switch addr := addr.(type) {
	case *btcutil.AddressTaproot:
		copy(a[:], btcutil.Hash160(addr.WitnessProgram()))
	case *btcutil.AddressWitnessPubKeyHash:
		copy(a[:], addr.WitnessProgram())
	default:
		return TokenAddress{}, fmt.Errorf("unsupported address type %T", addr)
	}
	return a, nil
}
