package types

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// Amount is an arbitrary-precision non-negative integer used for collection
// supply fields. The tracker sends these as decimal strings. The zero value
// is 0. Amounts are immutable once constructed.
type Amount struct {
	v *big.Int
}

// NewAmount returns an Amount holding n.
func NewAmount(n uint64) Amount {
	return Amount{v: new(big.Int).SetUint64(n)}
}

// ParseAmount parses a base-10 integer string.
func ParseAmount(s string) (Amount, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return Amount{}, fmt.Errorf("invalid amount %q", s)
	}
	if v.Sign() < 0 {
		return Amount{}, fmt.Errorf("negative amount %q", s)
	}
	return Amount{v: v}, nil
}

func (a Amount) big() *big.Int {
	if a.v == nil {
		return new(big.Int)
	}
	return a.v
}

// Big returns a copy of the value.
func (a Amount) Big() *big.Int {
	return new(big.Int).Set(a.big())
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a.big().Sign() == 0
}

// Uint64 returns the value when it fits in 64 bits.
func (a Amount) Uint64() (uint64, bool) {
	v := a.big()
	if !v.IsUint64() {
		return 0, false
	}
	return v.Uint64(), true
}

// Cmp compares a with the 64-bit value n.
func (a Amount) Cmp(n uint64) int {
	return a.big().Cmp(new(big.Int).SetUint64(n))
}

// String returns the decimal representation.
func (a Amount) String() string {
	return a.big().String()
}

// MarshalJSON encodes the amount as a decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts a decimal string or a JSON integer.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		*a = Amount{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
