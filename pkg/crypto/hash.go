// Package crypto provides the hash and signature primitives used by the
// CAT721 protocol client.
package crypto

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/zeebo/blake3"
)

// DigestSize is the length of a hash160 digest in bytes.
const DigestSize = 20

// Digest is a hash160 (RIPEMD160(SHA256(x))) value. Protocol state hashes and
// collection Merkle nodes are digests.
type Digest [DigestSize]byte

// IsZero returns true if the digest is all zeros.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// String returns the hex-encoded digest.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// MarshalText encodes the digest as hex.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a 40-character hex digest.
func (d *Digest) UnmarshalText(text []byte) error {
	if hex.DecodedLen(len(text)) != DigestSize {
		return fmt.Errorf("digest must be %d bytes, got %d", DigestSize, hex.DecodedLen(len(text)))
	}
	_, err := hex.Decode(d[:], text)
	return err
}

// Hash160 computes RIPEMD160(SHA256(data)).
func Hash160(data []byte) Digest {
	var d Digest
	copy(d[:], btcutil.Hash160(data))
	return d
}

// HashConcat hashes the concatenation of two digests.
// Used for building merkle trees.
func HashConcat(a, b Digest) Digest {
	var buf [2 * DigestSize]byte
	copy(buf[:DigestSize], a[:])
	copy(buf[DigestSize:], b[:])
	return Hash160(buf[:])
}

// Checksum computes a BLAKE3-256 hash of the input data. It guards locally
// persisted records against corruption and is never part of protocol state.
func Checksum(data []byte) [32]byte {
	return blake3.Sum256(data)
}
