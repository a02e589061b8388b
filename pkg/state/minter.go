package state

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/Klingon-tech/cat721-cli/pkg/crypto"
)

// Script is a P2TR locking script as stored in minter state.
type Script [ScriptSize]byte

// ScriptFromBytes copies a 34-byte locking script.
func ScriptFromBytes(b []byte) (Script, error) {
	var s Script
	if len(b) != ScriptSize {
		return s, decodeErr("script", "length %d, want %d", len(b), ScriptSize)
	}
	copy(s[:], b)
	return s, nil
}

// MarshalText encodes the script as hex.
func (s Script) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(s[:])), nil
}

// MinterState is the decoded state of one minter output. The set of
// implementations is closed: ClosedMinterState, OpenMinterState and
// ParallelClosedMinterState.
type MinterState interface {
	Kind() MinterKind
	// NextID is the local id the next mint from this output will issue.
	NextID() uint64
	sealed()
}

// ClosedMinterState is the state of a centrally authorized minter.
type ClosedMinterState struct {
	NFTScript       Script
	QuotaMaxLocalID uint64
	NextLocalID     uint64
}

// OpenMinterState is the state of a Merkle-proof gated public minter.
type OpenMinterState struct {
	NFTScript   Script
	MerkleRoot  crypto.Digest
	NextLocalID uint64
}

// ParallelClosedMinterState is the state of one branch of a parallel closed
// minter. Each mint spends one branch and creates two, so ids are split by
// parity between sibling outputs.
type ParallelClosedMinterState struct {
	NFTScript   Script
	NextLocalID uint64
}

func (ClosedMinterState) Kind() MinterKind         { return KindClosed }
func (OpenMinterState) Kind() MinterKind           { return KindOpen }
func (ParallelClosedMinterState) Kind() MinterKind { return KindParallelClosed }

func (s ClosedMinterState) NextID() uint64         { return s.NextLocalID }
func (s OpenMinterState) NextID() uint64           { return s.NextLocalID }
func (s ParallelClosedMinterState) NextID() uint64 { return s.NextLocalID }

func (ClosedMinterState) sealed()         {}
func (OpenMinterState) sealed()           {}
func (ParallelClosedMinterState) sealed() {}

// EncodeMinter serializes a minter state in its covenant layout.
func EncodeMinter(s MinterState) ([]byte, error) {
	switch s := s.(type) {
	case ClosedMinterState:
		buf := make([]byte, 0, ClosedMinterSize)
		buf = append(buf, s.NFTScript[:]...)
		buf = binary.LittleEndian.AppendUint64(buf, s.QuotaMaxLocalID)
		buf = binary.LittleEndian.AppendUint64(buf, s.NextLocalID)
		return buf, nil
	case OpenMinterState:
		buf := make([]byte, 0, OpenMinterSize)
		buf = append(buf, s.NFTScript[:]...)
		buf = append(buf, s.MerkleRoot[:]...)
		buf = binary.LittleEndian.AppendUint64(buf, s.NextLocalID)
		return buf, nil
	case ParallelClosedMinterState:
		buf := make([]byte, 0, ParallelClosedMinterSize)
		buf = append(buf, s.NFTScript[:]...)
		buf = binary.LittleEndian.AppendUint64(buf, s.NextLocalID)
		return buf, nil
	case nil:
		return nil, fmt.Errorf("encode minter: nil state")
	default:
		return nil, fmt.Errorf("encode minter: unsupported state %T", s)
	}
}

// DecodeMinter parses minter state bytes for the given kind.
func DecodeMinter(b []byte, kind MinterKind) (MinterState, error) {
	layout := kind.String() + " minter"
	switch kind {
	case KindClosed:
		if len(b) != ClosedMinterSize {
			return nil, decodeErr(layout, "length %d, want %d", len(b), ClosedMinterSize)
		}
		var s ClosedMinterState
		copy(s.NFTScript[:], b[:ScriptSize])
		s.QuotaMaxLocalID = binary.LittleEndian.Uint64(b[ScriptSize:])
		s.NextLocalID = binary.LittleEndian.Uint64(b[ScriptSize+LocalIDSize:])
		return s, nil
	case KindOpen:
		if len(b) != OpenMinterSize {
			return nil, decodeErr(layout, "length %d, want %d", len(b), OpenMinterSize)
		}
		var s OpenMinterState
		copy(s.NFTScript[:], b[:ScriptSize])
		copy(s.MerkleRoot[:], b[ScriptSize:ScriptSize+MerkleRootSize])
		s.NextLocalID = binary.LittleEndian.Uint64(b[ScriptSize+MerkleRootSize:])
		return s, nil
	case KindParallelClosed:
		if len(b) != ParallelClosedMinterSize {
			return nil, decodeErr(layout, "length %d, want %d", len(b), ParallelClosedMinterSize)
		}
		var s ParallelClosedMinterState
		copy(s.NFTScript[:], b[:ScriptSize])
		s.NextLocalID = binary.LittleEndian.Uint64(b[ScriptSize:])
		return s, nil
	default:
		return nil, decodeErr("minter", "unknown kind %d", kind)
	}
}
