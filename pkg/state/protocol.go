package state

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/Klingon-tech/cat721-cli/pkg/crypto"
)

// MaxStateOutputs is the number of state slots a protocol transaction carries.
const MaxStateOutputs = 5

// TxoStateHashes holds one state hash per protocol output, in output order.
// A zero digest marks an output without protocol state.
type TxoStateHashes []crypto.Digest

// HashesOf hashes each output's encoded state. Empty entries stay empty.
func HashesOf(outputs [][]byte) TxoStateHashes {
	hashes := make(TxoStateHashes, len(outputs))
	for i, data := range outputs {
		if len(data) == 0 {
			continue
		}
		hashes[i] = crypto.Hash160(data)
	}
	return hashes
}

// MarshalJSON encodes the list as hex strings; empty slots are "".
func (h TxoStateHashes) MarshalJSON() ([]byte, error) {
	out := make([]string, len(h))
	for i, d := range h {
		if !d.IsZero() {
			out[i] = d.String()
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a list of hex strings.
func (h *TxoStateHashes) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(TxoStateHashes, len(raw))
	for i, s := range raw {
		if s == "" {
			continue
		}
		b, err := hex.DecodeString(s)
		if err != nil {
			return fmt.Errorf("state hash %d: %w", i, err)
		}
		if len(b) != crypto.DigestSize {
			return fmt.Errorf("state hash %d: length %d, want %d", i, len(b), crypto.DigestSize)
		}
		copy(out[i][:], b)
	}
	*h = out
	return nil
}

// ProtocolState is the state hash list of one transaction. Its root is
// what the covenant commits to in the first output.
type ProtocolState struct {
	hashes TxoStateHashes
}

// EmptyProtocolState returns a state with every slot empty.
func EmptyProtocolState() *ProtocolState {
	return &ProtocolState{hashes: make(TxoStateHashes, MaxStateOutputs)}
}

// UpdateDataList stores the hash of data in slot i.
func (p *ProtocolState) UpdateDataList(i int, data []byte) error {
	if i < 0 || i >= len(p.hashes) {
		return fmt.Errorf("state slot %d out of range [0,%d)", i, len(p.hashes))
	}
	if len(data) == 0 {
		p.hashes[i] = crypto.Digest{}
		return nil
	}
	p.hashes[i] = crypto.Hash160(data)
	return nil
}

// StateHashes returns a copy of the slot hashes.
func (p *ProtocolState) StateHashes() TxoStateHashes {
	out := make(TxoStateHashes, len(p.hashes))
	copy(out, p.hashes)
	return out
}

// HashRoot is hash160 over the concatenated non-empty slot hashes.
func (p *ProtocolState) HashRoot() crypto.Digest {
	buf := make([]byte, 0, len(p.hashes)*crypto.DigestSize)
	for _, d := range p.hashes {
		if !d.IsZero() {
			buf = append(buf, d[:]...)
		}
	}
	return crypto.Hash160(buf)
}

// InitialParallelClosed returns the genesis state of a parallel closed
// minter and the protocol state of its reveal transaction.
func InitialParallelClosed(nftScript Script) (*ProtocolState, ParallelClosedMinterState) {
	s := ParallelClosedMinterState{NFTScript: nftScript, NextLocalID: 0}
	ps := EmptyProtocolState()
	data, _ := EncodeMinter(s)
	_ = ps.UpdateDataList(0, data)
	return ps, s
}
