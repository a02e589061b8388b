package minter

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Klingon-tech/cat721-cli/pkg/crypto"
	"github.com/Klingon-tech/cat721-cli/pkg/state"
	"github.com/Klingon-tech/cat721-cli/pkg/types"
)

// Minter is a spendable minter output with its decoded state. Exactly one
// of Closed, Open and Parallel is set, matching Kind.
type Minter struct {
	UTXO           types.UTXO
	TxoStateHashes state.TxoStateHashes
	Kind           state.MinterKind

	Closed   *state.ClosedMinterState
	Open     *state.OpenMinterState
	Parallel *state.ParallelClosedMinterState
}

func newMinter(u types.UTXO, hashes state.TxoStateHashes, s state.MinterState) *Minter {
	m := &Minter{UTXO: u, TxoStateHashes: hashes, Kind: s.Kind()}
	switch s := s.(type) {
	case state.ClosedMinterState:
		m.Closed = &s
	case state.OpenMinterState:
		m.Open = &s
	case state.ParallelClosedMinterState:
		m.Parallel = &s
	}
	return m
}

// State returns the variant's state.
func (m *Minter) State() state.MinterState {
	switch m.Kind {
	case state.KindClosed:
		return *m.Closed
	case state.KindOpen:
		return *m.Open
	case state.KindParallelClosed:
		return *m.Parallel
	default:
		panic(fmt.Sprintf("minter: invalid kind %d", m.Kind))
	}
}

// NextLocalID is the local id the next mint from this output issues.
func (m *Minter) NextLocalID() uint64 {
	return m.State().NextID()
}

// indexedState is the JSON the indexer reports for minter state.
type indexedState struct {
	NFTScript       string          `json:"nftScript"`
	MerkleRoot      string          `json:"merkleRoot"`
	QuotaMaxLocalID json.RawMessage `json:"quotaMaxLocalId"`
	NextLocalID     json.RawMessage `json:"nextLocalId"`
}

// decodeIndexedState turns the indexer's state field into a minter state.
// The field is either the hex of the encoded state or a JSON object.
func decodeIndexedState(raw json.RawMessage, kind state.MinterKind) (state.MinterState, error) {
	layout := kind.String() + " minter"
	if len(raw) == 0 || string(raw) == "null" {
		return nil, &state.DecodeError{Layout: layout, Reason: "indexer returned no state"}
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, &state.DecodeError{Layout: layout, Reason: err.Error()}
		}
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil, &state.DecodeError{Layout: layout, Reason: err.Error()}
		}
		return state.DecodeMinter(b, kind)
	}

	var js indexedState
	if err := json.Unmarshal(raw, &js); err != nil {
		return nil, &state.DecodeError{Layout: layout, Reason: err.Error()}
	}
	script, err := hex.DecodeString(js.NFTScript)
	if err != nil {
		return nil, &state.DecodeError{Layout: layout, Reason: "nftScript: " + err.Error()}
	}
	nft, err := state.ScriptFromBytes(script)
	if err != nil {
		return nil, err
	}
	next, err := jsonUint(js.NextLocalID)
	if err != nil {
		return nil, &state.DecodeError{Layout: layout, Reason: "nextLocalId: " + err.Error()}
	}

	switch kind {
	case state.KindClosed:
		quota, err := jsonUint(js.QuotaMaxLocalID)
		if err != nil {
			return nil, &state.DecodeError{Layout: layout, Reason: "quotaMaxLocalId: " + err.Error()}
		}
		return state.ClosedMinterState{NFTScript: nft, QuotaMaxLocalID: quota, NextLocalID: next}, nil
	case state.KindOpen:
		root, err := hex.DecodeString(js.MerkleRoot)
		if err != nil || len(root) != crypto.DigestSize {
			return nil, &state.DecodeError{Layout: layout, Reason: fmt.Sprintf("merkleRoot %q", js.MerkleRoot)}
		}
		s := state.OpenMinterState{NFTScript: nft, NextLocalID: next}
		copy(s.MerkleRoot[:], root)
		return s, nil
	case state.KindParallelClosed:
		return state.ParallelClosedMinterState{NFTScript: nft, NextLocalID: next}, nil
	default:
		return nil, &state.DecodeError{Layout: layout, Reason: "state is not indexed for this kind"}
	}
}

func jsonUint(raw json.RawMessage) (uint64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, fmt.Errorf("missing")
	}
	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
	}
	return strconv.ParseUint(s, 10, 64)
}
