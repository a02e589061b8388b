package minter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"

	"github.com/Klingon-tech/cat721-cli/internal/log"
	"github.com/Klingon-tech/cat721-cli/pkg/state"
	"github.com/Klingon-tech/cat721-cli/pkg/types"
)

// ErrLineageNotFound is returned when no input of a minter's producing
// transaction spends the collection's minter script.
var ErrLineageNotFound = errors.New("minter lineage not found")

// RawTxSource fetches confirmed or mempool transactions by id.
type RawTxSource interface {
	RawTransaction(ctx context.Context, txid types.Hash) (*wire.MsgTx, error)
}

// Reconstructor recovers parallel closed minter state from the chain.
//
// A parallel closed mint spends a minter whose nextLocalId is n, issues
// id n, and creates two minters at outputs 1 and 2. The spending witness
// carries n at a fixed slot; the minter at output i continues at 2n+i.
// Ids therefore follow binary heap numbering and no id is issued twice.
type Reconstructor struct {
	chain  RawTxSource
	params *chaincfg.Params
	layout state.WitnessLayout
}

// NewReconstructor creates a reconstructor reading transactions from chain.
func NewReconstructor(chain RawTxSource, params *chaincfg.Params) *Reconstructor {
	return &Reconstructor{chain: chain, params: params, layout: state.WitnessLayoutV1}
}

// DeriveMinterState returns the state of the minter output txid:vout.
// The collection's reveal transaction yields the genesis state without a
// chain lookup.
func (r *Reconstructor) DeriveMinterState(ctx context.Context, info *types.CollectionInfo, txid types.Hash, vout uint32) (state.ParallelClosedMinterState, error) {
	nft, err := nftScript(info.CollectionAddr, r.params)
	if err != nil {
		return state.ParallelClosedMinterState{}, err
	}
	if txid == info.RevealTxID {
		_, genesis := state.InitialParallelClosed(nft)
		return genesis, nil
	}

	minterScript, err := AddressScript(info.MinterAddr, r.params)
	if err != nil {
		return state.ParallelClosedMinterState{}, &state.DecodeError{Layout: "minter address", Reason: err.Error()}
	}

	tx, err := r.chain.RawTransaction(ctx, txid)
	if err != nil {
		return state.ParallelClosedMinterState{}, fmt.Errorf("fetch producing tx %s: %w", txid, err)
	}

	for i, in := range tx.TxIn {
		leaf, ok := r.layout.LockingScript(in.Witness)
		if !ok {
			continue
		}
		p2tr, err := ScriptToP2TR(leaf)
		if err != nil || !bytes.Equal(p2tr, minterScript) {
			continue
		}

		counter, err := r.layout.Counter(in.Witness)
		if err != nil {
			return state.ParallelClosedMinterState{}, fmt.Errorf("input %d of %s: %w", i, txid, err)
		}
		if counter > (math.MaxUint64-uint64(vout))/2 {
			return state.ParallelClosedMinterState{}, &state.DecodeError{
				Layout: "witness",
				Reason: fmt.Sprintf("counter %d overflows next local id", counter),
			}
		}
		next := counter*2 + uint64(vout)
		log.Minter.Debug().
			Str("outpoint", types.Outpoint{TxID: txid, Index: vout}.String()).
			Uint64("counter", counter).
			Uint64("next_local_id", next).
			Msg("Reconstructed parallel minter state")
		return state.ParallelClosedMinterState{NFTScript: nft, NextLocalID: next}, nil
	}

	return state.ParallelClosedMinterState{}, fmt.Errorf("%w: %s", ErrLineageNotFound, txid)
}
