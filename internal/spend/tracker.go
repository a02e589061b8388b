// Package spend remembers outpoints this client has already spent so that
// indexer lag cannot hand them back as candidates.
package spend

import (
	"sort"
	"sync"

	"github.com/btcsuite/btcd/wire"

	"github.com/Klingon-tech/cat721-cli/internal/log"
	"github.com/Klingon-tech/cat721-cli/pkg/types"
)

// DefaultResetThreshold is how far, in blocks, the indexer may run ahead of
// the watermark before the spent set is considered stale.
const DefaultResetThreshold = 100

// Tracker is a session-owned set of spent outpoints plus the indexer height
// it was last reconciled against. It is safe for concurrent use.
type Tracker struct {
	mu        sync.RWMutex
	spent     map[types.Outpoint]struct{}
	height    uint64
	threshold uint64
	store     *Store
}

// NewTracker returns an empty in-memory tracker. A zero threshold means
// DefaultResetThreshold.
func NewTracker(threshold uint64) *Tracker {
	if threshold == 0 {
		threshold = DefaultResetThreshold
	}
	return &Tracker{
		spent:     make(map[types.Outpoint]struct{}),
		threshold: threshold,
	}
}

// IsUnspent reports whether op has not been marked spent since the last reset.
func (t *Tracker) IsUnspent(op types.Outpoint) bool {
	t.mu.RLock()
	_, ok := t.spent[op]
	t.mu.RUnlock()
	return !ok
}

// MarkSpent records outpoints as spent. Marking twice is harmless.
func (t *Tracker) MarkSpent(ops ...types.Outpoint) {
	t.mu.Lock()
	for _, op := range ops {
		t.spent[op] = struct{}{}
	}
	t.mu.Unlock()
}

// UpdateSpends marks every input of a broadcast transaction spent.
func (t *Tracker) UpdateSpends(tx *wire.MsgTx) {
	ops := make([]types.Outpoint, 0, len(tx.TxIn))
	for _, in := range tx.TxIn {
		ops = append(ops, types.Outpoint{
			TxID:  types.HashFromChain(in.PreviousOutPoint.Hash),
			Index: in.PreviousOutPoint.Index,
		})
	}
	t.MarkSpent(ops...)
	log.Spend.Debug().Str("txid", tx.TxHash().String()).Int("inputs", len(ops)).Msg("Marked inputs spent")
}

// BlockHeight returns the watermark.
func (t *Tracker) BlockHeight() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.height
}

// UpdateBlockHeight raises the watermark. Lower heights are ignored.
func (t *Tracker) UpdateBlockHeight(h uint64) {
	t.mu.Lock()
	if h > t.height {
		t.height = h
	}
	t.mu.Unlock()
}

// Reset forgets every spent outpoint. The watermark is left alone.
func (t *Tracker) Reset() {
	t.mu.Lock()
	n := len(t.spent)
	t.spent = make(map[types.Outpoint]struct{})
	t.mu.Unlock()
	log.Spend.Info().Int("forgotten", n).Msg("Spent set reset")
}

// Threshold returns the reset threshold in blocks.
func (t *Tracker) Threshold() uint64 { return t.threshold }

// Sync reconciles the tracker with an indexer height: the set is reset when
// trackerHeight is more than the threshold past the watermark, and the
// watermark then advances to trackerHeight. Callers sync before filtering
// indexer results.
func (t *Tracker) Sync(trackerHeight uint64) (reset bool) {
	t.mu.Lock()
	if trackerHeight > t.height && trackerHeight-t.height > t.threshold {
		reset = true
		if len(t.spent) > 0 {
			log.Spend.Info().
				Uint64("watermark", t.height).
				Uint64("tracker_height", trackerHeight).
				Int("forgotten", len(t.spent)).
				Msg("Indexer moved past threshold, resetting spent set")
		}
		t.spent = make(map[types.Outpoint]struct{})
	}
	if trackerHeight > t.height {
		t.height = trackerHeight
	}
	t.mu.Unlock()
	return reset
}

// FilterUnspent returns the utxos not marked spent, preserving order.
func (t *Tracker) FilterUnspent(utxos []types.UTXO) []types.UTXO {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]types.UTXO, 0, len(utxos))
	for _, u := range utxos {
		if _, ok := t.spent[u.Outpoint]; !ok {
			out = append(out, u)
		}
	}
	return out
}

// Spent returns the spent outpoints in sorted order.
func (t *Tracker) Spent() []types.Outpoint {
	t.mu.RLock()
	out := make([]types.Outpoint, 0, len(t.spent))
	for op := range t.spent {
		out = append(out, op)
	}
	t.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Len returns the number of spent outpoints.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.spent)
}

// Flush persists the tracker to its store. It is a no-op for trackers
// without one.
func (t *Tracker) Flush() error {
	if t.store == nil {
		return nil
	}
	t.mu.RLock()
	snap := snapshot{Version: snapshotVersion, Height: t.height, Spends: make([]types.Outpoint, 0, len(t.spent))}
	for op := range t.spent {
		snap.Spends = append(snap.Spends, op)
	}
	t.mu.RUnlock()
	return t.store.save(snap)
}
