package spend

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/Klingon-tech/cat721-cli/pkg/types"
)

func testOutpoint(b byte, idx uint32) types.Outpoint {
	var h types.Hash
	h[0] = b
	return types.Outpoint{TxID: h, Index: idx}
}

func TestMarkSpent(t *testing.T) {
	tr := NewTracker(0)
	op := testOutpoint(1, 0)

	if !tr.IsUnspent(op) {
		t.Fatal("fresh outpoint should be unspent")
	}
	tr.MarkSpent(op)
	tr.MarkSpent(op)
	if tr.IsUnspent(op) {
		t.Fatal("IsUnspent = true after MarkSpent")
	}
	if tr.Len() != 1 {
		t.Errorf("Len = %d, want 1", tr.Len())
	}
	if !tr.IsUnspent(testOutpoint(1, 1)) {
		t.Error("sibling output should stay unspent")
	}
}

func TestResetForgets(t *testing.T) {
	tr := NewTracker(0)
	ops := []types.Outpoint{testOutpoint(1, 0), testOutpoint(2, 3)}
	tr.MarkSpent(ops...)
	tr.UpdateBlockHeight(500)
	tr.Reset()

	for _, op := range ops {
		if !tr.IsUnspent(op) {
			t.Errorf("%s still spent after Reset", op)
		}
	}
	if tr.BlockHeight() != 500 {
		t.Errorf("Reset changed the watermark to %d", tr.BlockHeight())
	}
}

func TestUpdateBlockHeightMonotonic(t *testing.T) {
	tr := NewTracker(0)
	tr.UpdateBlockHeight(10)
	tr.UpdateBlockHeight(5)
	if got := tr.BlockHeight(); got != 10 {
		t.Errorf("BlockHeight = %d, want 10", got)
	}
}

func TestSyncThreshold(t *testing.T) {
	tests := []struct {
		name      string
		threshold uint64
		delta     uint64
		wantReset bool
	}{
		{"delta 100 keeps", 0, 100, false},
		{"delta 101 resets", 0, 101, true},
		{"delta 0 keeps", 0, 0, false},
		{"custom threshold", 6, 7, true},
		{"custom threshold edge", 6, 6, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker(tt.threshold)
			tr.UpdateBlockHeight(1000)
			op := testOutpoint(9, 0)
			tr.MarkSpent(op)

			reset := tr.Sync(1000 + tt.delta)
			if reset != tt.wantReset {
				t.Fatalf("Sync reset = %v, want %v", reset, tt.wantReset)
			}
			if tr.IsUnspent(op) != tt.wantReset {
				t.Errorf("IsUnspent after Sync = %v, want %v", tr.IsUnspent(op), tt.wantReset)
			}
			if tr.BlockHeight() != 1000+tt.delta {
				t.Errorf("watermark = %d, want %d", tr.BlockHeight(), 1000+tt.delta)
			}
		})
	}
}

func TestSyncBehindWatermark(t *testing.T) {
	tr := NewTracker(0)
	tr.UpdateBlockHeight(1000)
	op := testOutpoint(1, 0)
	tr.MarkSpent(op)

	if tr.Sync(800) {
		t.Fatal("lagging indexer must not reset")
	}
	if tr.BlockHeight() != 1000 {
		t.Errorf("watermark moved back to %d", tr.BlockHeight())
	}
	if tr.IsUnspent(op) {
		t.Error("spent outpoint forgotten")
	}
}

func TestUpdateSpends(t *testing.T) {
	tr := NewTracker(0)
	tx := wire.NewMsgTx(2)
	var h1, h2 chainhash.Hash
	h1[0] = 0xaa
	h2[31] = 0xbb
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&h1, 0), nil, nil))
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&h2, 4), nil, nil))

	tr.UpdateSpends(tx)

	for _, in := range tx.TxIn {
		op := types.Outpoint{TxID: types.HashFromChain(in.PreviousOutPoint.Hash), Index: in.PreviousOutPoint.Index}
		if tr.IsUnspent(op) {
			t.Errorf("input %s not marked spent", op)
		}
	}
}

func TestFilterUnspent(t *testing.T) {
	tr := NewTracker(0)
	utxos := []types.UTXO{
		{Outpoint: testOutpoint(1, 0), Satoshis: 1},
		{Outpoint: testOutpoint(2, 0), Satoshis: 2},
		{Outpoint: testOutpoint(3, 0), Satoshis: 3},
	}
	tr.MarkSpent(utxos[1].Outpoint)

	got := tr.FilterUnspent(utxos)
	if len(got) != 2 || got[0].Satoshis != 1 || got[1].Satoshis != 3 {
		t.Errorf("FilterUnspent = %+v", got)
	}
}

func TestSpentSorted(t *testing.T) {
	tr := NewTracker(0)
	tr.MarkSpent(testOutpoint(3, 0), testOutpoint(1, 2), testOutpoint(1, 1))
	got := tr.Spent()
	for i := 1; i < len(got); i++ {
		if !got[i-1].Less(got[i]) {
			t.Fatalf("Spent not sorted: %v", got)
		}
	}
}
