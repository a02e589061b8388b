package mint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"

	"github.com/Klingon-tech/cat721-cli/internal/collection"
	"github.com/Klingon-tech/cat721-cli/internal/minter"
	"github.com/Klingon-tech/cat721-cli/internal/resource"
	"github.com/Klingon-tech/cat721-cli/internal/spend"
	"github.com/Klingon-tech/cat721-cli/internal/tracker"
	"github.com/Klingon-tech/cat721-cli/internal/wallet"
	"github.com/Klingon-tech/cat721-cli/pkg/state"
	"github.com/Klingon-tech/cat721-cli/pkg/types"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

type fakeTracker struct {
	status    *tracker.Status
	statusErr error
	info      *types.CollectionInfo
	infoErr   error
	nft       *tracker.NFTUTXO
}

func (f *fakeTracker) Status(context.Context) (*tracker.Status, error) {
	return f.status, f.statusErr
}

func (f *fakeTracker) Collection(_ context.Context, id string) (*types.CollectionInfo, error) {
	if f.info == nil || f.info.CollectionID != id {
		return nil, f.infoErr
	}
	return f.info, f.infoErr
}

func (f *fakeTracker) NFT(_ context.Context, _ string, localID uint64) (*tracker.NFTUTXO, error) {
	if f.nft == nil || f.nft.State.LocalID != localID {
		return nil, nil
	}
	return f.nft, nil
}

// fakeSelector returns its minters in turn, then nil.
type fakeSelector struct {
	minters []*minter.Minter
	err     error
	calls   int
}

func (f *fakeSelector) Select(context.Context, *types.CollectionInfo) (*minter.Minter, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.minters) == 0 {
		return nil, nil
	}
	m := f.minters[0]
	f.minters = f.minters[1:]
	return m, nil
}

type fakeFees struct {
	utxos []types.UTXO
	addr  string
}

func (f *fakeFees) ListUnspent(_ context.Context, addr string) ([]types.UTXO, error) {
	f.addr = addr
	return f.utxos, nil
}

// fakeBuilder spends the minter (or NFT) and every fee input in one tx.
type fakeBuilder struct {
	plans     []*Plan
	sendPlans []*SendPlan
}

func spendTx(ops ...types.Outpoint) *wire.MsgTx {
	tx := wire.NewMsgTx(2)
	for _, op := range ops {
		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(ptr(op.TxID.ChainHash()), op.Index), nil, nil))
	}
	tx.AddTxOut(wire.NewTxOut(330, []byte{0x51}))
	return tx
}

func ptr[T any](v T) *T { return &v }

func (b *fakeBuilder) BuildMint(_ context.Context, p *Plan) (*Built, error) {
	b.plans = append(b.plans, p)
	ops := []types.Outpoint{p.Minter.UTXO.Outpoint}
	for _, u := range p.FeeUTXOs {
		ops = append(ops, u.Outpoint)
	}
	return &Built{Txs: []*wire.MsgTx{spendTx(ops[1:]...), spendTx(ops...)}}, nil
}

func (b *fakeBuilder) BuildSend(_ context.Context, p *SendPlan) (*Built, error) {
	b.sendPlans = append(b.sendPlans, p)
	return &Built{Txs: []*wire.MsgTx{spendTx(p.NFT.UTXO.Outpoint, p.FeeUTXOs[0].Outpoint)}}, nil
}

type fakeBroadcaster struct {
	sent   []*wire.MsgTx
	failAt int // 1-based; 0 never fails
}

func (b *fakeBroadcaster) Broadcast(_ context.Context, tx *wire.MsgTx) (types.Hash, error) {
	if b.failAt == len(b.sent)+1 {
		return types.Hash{}, errors.New("txn-mempool-conflict")
	}
	b.sent = append(b.sent, tx)
	return types.HashFromChain(tx.TxHash()), nil
}

type harness struct {
	svc        *Service
	tracker    *fakeTracker
	selector   *fakeSelector
	fees       *fakeFees
	builder    *fakeBuilder
	broadcast  *fakeBroadcaster
	spend      *spend.Tracker
	wallet     *wallet.Wallet
	resources  *resource.DirStore
	collection *types.CollectionInfo
}

func outpoint(b byte, idx uint32) types.Outpoint {
	var h types.Hash
	h[0] = b
	return types.Outpoint{TxID: h, Index: idx}
}

func closedMinter(op types.Outpoint, next, quota uint64) *minter.Minter {
	return &minter.Minter{
		UTXO:   types.UTXO{Outpoint: op, Satoshis: 330},
		Kind:   state.KindClosed,
		Closed: &state.ClosedMinterState{NextLocalID: next, QuotaMaxLocalID: quota},
	}
}

func newHarness(t *testing.T, max uint64) *harness {
	t.Helper()
	w, err := wallet.FromMnemonic(testMnemonic, "", &chaincfg.RegressionNetParams)
	if err != nil {
		t.Fatalf("FromMnemonic() error: %v", err)
	}
	h := &harness{
		tracker:   &fakeTracker{status: &tracker.Status{TrackerBlockHeight: 200}},
		selector:  &fakeSelector{},
		fees:      &fakeFees{utxos: []types.UTXO{{Outpoint: outpoint(0xfe, 0), Satoshis: 10000}}},
		builder:   &fakeBuilder{},
		broadcast: &fakeBroadcaster{},
		spend:     spend.NewTracker(0),
		wallet:    w,
		resources: resource.NewDirStore(t.TempDir()),
		collection: &types.CollectionInfo{
			CollectionID: "c0ffee_0",
			Metadata:     types.CollectionMetadata{Name: "cats", Max: types.NewAmount(max)},
		},
	}
	h.tracker.info = h.collection
	h.svc, err = New(Config{
		Tracker:     h.tracker,
		Finder:      h.selector,
		Spend:       h.spend,
		Resources:   h.resources,
		Wallet:      w,
		Builder:     h.builder,
		Broadcaster: h.broadcast,
		FeeSource:   h.fees,
		FeeRate:     2,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return h
}

func (h *harness) writeBody(t *testing.T, id uint64, body string) {
	t.Helper()
	path := filepath.Join(h.resources.Dir(), fmt.Sprintf("%d.png", id))
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error for empty config")
	}
}

func TestPrepare_Closed(t *testing.T) {
	h := newHarness(t, 100)
	h.selector.minters = []*minter.Minter{closedMinter(outpoint(1, 1), 7, 100)}
	h.writeBody(t, 7, "cat seven")

	plan, err := h.svc.Prepare(context.Background(), MintRequest{CollectionID: "c0ffee_0"})
	if err != nil {
		t.Fatalf("Prepare() error: %v", err)
	}
	if plan.LocalID != 7 {
		t.Errorf("LocalID = %d, want 7", plan.LocalID)
	}
	if string(plan.Body) != "cat seven" {
		t.Errorf("Body = %q", plan.Body)
	}
	if plan.Metadata == nil || plan.Metadata.LocalID != 7 {
		t.Errorf("Metadata = %+v, want localId 7", plan.Metadata)
	}
	if plan.Owner != h.wallet.TokenAddress() {
		t.Error("owner should default to the wallet")
	}
	if !bytes.Equal(plan.PubKeyX, h.wallet.XOnlyPubKey()) {
		t.Error("PubKeyX should be the wallet internal key")
	}
	if plan.FeeRate != 2 {
		t.Errorf("FeeRate = %d, want 2", plan.FeeRate)
	}
	if plan.ContentType != resource.DefaultContentType {
		t.Errorf("ContentType = %q", plan.ContentType)
	}
	if plan.Proof != nil {
		t.Error("closed minters carry no proof")
	}
	if h.fees.addr != h.wallet.Address().EncodeAddress() {
		t.Errorf("fee utxos listed for %q", h.fees.addr)
	}
	if h.spend.BlockHeight() != 200 {
		t.Errorf("spend watermark = %d, want 200", h.spend.BlockHeight())
	}
}

func TestPrepare_SupplyExhausted(t *testing.T) {
	h := newHarness(t, 100)
	h.selector.minters = []*minter.Minter{closedMinter(outpoint(1, 1), 100, 1000)}

	_, err := h.svc.Prepare(context.Background(), MintRequest{CollectionID: "c0ffee_0"})
	if !errors.Is(err, ErrSupplyExhausted) {
		t.Fatalf("Prepare() error = %v, want ErrSupplyExhausted", err)
	}
	if !IsTerminal(err) {
		t.Error("supply exhaustion should be terminal")
	}
}

func TestPrepare_MissingMax(t *testing.T) {
	h := newHarness(t, 0)
	h.selector.minters = []*minter.Minter{closedMinter(outpoint(1, 1), 0, 1000)}

	_, err := h.svc.Prepare(context.Background(), MintRequest{CollectionID: "c0ffee_0"})
	if !errors.Is(err, ErrInvalidCollection) {
		t.Fatalf("Prepare() error = %v, want ErrInvalidCollection", err)
	}
	if IsTerminal(err) || errors.Is(err, ErrSupplyExhausted) {
		t.Error("a missing cap must not look like a sold-out collection")
	}
	if h.selector.calls != 0 {
		t.Error("minter should not be selected for invalid collection info")
	}
}

func TestPrepare_QuotaBelowMax(t *testing.T) {
	h := newHarness(t, 100)
	h.selector.minters = []*minter.Minter{closedMinter(outpoint(1, 1), 50, 50)}

	_, err := h.svc.Prepare(context.Background(), MintRequest{CollectionID: "c0ffee_0"})
	if !errors.Is(err, ErrSupplyExhausted) {
		t.Fatalf("Prepare() error = %v, want ErrSupplyExhausted", err)
	}
}

func TestPrepare_StopID(t *testing.T) {
	h := newHarness(t, 100)
	h.selector.minters = []*minter.Minter{closedMinter(outpoint(1, 1), 10, 100)}

	stop := uint64(10)
	_, err := h.svc.Prepare(context.Background(), MintRequest{CollectionID: "c0ffee_0", StopID: &stop})
	if !errors.Is(err, ErrStopReached) || !IsTerminal(err) {
		t.Fatalf("Prepare() error = %v, want terminal ErrStopReached", err)
	}
}

func TestPrepare_CollectionNotFound(t *testing.T) {
	h := newHarness(t, 100)
	_, err := h.svc.Prepare(context.Background(), MintRequest{CollectionID: "missing"})
	if !errors.Is(err, ErrCollectionNotFound) {
		t.Fatalf("Prepare() error = %v, want ErrCollectionNotFound", err)
	}
}

func TestPrepare_TrackerUnavailable(t *testing.T) {
	h := newHarness(t, 100)
	h.tracker.statusErr = tracker.ErrNetwork
	h.tracker.infoErr = tracker.ErrNetwork

	_, err := h.svc.Prepare(context.Background(), MintRequest{CollectionID: "c0ffee_0"})
	if !errors.Is(err, ErrCollectionNotFound) {
		t.Fatalf("Prepare() error = %v, want ErrCollectionNotFound", err)
	}
	if h.spend.BlockHeight() != 0 {
		t.Error("unreachable status should not move the watermark")
	}
}

func TestPrepare_NoMinter(t *testing.T) {
	h := newHarness(t, 100)
	_, err := h.svc.Prepare(context.Background(), MintRequest{CollectionID: "c0ffee_0"})
	if !errors.Is(err, ErrNoMinter) || !IsTerminal(err) {
		t.Fatalf("Prepare() error = %v, want terminal ErrNoMinter", err)
	}
}

func TestPrepare_SelectError(t *testing.T) {
	h := newHarness(t, 100)
	h.selector.err = minter.ErrLineageNotFound

	_, err := h.svc.Prepare(context.Background(), MintRequest{CollectionID: "c0ffee_0"})
	if !errors.Is(err, minter.ErrLineageNotFound) {
		t.Fatalf("Prepare() error = %v, want ErrLineageNotFound", err)
	}
	if IsTerminal(err) {
		t.Error("lineage failure is not terminal")
	}
}

func TestPrepare_NoFeeUTXOs(t *testing.T) {
	h := newHarness(t, 100)
	h.spend.UpdateBlockHeight(200)
	h.spend.MarkSpent(h.fees.utxos[0].Outpoint)

	_, err := h.svc.Prepare(context.Background(), MintRequest{CollectionID: "c0ffee_0"})
	if !errors.Is(err, ErrNoFeeUTXOs) {
		t.Fatalf("Prepare() error = %v, want ErrNoFeeUTXOs", err)
	}
	if h.selector.calls != 0 {
		t.Error("minter should not be selected without fee inputs")
	}
}

func TestMint_ResourceMissingBeforeBroadcast(t *testing.T) {
	h := newHarness(t, 100)
	h.selector.minters = []*minter.Minter{closedMinter(outpoint(1, 1), 3, 100)}

	_, err := h.svc.Mint(context.Background(), MintRequest{CollectionID: "c0ffee_0"})
	if !errors.Is(err, resource.ErrResourceMissing) {
		t.Fatalf("Mint() error = %v, want ErrResourceMissing", err)
	}
	if len(h.builder.plans) != 0 || len(h.broadcast.sent) != 0 {
		t.Error("nothing should be built or broadcast")
	}
}

func TestMint_BadMetadataBeforeBroadcast(t *testing.T) {
	h := newHarness(t, 100)
	h.selector.minters = []*minter.Minter{closedMinter(outpoint(1, 1), 3, 100)}
	h.writeBody(t, 3, "png")
	if err := os.WriteFile(filepath.Join(h.resources.Dir(), "3.json"), []byte(`{"name":`), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := h.svc.Mint(context.Background(), MintRequest{CollectionID: "c0ffee_0"})
	if !errors.Is(err, resource.ErrBadMetadata) {
		t.Fatalf("Mint() error = %v, want ErrBadMetadata", err)
	}
	if IsTerminal(err) {
		t.Error("bad metadata is not terminal")
	}
	if len(h.builder.plans) != 0 || len(h.broadcast.sent) != 0 {
		t.Error("nothing should be built or broadcast")
	}
}

func TestMint_UpdatesSpends(t *testing.T) {
	h := newHarness(t, 100)
	m := closedMinter(outpoint(1, 1), 3, 100)
	h.selector.minters = []*minter.Minter{m}
	h.writeBody(t, 3, "cat three")

	res, err := h.svc.Mint(context.Background(), MintRequest{CollectionID: "c0ffee_0"})
	if err != nil {
		t.Fatalf("Mint() error: %v", err)
	}
	if res.LocalID != 3 || len(res.TxIDs) != 2 {
		t.Errorf("result = %+v", res)
	}
	if len(h.broadcast.sent) != 2 {
		t.Fatalf("broadcast %d txs, want 2", len(h.broadcast.sent))
	}
	if h.spend.IsUnspent(m.UTXO.Outpoint) {
		t.Error("minter outpoint should be marked spent")
	}
	if h.spend.IsUnspent(h.fees.utxos[0].Outpoint) {
		t.Error("fee outpoint should be marked spent")
	}
}

func TestMint_PartialBroadcast(t *testing.T) {
	h := newHarness(t, 100)
	m := closedMinter(outpoint(1, 1), 3, 100)
	h.selector.minters = []*minter.Minter{m}
	h.writeBody(t, 3, "cat three")
	h.broadcast.failAt = 2

	if _, err := h.svc.Mint(context.Background(), MintRequest{CollectionID: "c0ffee_0"}); err == nil {
		t.Fatal("expected broadcast error")
	}
	if h.spend.IsUnspent(h.fees.utxos[0].Outpoint) {
		t.Error("first tx was accepted: its inputs should be spent")
	}
	if !h.spend.IsUnspent(m.UTXO.Outpoint) {
		t.Error("second tx was rejected: minter should stay unspent")
	}
}

func TestMintBatch_StopsOnTerminal(t *testing.T) {
	h := newHarness(t, 100)
	h.fees.utxos = append(h.fees.utxos, types.UTXO{Outpoint: outpoint(0xfd, 0), Satoshis: 10000})
	h.selector.minters = []*minter.Minter{
		closedMinter(outpoint(1, 1), 0, 100),
		closedMinter(outpoint(2, 1), 1, 100),
	}
	h.writeBody(t, 0, "a")
	h.writeBody(t, 1, "b")

	results, err := h.svc.MintBatch(context.Background(), MintRequest{CollectionID: "c0ffee_0"}, 5)
	if !errors.Is(err, ErrNoFeeUTXOs) {
		t.Fatalf("MintBatch() error = %v, want ErrNoFeeUTXOs", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1 (fee inputs exhausted after first mint)", len(results))
	}
}

func TestMintBatch_SequentialIDs(t *testing.T) {
	h := newHarness(t, 100)
	h.selector.minters = []*minter.Minter{
		closedMinter(outpoint(1, 1), 0, 100),
		closedMinter(outpoint(2, 1), 1, 100),
	}
	h.writeBody(t, 0, "a")
	h.writeBody(t, 1, "b")
	// A fresh fee utxo per mint.
	h.svc.cfg.FeeSource = &rotatingFees{}

	results, err := h.svc.MintBatch(context.Background(), MintRequest{CollectionID: "c0ffee_0"}, 3)
	if !errors.Is(err, ErrNoMinter) || !IsTerminal(err) {
		t.Fatalf("MintBatch() error = %v, want terminal ErrNoMinter", err)
	}
	if len(results) != 2 || results[0].LocalID != 0 || results[1].LocalID != 1 {
		t.Fatalf("results = %+v", results)
	}
}

type rotatingFees struct{ n byte }

func (r *rotatingFees) ListUnspent(context.Context, string) ([]types.UTXO, error) {
	r.n++
	return []types.UTXO{{Outpoint: outpoint(0xa0+r.n, 0), Satoshis: 5000}}, nil
}

func TestPrepare_OpenMinterProof(t *testing.T) {
	h := newHarness(t, 5)
	for id := uint64(0); id < 5; id++ {
		h.writeBody(t, id, fmt.Sprintf("cat %d", id))
	}
	tree, err := collection.BuildTree(types.NewAmount(5), h.wallet.XOnlyPubKey(), resource.DefaultContentType, h.resources)
	if err != nil {
		t.Fatalf("BuildTree() error: %v", err)
	}
	h.selector.minters = []*minter.Minter{{
		UTXO: types.UTXO{Outpoint: outpoint(1, 1)},
		Kind: state.KindOpen,
		Open: &state.OpenMinterState{MerkleRoot: tree.Root(), NextLocalID: 3},
	}}

	plan, err := h.svc.Prepare(context.Background(), MintRequest{CollectionID: "c0ffee_0"})
	if err != nil {
		t.Fatalf("Prepare() error: %v", err)
	}
	if plan.Proof == nil || plan.Proof.LocalID != 3 {
		t.Fatalf("Proof = %+v", plan.Proof)
	}
	leaf, _ := tree.Leaf(3)
	if !collection.Verify(tree.Root(), 5, *plan.Proof, leaf) {
		t.Error("proof should verify")
	}
}

func TestPrepare_OpenMinterRootMismatch(t *testing.T) {
	h := newHarness(t, 2)
	h.writeBody(t, 0, "a")
	h.writeBody(t, 1, "b")
	h.selector.minters = []*minter.Minter{{
		UTXO: types.UTXO{Outpoint: outpoint(1, 1)},
		Kind: state.KindOpen,
		Open: &state.OpenMinterState{NextLocalID: 0},
	}}

	_, err := h.svc.Prepare(context.Background(), MintRequest{CollectionID: "c0ffee_0"})
	if !errors.Is(err, ErrRootMismatch) {
		t.Fatalf("Prepare() error = %v, want ErrRootMismatch", err)
	}
}

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{ErrNoMinter, true},
		{fmt.Errorf("x: %w", ErrSupplyExhausted), true},
		{ErrNFTNotFound, true},
		{ErrNotOwner, false},
		{ErrNoFeeUTXOs, false},
		{fmt.Errorf("%w: %w", ErrSendAborted, ErrCollectionNotFound), false},
		{resource.ErrResourceMissing, false},
		{ErrInvalidCollection, false},
	}
	for _, tt := range tests {
		if got := IsTerminal(tt.err); got != tt.want {
			t.Errorf("IsTerminal(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
