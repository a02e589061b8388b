package mint

import (
	"context"
	"errors"
	"testing"

	"github.com/Klingon-tech/cat721-cli/internal/tracker"
	"github.com/Klingon-tech/cat721-cli/pkg/types"
)

func withNFT(h *harness, owner types.TokenAddress) *tracker.NFTUTXO {
	nft := &tracker.NFTUTXO{
		UTXO:  types.UTXO{Outpoint: outpoint(9, 0), Satoshis: 330},
		State: tracker.NFTState{Address: owner, LocalID: 4},
	}
	h.tracker.nft = nft
	return nft
}

func TestSend(t *testing.T) {
	h := newHarness(t, 100)
	nft := withNFT(h, h.wallet.TokenAddress())
	receiver := types.TokenAddress{0x01}

	res, err := h.svc.Send(context.Background(), SendRequest{CollectionID: "c0ffee_0", LocalID: 4, Receiver: receiver})
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if res.LocalID != 4 || len(res.TxIDs) != 1 {
		t.Errorf("result = %+v", res)
	}
	if len(h.builder.sendPlans) != 1 || h.builder.sendPlans[0].Receiver != receiver {
		t.Fatalf("send plans = %+v", h.builder.sendPlans)
	}
	if h.spend.IsUnspent(nft.UTXO.Outpoint) {
		t.Error("nft outpoint should be marked spent")
	}

	// The indexer still lists the NFT; the spend tracker hides it.
	_, err = h.svc.Send(context.Background(), SendRequest{CollectionID: "c0ffee_0", LocalID: 4, Receiver: receiver})
	if !errors.Is(err, ErrNFTNotFound) {
		t.Errorf("second Send() error = %v, want ErrNFTNotFound", err)
	}
}

func TestSend_NotOwner(t *testing.T) {
	h := newHarness(t, 100)
	withNFT(h, types.TokenAddress{0xee})

	_, err := h.svc.Send(context.Background(), SendRequest{CollectionID: "c0ffee_0", LocalID: 4, Receiver: types.TokenAddress{0x01}})
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("Send() error = %v, want ErrNotOwner", err)
	}
	if len(h.broadcast.sent) != 0 {
		t.Error("nothing should be broadcast")
	}
}

func TestSend_NFTNotFound(t *testing.T) {
	h := newHarness(t, 100)
	_, err := h.svc.Send(context.Background(), SendRequest{CollectionID: "c0ffee_0", LocalID: 4, Receiver: types.TokenAddress{0x01}})
	if !errors.Is(err, ErrNFTNotFound) || !IsTerminal(err) {
		t.Fatalf("Send() error = %v, want terminal ErrNFTNotFound", err)
	}
}

func TestSend_CollectionMissingIsHard(t *testing.T) {
	h := newHarness(t, 100)
	_, err := h.svc.Send(context.Background(), SendRequest{CollectionID: "gone", LocalID: 4, Receiver: types.TokenAddress{0x01}})
	if !errors.Is(err, ErrCollectionNotFound) || !errors.Is(err, ErrSendAborted) {
		t.Fatalf("Send() error = %v", err)
	}
	if IsTerminal(err) {
		t.Error("missing collection on send should be a failure")
	}
}

func TestSend_RequiresReceiver(t *testing.T) {
	h := newHarness(t, 100)
	withNFT(h, h.wallet.TokenAddress())
	if _, err := h.svc.Send(context.Background(), SendRequest{CollectionID: "c0ffee_0", LocalID: 4}); err == nil {
		t.Error("expected error without receiver")
	}
}
