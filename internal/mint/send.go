package mint

import (
	"context"
	"errors"
	"fmt"

	"github.com/Klingon-tech/cat721-cli/internal/log"
	"github.com/Klingon-tech/cat721-cli/internal/tracker"
	"github.com/Klingon-tech/cat721-cli/pkg/types"
)

// SendRequest transfers one NFT.
type SendRequest struct {
	CollectionID string
	LocalID      uint64
	Receiver     types.TokenAddress
	FeeRate      uint64
}

// SendPlan is everything a Builder needs for one transfer.
type SendPlan struct {
	Collection    *types.CollectionInfo
	NFT           *tracker.NFTUTXO
	Receiver      types.TokenAddress
	PubKeyX       []byte
	FeeUTXOs      []types.UTXO
	FeeRate       uint64
	ChangeAddress string
}

// Send transfers an NFT held by the wallet to req.Receiver.
func (s *Service) Send(ctx context.Context, req SendRequest) (*Result, error) {
	if s.cfg.Builder == nil {
		return nil, errors.New("no transaction builder configured")
	}
	if req.Receiver.IsZero() {
		return nil, errors.New("send: receiver is required")
	}
	s.syncSpends(ctx)

	info, err := s.collection(ctx, req.CollectionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSendAborted, err)
	}

	nft, err := s.cfg.Tracker.NFT(ctx, info.CollectionID, req.LocalID)
	if err != nil {
		tracker.LogUnavailable(err, "nft utxo")
		nft = nil
	}
	if nft == nil || !s.cfg.Spend.IsUnspent(nft.UTXO.Outpoint) {
		return nil, fmt.Errorf("%w: %s #%d", ErrNFTNotFound, info.CollectionID, req.LocalID)
	}
	if owner := s.cfg.Wallet.TokenAddress(); nft.State.Address != owner {
		return nil, fmt.Errorf("%w: #%d belongs to %s", ErrNotOwner, req.LocalID, nft.State.Address)
	}

	fees, err := s.feeUTXOs(ctx)
	if err != nil {
		return nil, err
	}

	plan := &SendPlan{
		Collection:    info,
		NFT:           nft,
		Receiver:      req.Receiver,
		PubKeyX:       s.cfg.Wallet.XOnlyPubKey(),
		FeeUTXOs:      fees,
		FeeRate:       s.feeRate(ctx, req.FeeRate),
		ChangeAddress: s.cfg.Wallet.Address().EncodeAddress(),
	}
	built, err := s.cfg.Builder.BuildSend(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("build send: %w", err)
	}
	txids, err := s.broadcast(ctx, built)
	if err != nil {
		return nil, err
	}
	logger := log.WithCollection(log.Mint, info.CollectionID)
	logger.Info().
		Uint64("local_id", req.LocalID).
		Str("receiver", req.Receiver.String()).
		Str("txid", txids[len(txids)-1].String()).
		Msg("Sent")
	return &Result{CollectionID: info.CollectionID, LocalID: req.LocalID, TxIDs: txids}, nil
}
