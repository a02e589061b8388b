package mint

import (
	"context"
	"errors"
	"fmt"

	"github.com/Klingon-tech/cat721-cli/internal/collection"
	"github.com/Klingon-tech/cat721-cli/internal/log"
	"github.com/Klingon-tech/cat721-cli/internal/minter"
	"github.com/Klingon-tech/cat721-cli/internal/resource"
	"github.com/Klingon-tech/cat721-cli/pkg/state"
	"github.com/Klingon-tech/cat721-cli/pkg/types"
)

// MintRequest describes one mint.
type MintRequest struct {
	CollectionID string
	ContentType  string // defaults to resource.DefaultContentType
	// Owner receives the NFT. The zero address means the wallet.
	Owner   types.TokenAddress
	FeeRate uint64 // sat/vB, 0 for the service default
	// StopID, when set, is the first local id not to mint.
	StopID *uint64
}

// Plan is everything a Builder needs for one mint.
type Plan struct {
	Collection  *types.CollectionInfo
	Minter      *minter.Minter
	LocalID     uint64
	Owner       types.TokenAddress
	ContentType string
	Body        []byte
	Metadata    *resource.Metadata
	PubKeyX     []byte
	FeeUTXOs    []types.UTXO
	FeeRate     uint64
	// ChangeAddress is the wallet address for fee change.
	ChangeAddress string
	// Proof is set for open minters only.
	Proof *collection.Proof
}

// Result reports a completed mint or send.
type Result struct {
	CollectionID string
	LocalID      uint64
	TxIDs        []types.Hash
}

// limit returns the first local id the minter can never issue.
func limit(info *types.CollectionInfo, m *minter.Minter) uint64 {
	max, ok := info.Metadata.Max.Uint64()
	if !ok {
		max = ^uint64(0)
	}
	if m.Kind == state.KindClosed && m.Closed.QuotaMaxLocalID < max {
		max = m.Closed.QuotaMaxLocalID
	}
	return max
}

// Prepare gathers the inputs of a mint without building or broadcasting
// anything.
func (s *Service) Prepare(ctx context.Context, req MintRequest) (*Plan, error) {
	s.syncSpends(ctx)

	info, err := s.collection(ctx, req.CollectionID)
	if err != nil {
		return nil, err
	}
	logger := log.WithCollection(log.Mint, info.CollectionID)
	// A zero cap would read as a sold-out collection.
	if info.Metadata.Max.IsZero() {
		return nil, fmt.Errorf("%w: %s: metadata.max missing or zero", ErrInvalidCollection, info.CollectionID)
	}

	fees, err := s.feeUTXOs(ctx)
	if err != nil {
		return nil, err
	}

	m, err := s.cfg.Finder.Select(ctx, info)
	if err != nil {
		logger.Error().Err(err).Msg("Minter selection failed")
		return nil, fmt.Errorf("select minter: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoMinter, info.CollectionID)
	}

	next := m.NextLocalID()
	if max := limit(info, m); next >= max {
		return nil, fmt.Errorf("%w: next local id %d, max %d", ErrSupplyExhausted, next, max)
	}
	if req.StopID != nil && next >= *req.StopID {
		return nil, fmt.Errorf("%w: next local id %d, stop %d", ErrStopReached, next, *req.StopID)
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = resource.DefaultContentType
	}
	body, err := s.cfg.Resources.Body(next, contentType)
	if err != nil {
		return nil, err
	}
	md, err := s.cfg.Resources.Metadata(next)
	if err != nil {
		return nil, err
	}

	owner := req.Owner
	if owner.IsZero() {
		owner = s.cfg.Wallet.TokenAddress()
	}
	plan := &Plan{
		Collection:    info,
		Minter:        m,
		LocalID:       next,
		Owner:         owner,
		ContentType:   contentType,
		Body:          body,
		Metadata:      md,
		PubKeyX:       s.cfg.Wallet.XOnlyPubKey(),
		FeeUTXOs:      fees,
		FeeRate:       s.feeRate(ctx, req.FeeRate),
		ChangeAddress: s.cfg.Wallet.Address().EncodeAddress(),
	}

	if m.Kind == state.KindOpen {
		proof, err := s.prove(info, m, plan)
		if err != nil {
			return nil, err
		}
		plan.Proof = proof
	}

	logger.Info().
		Uint64("local_id", next).
		Str("kind", m.Kind.String()).
		Str("minter", m.UTXO.Outpoint.String()).
		Int("fee_utxos", len(fees)).
		Msg("Mint prepared")
	return plan, nil
}

func (s *Service) prove(info *types.CollectionInfo, m *minter.Minter, plan *Plan) (*collection.Proof, error) {
	tree, err := collection.BuildTree(info.Metadata.Max, plan.PubKeyX, plan.ContentType, s.cfg.Resources)
	if err != nil {
		return nil, fmt.Errorf("build collection tree: %w", err)
	}
	if tree.Root() != m.Open.MerkleRoot {
		return nil, fmt.Errorf("%w: tree %s, minter %s", ErrRootMismatch, tree.Root(), m.Open.MerkleRoot)
	}
	proof, err := tree.Prove(plan.LocalID)
	if err != nil {
		return nil, err
	}
	return &proof, nil
}

// Mint prepares, builds and broadcasts one mint.
func (s *Service) Mint(ctx context.Context, req MintRequest) (*Result, error) {
	if s.cfg.Builder == nil {
		return nil, errors.New("no transaction builder configured")
	}
	plan, err := s.Prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	built, err := s.cfg.Builder.BuildMint(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("build mint: %w", err)
	}
	txids, err := s.broadcast(ctx, built)
	if err != nil {
		return nil, err
	}
	logger := log.WithCollection(log.Mint, plan.Collection.CollectionID)
	logger.Info().
		Uint64("local_id", plan.LocalID).
		Str("txid", txids[len(txids)-1].String()).
		Msg("Minted")
	return &Result{CollectionID: plan.Collection.CollectionID, LocalID: plan.LocalID, TxIDs: txids}, nil
}

// MintBatch mints up to n times in sequence. A terminal outcome ends the
// batch; it is returned alongside the mints that succeeded.
func (s *Service) MintBatch(ctx context.Context, req MintRequest, n int) ([]*Result, error) {
	results := make([]*Result, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := s.Mint(ctx, req)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
