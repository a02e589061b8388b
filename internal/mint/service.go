// Package mint drives mint and send operations: it gathers the collection,
// minter, fee inputs, content and proofs, hands them to a transaction
// builder, broadcasts the result and records the spent outpoints.
package mint

import (
	"context"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"

	"github.com/Klingon-tech/cat721-cli/internal/log"
	"github.com/Klingon-tech/cat721-cli/internal/minter"
	"github.com/Klingon-tech/cat721-cli/internal/resource"
	"github.com/Klingon-tech/cat721-cli/internal/spend"
	"github.com/Klingon-tech/cat721-cli/internal/tracker"
	"github.com/Klingon-tech/cat721-cli/pkg/types"
)

// DefaultFeeRate is used in sat/vB when neither the request, the service
// nor the node supplies one.
const DefaultFeeRate = 10

// feeTargetBlocks is the confirmation target for fee estimation.
const feeTargetBlocks = 3

// Tracker is the indexer view the service needs.
type Tracker interface {
	Status(ctx context.Context) (*tracker.Status, error)
	Collection(ctx context.Context, id string) (*types.CollectionInfo, error)
	NFT(ctx context.Context, collectionID string, localID uint64) (*tracker.NFTUTXO, error)
}

// MinterSelector picks the minter to mint from.
type MinterSelector interface {
	Select(ctx context.Context, info *types.CollectionInfo) (*minter.Minter, error)
}

// Resources supplies NFT content and metadata.
type Resources interface {
	Body(localID uint64, contentType string) ([]byte, error)
	Metadata(localID uint64) (*resource.Metadata, error)
}

// Signer is the wallet as seen by planning.
type Signer interface {
	XOnlyPubKey() []byte
	Address() *btcutil.AddressTaproot
	TokenAddress() types.TokenAddress
}

// FeeSource lists the wallet's fee inputs.
type FeeSource interface {
	ListUnspent(ctx context.Context, addr string) ([]types.UTXO, error)
}

// FeeEstimator suggests a fee rate in sat/vB.
type FeeEstimator interface {
	EstimateFeeRate(ctx context.Context, blocks int) (uint64, error)
}

// Broadcaster submits signed transactions.
type Broadcaster interface {
	Broadcast(ctx context.Context, tx *wire.MsgTx) (types.Hash, error)
}

// Built is the output of a Builder: signed transactions in broadcast order.
type Built struct {
	Txs []*wire.MsgTx
}

// Builder constructs and signs covenant transactions.
type Builder interface {
	BuildMint(ctx context.Context, plan *Plan) (*Built, error)
	BuildSend(ctx context.Context, plan *SendPlan) (*Built, error)
}

// Config wires a Service. Chain and Builder may be nil: without Chain the
// fee rate falls back to FeeRate or DefaultFeeRate, and without Builder
// only Prepare is available.
type Config struct {
	Tracker     Tracker
	Chain       FeeEstimator
	Finder      MinterSelector
	Spend       *spend.Tracker
	Resources   Resources
	Wallet      Signer
	Builder     Builder
	Broadcaster Broadcaster
	FeeSource   FeeSource
	FeeRate     uint64
}

// Service runs mint and send operations for one wallet.
type Service struct {
	cfg Config
}

// New validates cfg and returns a Service.
func New(cfg Config) (*Service, error) {
	switch {
	case cfg.Tracker == nil:
		return nil, errors.New("mint: tracker is required")
	case cfg.Finder == nil:
		return nil, errors.New("mint: minter finder is required")
	case cfg.Spend == nil:
		return nil, errors.New("mint: spend tracker is required")
	case cfg.Resources == nil:
		return nil, errors.New("mint: resources are required")
	case cfg.Wallet == nil:
		return nil, errors.New("mint: wallet is required")
	case cfg.FeeSource == nil:
		return nil, errors.New("mint: fee source is required")
	}
	return &Service{cfg: cfg}, nil
}

// syncSpends reconciles the spend tracker with the indexer height. An
// unreachable indexer leaves the tracker untouched.
func (s *Service) syncSpends(ctx context.Context) {
	st, err := s.cfg.Tracker.Status(ctx)
	if err != nil {
		tracker.LogUnavailable(err, "status")
		return
	}
	if s.cfg.Spend.Sync(st.TrackerBlockHeight) {
		log.Mint.Debug().Uint64("tracker_height", st.TrackerBlockHeight).Msg("Spend tracker reset")
	}
}

// collection fetches info, mapping both a null result and an unreachable
// indexer to ErrCollectionNotFound.
func (s *Service) collection(ctx context.Context, id string) (*types.CollectionInfo, error) {
	info, err := s.cfg.Tracker.Collection(ctx, id)
	if err != nil {
		tracker.LogUnavailable(err, "collection")
		info = nil
	}
	if info == nil {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, id)
	}
	return info, nil
}

// feeUTXOs lists the wallet's fee inputs not yet spent by this client.
func (s *Service) feeUTXOs(ctx context.Context) ([]types.UTXO, error) {
	addr := s.cfg.Wallet.Address().EncodeAddress()
	utxos, err := s.cfg.FeeSource.ListUnspent(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("list fee utxos: %w", err)
	}
	utxos = s.cfg.Spend.FilterUnspent(utxos)
	if len(utxos) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFeeUTXOs, addr)
	}
	return utxos, nil
}

func (s *Service) feeRate(ctx context.Context, requested uint64) uint64 {
	if requested > 0 {
		return requested
	}
	if s.cfg.FeeRate > 0 {
		return s.cfg.FeeRate
	}
	if s.cfg.Chain != nil {
		rate, err := s.cfg.Chain.EstimateFeeRate(ctx, feeTargetBlocks)
		if err == nil && rate > 0 {
			return rate
		}
		log.Mint.Warn().Err(err).Uint64("fallback", DefaultFeeRate).Msg("Fee estimation failed")
	}
	return DefaultFeeRate
}

// broadcast submits txs in order and marks each one's inputs spent as soon
// as the node accepts it. The spend store is flushed on every exit path so
// a partial chain is never forgotten.
func (s *Service) broadcast(ctx context.Context, built *Built) (txids []types.Hash, err error) {
	if s.cfg.Broadcaster == nil {
		return nil, errors.New("no broadcaster configured")
	}
	if built == nil || len(built.Txs) == 0 {
		return nil, errors.New("builder returned no transactions")
	}
	defer func() {
		if ferr := s.cfg.Spend.Flush(); ferr != nil {
			log.Mint.Error().Err(ferr).Msg("Failed to persist spend tracker")
			if err == nil {
				err = fmt.Errorf("persist spends: %w", ferr)
			}
		}
	}()
	for i, tx := range built.Txs {
		txid, err := s.cfg.Broadcaster.Broadcast(ctx, tx)
		if err != nil {
			return txids, fmt.Errorf("broadcast tx %d/%d: %w", i+1, len(built.Txs), err)
		}
		s.cfg.Spend.UpdateSpends(tx)
		txids = append(txids, txid)
		log.Mint.Debug().Str("txid", txid.String()).Int("n", i+1).Msg("Broadcast accepted")
	}
	return txids, nil
}
