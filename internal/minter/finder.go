package minter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/Klingon-tech/cat721-cli/internal/log"
	"github.com/Klingon-tech/cat721-cli/internal/rpcclient"
	"github.com/Klingon-tech/cat721-cli/internal/tracker"
	"github.com/Klingon-tech/cat721-cli/pkg/state"
	"github.com/Klingon-tech/cat721-cli/pkg/types"
)

// defaultConcurrency bounds parallel reconstruction of candidates.
const defaultConcurrency = 8

// CandidateSource lists a collection's minter outputs.
type CandidateSource interface {
	MinterUTXOs(ctx context.Context, collectionID string, limit, offset int) ([]tracker.ContractUTXO, error)
}

// SpentFilter reports outpoints still available to this session.
type SpentFilter interface {
	IsUnspent(op types.Outpoint) bool
}

// Finder selects the minter output to mint from.
type Finder struct {
	candidates  CandidateSource
	spent       SpentFilter
	recon       *Reconstructor
	registry    *Registry
	concurrency int
}

// NewFinder creates a Finder.
func NewFinder(candidates CandidateSource, spent SpentFilter, recon *Reconstructor, registry *Registry) *Finder {
	return &Finder{
		candidates:  candidates,
		spent:       spent,
		recon:       recon,
		registry:    registry,
		concurrency: defaultConcurrency,
	}
}

// Kind resolves the collection's minter variant.
func (f *Finder) Kind(info *types.CollectionInfo) (state.MinterKind, error) {
	return f.registry.KindOf(info.Metadata.MinterMd5)
}

// Select returns the first unspent minter of the collection by outpoint
// order, with its state decoded. It returns nil without error when the
// indexer or the node cannot be reached or no usable minter is listed.
// Unknown variants, undecodable state and broken lineage of the selected
// minter are errors. Failures on other candidates are logged and ignored.
func (f *Finder) Select(ctx context.Context, info *types.CollectionInfo) (*Minter, error) {
	kind, err := f.Kind(info)
	if err != nil {
		return nil, err
	}
	logger := log.WithCollection(log.Minter, info.CollectionID)

	utxos, err := f.candidates.MinterUTXOs(ctx, info.CollectionID, tracker.DefaultMinterLimit, 0)
	if err != nil {
		tracker.LogUnavailable(err, "minter utxos")
		return nil, nil
	}

	var candidates []tracker.ContractUTXO
	for _, u := range utxos {
		if f.spent.IsUnspent(u.UTXO.Outpoint) {
			candidates = append(candidates, u)
		}
	}
	logger.Debug().Int("listed", len(utxos)).Int("unspent", len(candidates)).Str("kind", kind.String()).Msg("Minter candidates")
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].UTXO.Outpoint.Less(candidates[j].UTXO.Outpoint)
	})

	minters := make([]*Minter, len(candidates))
	errs := make([]error, len(candidates))
	var g errgroup.Group
	g.SetLimit(f.concurrency)
	for i := range candidates {
		c := candidates[i]
		g.Go(func() error {
			s, err := f.decode(ctx, info, kind, c)
			if err != nil {
				errs[i] = fmt.Errorf("minter %s: %w", c.UTXO.Outpoint, err)
				return nil
			}
			minters[i] = newMinter(c.UTXO, c.TxoStateHashes, s)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, err := range errs[1:] {
		if err != nil {
			logger.Debug().Err(err).Msg("Ignoring minter candidate")
		}
	}
	if err := errs[0]; err != nil {
		if chainUnavailable(err) {
			logger.Warn().Err(err).Msg("Chain data unavailable")
			return nil, nil
		}
		logger.Error().Err(err).Msg("Minter state unavailable")
		return nil, err
	}
	return minters[0], nil
}

// chainUnavailable reports node failures a later retry may clear. A
// producing transaction the node does not know yet counts as one.
func chainUnavailable(err error) bool {
	return errors.Is(err, rpcclient.ErrNetwork) || errors.Is(err, rpcclient.ErrNotFound)
}

// decode prefers state supplied by the indexer. Parallel closed minters
// fall back to reconstruction from the producing transaction.
func (f *Finder) decode(ctx context.Context, info *types.CollectionInfo, kind state.MinterKind, c tracker.ContractUTXO) (state.MinterState, error) {
	switch kind {
	case state.KindParallelClosed:
		if hasState(c.State) {
			return decodeIndexedState(c.State, kind)
		}
		return f.recon.DeriveMinterState(ctx, info, c.UTXO.TxID, c.UTXO.Index)
	case state.KindClosed, state.KindOpen:
		return decodeIndexedState(c.State, kind)
	default:
		return nil, fmt.Errorf("%w: kind %d", ErrUnknownVariant, kind)
	}
}

func hasState(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null" && string(raw) != `""`
}
