// Package minter finds the minter output a new NFT is minted from and
// recovers its state, including the reconstruction path for parallel
// closed minters whose state the indexer does not carry.
package minter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Klingon-tech/cat721-cli/pkg/state"
)

// ErrUnknownVariant is returned for a collection whose minter fingerprint
// matches none of the known minter contracts.
var ErrUnknownVariant = errors.New("unknown minter variant")

// Fingerprints are the minterMd5 values of the supported minter contracts.
type Fingerprints struct {
	Closed         string
	Open           string
	ParallelClosed string
}

// Registry maps fingerprints to minter kinds. The set is closed: only the
// three contracts in Fingerprints are recognized.
type Registry struct {
	byFingerprint map[string]state.MinterKind
}

// NewRegistry builds a registry. Empty fingerprints are skipped.
func NewRegistry(fp Fingerprints) (*Registry, error) {
	r := &Registry{byFingerprint: make(map[string]state.MinterKind, 3)}
	for _, e := range []struct {
		fp   string
		kind state.MinterKind
	}{
		{fp.Closed, state.KindClosed},
		{fp.Open, state.KindOpen},
		{fp.ParallelClosed, state.KindParallelClosed},
	} {
		key := normalize(e.fp)
		if key == "" {
			continue
		}
		if prev, dup := r.byFingerprint[key]; dup {
			return nil, fmt.Errorf("fingerprint %s assigned to both %s and %s", e.fp, prev, e.kind)
		}
		r.byFingerprint[key] = e.kind
	}
	return r, nil
}

// KindOf returns the minter kind for a fingerprint.
func (r *Registry) KindOf(fingerprint string) (state.MinterKind, error) {
	if k, ok := r.byFingerprint[normalize(fingerprint)]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownVariant, fingerprint)
}

// Len returns the number of configured fingerprints.
func (r *Registry) Len() int { return len(r.byFingerprint) }

func normalize(fp string) string {
	return strings.ToLower(strings.TrimSpace(fp))
}
