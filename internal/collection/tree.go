package collection

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/cat721-cli/internal/log"
	"github.com/Klingon-tech/cat721-cli/pkg/crypto"
	"github.com/Klingon-tech/cat721-cli/pkg/types"
)

// MaxTreeLeaves bounds collections whose tree is built in memory.
const MaxTreeLeaves = 1 << 20

var (
	// ErrEmptyCollection is returned for a max supply of zero.
	ErrEmptyCollection = errors.New("collection has no supply")
	// ErrTooLarge is returned when max exceeds MaxTreeLeaves.
	ErrTooLarge = errors.New("collection too large for an in-memory tree")
	// ErrOutOfRange is returned for a local id outside [0, max).
	ErrOutOfRange = errors.New("local id out of range")
)

// BodySource supplies NFT content by local id.
type BodySource interface {
	Body(localID uint64, contentType string) ([]byte, error)
}

// Tree is the Merkle tree over every NFT of an open-mint collection. Leaf
// i commits to local id i. Odd levels are padded by duplicating their
// last node.
type Tree struct {
	levels [][]crypto.Digest // levels[0] are the leaves; the last level is the root
}

// Proof is the sibling path from a leaf to the root.
type Proof struct {
	LocalID  uint64
	Siblings []crypto.Digest
}

// BuildTree reads the content of every local id in [0, max) from store
// and builds the collection tree. A missing body aborts the build with the
// store's error.
func BuildTree(max types.Amount, pubkeyX []byte, contentType string, store BodySource) (*Tree, error) {
	n, err := leafCount(max)
	if err != nil {
		return nil, err
	}
	defer log.Timed(log.Collection, "build tree")()

	leaves := make([]crypto.Digest, n)
	for id := uint64(0); id < n; id++ {
		body, err := store.Body(id, contentType)
		if err != nil {
			return nil, fmt.Errorf("leaf %d: %w", id, err)
		}
		script, err := CommitScript(pubkeyX, contentType, body)
		if err != nil {
			return nil, fmt.Errorf("leaf %d: %w", id, err)
		}
		leaves[id] = LeafOf(script, id)
	}
	t := NewTree(leaves)
	log.Collection.Debug().Uint64("leaves", n).Str("root", t.Root().String()).Msg("Collection tree built")
	return t, nil
}

func leafCount(max types.Amount) (uint64, error) {
	if max.IsZero() {
		return 0, ErrEmptyCollection
	}
	n, ok := max.Uint64()
	if !ok || n > MaxTreeLeaves {
		return 0, fmt.Errorf("%w: max %s, limit %d", ErrTooLarge, max, MaxTreeLeaves)
	}
	return n, nil
}

// NewTree builds a tree over precomputed leaves. leaves must not be empty.
func NewTree(leaves []crypto.Digest) *Tree {
	level := make([]crypto.Digest, len(leaves))
	copy(level, leaves)
	levels := [][]crypto.Digest{level}
	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]crypto.Digest, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next[i/2] = crypto.HashConcat(level[i], level[i+1])
		}
		levels = append(levels, next)
		level = next
	}
	return &Tree{levels: levels}
}

// Root returns the tree root. It is the merkleRoot of the open minter.
func (t *Tree) Root() crypto.Digest {
	return t.levels[len(t.levels)-1][0]
}

// Size returns the number of leaves.
func (t *Tree) Size() uint64 {
	return uint64(len(t.levels[0]))
}

// Leaf returns the leaf for localID.
func (t *Tree) Leaf(localID uint64) (crypto.Digest, error) {
	if localID >= t.Size() {
		return crypto.Digest{}, fmt.Errorf("%w: %d not in [0,%d)", ErrOutOfRange, localID, t.Size())
	}
	return t.levels[0][localID], nil
}

// Prove returns the membership proof of localID.
func (t *Tree) Prove(localID uint64) (Proof, error) {
	if localID >= t.Size() {
		return Proof{}, fmt.Errorf("%w: %d not in [0,%d)", ErrOutOfRange, localID, t.Size())
	}
	p := Proof{LocalID: localID, Siblings: make([]crypto.Digest, 0, len(t.levels)-1)}
	idx := localID
	for _, level := range t.levels[:len(t.levels)-1] {
		sib := idx ^ 1
		if sib >= uint64(len(level)) {
			sib = idx // padded: the node is paired with itself
		}
		p.Siblings = append(p.Siblings, level[sib])
		idx /= 2
	}
	return p, nil
}

// depth returns the number of sibling hashes on any path of a tree with
// n leaves.
func depth(n uint64) int {
	d := 0
	for n > 1 {
		n = (n + 1) / 2
		d++
	}
	return d
}

// Verify reports whether proof shows leaf at proof.LocalID under root in a
// tree of max leaves.
func Verify(root crypto.Digest, max uint64, proof Proof, leaf crypto.Digest) bool {
	if proof.LocalID >= max || len(proof.Siblings) != depth(max) {
		return false
	}
	h := leaf
	idx := proof.LocalID
	for _, sib := range proof.Siblings {
		if idx%2 == 0 {
			h = crypto.HashConcat(h, sib)
		} else {
			h = crypto.HashConcat(sib, h)
		}
		idx /= 2
	}
	return h == root
}
