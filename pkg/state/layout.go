// Package state encodes and decodes CAT721 protocol state.
//
// An output on chain only commits to its state: the covenant checks
// hash160(stateBytes) against the transaction's state hash list, and the
// bytes themselves travel in the spending witness. Every layout here must
// match the covenant byte for byte.
//
// All integers are little-endian and fixed width.
package state

// Field sizes shared by the layouts.
const (
	// ScriptSize is the length of a P2TR locking script: OP_1 OP_DATA_32 <key>.
	ScriptSize = 34
	// MerkleRootSize is the length of the open-mint collection root (hash160).
	MerkleRootSize = 20
	// OwnerSize is the length of a token address.
	OwnerSize = 20
	// LocalIDSize is the width of every local id counter.
	LocalIDSize = 8
)

// Encoded lengths.
//
// Layouts:
//
//	closed minter:          [34: nftScript][8: quotaMaxLocalId][8: nextLocalId]
//	open minter:            [34: nftScript][20: merkleRoot][8: nextLocalId]
//	parallel closed minter: [34: nftScript][8: nextLocalId]
//	nft:                    [20: ownerAddr][8: localId]
const (
	ClosedMinterSize         = ScriptSize + LocalIDSize + LocalIDSize
	OpenMinterSize           = ScriptSize + MerkleRootSize + LocalIDSize
	ParallelClosedMinterSize = ScriptSize + LocalIDSize
	NFTSize                  = OwnerSize + LocalIDSize
)

// MinterKind enumerates the minter contracts known to this client.
type MinterKind uint8

const (
	KindClosed MinterKind = iota + 1
	KindOpen
	KindParallelClosed
)

// String returns a human-readable name for the minter kind.
func (k MinterKind) String() string {
	switch k {
	case KindClosed:
		return "closed"
	case KindOpen:
		return "open"
	case KindParallelClosed:
		return "parallel-closed"
	default:
		return "unknown"
	}
}

// WitnessLayout locates the fields of a minter input's witness stack.
type WitnessLayout struct {
	Version int
	// MinItems is the smallest stack that can carry a covenant spend.
	MinItems int
	// LockingScriptFromEnd counts back from the top of the stack to the
	// tapscript being executed (the control block sits above it).
	LockingScriptFromEnd int
	// CounterIndex is the stack slot holding the spent minter's
	// nextLocalId as a script number.
	CounterIndex int
}

// WitnessLayoutV1 is the parallel closed minter witness layout.
var WitnessLayoutV1 = WitnessLayout{
	Version:              1,
	MinItems:             3,
	LockingScriptFromEnd: 2,
	CounterIndex:         6,
}

// LockingScript returns the tapscript of a covenant spend, or false when the
// stack is too short to be one.
func (l WitnessLayout) LockingScript(stack [][]byte) ([]byte, bool) {
	if len(stack) < l.MinItems {
		return nil, false
	}
	return stack[len(stack)-l.LockingScriptFromEnd], true
}

// Counter decodes the counter slot as a non-negative script number.
func (l WitnessLayout) Counter(stack [][]byte) (uint64, error) {
	if l.CounterIndex >= len(stack) {
		return 0, decodeErr("witness", "counter slot %d missing from %d-item stack", l.CounterIndex, len(stack))
	}
	n, err := DecodeScriptNum(stack[l.CounterIndex], LocalIDSize)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, decodeErr("witness", "negative counter %d", n)
	}
	return uint64(n), nil
}

// DecodeWitnessCounter reads the counter slot of stack under layout.
func DecodeWitnessCounter(stack [][]byte, layout WitnessLayout) (uint64, error) {
	return layout.Counter(stack)
}
