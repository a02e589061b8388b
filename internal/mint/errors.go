package mint

import "errors"

var (
	ErrCollectionNotFound = errors.New("collection not found")
	ErrNoMinter           = errors.New("no minter available")
	ErrSupplyExhausted    = errors.New("collection supply exhausted")
	ErrStopReached        = errors.New("stop local id reached")
	ErrNoFeeUTXOs         = errors.New("no fee utxos")
	ErrNFTNotFound        = errors.New("nft not found")
	ErrNotOwner           = errors.New("nft not owned by wallet")
	ErrRootMismatch       = errors.New("collection tree root does not match minter state")
	ErrInvalidCollection  = errors.New("invalid collection info")

	// ErrSendAborted wraps failures of Send that must not be reported as
	// informational, such as a collection that disappeared from the indexer.
	ErrSendAborted = errors.New("send aborted")
)

// IsTerminal reports whether err is an expected outcome rather than a
// failure: nothing is left to mint, or what was asked for does not exist.
// The CLI prints these and exits cleanly.
func IsTerminal(err error) bool {
	if err == nil || errors.Is(err, ErrSendAborted) {
		return false
	}
	return errors.Is(err, ErrNoMinter) ||
		errors.Is(err, ErrSupplyExhausted) ||
		errors.Is(err, ErrStopReached) ||
		errors.Is(err, ErrCollectionNotFound) ||
		errors.Is(err, ErrNFTNotFound)
}
