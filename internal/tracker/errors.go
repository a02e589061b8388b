package tracker

import (
	"errors"
	"fmt"
)

// ErrUnavailable matches every failure that means the indexer could not
// answer: transport errors and non-zero envelope codes alike.
var ErrUnavailable = errors.New("tracker unavailable")

// ErrNetwork wraps transport and decoding failures.
var ErrNetwork = fmt.Errorf("%w: network", ErrUnavailable)

// IndexerError is a response whose envelope code was not zero.
type IndexerError struct {
	Endpoint string
	Code     int
	Msg      string
}

func (e *IndexerError) Error() string {
	return fmt.Sprintf("tracker %s: code %d: %s", e.Endpoint, e.Code, e.Msg)
}

// Is reports true for ErrUnavailable.
func (e *IndexerError) Is(target error) bool {
	return target == ErrUnavailable
}
