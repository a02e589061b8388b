package state

import (
	"errors"
	"fmt"
)

// ErrDecode matches every *DecodeError.
var ErrDecode = errors.New("state decode failed")

// DecodeError reports protocol bytes that do not fit their declared layout.
type DecodeError struct {
	Layout string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %s", e.Layout, e.Reason)
}

// Is makes errors.Is(err, ErrDecode) true for any DecodeError.
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

func decodeErr(layout, format string, args ...interface{}) error {
	return &DecodeError{Layout: layout, Reason: fmt.Sprintf(format, args...)}
}
