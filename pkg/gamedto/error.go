package gamedto

import (
	"errors"
	"fmt"
)

// RejectError is a caller-visible action rejection: bad input, wrong turn
// or wrong phase. It carries no state change and is not a system fault.
type RejectError struct {
	Reason string
}

func (e *RejectError) Error() string { return e.Reason }

func Rejectf(format string, args ...any) error {
	return &RejectError{Reason: fmt.Sprintf(format, args...)}
}

// IsReject distinguishes rejections from real faults at the transport
// boundary.
func IsReject(err error) bool {
	var re *RejectError
	return errors.As(err, &re)
}
