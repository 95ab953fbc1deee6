package catalog

import (
	"errors"
	"fmt"
)

// Business rejections. All of them leave store state unchanged and are safe
// to surface to the caller as-is; none warrant a retry.
var (
	ErrItemNotFound        = errors.New("item not found")
	ErrAccountNotFound     = errors.New("account not found")
	ErrInsufficientBalance = errors.New("insufficient vote credits")
	ErrInsufficientAmount  = errors.New("amount does not beat current occupant")
	ErrRankOutOfRange      = errors.New("rank out of range")
	ErrInvalidAmount       = errors.New("amount must be positive")
)

// IsRejection reports whether err is one of the business rejections above.
func IsRejection(err error) bool {
	for _, rejection := range []error{
		ErrItemNotFound,
		ErrAccountNotFound,
		ErrInsufficientBalance,
		ErrInsufficientAmount,
		ErrRankOutOfRange,
		ErrInvalidAmount,
	} {
		if errors.Is(err, rejection) {
			return true
		}
	}
	return false
}

// TransientError wraps an infrastructure failure (store timeout, write
// conflict). Nothing was committed, so the whole operation may be retried.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient store failure: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient marks err as retryable. A nil err yields nil.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err is an infrastructure failure rather than a
// business rejection.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
