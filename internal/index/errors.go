package index

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument reports a caller error such as a non-positive top-k
	// or an empty document set.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrIndexLoad is matched by every LoadError.
	ErrIndexLoad = errors.New("index load error")
)

// LoadError reports a persisted index that is absent, corrupt, or incompatible.
type LoadError struct {
	Location string
	Reason   string
	Err      error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load index %s: %s: %v", e.Location, e.Reason, e.Err)
	}
	return fmt.Sprintf("load index %s: %s", e.Location, e.Reason)
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == ErrIndexLoad }

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
