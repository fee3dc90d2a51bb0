package llm

import (
	"errors"
	"fmt"
)

// ErrService is matched by every ServiceError.
var ErrService = errors.New("external service error")

// ServiceError reports a failed call to an external embedding or completion
// service (network, auth, quota, timeout).
type ServiceError struct {
	Provider string
	Op       string
	Status   int
	Err      error
}

func (e *ServiceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Provider, e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

func (e *ServiceError) Is(target error) bool { return target == ErrService }

// AsServiceError wraps err in a ServiceError unless it already is one.
func AsServiceError(provider, op string, err error) error {
	if err == nil {
		return nil
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return err
	}
	return &ServiceError{Provider: provider, Op: op, Err: err}
}
