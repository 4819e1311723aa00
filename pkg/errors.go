package pkg

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest reports bad user input such as an empty message or expression
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidExpression reports an expression rejected by the evaluator
	ErrInvalidExpression = errors.New("invalid expression")

	// ErrServiceUnavailable reports a failed embedding, index or completion call
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrClassificationFailure reports that intent detection could not run
	ErrClassificationFailure = errors.New("classification failure")
)

// ServiceError wraps a downstream failure with the service and operation that failed.
// errors.Is(err, ErrServiceUnavailable) holds for every ServiceError.
type ServiceError struct {
	Service string
	Op      string
	Err     error
}

// NewServiceError creates a ServiceError
func NewServiceError(service, op string, err error) *ServiceError {
	return &ServiceError{Service: service, Op: op, Err: err}
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Service, e.Op, e.Err)
}

func (e *ServiceError) Unwrap() []error {
	return []error{ErrServiceUnavailable, e.Err}
}

// IsClientError reports whether err should surface to the caller as a 4xx
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) || errors.Is(err, ErrInvalidExpression)
}
