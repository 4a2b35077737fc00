package cluster

import (
	"errors"
	"fmt"
)

// Protocol errors. Everything except ErrSourceUnavailable is a validation
// failure and is reported to the immediate caller as a 400.
var (
	ErrMissingField       = errors.New("missing type or url")
	ErrUnknownType        = errors.New("invalid node type")
	ErrInvalidRangeFormat = errors.New("invalid range format")
	ErrRangeNotSet        = errors.New("range not set")
	ErrInconsistentBatch  = errors.New("validation failed")
	ErrSourceUnavailable  = errors.New("source unavailable")
)

// ValidationError marks malformed input. It is rejected synchronously and
// never retried.
type ValidationError struct {
	Err error
	Op  string
}

func (e *ValidationError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Invalid wraps err as a ValidationError for operation op.
func Invalid(op string, err error) error {
	return &ValidationError{Op: op, Err: err}
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
