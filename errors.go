package chainy

import (
	"errors"
	"fmt"
)

// Sentinel errors for chainy. Use errors.Is to check.
var (
	ErrCapabilityNotFound = errors.New("capability not found")
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCapability  = errors.New("invalid capability")
)

// ClientError reports arguments from the model that do not fit the addressed
// capability (unknown or missing parameters, wrong types, undecodable values).
// Err optionally wraps a sentinel (e.g. ErrValidation) for errors.Is/errors.As.
type ClientError struct {
	Capability string
	Reason     string
	Err        error
}

func (e *ClientError) Error() string {
	if e.Capability == "" {
		return fmt.Sprintf("invalid tool input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid tool input for %q: %s", e.Capability, e.Reason)
}

// Unwrap supports errors.Is/errors.As on wrapped chains (e.g. errors.Is(err, ErrValidation)).
func (e *ClientError) Unwrap() error { return e.Err }

// SystemError represents a failure of the bridge itself, such as a tool result
// that cannot be encoded or a recovered panic.
type SystemError struct {
	Err error
}

func (e *SystemError) Error() string {
	return "internal error during tool execution: " + e.Err.Error()
}

func (e *SystemError) Unwrap() error { return e.Err }

// IsClientError returns true if err is or wraps a ClientError.
func IsClientError(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce)
}

// IsSystemError returns true if err is or wraps a SystemError.
func IsSystemError(err error) bool {
	var se *SystemError
	return errors.As(err, &se)
}

// notFound builds the error returned for an unknown capability name.
func notFound(name string) error {
	return fmt.Errorf("%w: %q", ErrCapabilityNotFound, name)
}

// invalidCapability builds a registration-time error.
func invalidCapability(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidCapability, fmt.Sprintf(format, args...))
}

// panicError wraps a recovered panic value for SystemError.
type panicError struct{ p any }

func (e *panicError) Error() string {
	return "panic: " + fmt.Sprint(e.p)
}
