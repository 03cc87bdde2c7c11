package translate

import (
	"errors"
	"fmt"
)

// ProviderError means the backend answered but refused or failed the
// request. Payload is the provider's response body, verbatim.
type ProviderError struct {
	Backend string
	Status  int
	Payload string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: provider error (status %d): %s", e.Backend, e.Status, truncate(e.Payload, 200))
}

// TransportError means no usable answer was received: connection failure,
// timeout, cancellation or a truncated body.
type TransportError struct {
	Backend string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Backend, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsProvider reports whether err is, or wraps, a ProviderError.
func IsProvider(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

// IsTransport reports whether err is, or wraps, a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
