package core

import "fmt"

// ProviderError wraps a generation backend failure. All transport-level
// problems (bad credentials, timeout, malformed response) surface as
// this one type so callers never branch on backend-specific errors.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider error: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError wraps err as a generation failure for the named
// backend.
func NewProviderError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Err: err}
}

// DeliveryError wraps a sink failure. The delivery router converts it
// into a failed DeliveryOutcome rather than letting it propagate.
type DeliveryError struct {
	Mode DeliveryMode
	Err  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s delivery error: %v", e.Mode, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
