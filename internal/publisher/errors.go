package publisher

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnknownProvider means a target references a provider nothing registered
// a publisher for. This is a configuration fault, not a runtime condition.
var ErrUnknownProvider = errors.New("unknown provider")

type ErrorKind string

const (
	KindTransient ErrorKind = "transient"
	KindPermanent ErrorKind = "permanent"
)

type ProviderError struct {
	Kind ErrorKind
	Err  error
}

func (e *ProviderError) Error() string { return fmt.Sprintf("%s: %v", e.Kind, e.Err) }
func (e *ProviderError) Unwrap() error { return e.Err }

// Transient tags an error as retryable (rate limits, network, 5xx).
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Kind: KindTransient, Err: err}
}

// Permanent tags an error as terminal for the target (rejected content,
// invalid or expired credential).
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Kind: KindPermanent, Err: err}
}

// KindOf extracts the classification from a publish error. Untagged errors
// (timeouts, transport failures) count as transient.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindTransient
}

// ClassifyStatus maps an HTTP response code to an error kind. Rate limits
// and server errors are worth retrying; every other client error is not.
func ClassifyStatus(code int) ErrorKind {
	if code == http.StatusTooManyRequests || code >= 500 {
		return KindTransient
	}
	return KindPermanent
}
