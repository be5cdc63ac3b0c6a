package webapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors. Every concrete error returned by this package matches
// one of these through errors.Is. An *AuthError also matches the sentinels
// of its causes; check ErrAuth first.
var (
	// ErrNetwork covers transport failures and non-2xx responses.
	ErrNetwork = errors.New("webapi: network error")

	// ErrAuth is returned when every token strategy has been exhausted.
	ErrAuth = errors.New("webapi: unable to obtain access token")

	// ErrSchema is returned when a payload does not have the expected shape.
	ErrSchema = errors.New("webapi: malformed payload")

	// ErrUnsupported is returned for operations the current credential mode
	// cannot perform. No request is made.
	ErrUnsupported = errors.New("webapi: operation unsupported in this credential mode")

	// ErrInvalidConfig is returned when client configuration is invalid.
	ErrInvalidConfig = errors.New("webapi: invalid configuration")
)

// HTTPError describes a non-2xx response.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string // first bytes of the response body, for diagnostics
}

// Error returns the error message.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("webapi: %s %s: %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Is reports whether target is ErrNetwork.
func (e *HTTPError) Is(target error) bool {
	return target == ErrNetwork
}

// Temporary returns true if the request may succeed when retried.
//
// Server errors (5xx) and rate limiting (429) are considered temporary.
func (e *HTTPError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// SchemaError reports a payload that failed validation.
type SchemaError struct {
	Source string // what was being parsed, e.g. "secret registry"
	Err    error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("webapi: malformed %s: %v", e.Source, e.Err)
}

func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// AuthError is returned when minting a token failed. Causes holds one error
// per strategy that was attempted, in attempt order.
type AuthError struct {
	Mode   CredentialMode
	Causes []error
}

func (e *AuthError) Error() string {
	msgs := make([]string, len(e.Causes))
	for i, c := range e.Causes {
		msgs[i] = c.Error()
	}
	return fmt.Sprintf("webapi: unable to obtain %s access token: %s", e.Mode, strings.Join(msgs, "; "))
}

func (e *AuthError) Is(target error) bool {
	return target == ErrAuth
}

func (e *AuthError) Unwrap() []error {
	return e.Causes
}

// networkError wraps a transport-level failure so that it matches ErrNetwork
// while keeping the underlying cause available to errors.As.
type networkError struct {
	err error
}

func (e *networkError) Error() string {
	return fmt.Sprintf("webapi: request failed: %v", e.err)
}

func (e *networkError) Is(target error) bool {
	return target == ErrNetwork
}

func (e *networkError) Unwrap() error {
	return e.err
}

// isBestEffort reports whether err is one of the failures that single-item
// operations turn into a nil result. A failed mint never is, even though its
// causes are network or schema errors.
func isBestEffort(err error) bool {
	if errors.Is(err, ErrAuth) {
		return false
	}
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrSchema)
}
