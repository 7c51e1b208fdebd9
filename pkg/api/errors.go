package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrorKind is the canonical failure taxonomy. Callers branch on Kind, never
// on provider identity.
type ErrorKind string

const (
	KindAuth          ErrorKind = "auth_failure"
	KindRateLimited   ErrorKind = "rate_limited"
	KindBadRequest    ErrorKind = "bad_request"
	KindProviderFault ErrorKind = "provider_fault"
	KindNetworkFault  ErrorKind = "network_fault"
	KindDecodeFault   ErrorKind = "decode_fault"
	KindUnknown       ErrorKind = "unknown"
)

// Error is the canonical per-request error. Every provider-specific failure
// shape is collapsed into exactly one Error before leaving the core. The
// original wire format is not exposed beyond Message.
type Error struct {
	Kind     ErrorKind
	Provider string
	Message  string

	// HTTPStatus is the upstream status code, zero when the failure never
	// reached the provider (network or decode faults on our side).
	HTTPStatus int

	// RetryAfter is the provider's hint on rate-limit errors; zero when the
	// provider sent none.
	RetryAfter time.Duration

	cause error
}

func (e *Error) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// NewError builds a canonical error.
func NewError(kind ErrorKind, provider, message string) *Error {
	return &Error{Kind: kind, Provider: provider, Message: message}
}

// WrapError builds a canonical error around an underlying cause.
func WrapError(kind ErrorKind, provider, message string, cause error) *Error {
	return &Error{Kind: kind, Provider: provider, Message: message, cause: cause}
}

// ClassifyStatus maps an upstream HTTP status outside 2xx to an ErrorKind,
// total over the status space.
func ClassifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 400 && status < 500:
		return KindBadRequest
	case status >= 500:
		return KindProviderFault
	default:
		return KindUnknown
	}
}

// ParseRetryAfter reads a Retry-After header value. The seconds form is
// preferred; the HTTP-date form is converted to a delta from now. Anything
// unparseable or in the past yields zero.
func ParseRetryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// ConfigError reports a malformed credential or configuration source. It is
// fatal to startup, never produced per-request.
type ConfigError struct {
	Source string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// EncodeError reports a request that violates its own invariants before
// send. It is surfaced, never retried.
type EncodeError struct {
	Reason string
}

func (e *EncodeError) Error() string {
	return "encode: " + e.Reason
}
