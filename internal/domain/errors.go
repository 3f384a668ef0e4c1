package domain

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrRateLimited      = errors.New("rate limited")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrLockHeld         = errors.New("lock already held")
	ErrMalformedPayload = errors.New("malformed payload")
	ErrNoChoices        = errors.New("no choices in reply")
)

// FailureKind classifies why a call to an external collaborator produced no
// usable result. The empty kind means success.
type FailureKind string

const (
	FailureNone         FailureKind = ""
	FailureTransport    FailureKind = "transport"
	FailureUpstream     FailureKind = "upstream_status"
	FailureRateLimited  FailureKind = "rate_limited"
	FailureUnauthorized FailureKind = "unauthorized"
	FailureDecode       FailureKind = "decode"
	FailureEmpty        FailureKind = "empty"
)

// ProviderError is returned by every platform client. It carries enough
// context to log the failure and to classify it without string matching.
type ProviderError struct {
	Provider   string
	Kind       FailureKind
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// maxBodyExcerpt bounds the response body kept on a ProviderError.
const maxBodyExcerpt = 512

// NewStatusError builds a ProviderError for a non-2xx response. The status
// code picks the kind; body is truncated to an excerpt.
func NewStatusError(provider string, statusCode int, body []byte) *ProviderError {
	e := &ProviderError{
		Provider:   provider,
		Kind:       FailureUpstream,
		StatusCode: statusCode,
		Body:       Excerpt(string(body)),
	}
	switch statusCode {
	case 401, 403:
		e.Kind = FailureUnauthorized
		e.Err = ErrUnauthorized
	case 429:
		e.Kind = FailureRateLimited
		e.Err = ErrRateLimited
	}
	return e
}

// NewTransportError wraps a failure that happened before any response
// arrived (timeout, refused connection, cancelled context).
func NewTransportError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: FailureTransport, Err: err}
}

// NewDecodeError wraps a payload that arrived but did not match the
// expected schema.
func NewDecodeError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: FailureDecode, Err: fmt.Errorf("%w: %v", ErrMalformedPayload, err)}
}

// KindOf classifies err. Anything that is neither a ProviderError nor a
// malformed payload counts as a transport failure: the call never produced
// a response worth inspecting.
func KindOf(err error) FailureKind {
	if err == nil {
		return FailureNone
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, ErrMalformedPayload) {
		return FailureDecode
	}
	return FailureTransport
}

// Excerpt trims s to a loggable length.
func Excerpt(s string) string {
	if len(s) <= maxBodyExcerpt {
		return s
	}
	n := maxBodyExcerpt
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
