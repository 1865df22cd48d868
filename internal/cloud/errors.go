// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"errors"
	"fmt"
)

// =============================================================================
// ERROR TAXONOMY
// =============================================================================

// Kind classifies upstream failures.
type Kind int

const (
	// KindNetworkFailure is a transport-level failure (dial, timeout, read).
	KindNetworkFailure Kind = iota + 1

	// KindUpstreamError is a non-2xx response that is not a rate limit.
	KindUpstreamError

	// KindRateLimited is a throttling signal; the caller should cool down.
	KindRateLimited

	// KindMalformedResponse is an undecodable body or a missing message field.
	KindMalformedResponse

	// KindEmptyCompletion is a successful response with blank content.
	KindEmptyCompletion
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNetworkFailure:
		return "network_failure"
	case KindUpstreamError:
		return "upstream_error"
	case KindRateLimited:
		return "rate_limited"
	case KindMalformedResponse:
		return "malformed_response"
	case KindEmptyCompletion:
		return "empty_completion"
	default:
		return "unknown"
	}
}

// Sentinel errors for errors.Is matching against *Error values.
var (
	ErrNetworkFailure    = errors.New("network failure")
	ErrUpstream          = errors.New("upstream error")
	ErrRateLimited       = errors.New("rate limited")
	ErrMalformedResponse = errors.New("malformed response")
	ErrEmptyCompletion   = errors.New("empty completion")
)

func (k Kind) sentinel() error {
	switch k {
	case KindNetworkFailure:
		return ErrNetworkFailure
	case KindUpstreamError:
		return ErrUpstream
	case KindRateLimited:
		return ErrRateLimited
	case KindMalformedResponse:
		return ErrMalformedResponse
	case KindEmptyCompletion:
		return ErrEmptyCompletion
	default:
		return nil
	}
}

// Error is returned by Client for every failed exchange.
type Error struct {
	Kind Kind

	// Status is the HTTP status, 0 when no response was received.
	Status int

	// Message is the upstream error text, if any.
	Message string

	// RetryAfter is the cooldown in seconds for KindRateLimited.
	RetryAfter int

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var msg string
	switch {
	case e.Status != 0 && e.Message != "":
		msg = fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.Status, e.Message)
	case e.Status != 0:
		msg = fmt.Sprintf("%s (HTTP %d)", e.Kind, e.Status)
	case e.Message != "":
		msg = fmt.Sprintf("%s: %s", e.Kind, e.Message)
	default:
		msg = e.Kind.String()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// KindOf returns the Kind of err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return 0
}

// RetryAfter returns the cooldown carried by a rate-limit error.
func RetryAfter(err error) (int, bool) {
	var ce *Error
	if errors.As(err, &ce) && ce.Kind == KindRateLimited {
		return ce.RetryAfter, true
	}
	return 0, false
}
