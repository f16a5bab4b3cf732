// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrGatewayUnavailable matches every transient failure: network errors,
	// timeouts, 5xx, 429 and an open circuit breaker.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrGatewayRejected matches non-retryable 4xx responses.
	ErrGatewayRejected = errors.New("payment gateway rejected request")

	// ErrSignatureInvalid is returned when a webhook signature does not verify.
	ErrSignatureInvalid = errors.New("webhook signature invalid")

	// ErrSignatureMissing is returned when a webhook carries no signature header.
	ErrSignatureMissing = errors.New("webhook signature missing")

	// ErrMalformedPayload is returned for webhook or status bodies that cannot be decoded.
	ErrMalformedPayload = errors.New("malformed gateway payload")
)

// UnavailableError is a retryable gateway failure.
type UnavailableError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *UnavailableError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway %s: unavailable (HTTP %d)", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("gateway %s: unavailable: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrGatewayUnavailable }

// RejectedError is a 4xx response other than 429. Body holds the gateway's
// error document, truncated.
type RejectedError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("gateway %s: rejected (HTTP %d): %s", e.Op, e.StatusCode, e.Body)
}

func (e *RejectedError) Is(target error) bool { return target == ErrGatewayRejected }

// IsRetryable reports whether err is worth retrying later.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrGatewayUnavailable)
}
