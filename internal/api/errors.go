// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package api

import "errors"

// Error codes returned in APIError.Code.
const (
	CodeInvalidOrderID     = "INVALID_ORDER_ID"
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInvalidSignature   = "INVALID_SIGNATURE"
	CodeMissingSignature   = "MISSING_SIGNATURE"
	CodeInvalidPayload     = "INVALID_PAYLOAD"
	CodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
	CodeUnsupportedMedia   = "UNSUPPORTED_MEDIA_TYPE"
	CodeNotFound           = "NOT_FOUND"
	CodeAlreadyResolved    = "ALREADY_RESOLVED"
	CodeGatewayRejected    = "GATEWAY_REJECTED"
	CodeGatewayUnavailable = "GATEWAY_UNAVAILABLE"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeAuthDisabled       = "AUTH_DISABLED"
	CodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	CodeInternal           = "INTERNAL_ERROR"
	CodeUnavailable        = "SERVICE_UNAVAILABLE"
	CodeRateLimited        = "RATE_LIMITED"
)

var (
	// ErrTestOrdersDisabled is returned by the test order route in production.
	ErrTestOrdersDisabled = errors.New("test orders are disabled in production")

	// ErrTooManyFiles is returned when a ticket carries more evidence than allowed.
	ErrTooManyFiles = errors.New("too many evidence files")
)
