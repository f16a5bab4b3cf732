// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package models

import (
	"time"
)

// APIResponse is the envelope used by every JSON endpoint except the
// gateway-facing webhook ack and the poll/status contract.
//
//	{
//	  "status": "success",
//	  "data": {...},
//	  "metadata": {"timestamp": "2026-10-14T12:00:00Z", "query_time_ms": 4}
//	}
//
// On failure Status is "error" and Error is populated:
//
//	{
//	  "status": "error",
//	  "error": {"code": "VALIDATION_ERROR", "message": "orderId is required"},
//	  "metadata": {"timestamp": "2026-10-14T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata is attached to every APIResponse.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
}

// APIError carries a machine-readable code and a human-readable message.
// Raw gateway payloads are never placed in Details for end-user routes.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// StatusResponse is the poll/retry contract consumed by the checkout front end.
type StatusResponse struct {
	Success          bool     `json:"success"`
	OrderStatus      string   `json:"orderStatus"`
	PaymentStatus    string   `json:"paymentStatus"`
	TransactionID    string   `json:"transactionId,omitempty"`
	Amount           *float64 `json:"amount,omitempty"`
	AlreadyProcessed bool     `json:"alreadyProcessed,omitempty"`
	Outcome          Outcome  `json:"outcome,omitempty"`
	Message          string   `json:"message,omitempty"`
}

// WebhookAck is returned to the gateway for every accepted delivery.
type WebhookAck struct {
	Message   string    `json:"message"`
	Outcome   Outcome   `json:"outcome,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
