// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package gateway

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/paysync/internal/models"
)

// Webhook event types acted on by the reconciler. Anything else is acknowledged.
const (
	EventPaymentSuccess     = "PAYMENT_SUCCESS_WEBHOOK"
	EventPaymentFailed      = "PAYMENT_FAILED_WEBHOOK"
	EventPaymentUserDropped = "PAYMENT_USER_DROPPED_WEBHOOK"
)

// WebhookEvent is a decoded gateway push. Snapshot is nil for event types
// that carry no order.
type WebhookEvent struct {
	Type      string
	EventTime string
	Snapshot  *models.Snapshot
}

// Actionable reports whether the event should be reconciled.
func (e *WebhookEvent) Actionable() bool {
	switch e.Type {
	case EventPaymentSuccess, EventPaymentFailed, EventPaymentUserDropped:
		return e.Snapshot != nil
	}
	return false
}

type webhookEnvelope struct {
	Type      string          `json:"type"`
	EventTime string          `json:"event_time"`
	Data      json.RawMessage `json:"data"`
}

type webhookOrder struct {
	OrderID       string            `json:"order_id"`
	CFOrderID     models.FlexString `json:"cf_order_id"`
	OrderAmount   float64           `json:"order_amount"`
	OrderCurrency string            `json:"order_currency"`
	OrderStatus   string            `json:"order_status"`
	OrderNote     *string           `json:"order_note"`
	OrderTags     map[string]string `json:"order_tags"`
}

type webhookData struct {
	Order    *webhookOrder          `json:"order"`
	Payment  *models.PaymentAttempt `json:"payment"`
	Customer models.CustomerDetails `json:"customer_details"`
}

// ParseWebhook decodes a webhook body into the same Snapshot shape that
// FetchStatus returns, so every entry path feeds one classifier.
//
// Webhooks report a single payment. When the order object omits its status
// a SUCCESS payment implies PAID; other payment statuses leave it empty.
func ParseWebhook(raw []byte) (*WebhookEvent, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrMalformedPayload)
	}

	event := &WebhookEvent{Type: env.Type, EventTime: env.EventTime}
	switch env.Type {
	case EventPaymentSuccess, EventPaymentFailed, EventPaymentUserDropped:
	default:
		return event, nil
	}

	var data webhookData
	if len(env.Data) == 0 {
		return nil, fmt.Errorf("%w: missing data", ErrMalformedPayload)
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if data.Order == nil || data.Order.OrderID == "" {
		return nil, fmt.Errorf("%w: missing order id", ErrMalformedPayload)
	}
	if err := models.ValidateOrderID(data.Order.OrderID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	snap := &models.Snapshot{
		OrderID:       data.Order.OrderID,
		CFOrderID:     data.Order.CFOrderID,
		OrderAmount:   data.Order.OrderAmount,
		OrderCurrency: data.Order.OrderCurrency,
		OrderStatus:   data.Order.OrderStatus,
		Customer:      data.Customer,
		OrderNote:     data.Order.OrderNote,
		OrderTags:     data.Order.OrderTags,
		Raw:           append(json.RawMessage(nil), raw...),
	}

	if p := data.Payment; p != nil {
		status := p.Status()
		if status != "" {
			snap.PaymentStatus = models.StringPtr(status)
		}
		if p.PaymentMethod != "" {
			method := p.PaymentMethod
			snap.PaymentMethod = &method
		}
		attempts := []models.PaymentAttempt{*p}
		snap.Payments = &attempts

		if strings.TrimSpace(snap.OrderStatus) == "" && status == models.PaymentStatusSuccess {
			snap.OrderStatus = models.OrderStatusPaid
		}
		if snap.OrderAmount == 0 && p.PaymentAmount != nil {
			snap.OrderAmount = *p.PaymentAmount
		}
	}

	event.Snapshot = snap
	return event, nil
}
