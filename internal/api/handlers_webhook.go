// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/tomtom215/paysync/internal/gateway"
	"github.com/tomtom215/paysync/internal/logging"
	"github.com/tomtom215/paysync/internal/models"
	"github.com/tomtom215/paysync/internal/reconcile"
)

const defaultWebhookBodyBytes = 1 << 20

// Webhook receives gateway pushes. The signature is checked over the raw
// bytes before decoding; after that every delivery is acknowledged with
// 200 so the gateway stops redelivering. Missed reconciliations are picked
// up by the poll path.
//
// @Summary Receive a payment gateway webhook
// @Description Verifies the x-webhook-signature header over the raw body and reconciles payment events.
// @Tags Payments
// @Accept json
// @Produce json
// @Param x-webhook-signature header string true "base64 HMAC-SHA256 of the raw body"
// @Success 200 {object} models.WebhookAck
// @Failure 400 {object} models.APIResponse "Invalid signature or payload"
// @Router /payments/webhook [post]
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	limit := h.config.Webhook.MaxBodyBytes
	if limit <= 0 {
		limit = defaultWebhookBodyBytes
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "Webhook body too large", err)
			return
		}
		respondError(w, http.StatusBadRequest, CodeInvalidPayload, "Failed to read webhook body", err)
		return
	}

	signature := r.Header.Get(gateway.SignatureHeader)
	switch {
	case signature == "" && !h.config.Webhook.AllowUnsigned:
		respondError(w, http.StatusBadRequest, CodeMissingSignature, "Missing webhook signature", gateway.ErrSignatureMissing)
		return
	case signature == "":
		logging.Ctx(r.Context()).Warn().Msg("Accepting unsigned webhook")
	case !h.gateway.VerifySignature(raw, signature):
		respondError(w, http.StatusBadRequest, CodeInvalidSignature, "Invalid webhook signature", gateway.ErrSignatureInvalid)
		return
	}

	event, err := gateway.ParseWebhook(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidPayload, "Invalid webhook payload", err)
		return
	}

	if !event.Actionable() {
		logging.Ctx(r.Context()).Debug().Str("event_type", logging.SanitizeValue(event.Type)).Msg("Ignoring webhook event")
		writeJSON(w, http.StatusOK, models.WebhookAck{Message: "Event acknowledged", Timestamp: h.now().UTC()})
		return
	}

	ctx := logging.ContextWithOrderID(r.Context(), event.Snapshot.OrderID)
	res, err := h.engine.Reconcile(ctx, reconcile.Event{
		OrderID:  event.Snapshot.OrderID,
		Snapshot: event.Snapshot,
		Source:   models.SourceWebhook,
	})
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("event_type", event.Type).Msg("Webhook reconciliation failed, leaving it to the poll path")
		writeJSON(w, http.StatusOK, models.WebhookAck{Message: "Webhook received", Timestamp: h.now().UTC()})
		return
	}

	writeJSON(w, http.StatusOK, models.WebhookAck{
		Message:   "Webhook processed",
		Outcome:   res.Outcome,
		Timestamp: h.now().UTC(),
	})
}

// WebhookTest lets operators check the webhook route is reachable.
//
// @Summary Webhook reachability probe
// @Tags Payments
// @Produce json
// @Success 200 {object} models.WebhookAck
// @Router /payments/webhook/test [get]
func (h *Handler) WebhookTest(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, models.WebhookAck{Message: "Webhook endpoint is reachable", Timestamp: h.now().UTC()})
}
