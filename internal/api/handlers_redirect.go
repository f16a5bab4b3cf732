// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tomtom215/paysync/internal/logging"
	"github.com/tomtom215/paysync/internal/metrics"
	"github.com/tomtom215/paysync/internal/models"
	"github.com/tomtom215/paysync/internal/reconcile"
)

// Redirect destination values of the payment query parameter.
const (
	paymentSuccess = "success"
	paymentPending = "pending"
	paymentFailed  = "failed"
)

// PaymentRedirect is the browser return address after checkout. It always
// answers 302; missing or malformed parameters and internal faults all land
// on payment=pending.
//
// @Summary Browser return from checkout
// @Description Reconciles the order and redirects to the front-end dashboard with payment=success, pending or failed.
// @Tags Payments
// @Param order_id query string true "Order ID"
// @Param order_token query string false "Opaque gateway token"
// @Success 302 "Redirect to the front end"
// @Router /payments/redirect [get]
func (h *Handler) PaymentRedirect(w http.ResponseWriter, r *http.Request) {
	orderID := strings.TrimSpace(r.URL.Query().Get("order_id"))
	state := paymentPending

	defer func() {
		if rec := recover(); rec != nil {
			metrics.ReconcileErrors.WithLabelValues("panic").Inc()
			logging.Ctx(r.Context()).Error().
				Str("panic", fmt.Sprint(rec)).
				Str("order_id", logging.SanitizeValue(orderID)).
				Msg("Recovered from panic in payment redirect")
			h.redirectTo(w, r, paymentPending, orderID)
		}
	}()

	if err := models.ValidateOrderID(orderID); err != nil {
		logging.Ctx(r.Context()).Warn().
			Str("order_id", logging.SanitizeValue(orderID)).
			Msg("Payment redirect without a usable order id")
		h.redirectTo(w, r, state, "")
		return
	}

	ctx := logging.ContextWithOrderID(r.Context(), orderID)
	res, err := h.engine.Reconcile(ctx, reconcile.Event{OrderID: orderID, Source: models.SourceRedirect})
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Redirect reconciliation failed, sending user to pending")
	} else {
		state = paymentState(res.Outcome)
	}
	h.redirectTo(w, r, state, orderID)
}

// redirectTo sends the browser to the dashboard. orderID is omitted when
// empty.
func (h *Handler) redirectTo(w http.ResponseWriter, r *http.Request, state, orderID string) {
	q := url.Values{}
	q.Set("payment", state)
	if orderID != "" && models.ValidateOrderID(orderID) == nil {
		q.Set("order_id", orderID)
	}
	target := strings.TrimRight(h.config.Redirect.FrontendURL, "/") + h.config.Redirect.DashboardPath + "?" + q.Encode()
	http.Redirect(w, r, target, http.StatusFound)
}
