// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/paysync/internal/audit"
	"github.com/tomtom215/paysync/internal/gateway"
	"github.com/tomtom215/paysync/internal/logging"
	"github.com/tomtom215/paysync/internal/models"
	"github.com/tomtom215/paysync/internal/reconcile"
	"github.com/tomtom215/paysync/internal/store"
	"github.com/tomtom215/paysync/internal/validation"
)

// CreateOrder registers a checkout order with the gateway.
//
// @Summary Create a checkout order
// @Description Validates the order, creates it at the payment gateway and returns the payment session together with the applied discount.
// @Tags Payments
// @Accept json
// @Produce json
// @Param order body models.Order true "Checkout order"
// @Success 200 {object} models.APIResponse{data=models.CheckoutResult}
// @Failure 400 {object} models.APIResponse "Validation failed or gateway rejected the order"
// @Failure 503 {object} models.APIResponse "Gateway unavailable"
// @Router /payments/orders [post]
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var order models.Order
	if err := decodeJSON(w, r, &order); err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, "Request body must be a JSON order", err)
		return
	}
	if verr := validation.ValidateStruct(&order); verr != nil {
		respondValidationError(w, verr)
		return
	}
	if order.OriginalAmount != nil && *order.OriginalAmount < order.Amount {
		respondError(w, http.StatusBadRequest, validation.Code, "originalAmount must not be less than orderAmount", nil)
		return
	}

	h.createOrder(w, r, order, start)
}

// CreateTestOrder creates a minimal order so the gateway integration can be
// checked end to end.
//
// @Summary Create a test order
// @Description Creates a 1 INR order with id test_<unix-ms>. Not available in production.
// @Tags Payments
// @Produce json
// @Success 200 {object} models.APIResponse{data=models.CheckoutResult}
// @Failure 404 {object} models.APIResponse "Disabled in production"
// @Router /payments/orders/test [post]
func (h *Handler) CreateTestOrder(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.config.Server.IsProduction() {
		respondError(w, http.StatusNotFound, CodeNotFound, "Not found", ErrTestOrdersDisabled)
		return
	}

	order := models.Order{
		ID:       fmt.Sprintf("test_%d", h.now().UnixMilli()),
		Amount:   1,
		Currency: models.DefaultCurrency,
		Customer: models.Customer{
			ID:    "test_customer",
			Name:  "Test Customer",
			Email: "test@example.com",
			Phone: "9999999999",
		},
		PlanType: models.PlanTypeSilver,
	}
	h.createOrder(w, r, order, start)
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request, order models.Order, start time.Time) {
	ctx := logging.ContextWithOrderID(r.Context(), order.ID)

	ref, err := h.gateway.CreateCharge(ctx, order)
	if err != nil {
		var rejected *gateway.RejectedError
		switch {
		case errors.As(err, &rejected):
			respondError(w, http.StatusBadRequest, CodeGatewayRejected, "The payment gateway rejected the order", err)
		case errors.Is(err, gateway.ErrGatewayUnavailable):
			respondError(w, http.StatusServiceUnavailable, CodeGatewayUnavailable, "The payment gateway is unavailable, try again shortly", err)
		default:
			respondError(w, http.StatusInternalServerError, CodeInternal, "Failed to create order", err)
		}
		return
	}

	// Report the plan the gateway note carries.
	plan := gateway.NoteForOrder(order).PlanType
	final := gateway.RoundAmount(order.Amount)
	original := final
	if order.OriginalAmount != nil {
		original = gateway.RoundAmount(*order.OriginalAmount)
	}

	logging.Ctx(ctx).Info().
		Float64("amount", final).
		Str("plan", string(plan)).
		Bool("promo", order.PromoCode != "").
		Msg("Order created")

	respondSuccess(w, r, http.StatusOK, models.CheckoutResult{
		ChargeReference: *ref,
		OriginalAmount:  original,
		FinalAmount:     final,
		DiscountApplied: gateway.RoundAmount(original - final),
		PlanType:        plan,
	}, start)
}

// OrderStatus reports an order's settlement, asking the gateway only when
// the ledger has no SUCCESS entry.
//
// @Summary Get order payment status
// @Description Returns the settled state from the ledger or reconciles the gateway's current view of the order.
// @Tags Payments
// @Produce json
// @Param orderID path string true "Order ID"
// @Success 200 {object} models.StatusResponse
// @Failure 400 {object} models.APIResponse "Invalid order id"
// @Failure 404 {object} models.APIResponse "Unknown order"
// @Failure 503 {object} models.APIResponse "Gateway unavailable"
// @Router /payments/orders/{orderID}/status [get]
func (h *Handler) OrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}
	ctx := logging.ContextWithOrderID(r.Context(), orderID)

	entry, err := h.records.GetLedgerEntry(ctx, orderID)
	switch {
	case err == nil && entry.Settled():
		writeJSON(w, http.StatusOK, ledgerStatus(entry))
		return
	case err != nil && !errors.Is(err, store.ErrNotFound):
		logging.Ctx(ctx).Warn().Err(err).Msg("Ledger lookup failed, falling back to the gateway")
	}

	res, err := h.engine.Reconcile(ctx, reconcile.Event{OrderID: orderID, Source: models.SourcePoll})
	if err != nil {
		h.respondReconcileError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusFromResult(res))
}

// RetryOrder re-reads the gateway and reconciles, resolving a matching
// quarantine record when the payment has since settled.
//
// @Summary Retry reconciliation of an order
// @Description Always fetches the gateway's current view. Safe to call any number of times.
// @Tags Payments
// @Produce json
// @Param orderID path string true "Order ID"
// @Success 200 {object} models.StatusResponse
// @Failure 400 {object} models.APIResponse "Invalid order id"
// @Failure 404 {object} models.APIResponse "Unknown order"
// @Failure 503 {object} models.APIResponse "Gateway unavailable"
// @Router /payments/orders/{orderID}/retry [post]
func (h *Handler) RetryOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}
	ctx := logging.ContextWithOrderID(r.Context(), orderID)

	res, err := h.engine.FetchAndReconcile(ctx, orderID, models.SourcePoll)
	if err != nil {
		h.respondReconcileError(w, err)
		return
	}
	h.audit.LogOrderAction(r, audit.EventTypeOrderRetried, audit.CustomerActor(), orderID,
		"Reconciliation retried", map[string]interface{}{"outcome": string(res.Outcome)})
	writeJSON(w, http.StatusOK, statusFromResult(res))
}

func (h *Handler) respondReconcileError(w http.ResponseWriter, err error) {
	var rejected *gateway.RejectedError
	switch {
	case errors.Is(err, models.ErrInvalidOrderID):
		respondError(w, http.StatusBadRequest, CodeInvalidOrderID, "Order ID is invalid", nil)
	case errors.As(err, &rejected) && rejected.StatusCode == http.StatusNotFound:
		respondError(w, http.StatusNotFound, CodeNotFound, "Order not found", err)
	case errors.Is(err, gateway.ErrGatewayRejected):
		respondError(w, http.StatusBadGateway, CodeGatewayRejected, "The payment gateway rejected the status request", err)
	case errors.Is(err, gateway.ErrGatewayUnavailable):
		respondError(w, http.StatusServiceUnavailable, CodeGatewayUnavailable, "The payment gateway is unavailable, try again shortly", err)
	case errors.Is(err, gateway.ErrMalformedPayload):
		respondError(w, http.StatusBadGateway, CodeInvalidPayload, "The payment gateway returned an unreadable status", err)
	default:
		respondError(w, http.StatusInternalServerError, CodeInternal, "Failed to check payment status", err)
	}
}

func ledgerStatus(entry *models.LedgerEntry) models.StatusResponse {
	amount := entry.Amount
	return models.StatusResponse{
		Success:          true,
		OrderStatus:      models.OrderStatusPaid,
		PaymentStatus:    models.PaymentStatusSuccess,
		TransactionID:    entry.GatewayPaymentID,
		Amount:           &amount,
		AlreadyProcessed: true,
		Outcome:          models.OutcomeAlreadySettled,
		Message:          "Payment already processed",
	}
}

// statusFromResult shapes an engine result for the front end. Only settled
// outcomes expose the transaction id and amount.
func statusFromResult(res *reconcile.Result) models.StatusResponse {
	resp := models.StatusResponse{
		Success:       res.Outcome.Succeeded(),
		OrderStatus:   res.OrderStatus,
		PaymentStatus: res.PaymentStatus,
		Outcome:       res.Outcome,
	}

	switch res.Outcome {
	case models.OutcomeAlreadySettled, models.OutcomeConfirmedSuccess:
		amount := res.Amount
		resp.TransactionID = res.GatewayPaymentID
		resp.Amount = &amount
		resp.AlreadyProcessed = res.Outcome == models.OutcomeAlreadySettled
		resp.Message = "Payment successful"
		if resp.AlreadyProcessed {
			resp.Message = "Payment already processed"
		}
	case models.OutcomeConfirmedFailure:
		resp.Message = "Payment failed"
	case models.OutcomeAmbiguousQuarantine, models.OutcomeAmbiguousRetry:
		resp.Message = "Payment is being verified"
	default:
		resp.Message = "Payment not completed"
	}
	return resp
}

// paymentState maps an outcome to the redirect destination value.
func paymentState(outcome models.Outcome) string {
	switch {
	case outcome.Succeeded():
		return paymentSuccess
	case outcome == models.OutcomeConfirmedFailure:
		return paymentFailed
	default:
		return paymentPending
	}
}
