// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/paysync/internal/audit"
	"github.com/tomtom215/paysync/internal/evidence"
	"github.com/tomtom215/paysync/internal/logging"
	"github.com/tomtom215/paysync/internal/metrics"
	"github.com/tomtom215/paysync/internal/models"
	"github.com/tomtom215/paysync/internal/store"
)

const (
	maxDescriptionLength = 2000
	// multipartOverhead covers form fields and part headers.
	multipartOverhead = 1 << 20
)

// QuarantineSummary is the customer's view of a quarantine record. Raw
// gateway data is left out.
type QuarantineSummary struct {
	OrderID       string         `json:"order_id"`
	TransactionID string         `json:"transaction_id,omitempty"`
	Amount        float64        `json:"amount"`
	PaymentMethod string         `json:"payment_method,omitempty"`
	Resolved      bool           `json:"resolved"`
	TicketRaised  bool           `json:"ticket_raised"`
	Ticket        *models.Ticket `json:"ticket,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	ResolvedAt    *time.Time     `json:"resolved_at,omitempty"`
}

func summarize(rec *models.QuarantineRecord) QuarantineSummary {
	return QuarantineSummary{
		OrderID:       rec.OrderID,
		TransactionID: rec.TransactionID,
		Amount:        rec.Amount,
		PaymentMethod: rec.PaymentMethod,
		Resolved:      rec.Resolved,
		TicketRaised:  rec.TicketRaised,
		Ticket:        rec.Ticket,
		CreatedAt:     rec.CreatedAt,
		ResolvedAt:    rec.ResolvedAt,
	}
}

// GetIncompletePayment returns the customer's view of a quarantined order.
//
// @Summary Get a quarantined payment
// @Tags Payments
// @Produce json
// @Param orderID path string true "Order ID"
// @Success 200 {object} models.APIResponse{data=QuarantineSummary}
// @Failure 404 {object} models.APIResponse "No quarantine record"
// @Router /payments/orders/{orderID}/quarantine [get]
func (h *Handler) GetIncompletePayment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	rec, err := h.records.GetQuarantine(r.Context(), orderID)
	if err != nil {
		respondStoreError(w, err, "No incomplete payment found for this order")
		return
	}
	respondSuccess(w, r, http.StatusOK, summarize(rec), start)
}

// RaiseTicket attaches the customer's description and evidence files to a
// quarantine record and alerts the operators.
//
// @Summary Raise a ticket for a quarantined payment
// @Description Multipart form with a description and up to three image or PDF evidence files of at most 5 MiB each.
// @Tags Payments
// @Accept multipart/form-data
// @Produce json
// @Param orderID path string true "Order ID"
// @Param description formData string true "What happened"
// @Param evidence formData file false "Evidence file (repeatable)"
// @Success 200 {object} models.APIResponse{data=QuarantineSummary}
// @Failure 400 {object} models.APIResponse "Invalid form"
// @Failure 404 {object} models.APIResponse "No quarantine record"
// @Failure 409 {object} models.APIResponse "Already resolved"
// @Failure 413 {object} models.APIResponse "File too large"
// @Failure 415 {object} models.APIResponse "Unsupported file type"
// @Router /payments/orders/{orderID}/ticket [post]
func (h *Handler) RaiseTicket(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}
	ctx := logging.ContextWithOrderID(r.Context(), orderID)

	maxFiles, maxFileBytes := h.evidenceLimits()
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxFiles)*maxFileBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "Upload too large", err)
			return
		}
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, "Request must be multipart/form-data", err)
		return
	}
	defer func() {
		//nolint:errcheck // temp file cleanup
		_ = r.MultipartForm.RemoveAll()
	}()

	description := strings.TrimSpace(r.FormValue("description"))
	if description == "" || len(description) > maxDescriptionLength {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest,
			fmt.Sprintf("description is required and must be at most %d characters", maxDescriptionLength), nil)
		return
	}
	files := r.MultipartForm.File["evidence"]
	if len(files) > maxFiles {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest,
			fmt.Sprintf("at most %d evidence files are allowed", maxFiles), ErrTooManyFiles)
		return
	}

	rec, err := h.records.GetQuarantine(ctx, orderID)
	if err != nil {
		respondStoreError(w, err, "No incomplete payment found for this order")
		return
	}
	if rec.Resolved {
		respondError(w, http.StatusConflict, CodeAlreadyResolved, "This payment has already been resolved", nil)
		return
	}

	refs := make([]models.Evidence, 0, len(files))
	for _, fh := range files {
		ref, err := h.storeEvidence(ctx, orderID, fh, maxFileBytes)
		metrics.RecordEvidenceUpload(h.evidence.Backend(), err)
		if err != nil {
			respondEvidenceError(w, fh.Filename, err)
			return
		}
		refs = append(refs, ref)
	}

	rec, err = h.records.AttachTicket(ctx, orderID, models.Ticket{
		Description: description,
		Evidence:    refs,
		RaisedAt:    h.now().UTC(),
	})
	if err != nil {
		respondStoreError(w, err, "No incomplete payment found for this order")
		return
	}
	logging.Ctx(ctx).Info().Int("evidence", len(refs)).Msg("Ticket raised for quarantined payment")
	h.audit.LogOrderAction(r, audit.EventTypeTicketRaised, audit.CustomerActor(), orderID,
		"Customer raised a ticket", map[string]interface{}{"files": len(refs)})

	if h.notifier != nil && h.notifier.TicketRaised(ctx, rec) {
		if updated, err := h.records.MarkAdminNotified(ctx, orderID); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("Failed to mark admin notified")
		} else {
			rec = updated
		}
	}

	respondSuccess(w, r, http.StatusOK, summarize(rec), start)
}

func (h *Handler) evidenceLimits() (int, int64) {
	maxFiles := h.config.Evidence.MaxFiles
	if maxFiles <= 0 || maxFiles > models.MaxTicketEvidence {
		maxFiles = models.MaxTicketEvidence
	}
	maxFileBytes := h.config.Evidence.MaxFileBytes
	if maxFileBytes <= 0 {
		maxFileBytes = evidence.DefaultMaxFileBytes
	}
	return maxFiles, maxFileBytes
}

func (h *Handler) storeEvidence(ctx context.Context, orderID string, fh *multipart.FileHeader, maxFileBytes int64) (models.Evidence, error) {
	if fh.Size > maxFileBytes {
		return models.Evidence{}, fmt.Errorf("%w: %d bytes", evidence.ErrTooLarge, fh.Size)
	}
	f, err := fh.Open()
	if err != nil {
		return models.Evidence{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxFileBytes+1))
	if err != nil {
		return models.Evidence{}, fmt.Errorf("read upload: %w", err)
	}
	return h.evidence.Put(ctx, orderID, fh.Filename, data)
}

func respondEvidenceError(w http.ResponseWriter, name string, err error) {
	name = logging.SanitizeValue(evidence.SanitizeName(name))
	switch {
	case errors.Is(err, evidence.ErrTooLarge):
		respondError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, name+" is too large", err)
	case errors.Is(err, evidence.ErrUnsupportedType):
		respondError(w, http.StatusUnsupportedMediaType, CodeUnsupportedMedia, name+" must be an image or PDF", err)
	case errors.Is(err, evidence.ErrEmpty):
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, name+" is empty", err)
	default:
		respondError(w, http.StatusServiceUnavailable, CodeStorageUnavailable, "Failed to store evidence, try again shortly", err)
	}
}

func respondStoreError(w http.ResponseWriter, err error, notFound string) {
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, CodeNotFound, notFound, nil)
		return
	}
	respondError(w, http.StatusInternalServerError, CodeInternal, "Storage error", err)
}
