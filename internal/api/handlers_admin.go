// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/paysync/internal/audit"
	"github.com/tomtom215/paysync/internal/auth"
	"github.com/tomtom215/paysync/internal/evidence"
	"github.com/tomtom215/paysync/internal/logging"
	"github.com/tomtom215/paysync/internal/models"
	"github.com/tomtom215/paysync/internal/validation"
	ws "github.com/tomtom215/paysync/internal/websocket"
)

const (
	defaultQuarantineLimit = 50
	maxQuarantineLimit     = 500
)

// ResolveRequest is the body of an admin resolution.
type ResolveRequest struct {
	Notes string `json:"notes" validate:"required,max=2000"`
}

// QuarantineList is a page of quarantine records.
type QuarantineList struct {
	Records []models.QuarantineRecord `json:"records"`
	Count   int                       `json:"count"`
}

// ListQuarantine returns quarantine records newest first.
//
// @Summary List quarantined orders
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param resolved query bool false "Filter on the resolved flag"
// @Param limit query int false "Maximum records (1-500)" default(50)
// @Success 200 {object} models.APIResponse{data=QuarantineList}
// @Failure 400 {object} models.APIResponse "Invalid filter"
// @Router /admin/quarantine [get]
func (h *Handler) ListQuarantine(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	resolved, ok := getBoolParam(r, "resolved")
	if !ok {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, "resolved must be true or false", nil)
		return
	}
	limit := getIntParam(r, "limit", defaultQuarantineLimit)
	if limit < 1 || limit > maxQuarantineLimit {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, "limit must be between 1 and 500", nil)
		return
	}

	records, err := h.records.ListQuarantine(r.Context(), models.QuarantineFilter{Resolved: resolved, Limit: limit})
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodeInternal, "Failed to list quarantine records", err)
		return
	}
	if records == nil {
		records = []models.QuarantineRecord{}
	}
	respondSuccess(w, r, http.StatusOK, QuarantineList{Records: records, Count: len(records)}, start)
}

// GetQuarantine returns one record including the raw gateway snapshot.
//
// @Summary Get a quarantined order
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param orderID path string true "Order ID"
// @Success 200 {object} models.APIResponse{data=models.QuarantineRecord}
// @Failure 404 {object} models.APIResponse "No quarantine record"
// @Router /admin/quarantine/{orderID} [get]
func (h *Handler) GetQuarantine(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}
	rec, err := h.records.GetQuarantine(r.Context(), orderID)
	if err != nil {
		respondStoreError(w, err, "No quarantine record for this order")
		return
	}
	respondSuccess(w, r, http.StatusOK, rec, start)
}

// ResolveQuarantine marks a record resolved with the operator's notes. The
// ledger is not touched; settle through the retry path when the gateway
// agrees.
//
// @Summary Resolve a quarantined order
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param orderID path string true "Order ID"
// @Param request body ResolveRequest true "Resolution notes"
// @Success 200 {object} models.APIResponse{data=models.QuarantineRecord}
// @Failure 400 {object} models.APIResponse "Invalid request"
// @Failure 404 {object} models.APIResponse "No quarantine record"
// @Router /admin/quarantine/{orderID}/resolve [post]
func (h *Handler) ResolveQuarantine(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	var req ResolveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, "Request body must be JSON", err)
		return
	}
	req.Notes = strings.TrimSpace(req.Notes)
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidationError(w, verr)
		return
	}

	resolvedBy := "admin"
	actor := audit.AdminActor(resolvedBy, "")
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok && claims.Username != "" {
		resolvedBy = claims.Username
		actor = audit.AdminActor(claims.Username, claims.Role)
	}

	rec, err := h.records.ResolveQuarantine(r.Context(), orderID, resolvedBy, req.Notes)
	if err != nil {
		respondStoreError(w, err, "No quarantine record for this order")
		return
	}
	logging.Ctx(logging.ContextWithOrderID(r.Context(), orderID)).Info().
		Str("resolved_by", resolvedBy).
		Msg("Quarantine record resolved by operator")
	h.audit.LogOrderAction(r, audit.EventTypeQuarantineResolved, actor, orderID,
		"Quarantine record resolved", map[string]interface{}{"notes": req.Notes})
	respondSuccess(w, r, http.StatusOK, rec, start)
}

// GetLedgerEntry returns the ledger entry of an order.
//
// @Summary Get a ledger entry
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param orderID path string true "Order ID"
// @Success 200 {object} models.APIResponse{data=models.LedgerEntry}
// @Failure 404 {object} models.APIResponse "No ledger entry"
// @Router /admin/ledger/{orderID} [get]
func (h *Handler) GetLedgerEntry(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}
	entry, err := h.records.GetLedgerEntry(r.Context(), orderID)
	if err != nil {
		respondStoreError(w, err, "No ledger entry for this order")
		return
	}
	respondSuccess(w, r, http.StatusOK, entry, start)
}

// EventsWebSocket streams reconciliation events to an admin browser.
//
// @Summary Live reconciliation feed
// @Description Upgrades to a websocket that receives {"type":"reconciliation","data":{...}} messages.
// @Tags Admin
// @Security BearerAuth
// @Success 101 "Switching protocols"
// @Failure 503 {object} models.APIResponse "Feed disabled"
// @Router /admin/events/ws [get]
func (h *Handler) EventsWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		respondError(w, http.StatusServiceUnavailable, CodeUnavailable, "Live feed is disabled", errors.New("websocket hub not configured"))
		return
	}
	ws.ServeWS(h.wsHub, h.upgrader, w, r)
}

// EvidenceFile streams an uploaded evidence file.
//
// @Summary Get ticket evidence
// @Tags Admin
// @Produce octet-stream
// @Param key path string true "Evidence key"
// @Success 200 {file} binary
// @Failure 404 {object} models.APIResponse
// @Security BearerAuth
// @Router /admin/evidence/{key} [get]
func (h *Handler) EvidenceFile(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if h.evidence == nil || key == "" {
		respondError(w, http.StatusNotFound, CodeNotFound, "Evidence not found", nil)
		return
	}
	data, err := h.evidence.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, evidence.ErrNotFound) {
			respondError(w, http.StatusNotFound, CodeNotFound, "Evidence not found", nil)
			return
		}
		respondError(w, http.StatusServiceUnavailable, CodeStorageUnavailable, "Failed to read evidence", err)
		return
	}
	h.audit.LogOrderAction(r, audit.EventTypeEvidenceRead, requestActor(r), evidenceOrderID(key),
		"Evidence file read", map[string]interface{}{"key": key})
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Content-Disposition", "inline; filename=\""+evidence.SanitizeName(key)+"\"")
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data) //nolint:errcheck // client went away
}

// requestActor is the authenticated operator behind r.
func requestActor(r *http.Request) audit.Actor {
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		return audit.AdminActor(claims.Username, claims.Role)
	}
	return audit.Actor{Type: "admin"}
}

// evidenceOrderID extracts the order from a key shaped
// [prefix/]orderID/digest-name.
func evidenceOrderID(key string) string {
	parts := strings.Split(key, "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-2]
}
