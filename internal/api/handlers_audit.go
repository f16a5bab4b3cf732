// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/paysync/internal/audit"
)

const maxAuditLimit = 500

// AuditList is a page of audit events.
type AuditList struct {
	Events []audit.Event `json:"events"`
	Count  int           `json:"count"`
}

// AuditLog returns recent operator and customer actions, newest first.
// format=cef renders Common Event Format lines for SIEM import.
//
// @Summary Query the audit trail
// @Tags Admin
// @Produce json
// @Produce plain
// @Security BearerAuth
// @Param type query string false "Comma-separated event types"
// @Param actor query string false "Actor name"
// @Param order_id query string false "Order ID"
// @Param since query string false "RFC 3339 lower bound"
// @Param limit query int false "Maximum events (1-500)" default(100)
// @Param format query string false "json or cef" default(json)
// @Success 200 {object} models.APIResponse{data=AuditList}
// @Failure 400 {object} models.APIResponse "Invalid filter"
// @Router /admin/audit [get]
func (h *Handler) AuditLog(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()

	limit := getIntParam(r, "limit", audit.DefaultQueryLimit)
	if limit < 1 || limit > maxAuditLimit {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, "limit must be between 1 and 500", nil)
		return
	}
	filter := audit.QueryFilter{
		Actor:    q.Get("actor"),
		TargetID: q.Get("order_id"),
		Limit:    limit,
	}
	if raw := q.Get("type"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				filter.Types = append(filter.Types, audit.EventType(t))
			}
		}
	}
	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, CodeInvalidRequest, "since must be an RFC 3339 timestamp", err)
			return
		}
		filter.Since = &since
	}

	format := q.Get("format")
	if format != "" && format != "json" && format != "cef" {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, "format must be json or cef", nil)
		return
	}

	events, err := h.audit.Query(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodeInternal, "Failed to query audit trail", err)
		return
	}

	if format == "cef" {
		data, err := audit.NewCEFExporter(h.version).Export(events)
		if err != nil {
			respondError(w, http.StatusInternalServerError, CodeInternal, "Failed to export audit trail", err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data) //nolint:errcheck // client went away
		return
	}
	respondSuccess(w, r, http.StatusOK, AuditList{Events: events, Count: len(events)}, start)
}
