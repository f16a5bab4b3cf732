// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

// Package validation validates request bodies with go-playground/validator.
//
// A single validator instance is built once with two extra rules:
//
//	orderid  non-empty, at most 50 characters, no '{' or '}'
//	phone    at least 10 digits once punctuation is ignored
//
// Field names in messages are the JSON names ("orderAmount", not "Amount").
//
//	if verr := validation.ValidateStruct(&order); verr != nil {
//	    respondError(w, http.StatusBadRequest, validation.Code, verr.Error(), verr)
//	    return
//	}
package validation
