// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

// Paysync API provides checkout, webhook reconciliation and quarantine
// administration for hosted-checkout payments.
//
// @title Paysync API
// @version 1.0
// @description Reconciles payment gateway observations into exactly-once account changes.
// @description
// @description ## Sources
// @description
// @description A payment is observed through the gateway webhook, the browser redirect,
// @description a client status poll, a manual retry or the quarantine sweeper. All of them
// @description flow through the same reconciliation path; the ledger guarantees an order
// @description is applied at most once.
// @description
// @description ## Authentication
// @description
// @description Payment endpoints are public. Webhooks are authenticated by an HMAC-SHA256
// @description signature in `x-webhook-signature`. Admin endpoints require a JWT obtained
// @description from `/api/v1/auth/login` with HTTP Basic credentials.
// @description
// @description ## Error Responses
// @description
// @description All enveloped error responses follow this format:
// @description ```json
// @description {
// @description   "status": "error",
// @description   "data": null,
// @description   "error": {
// @description     "code": "ERROR_CODE",
// @description     "message": "Human-readable error message"
// @description   },
// @description   "metadata": {
// @description     "timestamp": "2026-10-14T12:34:56Z"
// @description   }
// @description }
// @description ```
//
// @contact.name GitHub Repository
// @contact.url https://github.com/tomtom215/paysync/issues
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @BasePath /api/v1
// @schemes http https
//
// @securityDefinitions.basic BasicAuth
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer JWT. The token cookie set by login is also accepted.
//
// @tag.name Payments
// @tag.description Checkout, webhook, redirect, status and ticket endpoints
//
// @tag.name Auth
// @tag.description Admin login
//
// @tag.name Admin
// @tag.description Quarantine triage, ledger lookup, evidence and the live event feed
package main
