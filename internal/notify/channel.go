// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

// Package notify delivers best-effort downstream messages after a
// reconciliation: the payment confirmation to the customer, the referral
// credit notice to the promoter, and quarantine ticket alerts to support.
//
// Channels:
//   - Email: SMTP with plain/HTML multipart bodies and STARTTLS
//   - Webhook: a JSON POST signed with HMAC-SHA256
//
// The Dispatcher fans every message out to all configured channels under a
// per-call timeout. Failures are logged and counted, never returned: a lost
// e-mail must not undo a settlement.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// Message kinds, also used as the "kind" metric label.
const (
	KindPaymentSuccess   = "payment_success"
	KindReferralCredit   = "referral_credit"
	KindQuarantineTicket = "quarantine_ticket"
)

// ErrNoRecipient is returned by channels that need an address the message
// does not carry.
var ErrNoRecipient = errors.New("notify: message has no recipient")

// Message is one rendered notification.
type Message struct {
	Kind    string
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
	// Data is the structured payload for machine channels.
	Data any
}

// Channel is one delivery mechanism.
type Channel interface {
	Name() string
	Send(ctx context.Context, msg *Message) error
}

// ValidateAddress checks an e-mail recipient.
func ValidateAddress(addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ErrNoRecipient
	}
	parsed, err := mail.ParseAddress(addr)
	if err != nil {
		return fmt.Errorf("invalid e-mail address: %w", err)
	}
	// Reject display-name forms and header injection attempts.
	if parsed.Address != addr || strings.ContainsAny(addr, "\r\n") {
		return fmt.Errorf("invalid e-mail address %q", addr)
	}
	return nil
}
