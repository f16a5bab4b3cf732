// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package models

import "time"

// ReferralCreditAmount is the flat amount credited to a promoter per referred payment.
const ReferralCreditAmount = "100"

// ReferralStatusPending is the only status this service ever writes.
const ReferralStatusPending = "pending"

// PromoterStatusActive marks a promoter whose code still earns credits.
const PromoterStatusActive = "active"

// Promoter owns a promo code.
type Promoter struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Status string `json:"status"`
}

// ReferralCredit is a pending earning for a promoter. There is at most one per
// GatewayPaymentID.
type ReferralCredit struct {
	ID                string    `json:"id"`
	PromoCode         string    `json:"promo_code"`
	ReferredAccountID string    `json:"referred_account_id"`
	Email             string    `json:"email"`
	Phone             string    `json:"phone"`
	Amount            string    `json:"amount"`
	GatewayPaymentID  string    `json:"gateway_payment_id"`
	OrderID           string    `json:"order_id"`
	UserType          UserType  `json:"user_type"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
}
