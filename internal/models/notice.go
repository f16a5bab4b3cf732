// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package models

import "time"

// PaymentNotice tells a customer their payment settled.
type PaymentNotice struct {
	OrderID          string    `json:"order_id"`
	GatewayPaymentID string    `json:"gateway_payment_id"`
	AccountID        string    `json:"account_id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Plan             Tier      `json:"plan"`
	Amount           float64   `json:"amount"`
	OriginalAmount   float64   `json:"original_amount"`
	DiscountAmount   float64   `json:"discount_amount"`
	PromoCode        string    `json:"promo_code,omitempty"`
	ExpiryDate       time.Time `json:"expiry_date"`
}

// ReferralNotice tells a promoter a referral credit was earned.
type ReferralNotice struct {
	PromoCode     string   `json:"promo_code"`
	PromoterName  string   `json:"promoter_name"`
	PromoterEmail string   `json:"promoter_email"`
	ReferredEmail string   `json:"referred_email"`
	OrderID       string   `json:"order_id"`
	Amount        string   `json:"amount"`
	UserType      UserType `json:"user_type"`
}
