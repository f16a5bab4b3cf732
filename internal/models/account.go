// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package models

import "time"

// Tier is the subscription tier held by an account.
type Tier string

const (
	TierFree    Tier = "FreeUser"
	TierSilver  Tier = "SilverUser"
	TierPremium Tier = "PremiumUser"
)

// UserType is the paid user type recorded on ledger entries and credits.
type UserType string

const (
	UserTypePaidSilver  UserType = "paidSilver"
	UserTypePaidPremium UserType = "paidPremium"
)

// AccountStatus is the activation state. Payment processing never changes it;
// activation after payment is a separate admin step.
type AccountStatus string

const (
	AccountActive   AccountStatus = "active"
	AccountInactive AccountStatus = "inactive"
)

// Account is the paying customer's account as held by the account directory.
type Account struct {
	ID         string        `json:"id"`
	Email      string        `json:"email"`
	Phone      string        `json:"phone"`
	Token      string        `json:"token,omitempty"`
	Name       string        `json:"name,omitempty"`
	Tier       Tier          `json:"tier"`
	Status     AccountStatus `json:"status"`
	ExpiryDate *time.Time    `json:"expiry_date,omitempty"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Entitlement is what a successful payment grants.
type Entitlement struct {
	Tier     Tier     `json:"tier"`
	UserType UserType `json:"user_type"`
	Months   int      `json:"months"`
}
