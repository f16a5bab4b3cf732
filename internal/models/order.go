// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package models

import (
	"errors"
	"strings"
)

// MaxOrderIDLength matches the gateway's order_id limit.
const MaxOrderIDLength = 50

// DefaultCurrency is used when an order does not specify one.
const DefaultCurrency = "INR"

// ErrInvalidOrderID is returned for empty, oversized or template-looking ids.
// Unrendered front-end templates ("{order_id}") reach the redirect route often
// enough that braces are rejected outright.
var ErrInvalidOrderID = errors.New("invalid order id")

// ValidateOrderID checks a caller-supplied order id.
func ValidateOrderID(id string) error {
	if strings.TrimSpace(id) == "" || len(id) > MaxOrderIDLength {
		return ErrInvalidOrderID
	}
	if strings.ContainsAny(id, "{}") {
		return ErrInvalidOrderID
	}
	return nil
}

// PlanType is the checkout plan selection.
type PlanType string

const (
	PlanTypePremium PlanType = "premium"
	PlanTypeSilver  PlanType = "silver"
)

// OrderContext selects the browser return destination after checkout.
type OrderContext string

const (
	OrderContextRegistration OrderContext = "registration"
	OrderContextExistingUser OrderContext = "existing_user"
)

// Customer is the paying customer as submitted at checkout.
type Customer struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,max=20,phone"`
}

// Order is one checkout attempt. It is created once and never changed
// except by the gateway-reported status.
type Order struct {
	ID             string            `json:"orderId" validate:"orderid"`
	Amount         float64           `json:"orderAmount" validate:"required,gt=0"`
	Currency       string            `json:"currency,omitempty" validate:"omitempty,len=3"`
	Customer       Customer          `json:"customer" validate:"required"`
	PlanType       PlanType          `json:"planType,omitempty" validate:"omitempty,oneof=premium silver"`
	PromoCode      string            `json:"promocode,omitempty" validate:"omitempty,max=32,alphanum"`
	OriginalAmount *float64          `json:"originalAmount,omitempty" validate:"omitempty,gt=0"`
	Context        OrderContext      `json:"context,omitempty" validate:"omitempty,oneof=registration existing_user"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// OrderNote is the metadata JSON carried through the gateway's order_note
// field and echoed back on status fetches and webhooks.
type OrderNote struct {
	PlanType       PlanType `json:"planType"`
	PromoCode      *string  `json:"promocode"`
	OriginalAmount *float64 `json:"originalAmount"`
}

// ChargeReference is what the gateway returns for a created order.
type ChargeReference struct {
	OrderID          string     `json:"order_id"`
	CFOrderID        FlexString `json:"cf_order_id"`
	OrderStatus      string     `json:"order_status"`
	PaymentSessionID string     `json:"payment_session_id,omitempty"`
	OrderToken       string     `json:"order_token,omitempty"`
	PaymentLink      string     `json:"payment_link,omitempty"`
	OrderAmount      float64    `json:"order_amount"`
}

// CheckoutResult is returned to the front end after order creation.
type CheckoutResult struct {
	ChargeReference
	OriginalAmount  float64  `json:"originalAmount"`
	FinalAmount     float64  `json:"finalAmount"`
	DiscountApplied float64  `json:"discountApplied"`
	PlanType        PlanType `json:"planType"`
}
