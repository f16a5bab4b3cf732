// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package models

import (
	"bytes"
	"strings"

	"github.com/goccy/go-json"
)

// Order-level statuses reported by the gateway.
const (
	OrderStatusActive     = "ACTIVE"
	OrderStatusPaid       = "PAID"
	OrderStatusExpired    = "EXPIRED"
	OrderStatusTerminated = "TERMINATED"
	OrderStatusFailed     = "FAILED"
	OrderStatusCancelled  = "CANCELLED"
)

// Payment-level statuses reported by the gateway.
const (
	PaymentStatusSuccess      = "SUCCESS"
	PaymentStatusPending      = "PENDING"
	PaymentStatusNotAttempted = "NOT_ATTEMPTED"
	PaymentStatusFailed       = "FAILED"
	PaymentStatusUserDropped  = "USER_DROPPED"
	PaymentStatusCancelled    = "CANCELLED"
	PaymentStatusVoid         = "VOID"
	PaymentStatusFlagged      = "FLAGGED"
)

// FlexString decodes a JSON string or number into a string. The gateway has
// shipped cf_order_id and cf_payment_id as both across API versions.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

// PaymentMethod decodes either a plain string ("UPI") or the gateway's
// nested method object ({"upi": {...}}), keeping only the method name.
type PaymentMethod string

func (m *PaymentMethod) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*m = PaymentMethod(s)
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		for k := range obj {
			// Objects carry exactly one method key.
			*m = PaymentMethod(strings.ToUpper(k))
			break
		}
	default:
		*m = PaymentMethod(string(data))
	}
	return nil
}

func (m PaymentMethod) String() string { return string(m) }

// CustomerDetails is the customer block echoed by the gateway.
type CustomerDetails struct {
	CustomerID    string `json:"customer_id,omitempty"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
}

// PaymentAttempt is one entry of the order's payments list. Older payloads
// use "status", newer ones "payment_status".
type PaymentAttempt struct {
	CFPaymentID    FlexString    `json:"cf_payment_id"`
	StatusField    *string       `json:"status,omitempty"`
	PaymentStatus  *string       `json:"payment_status,omitempty"`
	PaymentMethod  PaymentMethod `json:"payment_method,omitempty"`
	PaymentAmount  *float64      `json:"payment_amount,omitempty"`
	BankReference  string        `json:"bank_reference,omitempty"`
	PaymentTime    string        `json:"payment_time,omitempty"`
	PaymentMessage string        `json:"payment_message,omitempty"`
}

// Status returns the attempt status, whichever field carried it.
func (a PaymentAttempt) Status() string {
	if a.PaymentStatus != nil && *a.PaymentStatus != "" {
		return strings.ToUpper(*a.PaymentStatus)
	}
	if a.StatusField != nil {
		return strings.ToUpper(*a.StatusField)
	}
	return ""
}

// Snapshot is one observation of an order's state at the gateway. Fields that
// the gateway omits for some payment methods or API versions are pointers so
// that absence is distinguishable from an empty value.
type Snapshot struct {
	OrderID       string            `json:"order_id"`
	CFOrderID     FlexString        `json:"cf_order_id,omitempty"`
	OrderAmount   float64           `json:"order_amount"`
	OrderCurrency string            `json:"order_currency,omitempty"`
	OrderStatus   string            `json:"order_status"`
	PaymentStatus *string           `json:"payment_status,omitempty"`
	PaymentMethod *PaymentMethod    `json:"payment_method,omitempty"`
	Payments      *[]PaymentAttempt `json:"payments,omitempty"`
	Customer      CustomerDetails   `json:"customer_details"`
	OrderNote     *string           `json:"order_note,omitempty"`
	OrderTags     map[string]string `json:"order_tags,omitempty"`

	// Raw is the payload the snapshot was decoded from, kept verbatim for
	// quarantine review.
	Raw json.RawMessage `json:"-"`
}

// NormalizedOrderStatus returns the upper-cased order status.
func (s *Snapshot) NormalizedOrderStatus() string {
	return strings.ToUpper(strings.TrimSpace(s.OrderStatus))
}

// NormalizedPaymentStatus returns the upper-cased payment status and whether
// the gateway sent one at all.
func (s *Snapshot) NormalizedPaymentStatus() (string, bool) {
	if s.PaymentStatus == nil {
		return "", false
	}
	return strings.ToUpper(strings.TrimSpace(*s.PaymentStatus)), true
}

// Attempts returns the payment attempts list, or nil when absent.
func (s *Snapshot) Attempts() []PaymentAttempt {
	if s.Payments == nil {
		return nil
	}
	return *s.Payments
}

// FirstSuccessfulAttempt returns the first attempt reporting SUCCESS.
func (s *Snapshot) FirstSuccessfulAttempt() (PaymentAttempt, bool) {
	for _, a := range s.Attempts() {
		if a.Status() == PaymentStatusSuccess {
			return a, true
		}
	}
	return PaymentAttempt{}, false
}

// Method returns the order-level payment method, or "" when absent.
func (s *Snapshot) Method() string {
	if s.PaymentMethod == nil {
		return ""
	}
	return s.PaymentMethod.String()
}

// RawOrMarshal returns Raw, or the snapshot re-encoded when Raw is empty.
func (s *Snapshot) RawOrMarshal() json.RawMessage {
	if len(s.Raw) > 0 {
		return s.Raw
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	return b
}

// StringPtr is a small helper for building snapshots in code and tests.
func StringPtr(s string) *string { return &s }

// Float64Ptr returns a pointer to f.
func Float64Ptr(f float64) *float64 { return &f }
