// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package logging

import (
	"strings"
	"unicode"
)

// maxLogValueLength bounds caller-controlled strings written to logs.
const maxLogValueLength = 200

// MaskEmail keeps the first character of the local part and the domain:
// "jane.doe@example.com" becomes "j***@example.com".
func MaskEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return MaskSecret(email)
	}
	return email[:1] + "***" + email[at:]
}

// MaskPhone keeps the last four digits.
func MaskPhone(phone string) string {
	digits := make([]rune, 0, len(phone))
	for _, r := range phone {
		if unicode.IsDigit(r) {
			digits = append(digits, r)
		}
	}
	if len(digits) <= 4 {
		return "****"
	}
	return "****" + string(digits[len(digits)-4:])
}

// MaskSecret never returns more than the first two characters of s.
func MaskSecret(s string) string {
	if len(s) <= 2 {
		return "***"
	}
	return s[:2] + "***"
}

// SanitizeValue strips control characters (log injection) and truncates
// caller-supplied values such as order ids and query parameters.
func SanitizeValue(s string) string {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	if len(clean) > maxLogValueLength {
		return clean[:maxLogValueLength] + "...[truncated]"
	}
	return clean
}
