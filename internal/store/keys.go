// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package store

import (
	"encoding/binary"
	"time"
)

const (
	prefixLedger       = "ledger:"
	prefixQuarantine   = "quarantine:"
	prefixIdxCreated   = "qidx:c:"
	prefixIdxResolved  = "qidx:r:"
	keySequence        = "seq:ledger"
	timestampKeyLength = 8
)

func ledgerKey(orderID string) []byte {
	return []byte(prefixLedger + orderID)
}

func quarantineKey(orderID string) []byte {
	return []byte(prefixQuarantine + orderID)
}

func resolvedPrefix(resolved bool) []byte {
	if resolved {
		return []byte(prefixIdxResolved + "1:")
	}
	return []byte(prefixIdxResolved + "0:")
}

func createdPrefix() []byte {
	return []byte(prefixIdxCreated)
}

// indexKey builds prefix + big-endian createdAt + orderID.
func indexKey(prefix []byte, createdAt time.Time, orderID string) []byte {
	key := make([]byte, 0, len(prefix)+timestampKeyLength+len(orderID))
	key = append(key, prefix...)
	key = binary.BigEndian.AppendUint64(key, uint64(createdAt.UnixNano()))
	return append(key, orderID...)
}

// indexBound is the greatest key strictly below every index entry created at
// or after before. A zero before yields a bound above every entry.
func indexBound(prefix []byte, before time.Time) []byte {
	key := make([]byte, 0, len(prefix)+timestampKeyLength+1)
	key = append(key, prefix...)
	if before.IsZero() {
		for i := 0; i <= timestampKeyLength; i++ {
			key = append(key, 0xFF)
		}
		return key
	}
	return binary.BigEndian.AppendUint64(key, uint64(before.UnixNano()))
}

// orderIDFromIndexKey extracts the order id from an index key.
func orderIDFromIndexKey(prefix, key []byte) string {
	if len(key) < len(prefix)+timestampKeyLength {
		return ""
	}
	return string(key[len(prefix)+timestampKeyLength:])
}
