// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/paysync/internal/models"
)

// GetLedgerEntry returns the ledger entry for orderID, or ErrNotFound.
func (s *Store) GetLedgerEntry(ctx context.Context, orderID string) (*models.LedgerEntry, error) {
	if err := s.checkNotClosed(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entry *models.LedgerEntry
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		entry, err = readLedgerEntry(txn, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// InsertLedgerEntry writes entry for its order and returns the stored copy
// with Sequence and timestamps assigned.
//
// Rules, evaluated inside one read-write transaction:
//   - an existing SUCCESS entry rejects any write with ErrDuplicateSettlement
//   - a FAILURE write over any existing entry returns ErrEntryExists
//   - a SUCCESS write replaces an existing FAILURE entry, keeping its
//     sequence and creation time
func (s *Store) InsertLedgerEntry(ctx context.Context, entry models.LedgerEntry) (*models.LedgerEntry, error) {
	if err := s.checkNotClosed(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := models.ValidateOrderID(entry.OrderID); err != nil {
		return nil, err
	}
	if entry.Outcome != models.LedgerSuccess && entry.Outcome != models.LedgerFailure {
		return nil, fmt.Errorf("invalid ledger outcome %q", entry.Outcome)
	}

	seq, err := s.nextSequence()
	if err != nil {
		return nil, err
	}

	var stored models.LedgerEntry
	err = s.update(func(txn *badger.Txn) error {
		now := s.now().UTC()
		stored = entry
		stored.Sequence = seq
		stored.CreatedAt = now
		stored.UpdatedAt = now

		existing, err := readLedgerEntry(txn, entry.OrderID)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return err
		case existing.Outcome == models.LedgerSuccess:
			return ErrDuplicateSettlement
		case entry.Outcome == models.LedgerFailure:
			return ErrEntryExists
		default:
			stored.Sequence = existing.Sequence
			stored.CreatedAt = existing.CreatedAt
		}

		data, err := json.Marshal(&stored)
		if err != nil {
			return fmt.Errorf("marshal ledger entry: %w", err)
		}
		return txn.Set(ledgerKey(entry.OrderID), data)
	})

	outcome := string(entry.Outcome)
	switch {
	case err == nil:
		ledgerWrites.WithLabelValues(outcome, "written").Inc()
		return &stored, nil
	case errors.Is(err, ErrDuplicateSettlement):
		ledgerWrites.WithLabelValues(outcome, "duplicate").Inc()
	case errors.Is(err, ErrEntryExists):
		ledgerWrites.WithLabelValues(outcome, "exists").Inc()
	default:
		ledgerWrites.WithLabelValues(outcome, "error").Inc()
	}
	return nil, err
}

func readLedgerEntry(txn *badger.Txn, orderID string) (*models.LedgerEntry, error) {
	item, err := txn.Get(ledgerKey(orderID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}

	var entry models.LedgerEntry
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &entry)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal ledger entry: %w", err)
	}
	return &entry, nil
}
