// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/paysync/internal/models"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// UpsertQuarantine creates the record for rec.OrderID or refreshes the
// existing one with the latest gateway observation. Resolution, ticket and
// notification state of an existing record are preserved. The returned bool
// reports whether the record was created.
func (s *Store) UpsertQuarantine(ctx context.Context, rec models.QuarantineRecord) (*models.QuarantineRecord, bool, error) {
	if err := s.checkNotClosed(); err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if err := models.ValidateOrderID(rec.OrderID); err != nil {
		return nil, false, err
	}

	var (
		stored  models.QuarantineRecord
		created bool
	)
	err := s.update(func(txn *badger.Txn) error {
		now := s.now().UTC()
		existing, err := readQuarantine(txn, rec.OrderID)
		switch {
		case errors.Is(err, ErrNotFound):
			created = true
			stored = rec
			stored.Observations = 1
			stored.Resolved = false
			stored.ResolvedBy = ""
			stored.ResolvedAt = nil
			stored.CreatedAt = now
			stored.UpdatedAt = now
			return writeQuarantine(txn, nil, &stored)
		case err != nil:
			return err
		}

		created = false
		stored = *existing
		stored.Snapshot = rec.Snapshot
		stored.Observations = existing.Observations + 1
		stored.GatewayOrderStatus = rec.GatewayOrderStatus
		stored.GatewayPaymentStatus = rec.GatewayPaymentStatus
		stored.Reason = rec.Reason
		stored.Source = rec.Source
		stored.Amount = rec.Amount
		stored.Customer = rec.Customer
		stored.UpdatedAt = now
		if rec.TransactionID != "" {
			stored.TransactionID = rec.TransactionID
		}
		if rec.PaymentMethod != "" {
			stored.PaymentMethod = rec.PaymentMethod
		}
		if rec.AccountID != "" {
			stored.AccountID = rec.AccountID
		}
		return writeQuarantine(txn, existing, &stored)
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		quarantineUpserts.WithLabelValues("created").Inc()
	} else {
		quarantineUpserts.WithLabelValues("updated").Inc()
	}
	return &stored, created, nil
}

// GetQuarantine returns the record for orderID, or ErrNotFound.
func (s *Store) GetQuarantine(ctx context.Context, orderID string) (*models.QuarantineRecord, error) {
	if err := s.checkNotClosed(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec *models.QuarantineRecord
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = readQuarantine(txn, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ResolveQuarantine marks the record resolved. Resolving an already resolved
// record only appends notes. Returns ErrNotFound when no record exists.
func (s *Store) ResolveQuarantine(ctx context.Context, orderID, resolvedBy, notes string) (*models.QuarantineRecord, error) {
	return s.mutateQuarantine(ctx, orderID, func(rec *models.QuarantineRecord) {
		now := s.now().UTC()
		if notes = strings.TrimSpace(notes); notes != "" {
			if rec.ResolutionNotes != "" {
				rec.ResolutionNotes += "\n"
			}
			rec.ResolutionNotes += notes
		}
		rec.UpdatedAt = now
		if rec.Resolved {
			return
		}
		rec.Resolved = true
		rec.ResolvedBy = resolvedBy
		rec.ResolvedAt = &now
	})
}

// AttachTicket stores a customer ticket on an existing record.
func (s *Store) AttachTicket(ctx context.Context, orderID string, ticket models.Ticket) (*models.QuarantineRecord, error) {
	return s.mutateQuarantine(ctx, orderID, func(rec *models.QuarantineRecord) {
		now := s.now().UTC()
		if ticket.RaisedAt.IsZero() {
			ticket.RaisedAt = now
		}
		rec.Ticket = &ticket
		rec.TicketRaised = true
		rec.UpdatedAt = now
	})
}

// MarkAdminNotified records that operators were told about the record.
func (s *Store) MarkAdminNotified(ctx context.Context, orderID string) (*models.QuarantineRecord, error) {
	return s.mutateQuarantine(ctx, orderID, func(rec *models.QuarantineRecord) {
		rec.AdminNotified = true
		rec.UpdatedAt = s.now().UTC()
	})
}

// ListQuarantine returns records newest first, or oldest first when
// filter.OldestFirst is set. A non-nil filter.Resolved walks the resolved-flag
// index; otherwise the creation-time index is used.
func (s *Store) ListQuarantine(ctx context.Context, filter models.QuarantineFilter) ([]models.QuarantineRecord, error) {
	if err := s.checkNotClosed(); err != nil {
		return nil, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	prefix := createdPrefix()
	if filter.Resolved != nil {
		prefix = resolvedPrefix(*filter.Resolved)
	}
	bound := indexBound(prefix, filter.CreatedBefore)

	records := make([]models.QuarantineRecord, 0, limit)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = !filter.OldestFirst
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		start := bound
		var skip []byte
		if filter.OldestFirst {
			start = prefix
			if filter.After != nil {
				skip = indexKey(prefix, filter.After.CreatedAt, filter.After.OrderID)
				start = skip
			}
		}

		for it.Seek(start); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := it.Item().Key()
			if filter.OldestFirst {
				if bytes.Compare(key, bound) > 0 {
					break
				}
				if skip != nil && bytes.Equal(key, skip) {
					continue
				}
			}
			orderID := orderIDFromIndexKey(prefix, key)
			rec, err := readQuarantine(txn, orderID)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			records = append(records, *rec)
			if len(records) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) mutateQuarantine(ctx context.Context, orderID string, mutate func(*models.QuarantineRecord)) (*models.QuarantineRecord, error) {
	if err := s.checkNotClosed(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var stored models.QuarantineRecord
	err := s.update(func(txn *badger.Txn) error {
		existing, err := readQuarantine(txn, orderID)
		if err != nil {
			return err
		}
		stored = *existing
		mutate(&stored)
		return writeQuarantine(txn, existing, &stored)
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func readQuarantine(txn *badger.Txn, orderID string) (*models.QuarantineRecord, error) {
	item, err := txn.Get(quarantineKey(orderID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get quarantine record: %w", err)
	}

	var rec models.QuarantineRecord
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal quarantine record: %w", err)
	}
	return &rec, nil
}

// writeQuarantine stores rec and keeps both indexes in step with it. previous
// is nil for new records.
func writeQuarantine(txn *badger.Txn, previous, rec *models.QuarantineRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal quarantine record: %w", err)
	}
	if err := txn.Set(quarantineKey(rec.OrderID), data); err != nil {
		return err
	}

	if previous == nil {
		if err := txn.Set(indexKey(createdPrefix(), rec.CreatedAt, rec.OrderID), []byte{}); err != nil {
			return err
		}
	} else if previous.Resolved != rec.Resolved {
		if err := txn.Delete(indexKey(resolvedPrefix(previous.Resolved), previous.CreatedAt, previous.OrderID)); err != nil {
			return err
		}
	} else {
		return nil
	}
	return txn.Set(indexKey(resolvedPrefix(rec.Resolved), rec.CreatedAt, rec.OrderID), []byte{})
}
