// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

// Package store persists ledger entries and quarantine records in BadgerDB.
//
// Key layout:
//
//	ledger:<orderID>                          LedgerEntry (unique per order)
//	quarantine:<orderID>                      QuarantineRecord (unique per order)
//	qidx:c:<createdAt>:<orderID>              creation-time index
//	qidx:r:<0|1>:<createdAt>:<orderID>        resolved-flag index
//	seq:ledger                                ledger sequence lease
//
// createdAt is the big-endian UnixNano of the record so index keys sort by time.
// The ledger key is the serialization point for concurrent reconciliation of
// one order: the existence check and the write happen in one read-write
// transaction and Badger's conflict detection aborts the losing writer.
package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/paysync/internal/logging"
)

var (
	// ErrNotFound is returned when no record exists for an order.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicateSettlement is returned when a SUCCESS entry already exists for the order.
	ErrDuplicateSettlement = errors.New("store: order already settled")
	// ErrEntryExists is returned when a FAILURE entry is written over an existing entry.
	ErrEntryExists = errors.New("store: ledger entry already exists")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("store: closed")
)

// maxConflictRetries bounds re-runs of a read-write transaction after ErrConflict.
const maxConflictRetries = 5

// sequenceBandwidth is the number of sequence ids leased per disk write.
const sequenceBandwidth = 100

// Config configures the Badger store.
type Config struct {
	Path       string
	InMemory   bool
	SyncWrites bool
}

// Store is the Badger-backed ledger and quarantine store. It is safe for
// concurrent use.
type Store struct {
	db  *badger.DB
	seq *badger.Sequence
	now func() time.Time

	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the store.
func Open(cfg Config) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("store path is required")
		}
		opts = badger.DefaultOptions(cfg.Path)
		opts.SyncWrites = cfg.SyncWrites
	}
	// Badger's own logger is too chatty for service logs
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	seq, err := db.GetSequence([]byte(keySequence), sequenceBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("lease ledger sequence: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Bool("sync_writes", cfg.SyncWrites).
		Msg("Ledger store opened")

	return &Store{db: db, seq: seq, now: time.Now}, nil
}

// Close releases the sequence lease and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if err := s.seq.Release(); err != nil {
		errs = append(errs, fmt.Errorf("release sequence: %w", err))
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close BadgerDB: %w", err))
	}
	return errors.Join(errs...)
}

// Ping reports whether the store is open. Used by readiness checks.
func (s *Store) Ping() error {
	return s.checkNotClosed()
}

// RunGC triggers value log garbage collection until nothing is rewritten.
func (s *Store) RunGC() error {
	if err := s.checkNotClosed(); err != nil {
		return err
	}
	for {
		err := s.db.RunValueLogGC(0.5)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

func (s *Store) checkNotClosed() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// update runs fn in a read-write transaction, re-running it when Badger
// reports a conflict with a concurrent transaction.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		conflictRetries.Inc()
	}
	return fmt.Errorf("transaction conflict after %d attempts: %w", maxConflictRetries, err)
}

// nextSequence returns the next ledger sequence number, starting at 1.
func (s *Store) nextSequence() (uint64, error) {
	n, err := s.seq.Next()
	if err != nil {
		return 0, fmt.Errorf("next ledger sequence: %w", err)
	}
	return n + 1, nil
}
