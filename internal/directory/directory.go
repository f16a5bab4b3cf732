// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

// Package directory is the SQL-backed account directory: customer accounts,
// promoters and referral credits. It runs on sqlite (default), postgres or
// duckdb through database/sql; every query uses $N placeholders in ascending
// order so the same text works on all three drivers.
package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	// Registered drivers: "sqlite", "postgres", "duckdb".
	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/tomtom215/paysync/internal/logging"
)

var (
	// ErrAccountNotFound is returned when no account matches the lookup.
	ErrAccountNotFound = errors.New("directory: account not found")
	// ErrPromoterNotFound is returned when no active promoter owns the code.
	ErrPromoterNotFound = errors.New("directory: promoter not found")
)

// Config configures the directory database.
type Config struct {
	Driver       string
	DSN          string
	AutoMigrate  bool
	MaxOpenConns int
}

// Directory implements account, promoter and referral credit persistence.
type Directory struct {
	db  *sql.DB
	now func() time.Time
}

// Open connects to the configured database and optionally applies the schema.
func Open(ctx context.Context, cfg Config) (*Directory, error) {
	switch cfg.Driver {
	case "sqlite", "postgres", "duckdb":
	default:
		return nil, fmt.Errorf("unsupported directory driver %q", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s directory: %w", cfg.Driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s directory: %w", cfg.Driver, err)
	}

	d := New(db)
	if cfg.AutoMigrate {
		if err := d.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	logging.Info().Str("driver", cfg.Driver).Bool("auto_migrate", cfg.AutoMigrate).Msg("Account directory opened")
	return d, nil
}

// New wraps an existing database handle.
func New(db *sql.DB) *Directory {
	return &Directory{db: db, now: time.Now}
}

// Close closes the database.
func (d *Directory) Close() error {
	return d.db.Close()
}

// Ping checks connectivity. Used by readiness checks.
func (d *Directory) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		token TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		tier TEXT NOT NULL DEFAULT 'FreeUser',
		status TEXT NOT NULL DEFAULT 'inactive',
		expiry_ms BIGINT,
		updated_ms BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_accounts_email ON accounts (email)`,
	`CREATE INDEX IF NOT EXISTS idx_accounts_phone ON accounts (phone)`,
	`CREATE INDEX IF NOT EXISTS idx_accounts_token ON accounts (token)`,
	`CREATE TABLE IF NOT EXISTS promoters (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active'
	)`,
	`CREATE TABLE IF NOT EXISTS referral_credits (
		id TEXT PRIMARY KEY,
		promo_code TEXT NOT NULL,
		referred_account_id TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		amount TEXT NOT NULL,
		gateway_payment_id TEXT NOT NULL UNIQUE,
		order_id TEXT NOT NULL,
		user_type TEXT NOT NULL,
		status TEXT NOT NULL,
		created_ms BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_referral_credits_promo ON referral_credits (promo_code)`,
}

// Migrate creates tables and indexes that do not exist yet.
func (d *Directory) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply directory schema: %w", err)
		}
	}
	return nil
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone keeps digits only and drops a leading country code beyond
// ten digits.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) > 10 {
		digits = digits[len(digits)-10:]
	}
	return digits
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
