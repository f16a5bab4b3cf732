// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/paysync/internal/models"
)

const accountColumns = `id, email, phone, token, name, tier, status, expiry_ms, updated_ms`

// FindByEmail looks an account up by normalized email.
func (d *Directory) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrAccountNotFound
	}
	return d.queryAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1 LIMIT 1`, email)
}

// FindByPhone looks an account up by digits-only phone number.
func (d *Directory) FindByPhone(ctx context.Context, phone string) (*models.Account, error) {
	phone = NormalizePhone(phone)
	if phone == "" {
		return nil, ErrAccountNotFound
	}
	return d.queryAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE phone = $1 LIMIT 1`, phone)
}

// FindByToken looks an account up by the client-supplied account token.
func (d *Directory) FindByToken(ctx context.Context, token string) (*models.Account, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrAccountNotFound
	}
	return d.queryAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE token = $1 LIMIT 1`, token)
}

// GetAccount returns an account by id.
func (d *Directory) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	return d.queryAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

// ApplyEntitlement raises the account tier and sets its expiry. The
// activation status is deliberately left as it is.
func (d *Directory) ApplyEntitlement(ctx context.Context, accountID string, tier models.Tier, expiry time.Time) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE accounts SET tier = $1, expiry_ms = $2, updated_ms = $3 WHERE id = $4`,
		string(tier), toMillis(expiry), toMillis(d.now()), accountID)
	if err != nil {
		return fmt.Errorf("apply entitlement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("apply entitlement: %w", err)
	}
	if n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// UpsertAccount creates or replaces an account. Email and phone are
// normalized before storage so lookups match.
func (d *Directory) UpsertAccount(ctx context.Context, a models.Account) error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("account id is required")
	}
	if a.Tier == "" {
		a.Tier = models.TierFree
	}
	if a.Status == "" {
		a.Status = models.AccountInactive
	}
	var expiry sql.NullInt64
	if a.ExpiryDate != nil {
		expiry = sql.NullInt64{Int64: toMillis(*a.ExpiryDate), Valid: true}
	}

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO accounts (id, email, phone, token, name, tier, status, expiry_ms, updated_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			email = excluded.email,
			phone = excluded.phone,
			token = excluded.token,
			name = excluded.name,
			tier = excluded.tier,
			status = excluded.status,
			expiry_ms = excluded.expiry_ms,
			updated_ms = excluded.updated_ms`,
		a.ID, NormalizeEmail(a.Email), NormalizePhone(a.Phone), strings.TrimSpace(a.Token), a.Name,
		string(a.Tier), string(a.Status), expiry, toMillis(d.now()))
	if err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}
	return nil
}

func (d *Directory) queryAccount(ctx context.Context, query string, arg any) (*models.Account, error) {
	var (
		a       models.Account
		tier    string
		status  string
		expiry  sql.NullInt64
		updated int64
	)
	err := d.db.QueryRowContext(ctx, query, arg).
		Scan(&a.ID, &a.Email, &a.Phone, &a.Token, &a.Name, &tier, &status, &expiry, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query account: %w", err)
	}
	a.Tier = models.Tier(tier)
	a.Status = models.AccountStatus(status)
	if expiry.Valid {
		t := fromMillis(expiry.Int64)
		a.ExpiryDate = &t
	}
	a.UpdatedAt = fromMillis(updated)
	return &a, nil
}
