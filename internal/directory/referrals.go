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

	"github.com/google/uuid"

	"github.com/tomtom215/paysync/internal/models"
)

// GetActivePromoter returns the active promoter owning code. Codes are
// matched upper-cased.
func (d *Directory) GetActivePromoter(ctx context.Context, code string) (*models.Promoter, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrPromoterNotFound
	}

	var p models.Promoter
	err := d.db.QueryRowContext(ctx,
		`SELECT code, name, email, status FROM promoters WHERE code = $1 AND status = $2`,
		code, models.PromoterStatusActive).
		Scan(&p.Code, &p.Name, &p.Email, &p.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPromoterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query promoter: %w", err)
	}
	return &p, nil
}

// UpsertPromoter creates or replaces a promoter.
func (d *Directory) UpsertPromoter(ctx context.Context, p models.Promoter) error {
	code := strings.ToUpper(strings.TrimSpace(p.Code))
	if code == "" {
		return fmt.Errorf("promoter code is required")
	}
	if p.Status == "" {
		p.Status = models.PromoterStatusActive
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO promoters (code, name, email, status) VALUES ($1, $2, $3, $4)
		ON CONFLICT (code) DO UPDATE SET name = excluded.name, email = excluded.email, status = excluded.status`,
		code, p.Name, NormalizeEmail(p.Email), p.Status)
	if err != nil {
		return fmt.Errorf("upsert promoter: %w", err)
	}
	return nil
}

// CreateReferralCredit stores credit unless one already exists for its
// gateway payment id. It reports whether a row was written; a duplicate is
// not an error.
func (d *Directory) CreateReferralCredit(ctx context.Context, credit models.ReferralCredit) (bool, error) {
	if credit.GatewayPaymentID == "" {
		return false, fmt.Errorf("referral credit requires a gateway payment id")
	}

	existing, err := d.FindReferralCredit(ctx, credit.GatewayPaymentID)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	if credit.ID == "" {
		credit.ID = uuid.NewString()
	}
	if credit.Amount == "" {
		credit.Amount = models.ReferralCreditAmount
	}
	if credit.Status == "" {
		credit.Status = models.ReferralStatusPending
	}
	if credit.CreatedAt.IsZero() {
		credit.CreatedAt = d.now()
	}

	// The unique gateway_payment_id column settles a race between two
	// check-then-create callers.
	res, err := d.db.ExecContext(ctx, `
		INSERT INTO referral_credits
			(id, promo_code, referred_account_id, email, phone, amount, gateway_payment_id, order_id, user_type, status, created_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (gateway_payment_id) DO NOTHING`,
		credit.ID, strings.ToUpper(credit.PromoCode), credit.ReferredAccountID, NormalizeEmail(credit.Email),
		NormalizePhone(credit.Phone), credit.Amount, credit.GatewayPaymentID, credit.OrderID,
		string(credit.UserType), credit.Status, toMillis(credit.CreatedAt))
	if err != nil {
		return false, fmt.Errorf("insert referral credit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert referral credit: %w", err)
	}
	return n == 1, nil
}

// FindReferralCredit returns the credit for a gateway payment id, or nil.
func (d *Directory) FindReferralCredit(ctx context.Context, gatewayPaymentID string) (*models.ReferralCredit, error) {
	var (
		c        models.ReferralCredit
		userType string
		created  int64
	)
	err := d.db.QueryRowContext(ctx, `
		SELECT id, promo_code, referred_account_id, email, phone, amount, gateway_payment_id, order_id, user_type, status, created_ms
		FROM referral_credits WHERE gateway_payment_id = $1`, gatewayPaymentID).
		Scan(&c.ID, &c.PromoCode, &c.ReferredAccountID, &c.Email, &c.Phone, &c.Amount,
			&c.GatewayPaymentID, &c.OrderID, &userType, &c.Status, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query referral credit: %w", err)
	}
	c.UserType = models.UserType(userType)
	c.CreatedAt = fromMillis(created)
	return &c, nil
}

// ListReferralCredits returns the credits earned by a promo code, newest first.
func (d *Directory) ListReferralCredits(ctx context.Context, promoCode string) ([]models.ReferralCredit, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, promo_code, referred_account_id, email, phone, amount, gateway_payment_id, order_id, user_type, status, created_ms
		FROM referral_credits WHERE promo_code = $1 ORDER BY created_ms DESC`,
		strings.ToUpper(strings.TrimSpace(promoCode)))
	if err != nil {
		return nil, fmt.Errorf("list referral credits: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var credits []models.ReferralCredit
	for rows.Next() {
		var (
			c        models.ReferralCredit
			userType string
			created  int64
		)
		if err := rows.Scan(&c.ID, &c.PromoCode, &c.ReferredAccountID, &c.Email, &c.Phone, &c.Amount,
			&c.GatewayPaymentID, &c.OrderID, &userType, &c.Status, &created); err != nil {
			return nil, fmt.Errorf("scan referral credit: %w", err)
		}
		c.UserType = models.UserType(userType)
		c.CreatedAt = fromMillis(created)
		credits = append(credits, c)
	}
	return credits, rows.Err()
}
