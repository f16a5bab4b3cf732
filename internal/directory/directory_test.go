// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package directory

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/paysync/internal/models"
)

func openSQLite(t *testing.T) *Directory {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	d, err := Open(context.Background(), Config{
		Driver:       "sqlite",
		DSN:          "file:" + name + "?mode=memory&cache=shared",
		AutoMigrate:  true,
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "jane@example.com", NormalizeEmail("  Jane@Example.COM "))
	assert.Equal(t, "9876543210", NormalizePhone("+91 98765-43210"))
	assert.Equal(t, "12345", NormalizePhone("12-345"))
	assert.Equal(t, "", NormalizePhone("n/a"))
}

func TestAccountLookups(t *testing.T) {
	t.Parallel()
	d := openSQLite(t)
	ctx := context.Background()

	require.NoError(t, d.UpsertAccount(ctx, models.Account{
		ID:    "acct-1",
		Email: "Jane@Example.com",
		Phone: "+91 98765 43210",
		Token: "tok-1",
		Name:  "Jane",
	}))

	byEmail, err := d.FindByEmail(ctx, " jane@example.COM")
	require.NoError(t, err)
	assert.Equal(t, "acct-1", byEmail.ID)
	assert.Equal(t, models.TierFree, byEmail.Tier)
	assert.Equal(t, models.AccountInactive, byEmail.Status)
	assert.Nil(t, byEmail.ExpiryDate)

	byPhone, err := d.FindByPhone(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, "acct-1", byPhone.ID)

	byToken, err := d.FindByToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "acct-1", byToken.ID)

	_, err = d.FindByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, ErrAccountNotFound)
	_, err = d.FindByToken(ctx, "")
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestApplyEntitlementLeavesStatus(t *testing.T) {
	t.Parallel()
	d := openSQLite(t)
	ctx := context.Background()

	require.NoError(t, d.UpsertAccount(ctx, models.Account{ID: "acct-2", Email: "a@b.com", Status: models.AccountInactive}))

	expiry := time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, d.ApplyEntitlement(ctx, "acct-2", models.TierPremium, expiry))

	a, err := d.GetAccount(ctx, "acct-2")
	require.NoError(t, err)
	assert.Equal(t, models.TierPremium, a.Tier)
	require.NotNil(t, a.ExpiryDate)
	assert.True(t, expiry.Equal(*a.ExpiryDate))
	assert.Equal(t, models.AccountInactive, a.Status, "payment processing never activates an account")

	err = d.ApplyEntitlement(ctx, "missing", models.TierSilver, expiry)
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestPromoterLookup(t *testing.T) {
	t.Parallel()
	d := openSQLite(t)
	ctx := context.Background()

	require.NoError(t, d.UpsertPromoter(ctx, models.Promoter{Code: "ref10", Name: "Ravi", Email: "Ravi@Example.com"}))
	require.NoError(t, d.UpsertPromoter(ctx, models.Promoter{Code: "OLD5", Status: "inactive"}))

	p, err := d.GetActivePromoter(ctx, "Ref10")
	require.NoError(t, err)
	assert.Equal(t, "REF10", p.Code)
	assert.Equal(t, "ravi@example.com", p.Email)

	_, err = d.GetActivePromoter(ctx, "OLD5")
	require.ErrorIs(t, err, ErrPromoterNotFound)
}

func TestReferralCreditIsCreatedOnce(t *testing.T) {
	t.Parallel()
	d := openSQLite(t)
	ctx := context.Background()

	credit := models.ReferralCredit{
		PromoCode:         "ref10",
		ReferredAccountID: "acct-1",
		Email:             "a@b.com",
		GatewayPaymentID:  "pay-1",
		OrderID:           "ORD-1",
		UserType:          models.UserTypePaidPremium,
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := d.CreateReferralCredit(ctx, credit)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, created)

	stored, err := d.FindReferralCredit(ctx, "pay-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "REF10", stored.PromoCode)
	assert.Equal(t, models.ReferralCreditAmount, stored.Amount)
	assert.Equal(t, models.ReferralStatusPending, stored.Status)

	list, err := d.ListReferralCredits(ctx, "REF10")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	missing, err := d.FindReferralCredit(ctx, "pay-unknown")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDirectoryErrorsAreWrapped(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	d := New(db)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE accounts SET tier")).
		WillReturnError(errors.New("connection reset"))
	err = d.ApplyEntitlement(ctx, "acct-1", models.TierSilver, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply entitlement")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email")).
		WithArgs("a@b.com").
		WillReturnError(errors.New("timeout"))
	_, err = d.FindByEmail(ctx, "A@B.com")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAccountNotFound)

	mock.ExpectQuery(regexp.QuoteMeta("FROM referral_credits WHERE gateway_payment_id")).
		WithArgs("pay-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO referral_credits")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	created, err := d.CreateReferralCredit(ctx, models.ReferralCredit{PromoCode: "X", GatewayPaymentID: "pay-1"})
	require.NoError(t, err)
	assert.False(t, created, "a conflicting insert reports not created")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Config{Driver: "mongo", DSN: "x"})
	require.Error(t, err)
}
