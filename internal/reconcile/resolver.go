// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/paysync/internal/directory"
	"github.com/tomtom215/paysync/internal/models"
)

// AccountFinder looks accounts up by one identifier. Implementations return
// directory.ErrAccountNotFound on a miss.
type AccountFinder interface {
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByPhone(ctx context.Context, phone string) (*models.Account, error)
	FindByToken(ctx context.Context, token string) (*models.Account, error)
}

type lookup struct {
	strategy models.ResolutionStrategy
	value    string
	find     func(ctx context.Context, v string) (*models.Account, error)
}

// resolveAccount walks normalised email, then digits-only phone, then the
// customer_id account token. The first hit wins and its strategy is
// recorded. A lookup error other than not-found stops the chain.
func resolveAccount(ctx context.Context, finder AccountFinder, customer models.CustomerDetails) (*models.Account, models.ResolutionStrategy, error) {
	chain := []lookup{
		{models.ResolvedByEmail, directory.NormalizeEmail(customer.CustomerEmail), finder.FindByEmail},
		{models.ResolvedByPhone, directory.NormalizePhone(customer.CustomerPhone), finder.FindByPhone},
		{models.ResolvedByToken, strings.TrimSpace(customer.CustomerID), finder.FindByToken},
	}

	for _, l := range chain {
		if l.value == "" {
			continue
		}
		acct, err := l.find(ctx, l.value)
		if err == nil {
			return acct, l.strategy, nil
		}
		if !errors.Is(err, directory.ErrAccountNotFound) {
			return nil, "", fmt.Errorf("resolve account by %s: %w", l.strategy, err)
		}
	}
	return nil, "", ErrAccountUnresolvable
}
