// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/tomtom215/paysync/internal/logging"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// TokenCookie carries the admin token for browser websocket connections,
// which cannot set an Authorization header.
const TokenCookie = "paysync_token"

// ContextWithClaims returns ctx carrying claims.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext returns the authenticated admin, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsContextKey).(*Claims)
	return c, ok && c != nil
}

// Middleware authenticates admin requests with bearer tokens.
type Middleware struct {
	jwt *JWTManager
}

// NewMiddleware returns token middleware backed by m.
func NewMiddleware(m *JWTManager) *Middleware {
	return &Middleware{jwt: m}
}

// Authenticate rejects requests without a valid token.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := extractToken(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", `Bearer realm="paysync-admin"`)
			http.Error(w, "Unauthorized: missing token", http.StatusUnauthorized)
			return
		}
		claims, err := m.jwt.ValidateToken(token)
		if err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("Admin token rejected")
			w.Header().Set("WWW-Authenticate", `Bearer realm="paysync-admin", error="invalid_token"`)
			http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
	})
}

func extractToken(r *http.Request) (string, bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, found := strings.Cut(h, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return "", false
		}
		return token, true
	}
	if c, err := r.Cookie(TokenCookie); err == nil && c.Value != "" {
		return c.Value, true
	}
	return "", false
}
