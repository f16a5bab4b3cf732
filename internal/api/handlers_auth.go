// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/paysync/internal/auth"
	"github.com/tomtom215/paysync/internal/logging"
)

// LoginResponse carries an admin bearer token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
}

// Login exchanges Basic credentials for a JWT. The token is also set as an
// HttpOnly cookie so the browser can open the websocket feed.
//
// @Summary Admin login
// @Tags Auth
// @Produce json
// @Security BasicAuth
// @Success 200 {object} models.APIResponse{data=LoginResponse}
// @Failure 401 {object} models.APIResponse "Invalid credentials"
// @Failure 503 {object} models.APIResponse "Admin login not configured"
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.basic == nil || h.jwt == nil {
		respondError(w, http.StatusServiceUnavailable, CodeAuthDisabled, "Admin login is not configured", nil)
		return
	}

	username, err := h.basic.ValidateCredentials(r.Header.Get("Authorization"))
	if err != nil {
		logging.Ctx(r.Context()).Warn().Str("remote_addr", r.RemoteAddr).Msg("Admin login failed")
		h.audit.LogAuth(r, attemptedUser(r), false)
		w.Header().Set("WWW-Authenticate", h.basic.Challenge())
		respondError(w, http.StatusUnauthorized, CodeUnauthorized, "Invalid credentials", nil)
		return
	}

	token, expires, err := h.jwt.GenerateToken(username, h.basic.Role())
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodeInternal, "Failed to issue token", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    token,
		Path:     "/api/v1/admin",
		Expires:  expires,
		HttpOnly: true,
		Secure:   r.TLS != nil || h.config.Server.IsProduction(),
		SameSite: http.SameSiteStrictMode,
	})

	logging.Ctx(r.Context()).Info().Str("user", username).Msg("Admin logged in")
	h.audit.LogAuth(r, username, true)
	respondSuccess(w, r, http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: expires,
		Username:  username,
		Role:      h.basic.Role(),
	}, start)
}

// attemptedUser is the username of a rejected Basic login, if one was sent.
func attemptedUser(r *http.Request) string {
	user, _, ok := r.BasicAuth()
	if !ok {
		return ""
	}
	return user
}
