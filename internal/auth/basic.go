// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for any failed login.
var ErrInvalidCredentials = errors.New("invalid username or password")

// BasicAuthManager verifies the admin's Basic credentials against a bcrypt hash.
type BasicAuthManager struct {
	username     string
	role         string
	passwordHash []byte
}

// NewBasicAuthManager prepares the admin credential check. password may be
// plain text (hashed here at cost) or an existing bcrypt hash.
func NewBasicAuthManager(username, password, role string, cost int) (*BasicAuthManager, error) {
	if username == "" {
		return nil, errors.New("admin username is required")
	}
	if role == "" {
		role = "admin"
	}
	if _, err := bcrypt.Cost([]byte(password)); err == nil {
		return &BasicAuthManager{username: username, role: role, passwordHash: []byte(password)}, nil
	}
	if len(password) < 8 {
		return nil, errors.New("admin password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	return &BasicAuthManager{username: username, role: role, passwordHash: hash}, nil
}

// Role is the role granted on successful login.
func (m *BasicAuthManager) Role() string { return m.role }

// ValidateCredentials parses an "Authorization: Basic" header value and
// returns the username when it matches.
func (m *BasicAuthManager) ValidateCredentials(authHeader string) (string, error) {
	encoded, ok := strings.CutPrefix(authHeader, "Basic ")
	if !ok {
		return "", ErrInvalidCredentials
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	username, password, ok := strings.Cut(string(raw), ":")
	if !ok || !m.Verify(username, password) {
		return "", ErrInvalidCredentials
	}
	return username, nil
}

// Verify compares both values without short-circuiting on the username.
func (m *BasicAuthManager) Verify(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(m.username)) == 1
	passOK := bcrypt.CompareHashAndPassword(m.passwordHash, []byte(password)) == nil
	return userOK && passOK
}

// Challenge is the WWW-Authenticate value sent with 401 responses.
func (m *BasicAuthManager) Challenge() string {
	return `Basic realm="paysync-admin", charset="UTF-8"`
}
