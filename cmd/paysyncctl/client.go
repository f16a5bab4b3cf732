// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/paysync/internal/models"
)

// maxResponseBytes bounds what the CLI will read from the server.
const maxResponseBytes = 8 << 20

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("server returned %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to a Paysync server.
type Client struct {
	baseURL  string
	token    string
	username string
	password string
	http     *http.Client
}

// NewClient creates a client for the server at baseURL. When token is
// empty, admin calls log in with username and password first.
func NewClient(baseURL, token, username, password string, timeout time.Duration) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    token,
		username: username,
		password: password,
		http:     &http.Client{Timeout: timeout},
	}
}

// Login exchanges the configured credentials for a token and keeps it for
// later admin calls.
func (c *Client) Login(ctx context.Context) (string, error) {
	if c.username == "" || c.password == "" {
		return "", errors.New("admin credentials required: pass --token or --user and --password")
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/auth/login", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.username, c.password)

	var login struct {
		Token string `json:"token"`
	}
	if err := c.doEnvelope(req, &login); err != nil {
		return "", err
	}
	if login.Token == "" {
		return "", errors.New("login response carried no token")
	}
	c.token = login.Token
	return login.Token, nil
}

// ListQuarantine returns quarantine records newest first. A nil resolved
// lists both open and resolved records.
func (c *Client) ListQuarantine(ctx context.Context, resolved *bool, limit int) ([]models.QuarantineRecord, error) {
	q := url.Values{}
	if resolved != nil {
		q.Set("resolved", strconv.FormatBool(*resolved))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/v1/admin/quarantine"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var page struct {
		Records []models.QuarantineRecord `json:"records"`
	}
	if err := c.admin(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return page.Records, nil
}

// GetQuarantine returns one quarantine record with its gateway snapshot.
func (c *Client) GetQuarantine(ctx context.Context, orderID string) (*models.QuarantineRecord, error) {
	var rec models.QuarantineRecord
	if err := c.admin(ctx, http.MethodGet, "/api/v1/admin/quarantine/"+url.PathEscape(orderID), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ResolveQuarantine closes a quarantine record with operator notes.
func (c *Client) ResolveQuarantine(ctx context.Context, orderID, notes string) (*models.QuarantineRecord, error) {
	body, err := json.Marshal(map[string]string{"notes": notes})
	if err != nil {
		return nil, err
	}
	var rec models.QuarantineRecord
	path := "/api/v1/admin/quarantine/" + url.PathEscape(orderID) + "/resolve"
	if err := c.admin(ctx, http.MethodPost, path, body, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetLedgerEntry returns the applied ledger entry for an order.
func (c *Client) GetLedgerEntry(ctx context.Context, orderID string) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	if err := c.admin(ctx, http.MethodGet, "/api/v1/admin/ledger/"+url.PathEscape(orderID), nil, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// OrderStatus polls an order the way the checkout front end does.
func (c *Client) OrderStatus(ctx context.Context, orderID string) (*models.StatusResponse, error) {
	return c.status(ctx, http.MethodGet, "/api/v1/payments/orders/"+url.PathEscape(orderID)+"/status")
}

// RetryOrder forces a fresh gateway fetch and reconciliation.
func (c *Client) RetryOrder(ctx context.Context, orderID string) (*models.StatusResponse, error) {
	return c.status(ctx, http.MethodPost, "/api/v1/payments/orders/"+url.PathEscape(orderID)+"/retry")
}

// status handles the bare (non-enveloped) status contract.
func (c *Client) status(ctx context.Context, method, path string) (*models.StatusResponse, error) {
	req, err := c.newRequest(ctx, method, path, nil)
	if err != nil {
		return nil, err
	}
	raw, code, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if code >= http.StatusBadRequest {
		return nil, decodeError(code, raw)
	}
	var resp models.StatusResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}
	return &resp, nil
}

func (c *Client) admin(ctx context.Context, method, path string, body []byte, out interface{}) error {
	if c.token == "" {
		if _, err := c.Login(ctx); err != nil {
			return err
		}
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := c.newRequest(ctx, method, path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	return c.doEnvelope(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "paysyncctl/"+version)
	return req, nil
}

func (c *Client) doEnvelope(req *http.Request, out interface{}) error {
	raw, code, err := c.do(req)
	if err != nil {
		return err
	}
	if code >= http.StatusBadRequest {
		return decodeError(code, raw)
	}
	var env struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return raw, resp.StatusCode, nil
}

func decodeError(code int, raw []byte) error {
	apiErr := &APIError{StatusCode: code, Message: http.StatusText(code)}
	var env models.APIResponse
	if err := json.Unmarshal(raw, &env); err == nil && env.Error != nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		return apiErr
	}
	// Status endpoints answer errors as {"success":false,"message":...}.
	var bare struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &bare); err == nil && bare.Message != "" {
		apiErr.Message = bare.Message
	}
	return apiErr
}
