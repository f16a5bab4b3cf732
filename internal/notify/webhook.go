// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/paysync/internal/config"
)

// SignatureHeader carries the hex HMAC-SHA256 of the webhook body.
const SignatureHeader = "X-Paysync-Signature"

// WebhookPayload is the JSON body posted to the notify webhook.
type WebhookPayload struct {
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Subject   string    `json:"subject,omitempty"`
	Recipient string    `json:"recipient,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// WebhookChannel posts messages as JSON to a fixed URL.
type WebhookChannel struct {
	url    string
	secret string
	client *http.Client
	now    func() time.Time
}

// NewWebhookChannel creates a webhook channel. A nil client gets a default
// with a 30 second timeout.
func NewWebhookChannel(cfg config.NotifyWebhookConfig, client *http.Client) *WebhookChannel {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &WebhookChannel{url: cfg.URL, secret: cfg.Secret, client: client, now: time.Now}
}

// Name returns "webhook".
func (c *WebhookChannel) Name() string { return "webhook" }

// Send posts msg. Any non-2xx response is an error.
func (c *WebhookChannel) Send(ctx context.Context, msg *Message) error {
	body, err := json.Marshal(WebhookPayload{
		Event:     "paysync." + msg.Kind,
		Timestamp: c.now().UTC(),
		Subject:   msg.Subject,
		Recipient: msg.To,
		Data:      msg.Data,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Paysync-Notify/1.0")
	if c.secret != "" {
		req.Header.Set(SignatureHeader, SignBody(c.secret, body))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512)) //nolint:errcheck // diagnostic only
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for keep-alive
	return nil
}

// SignBody returns the hex HMAC-SHA256 of body under secret.
func SignBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
