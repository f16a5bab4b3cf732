// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Gateway.APIVersion != "2022-09-01" {
		t.Errorf("Gateway.APIVersion = %q, want 2022-09-01", cfg.Gateway.APIVersion)
	}
	if cfg.Gateway.Timeout != 30*time.Second {
		t.Errorf("Gateway.Timeout = %v, want 30s", cfg.Gateway.Timeout)
	}
	if cfg.Gateway.MaxAttempts != 3 {
		t.Errorf("Gateway.MaxAttempts = %d, want 3", cfg.Gateway.MaxAttempts)
	}
	if cfg.Engine.RetryDelay != 3*time.Second {
		t.Errorf("Engine.RetryDelay = %v, want 3s", cfg.Engine.RetryDelay)
	}
	if cfg.Engine.RecheckTimeout != 10*time.Second {
		t.Errorf("Engine.RecheckTimeout = %v, want 10s", cfg.Engine.RecheckTimeout)
	}
	if cfg.Engine.TrustPaidAggregate {
		t.Error("Engine.TrustPaidAggregate should be false by default")
	}
	if cfg.Webhook.AllowUnsigned {
		t.Error("Webhook.AllowUnsigned should be false by default")
	}
	if cfg.Evidence.MaxFiles != 3 || cfg.Evidence.MaxFileBytes != 5<<20 {
		t.Errorf("Evidence limits = %d/%d, want 3/5MiB", cfg.Evidence.MaxFiles, cfg.Evidence.MaxFileBytes)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	tests := []struct {
		env  string
		want string
	}{
		{"CASHFREE_CLIENT_ID", "gateway.client_id"},
		{"cashfree_client_secret", "gateway.client_secret"},
		{"RECONCILE_TRUST_PAID_AGGREGATE", "engine.trust_paid_aggregate"},
		{"SMTP_HOST", "notify.email.host"},
		{"HTTP_PORT", "server.port"},
		{"AUDIT_MAX_EVENTS", "audit.max_events"},
		{"PATH", ""},
		{"HOME", ""},
	}
	for _, tt := range tests {
		if got := envTransformFunc(tt.env); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
		}
	}
}

func TestLoadWithKoanf_EnvOverrides(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("HTTP_PORT", "8181")
	t.Setenv("RECONCILE_RETRY_DELAY", "1500ms")
	t.Setenv("RECONCILE_RECHECK_TIMEOUT", "8s")
	t.Setenv("RECONCILE_TRUST_PAID_AGGREGATE", "true")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("CASHFREE_CLIENT_SECRET", "s3cret")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Server.Port != 8181 {
		t.Errorf("Server.Port = %d, want 8181", cfg.Server.Port)
	}
	if cfg.Engine.RetryDelay != 1500*time.Millisecond {
		t.Errorf("Engine.RetryDelay = %v, want 1.5s", cfg.Engine.RetryDelay)
	}
	if cfg.Engine.RecheckTimeout != 8*time.Second {
		t.Errorf("Engine.RecheckTimeout = %v, want 8s", cfg.Engine.RecheckTimeout)
	}
	if !cfg.Engine.TrustPaidAggregate {
		t.Error("Engine.TrustPaidAggregate should be true from env")
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://b.example" {
		t.Errorf("Security.CORSOrigins = %v, want two trimmed origins", cfg.Security.CORSOrigins)
	}
	if cfg.Gateway.ClientSecret != "s3cret" {
		t.Error("Gateway.ClientSecret should come from env")
	}
}

func TestLoadWithKoanf_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9000
gateway:
  client_id: from-file
events:
  backend: disabled
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_PORT", "9100")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("env should win over file, got port %d", cfg.Server.Port)
	}
	if cfg.Gateway.ClientID != "from-file" {
		t.Errorf("Gateway.ClientID = %q, want from-file", cfg.Gateway.ClientID)
	}
	if cfg.Events.Backend != "disabled" {
		t.Errorf("Events.Backend = %q, want disabled", cfg.Events.Backend)
	}
	if cfg.Gateway.Timeout != 30*time.Second {
		t.Errorf("defaults should survive partial files, got timeout %v", cfg.Gateway.Timeout)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"retry delay above cap", func(c *Config) { c.Engine.RetryDelay = 6 * time.Second }, "RECONCILE_RETRY_DELAY"},
		{"recheck timeout above cap", func(c *Config) { c.Engine.RecheckTimeout = time.Minute }, "RECONCILE_RECHECK_TIMEOUT"},
		{"recheck timeout zero", func(c *Config) { c.Engine.RecheckTimeout = 0 }, "RECONCILE_RECHECK_TIMEOUT"},
		{"missing credentials in production", func(c *Config) { c.Server.Environment = EnvProduction }, "CASHFREE_CLIENT_ID"},
		{"unsigned webhooks in production", func(c *Config) {
			c.Server.Environment = EnvProduction
			c.Gateway.ClientID, c.Gateway.ClientSecret = "id", "secret"
			c.Webhook.AllowUnsigned = true
		}, "WEBHOOK_ALLOW_UNSIGNED"},
		{"unknown directory driver", func(c *Config) { c.Directory.Driver = "mongo" }, "DIRECTORY_DRIVER"},
		{"s3 without bucket", func(c *Config) { c.Evidence.Backend = "s3" }, "EVIDENCE_S3_BUCKET"},
		{"bad nats url", func(c *Config) {
			c.Events.Backend = "nats"
			c.Events.NATSURL = "http://localhost:4222"
		}, "NATS_URL"},
		{"short jwt secret", func(c *Config) { c.Security.JWTSecret = "short" }, "JWT_SECRET"},
		{"admin without secret", func(c *Config) {
			c.Security.AdminUsername, c.Security.AdminPassword = "admin", "pw"
		}, "JWT_SECRET"},
		{"frontend with path", func(c *Config) { c.Redirect.FrontendURL = "https://app.example/x" }, "FRONTEND_URL"},
		{"smtp without host", func(c *Config) { c.Notify.Email.Enabled = true }, "SMTP_HOST"},
		{"empty audit buffer", func(c *Config) { c.Audit.BufferSize = 0 }, "AUDIT_BUFFER_SIZE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateHTTPURL(t *testing.T) {
	t.Parallel()

	if err := validateHTTPURL("https://api.cashfree.com/pg/orders", "X", true); err != nil {
		t.Errorf("expected path to be allowed, got %v", err)
	}
	if err := validateHTTPURL("https://api.cashfree.com/pg/orders", "X", false); err == nil {
		t.Error("expected path to be rejected for base URLs")
	}
	if err := validateHTTPURL("ftp://host", "X", true); err == nil {
		t.Error("expected non-http scheme to be rejected")
	}
	if err := validateHTTPURL("https://host/?a=b", "X", false); err == nil {
		t.Error("expected query to be rejected")
	}
}
