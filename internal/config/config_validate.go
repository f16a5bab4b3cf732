// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// minJWTSecretLength is the shortest HS256 key accepted.
const minJWTSecretLength = 32

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateLogging,
		c.validateGateway,
		c.validateEngine,
		c.validateWebhook,
		c.validateRedirect,
		c.validateStore,
		c.validateDirectory,
		c.validateEvidence,
		c.validateEvents,
		c.validateNotify,
		c.validateSecurity,
		c.validateSweeper,
		c.validateAudit,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	switch c.Server.Environment {
	case EnvDevelopment, EnvStaging, EnvProduction:
	default:
		return fmt.Errorf("ENVIRONMENT must be one of: development, staging, production")
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP_READ_TIMEOUT and HTTP_WRITE_TIMEOUT must be positive")
	}
	return validateHTTPURL(c.Server.PublicURL, "PUBLIC_URL", false)
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "off", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error, fatal, panic, off")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console")
	}
}

func (c *Config) validateGateway() error {
	if err := validateHTTPURL(c.Gateway.BaseURL, "CASHFREE_BASE_URL", true); err != nil {
		return err
	}
	if c.Server.IsProduction() && (c.Gateway.ClientID == "" || c.Gateway.ClientSecret == "") {
		return fmt.Errorf("CASHFREE_CLIENT_ID and CASHFREE_CLIENT_SECRET are required in production")
	}
	if c.Gateway.APIVersion == "" {
		return fmt.Errorf("CASHFREE_API_VERSION is required")
	}
	if c.Gateway.Timeout <= 0 {
		return fmt.Errorf("GATEWAY_TIMEOUT must be positive")
	}
	if c.Gateway.MaxAttempts < 1 || c.Gateway.MaxAttempts > 10 {
		return fmt.Errorf("GATEWAY_MAX_ATTEMPTS must be between 1 and 10")
	}
	if c.Gateway.RetryBaseDelay < 0 || c.Gateway.RetryMaxDelay < c.Gateway.RetryBaseDelay {
		return fmt.Errorf("gateway retry delays must satisfy 0 <= retry_base_delay <= retry_max_delay")
	}
	if c.Gateway.RateLimit < 0 || c.Gateway.RateBurst < 0 {
		return fmt.Errorf("GATEWAY_RATE_LIMIT and GATEWAY_RATE_BURST must not be negative")
	}
	return nil
}

func (c *Config) validateEngine() error {
	if c.Engine.RetryDelay < 0 {
		return fmt.Errorf("RECONCILE_RETRY_DELAY must not be negative")
	}
	if c.Engine.RetryDelay > MaxRetryDelay {
		return fmt.Errorf("RECONCILE_RETRY_DELAY must not exceed %s", MaxRetryDelay)
	}
	if c.Engine.RecheckTimeout <= 0 || c.Engine.RecheckTimeout > MaxRecheckTimeout {
		return fmt.Errorf("RECONCILE_RECHECK_TIMEOUT must be positive and at most %s", MaxRecheckTimeout)
	}
	return nil
}

func (c *Config) validateWebhook() error {
	if c.Webhook.MaxBodyBytes <= 0 {
		return fmt.Errorf("WEBHOOK_MAX_BODY_BYTES must be positive")
	}
	if c.Webhook.AllowUnsigned && c.Server.IsProduction() {
		return fmt.Errorf("WEBHOOK_ALLOW_UNSIGNED cannot be enabled in production")
	}
	return nil
}

func (c *Config) validateRedirect() error {
	if err := validateHTTPURL(c.Redirect.FrontendURL, "FRONTEND_URL", false); err != nil {
		return err
	}
	if !strings.HasPrefix(c.Redirect.DashboardPath, "/") || !strings.HasPrefix(c.Redirect.RegistrationPath, "/") {
		return fmt.Errorf("redirect paths must start with /")
	}
	return nil
}

func (c *Config) validateStore() error {
	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("LEDGER_PATH is required unless LEDGER_IN_MEMORY=true")
	}
	return nil
}

func (c *Config) validateDirectory() error {
	switch c.Directory.Driver {
	case "sqlite", "postgres", "duckdb":
	default:
		return fmt.Errorf("DIRECTORY_DRIVER must be one of: sqlite, postgres, duckdb")
	}
	if c.Directory.DSN == "" {
		return fmt.Errorf("DIRECTORY_DSN is required")
	}
	return nil
}

func (c *Config) validateEvidence() error {
	switch c.Evidence.Backend {
	case "local":
		if c.Evidence.LocalDir == "" {
			return fmt.Errorf("EVIDENCE_LOCAL_DIR is required for the local evidence backend")
		}
	case "s3":
		if c.Evidence.S3Bucket == "" {
			return fmt.Errorf("EVIDENCE_S3_BUCKET is required for the s3 evidence backend")
		}
		if c.Evidence.S3Endpoint != "" {
			if err := validateHTTPURL(c.Evidence.S3Endpoint, "EVIDENCE_S3_ENDPOINT", false); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("EVIDENCE_BACKEND must be local or s3")
	}
	if c.Evidence.MaxFiles < 1 || c.Evidence.MaxFileBytes < 1 {
		return fmt.Errorf("evidence max_files and max_file_bytes must be positive")
	}
	return nil
}

func (c *Config) validateEvents() error {
	switch c.Events.Backend {
	case "memory", "disabled":
		return nil
	case "nats":
	default:
		return fmt.Errorf("EVENTS_BACKEND must be one of: memory, nats, disabled")
	}
	if c.Events.Topic == "" {
		return fmt.Errorf("EVENTS_TOPIC is required for the nats backend")
	}
	if c.Events.EmbeddedServer {
		if c.Events.EmbeddedPort < 1 || c.Events.EmbeddedPort > 65535 {
			return fmt.Errorf("embedded NATS port must be between 1 and 65535")
		}
		return nil
	}
	return validateNATSURL(c.Events.NATSURL)
}

func (c *Config) validateNotify() error {
	if c.Notify.Timeout <= 0 {
		return fmt.Errorf("NOTIFY_TIMEOUT must be positive")
	}
	if c.Notify.Email.Enabled {
		if c.Notify.Email.Host == "" || c.Notify.Email.From == "" {
			return fmt.Errorf("SMTP_HOST and SMTP_FROM are required when SMTP_ENABLED=true")
		}
		if c.Notify.Email.Port < 1 || c.Notify.Email.Port > 65535 {
			return fmt.Errorf("SMTP_PORT must be between 1 and 65535")
		}
	}
	if c.Notify.Webhook.Enabled {
		u, err := url.Parse(c.Notify.Webhook.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("NOTIFY_WEBHOOK_URL must be an http or https URL")
		}
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.JWTSecret != "" && len(c.Security.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}
	if (c.Security.AdminUsername == "") != (c.Security.AdminPassword == "") {
		return fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD must be set together")
	}
	if c.Security.AdminUsername != "" && c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when admin credentials are configured")
	}
	if c.Security.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if !c.Security.RateLimitDisabled && (c.Security.RateLimitRequests < 1 || c.Security.RateLimitWindow <= 0) {
		return fmt.Errorf("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

func (c *Config) validateSweeper() error {
	if !c.Sweeper.Enabled {
		return nil
	}
	if c.Sweeper.Interval <= 0 {
		return fmt.Errorf("SWEEPER_INTERVAL must be positive")
	}
	if c.Sweeper.BatchSize < 1 {
		return fmt.Errorf("SWEEPER_BATCH_SIZE must be positive")
	}
	return nil
}

func (c *Config) validateAudit() error {
	if !c.Audit.Enabled {
		return nil
	}
	if c.Audit.BufferSize < 1 || c.Audit.MaxEvents < 1 {
		return fmt.Errorf("AUDIT_BUFFER_SIZE and AUDIT_MAX_EVENTS must be positive")
	}
	return nil
}

// validateHTTPURL validates that a URL is properly formatted for HTTP/HTTPS services.
// When allowPath is false only a base URL (optional trailing slash) is accepted.
func validateHTTPURL(rawURL, fieldName string, allowPath bool) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}

	if !allowPath && parsedURL.Path != "" && parsedURL.Path != "/" {
		return fmt.Errorf("%s should be base URL only, remove path: %s", fieldName, parsedURL.Path)
	}

	if parsedURL.RawQuery != "" {
		return fmt.Errorf("%s should not contain query parameters, remove: ?%s", fieldName, parsedURL.RawQuery)
	}

	return nil
}

// validateNATSURL accepts nats://, tls:// and ws:// URLs with a host.
func validateNATSURL(rawURL string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("NATS_URL failed to parse URL: %w", err)
	}
	switch parsedURL.Scheme {
	case "nats", "tls", "ws", "wss":
	default:
		return fmt.Errorf("NATS_URL scheme must be nats, tls, ws or wss, got: %s", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("NATS_URL host is required")
	}
	return nil
}
