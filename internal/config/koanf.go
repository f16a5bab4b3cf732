// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/paysync/config.yaml",
	"/etc/paysync/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Default returns the built-in defaults without reading files or the
// environment.
func Default() *Config {
	return defaultConfig()
}

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            3000,
			Host:            "0.0.0.0",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    45 * time.Second, // covers the bounded re-check (retry delay + recheck timeout) plus two gateway calls
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     EnvDevelopment,
			PublicURL:       "http://localhost:3000",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Gateway: GatewayConfig{
			BaseURL:        "https://sandbox.cashfree.com/pg/orders",
			APIVersion:     "2022-09-01",
			Timeout:        30 * time.Second,
			MaxAttempts:    3,
			RetryBaseDelay: 200 * time.Millisecond,
			RetryMaxDelay:  2 * time.Second,
			RateLimit:      20,
			RateBurst:      10,
			BreakerEnabled: true,
		},
		Engine: EngineConfig{
			RetryDelay:         3 * time.Second,
			RecheckTimeout:     10 * time.Second,
			TrustPaidAggregate: false, // pending product sign-off, see EngineConfig
		},
		Webhook: WebhookConfig{
			AllowUnsigned: false,
			MaxBodyBytes:  1 << 20,
		},
		Redirect: RedirectConfig{
			FrontendURL:      "http://localhost:5173",
			DashboardPath:    "/user/userDashboard",
			RegistrationPath: "/activation-pending",
		},
		Store: StoreConfig{
			Path:       "/data/paysync/ledger",
			InMemory:   false,
			SyncWrites: true,
		},
		Directory: DirectoryConfig{
			Driver:       "sqlite",
			DSN:          "file:/data/paysync/accounts.db?_pragma=busy_timeout(5000)",
			AutoMigrate:  true,
			MaxOpenConns: 4,
		},
		Evidence: EvidenceConfig{
			Backend:       "local",
			LocalDir:      "/data/paysync/evidence",
			PublicBaseURL: "http://localhost:3000/api/v1/admin/evidence",
			S3Prefix:      "incomplete-payment-tickets",
			MaxFileBytes:  5 << 20,
			MaxFiles:      3,
		},
		Events: EventsConfig{
			Backend:        "memory",
			NATSURL:        "nats://127.0.0.1:4222",
			EmbeddedServer: false,
			EmbeddedHost:   "127.0.0.1",
			EmbeddedPort:   4222,
			StoreDir:       "/data/paysync/nats",
			Topic:          "paysync.reconciliation",
		},
		Notify: NotifyConfig{
			Timeout: 10 * time.Second,
			Email: EmailConfig{
				Enabled:  false,
				Port:     587,
				FromName: "Paysync",
				UseTLS:   true,
			},
		},
		Security: SecurityConfig{
			TokenTTL:          8 * time.Hour,
			AdminRole:         "admin",
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 120,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Sweeper: SweeperConfig{
			Enabled:   true,
			Interval:  5 * time.Minute,
			MinAge:    10 * time.Minute,
			BatchSize: 25,
		},
		Audit: AuditConfig{
			Enabled:     true,
			BufferSize:  256,
			MaxEvents:   10000,
			LogToStdout: true,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults from defaultConfig()
//  2. Config file, if one is found
//  3. Environment variables (highest priority)
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file found, or "" when none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings while YAML already yields slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
var envMappings = map[string]string{
	// Server
	"http_port":          "server.port",
	"http_host":          "server.host",
	"http_read_timeout":  "server.read_timeout",
	"http_write_timeout": "server.write_timeout",
	"shutdown_timeout":   "server.shutdown_timeout",
	"environment":        "server.environment",
	"public_url":         "server.public_url",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Gateway
	"cashfree_base_url":      "gateway.base_url",
	"cashfree_client_id":     "gateway.client_id",
	"cashfree_client_secret": "gateway.client_secret",
	"cashfree_api_version":   "gateway.api_version",
	"gateway_timeout":        "gateway.timeout",
	"gateway_max_attempts":   "gateway.max_attempts",
	"gateway_rate_limit":     "gateway.rate_limit",
	"gateway_rate_burst":     "gateway.rate_burst",
	"gateway_breaker":        "gateway.breaker_enabled",

	// Engine
	"reconcile_retry_delay":          "engine.retry_delay",
	"reconcile_recheck_timeout":      "engine.recheck_timeout",
	"reconcile_trust_paid_aggregate": "engine.trust_paid_aggregate",

	// Webhook
	"webhook_allow_unsigned": "webhook.allow_unsigned",
	"webhook_max_body_bytes": "webhook.max_body_bytes",

	// Redirect
	"frontend_url": "redirect.frontend_url",

	// Store
	"ledger_path":      "store.path",
	"ledger_in_memory": "store.in_memory",

	// Directory
	"directory_driver":       "directory.driver",
	"directory_dsn":          "directory.dsn",
	"directory_auto_migrate": "directory.auto_migrate",

	// Evidence
	"evidence_backend":         "evidence.backend",
	"evidence_local_dir":       "evidence.local_dir",
	"evidence_public_base_url": "evidence.public_base_url",
	"evidence_s3_bucket":       "evidence.s3_bucket",
	"evidence_s3_region":       "evidence.s3_region",
	"evidence_s3_endpoint":     "evidence.s3_endpoint",
	"evidence_s3_prefix":       "evidence.s3_prefix",

	// Events
	"events_backend": "events.backend",
	"nats_url":       "events.nats_url",
	"nats_embedded":  "events.embedded_server",
	"nats_store_dir": "events.store_dir",
	"events_topic":   "events.topic",

	// Notify
	"notify_timeout":        "notify.timeout",
	"notify_admin_address":  "notify.admin_address",
	"smtp_enabled":          "notify.email.enabled",
	"smtp_host":             "notify.email.host",
	"smtp_port":             "notify.email.port",
	"smtp_username":         "notify.email.username",
	"smtp_password":         "notify.email.password",
	"smtp_from":             "notify.email.from",
	"smtp_from_name":        "notify.email.from_name",
	"smtp_use_tls":          "notify.email.use_tls",
	"notify_webhook_url":    "notify.webhook.url",
	"notify_webhook_secret": "notify.webhook.secret",
	"notify_webhook":        "notify.webhook.enabled",

	// Security
	"jwt_secret":          "security.jwt_secret",
	"token_ttl":           "security.token_ttl",
	"admin_username":      "security.admin_username",
	"admin_password":      "security.admin_password",
	"admin_role":          "security.admin_role",
	"authz_policy_path":   "security.policy_path",
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_requests",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	// Sweeper
	"sweeper_enabled":    "sweeper.enabled",
	"sweeper_interval":   "sweeper.interval",
	"sweeper_min_age":    "sweeper.min_age",
	"sweeper_batch_size": "sweeper.batch_size",

	// Audit
	"audit_enabled":       "audit.enabled",
	"audit_buffer_size":   "audit.buffer_size",
	"audit_max_events":    "audit.max_events",
	"audit_log_to_stdout": "audit.log_to_stdout",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - CASHFREE_CLIENT_ID -> gateway.client_id
//   - RECONCILE_RETRY_DELAY -> engine.retry_delay
//   - RECONCILE_RECHECK_TIMEOUT -> engine.recheck_timeout
//   - SMTP_HOST -> notify.email.host
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	// Unmapped keys are skipped so unrelated environment variables never reach the config.
	return ""
}
