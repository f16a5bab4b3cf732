// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

// Package config loads Paysync configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in values from defaultConfig()
//  2. Config File: optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. Environment Variables: explicit env -> path mapping in envTransformFunc
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal("failed to load config:", err)
//	}
//	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
package config

import "time"

// Config is the complete service configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Gateway   GatewayConfig   `koanf:"gateway"`
	Engine    EngineConfig    `koanf:"engine"`
	Webhook   WebhookConfig   `koanf:"webhook"`
	Redirect  RedirectConfig  `koanf:"redirect"`
	Store     StoreConfig     `koanf:"store"`
	Directory DirectoryConfig `koanf:"directory"`
	Evidence  EvidenceConfig  `koanf:"evidence"`
	Events    EventsConfig    `koanf:"events"`
	Notify    NotifyConfig    `koanf:"notify"`
	Security  SecurityConfig  `koanf:"security"`
	Sweeper   SweeperConfig   `koanf:"sweeper"`
	Audit     AuditConfig     `koanf:"audit"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// Environment is development, staging or production.
	Environment string `koanf:"environment"`
	// PublicURL is this service's externally reachable base URL. The gateway
	// notify_url and return_url are built from it.
	PublicURL string `koanf:"public_url"`
}

// IsProduction reports whether the service runs with production safeguards.
func (s ServerConfig) IsProduction() bool {
	return s.Environment == EnvProduction
}

const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// GatewayConfig holds payment gateway credentials and client behaviour.
type GatewayConfig struct {
	BaseURL        string        `koanf:"base_url"`
	ClientID       string        `koanf:"client_id"`
	ClientSecret   string        `koanf:"client_secret"`
	APIVersion     string        `koanf:"api_version"`
	Timeout        time.Duration `koanf:"timeout"`
	MaxAttempts    int           `koanf:"max_attempts"`
	RetryBaseDelay time.Duration `koanf:"retry_base_delay"`
	RetryMaxDelay  time.Duration `koanf:"retry_max_delay"`
	// RateLimit is the outbound request budget in requests per second.
	RateLimit      float64 `koanf:"rate_limit"`
	RateBurst      int     `koanf:"rate_burst"`
	BreakerEnabled bool    `koanf:"breaker_enabled"`
}

// MaxRetryDelay is the hard cap on the ambiguity re-fetch delay.
const MaxRetryDelay = 5 * time.Second

// MaxRecheckTimeout caps the ambiguity re-fetch itself, gateway retries
// included. With MaxRetryDelay it bounds the latency the re-check adds.
const MaxRecheckTimeout = 15 * time.Second

// EngineConfig holds reconciliation behaviour.
type EngineConfig struct {
	// RetryDelay is waited before the single re-fetch of an ambiguous order.
	RetryDelay time.Duration `koanf:"retry_delay"`
	// RecheckTimeout bounds the re-fetch that follows RetryDelay.
	RecheckTimeout time.Duration `koanf:"recheck_timeout"`
	// TrustPaidAggregate settles a PAID order that carries no payment-level
	// confirmation. When false such orders are quarantined.
	//
	// The false default departs from the documented classification, where a
	// PAID aggregate with no contradicting signal is CONFIRMED_SUCCESS. It is
	// held back pending product sign-off; set true to restore that behaviour.
	TrustPaidAggregate bool `koanf:"trust_paid_aggregate"`
}

// WebhookConfig controls the inbound webhook adapter.
type WebhookConfig struct {
	// AllowUnsigned accepts webhooks without a signature header.
	AllowUnsigned bool  `koanf:"allow_unsigned"`
	MaxBodyBytes  int64 `koanf:"max_body_bytes"`
}

// RedirectConfig holds front-end destinations.
type RedirectConfig struct {
	FrontendURL      string `koanf:"frontend_url"`
	DashboardPath    string `koanf:"dashboard_path"`
	RegistrationPath string `koanf:"registration_path"`
}

// StoreConfig holds the ledger and quarantine Badger store settings.
type StoreConfig struct {
	Path       string `koanf:"path"`
	InMemory   bool   `koanf:"in_memory"`
	SyncWrites bool   `koanf:"sync_writes"`
}

// DirectoryConfig holds the account directory database settings.
type DirectoryConfig struct {
	// Driver is sqlite, postgres or duckdb.
	Driver       string `koanf:"driver"`
	DSN          string `koanf:"dsn"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
	MaxOpenConns int    `koanf:"max_open_conns"`
}

// EvidenceConfig holds the ticket evidence object store settings.
type EvidenceConfig struct {
	// Backend is local or s3.
	Backend       string `koanf:"backend"`
	LocalDir      string `koanf:"local_dir"`
	PublicBaseURL string `koanf:"public_base_url"`
	S3Bucket      string `koanf:"s3_bucket"`
	S3Region      string `koanf:"s3_region"`
	S3Endpoint    string `koanf:"s3_endpoint"`
	S3Prefix      string `koanf:"s3_prefix"`
	MaxFileBytes  int64  `koanf:"max_file_bytes"`
	MaxFiles      int    `koanf:"max_files"`
}

// EventsConfig holds the reconciliation event bus settings.
type EventsConfig struct {
	// Backend is memory, nats or disabled.
	Backend        string `koanf:"backend"`
	NATSURL        string `koanf:"nats_url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	EmbeddedHost   string `koanf:"embedded_host"`
	EmbeddedPort   int    `koanf:"embedded_port"`
	StoreDir       string `koanf:"store_dir"`
	Topic          string `koanf:"topic"`
}

// NotifyConfig holds downstream notifier settings.
type NotifyConfig struct {
	Timeout time.Duration `koanf:"timeout"`
	// AdminAddress receives quarantine ticket alerts by e-mail.
	AdminAddress string              `koanf:"admin_address"`
	Email        EmailConfig         `koanf:"email"`
	Webhook      NotifyWebhookConfig `koanf:"webhook"`
}

// EmailConfig holds SMTP settings.
type EmailConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
	FromName string `koanf:"from_name"`
	UseTLS   bool   `koanf:"use_tls"`
}

// NotifyWebhookConfig holds the outbound JSON webhook channel settings.
type NotifyWebhookConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
	Secret  string `koanf:"secret"`
}

// SecurityConfig holds admin authentication and HTTP hardening settings.
type SecurityConfig struct {
	JWTSecret         string        `koanf:"jwt_secret"`
	TokenTTL          time.Duration `koanf:"token_ttl"`
	AdminUsername     string        `koanf:"admin_username"`
	AdminPassword     string        `koanf:"admin_password"`
	AdminRole         string        `koanf:"admin_role"`
	PolicyPath        string        `koanf:"policy_path"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// AdminEnabled reports whether admin routes can be authenticated at all.
func (s SecurityConfig) AdminEnabled() bool {
	return s.AdminUsername != "" && s.AdminPassword != "" && s.JWTSecret != ""
}

// SweeperConfig holds the scheduled quarantine re-poll settings.
type SweeperConfig struct {
	Enabled   bool          `koanf:"enabled"`
	Interval  time.Duration `koanf:"interval"`
	MinAge    time.Duration `koanf:"min_age"`
	BatchSize int           `koanf:"batch_size"`
}

// AuditConfig holds the admin audit trail settings.
type AuditConfig struct {
	Enabled    bool `koanf:"enabled"`
	BufferSize int  `koanf:"buffer_size"`
	// MaxEvents bounds the in-memory trail served by the admin API.
	MaxEvents   int  `koanf:"max_events"`
	LogToStdout bool `koanf:"log_to_stdout"`
}

// Load reads configuration in this order:
//  1. Built-in defaults
//  2. Config file (CONFIG_PATH or the first of DefaultConfigPaths found)
//  3. Environment variables
func Load() (*Config, error) {
	return LoadWithKoanf()
}
