// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	_ "github.com/tomtom215/paysync/docs" // Swagger documentation

	"github.com/tomtom215/paysync/internal/api"
	"github.com/tomtom215/paysync/internal/audit"
	"github.com/tomtom215/paysync/internal/auth"
	"github.com/tomtom215/paysync/internal/authz"
	"github.com/tomtom215/paysync/internal/config"
	"github.com/tomtom215/paysync/internal/directory"
	"github.com/tomtom215/paysync/internal/events"
	"github.com/tomtom215/paysync/internal/evidence"
	"github.com/tomtom215/paysync/internal/gateway"
	"github.com/tomtom215/paysync/internal/logging"
	"github.com/tomtom215/paysync/internal/metrics"
	"github.com/tomtom215/paysync/internal/notify"
	"github.com/tomtom215/paysync/internal/reconcile"
	"github.com/tomtom215/paysync/internal/store"
	"github.com/tomtom215/paysync/internal/supervisor"
	"github.com/tomtom215/paysync/internal/supervisor/services"
	ws "github.com/tomtom215/paysync/internal/websocket"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Msg("Starting Paysync with supervisor tree")
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	// === STORAGE ===

	ledger, err := store.Open(store.Config{
		Path:       cfg.Store.Path,
		InMemory:   cfg.Store.InMemory,
		SyncWrites: cfg.Store.SyncWrites,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open ledger store")
	}
	defer func() {
		if err := ledger.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing ledger store")
		}
	}()

	accounts, err := directory.Open(ctx, directory.Config{
		Driver:       cfg.Directory.Driver,
		DSN:          cfg.Directory.DSN,
		AutoMigrate:  cfg.Directory.AutoMigrate,
		MaxOpenConns: cfg.Directory.MaxOpenConns,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open account directory")
	}
	defer func() {
		if err := accounts.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing account directory")
		}
	}()
	logging.Info().Str("driver", cfg.Directory.Driver).Msg("Account directory opened")

	bus, err := events.Open(ctx, &cfg.Events)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open event bus")
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()
	logging.Info().Str("backend", bus.Backend()).Str("topic", bus.Topic()).Msg("Event bus ready")

	evidenceStore, err := evidence.New(ctx, &cfg.Evidence)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize evidence store")
	}
	logging.Info().Str("backend", evidenceStore.Backend()).Msg("Evidence store ready")

	// === RECONCILIATION ===

	gw := gateway.NewClient(&cfg.Gateway, gatewayURLs(cfg))
	notifier := notify.FromConfig(&cfg.Notify, &http.Client{Timeout: cfg.Notify.Timeout})
	if len(notifier.Channels()) == 0 {
		logging.Warn().Msg("No notification channels configured; downstream alerts are disabled")
	}

	engine, err := reconcile.NewEngine(&cfg.Engine, reconcile.Dependencies{
		Ledger:     ledger,
		Quarantine: ledger,
		Gateway:    gw,
		Accounts:   accounts,
		Notifier:   notifier,
		Publisher:  bus,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create reconciliation engine")
	}
	if cfg.Engine.TrustPaidAggregate {
		logging.Warn().Msg("PAID orders without a payment record will be settled (RECONCILE_TRUST_PAID_AGGREGATE=true)")
	}
	if cfg.Webhook.AllowUnsigned {
		logging.Warn().Msg("Unsigned webhooks are accepted (WEBHOOK_ALLOW_UNSIGNED=true). Never use this in production!")
	}

	// === ADMIN AUTHENTICATION ===

	jwtManager, basicAuth, authn, authzMw := initAdminAuth(cfg)

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}
	for _, origin := range cfg.Security.CORSOrigins {
		if origin == "*" {
			logging.Warn().Msg("CORS allows any origin (CORS_ORIGINS=*); set explicit origins in production")
			break
		}
	}

	// === HTTP ===

	auditLog := audit.NewLogger(audit.NewMemoryStore(cfg.Audit.MaxEvents), cfg.Audit)
	defer func() {
		//nolint:errcheck // drains buffered events on shutdown
		_ = auditLog.Close()
	}()

	hub := ws.NewHub()
	handler := api.NewHandler(cfg, api.Dependencies{
		Engine:   engine,
		Gateway:  gw,
		Records:  ledger,
		Evidence: evidenceStore,
		Notifier: notifier,
		Hub:      hub,
		Audit:    auditLog,
		JWT:      jwtManager,
		Basic:    basicAuth,
		Checks: map[string]api.HealthCheck{
			"ledger":    func(context.Context) error { return ledger.Ping() },
			"directory": accounts.Ping,
			"events":    bus.Ping,
		},
		Version: version,
	})

	chiMiddleware := api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(&cfg.Security))
	router := api.NewRouter(handler, chiMiddleware, authn, authzMw)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// === SUPERVISOR TREE ===

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout + 5*time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddStorageService(services.NewGCService(ledger, 0))

	tree.AddWorkerService(services.NewHubService(hub))
	if bus.Backend() != events.BackendDisabled {
		tree.AddWorkerService(ws.NewForwarder(bus, hub))
	}
	if cfg.Sweeper.Enabled {
		tree.AddWorkerService(services.NewSweeperService(ledger, engine, cfg.Sweeper))
		logging.Info().
			Dur("interval", cfg.Sweeper.Interval).
			Dur("min_age", cfg.Sweeper.MinAge).
			Msg("Quarantine sweeper enabled")
	}
	logging.Info().Msg("Worker services added to supervisor tree")

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	go trackUptime(ctx, time.Now())

	// === START SUPERVISOR TREE ===

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}

// gatewayURLs builds the return and notify addresses handed to the gateway
// with every charge. The gateway substitutes {order_id} itself.
func gatewayURLs(cfg *config.Config) gateway.URLs {
	public := strings.TrimRight(cfg.Server.PublicURL, "/")
	urls := gateway.URLs{
		DashboardURL: public + "/api/v1/payments/redirect?order_id={order_id}",
		NotifyURL:    public + "/api/v1/payments/webhook",
	}
	if cfg.Redirect.FrontendURL != "" && cfg.Redirect.RegistrationPath != "" {
		urls.RegistrationURL = strings.TrimRight(cfg.Redirect.FrontendURL, "/") + cfg.Redirect.RegistrationPath
	}
	return urls
}

// initAdminAuth builds the admin authentication chain. Every return value is
// nil when admin credentials are not configured; the router then answers
// admin routes with 503.
func initAdminAuth(cfg *config.Config) (*auth.JWTManager, *auth.BasicAuthManager, *auth.Middleware, *authz.Middleware) {
	if !cfg.Security.AdminEnabled() {
		logging.Warn().Msg("Admin API disabled: set ADMIN_USERNAME, ADMIN_PASSWORD and JWT_SECRET to enable it")
		return nil, nil, nil, nil
	}

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}
	basicAuth, err := auth.NewBasicAuthManager(
		cfg.Security.AdminUsername,
		cfg.Security.AdminPassword,
		cfg.Security.AdminRole,
		bcrypt.DefaultCost,
	)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize Basic Auth manager")
	}
	enforcer, err := authz.NewEnforcer(cfg.Security.PolicyPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load authorization policy")
	}

	logging.Info().
		Str("username", cfg.Security.AdminUsername).
		Str("role", cfg.Security.AdminRole).
		Msg("Admin authentication enabled")
	if !cfg.Server.IsProduction() {
		logging.Warn().Msg("Basic Auth transmits credentials on login. Use HTTPS in production!")
	}
	return jwtManager, basicAuth, auth.NewMiddleware(jwtManager), authz.NewMiddleware(enforcer)
}

func trackUptime(ctx context.Context, started time.Time) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.AppUptime.Set(time.Since(started).Seconds())
		}
	}
}
