// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/tomtom215/paysync/internal/auth"
	"github.com/tomtom215/paysync/internal/authz"
	"github.com/tomtom215/paysync/internal/middleware"
)

// Router wires handlers and middleware onto a chi mux.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	authn         *auth.Middleware
	authz         *authz.Middleware
}

// NewRouter creates a router. authn and authz may both be nil, in which case
// admin routes answer 503.
func NewRouter(handler *Handler, chiMw *ChiMiddleware, authn *auth.Middleware, authzMw *authz.Middleware) *Router {
	if chiMw == nil {
		chiMw = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		chiMiddleware: chiMw,
		authn:         authn,
		authz:         authzMw,
	}
}

// SetupChi configures all routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered everywhere

	// ========================
	// Health and Metrics
	// ========================
	r.Route("/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})
	r.Handle("/metrics", promhttp.Handler())

	// ========================
	// Payment Entry Paths
	// ========================
	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)

		// The gateway is the only webhook caller and gets its own budget.
		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitWebhook())
			r.Post("/webhook", router.handler.Webhook)
			r.Get("/webhook/test", router.handler.WebhookTest)
		})

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())
			r.Post("/orders", router.handler.CreateOrder)
			r.Post("/orders/test", router.handler.CreateTestOrder)
			r.Get("/redirect", router.handler.PaymentRedirect)

			r.Route("/orders/{orderID}", func(r chi.Router) {
				r.Get("/status", router.handler.OrderStatus)
				r.Post("/retry", router.handler.RetryOrder)
				r.Post("/ticket", router.handler.RaiseTicket)
				r.Get("/quarantine", router.handler.GetIncompletePayment)
			})
		})
	})

	// ========================
	// Authentication
	// ========================
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)
		r.With(router.chiMiddleware.RateLimitLogin()).Post("/login", router.handler.Login)
	})

	// ========================
	// Admin
	// ========================
	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.chiMiddleware.RateLimit())

		if router.authn == nil || router.authz == nil {
			r.HandleFunc("/*", adminDisabled)
			return
		}
		r.Use(router.authn.Authenticate)
		r.Use(router.authz.AuthorizeRequest)

		r.Get("/quarantine", router.handler.ListQuarantine)
		r.Get("/quarantine/{orderID}", router.handler.GetQuarantine)
		r.Post("/quarantine/{orderID}/resolve", router.handler.ResolveQuarantine)
		r.Get("/ledger/{orderID}", router.handler.GetLedgerEntry)
		r.Get("/evidence/*", router.handler.EvidenceFile)
		r.Get("/events/ws", router.handler.EventsWebSocket)
		r.Get("/audit", router.handler.AuditLog)
	})

	// ========================
	// API Documentation
	// ========================
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	return r
}

func adminDisabled(w http.ResponseWriter, _ *http.Request) {
	respondError(w, http.StatusServiceUnavailable, CodeAuthDisabled, "Admin API is not configured", nil)
}
