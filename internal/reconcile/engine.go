// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/paysync/internal/config"
	"github.com/tomtom215/paysync/internal/directory"
	"github.com/tomtom215/paysync/internal/logging"
	"github.com/tomtom215/paysync/internal/metrics"
	"github.com/tomtom215/paysync/internal/models"
	"github.com/tomtom215/paysync/internal/store"
)

// defaultPaymentMethod is recorded when the gateway reports none.
const defaultPaymentMethod = "UPI"

// Event is one observation of an order from an entry path. A nil Snapshot
// makes the engine fetch one after the ledger check.
type Event struct {
	OrderID  string
	Snapshot *models.Snapshot
	Source   models.Source
}

// Result reports the final outcome and what the adapters need to shape a
// response.
type Result struct {
	Outcome            models.Outcome
	OrderID            string
	OrderStatus        string
	PaymentStatus      string
	GatewayPaymentID   string
	Amount             float64
	Plan               models.Tier
	UserType           models.UserType
	ExpiryDate         *time.Time
	ResolvedBy         models.ResolutionStrategy
	Quarantined        bool
	Reason             models.QuarantineReason
	QuarantineResolved bool
}

// Dependencies are the engine's collaborators. Notifier and Publisher are
// optional.
type Dependencies struct {
	Ledger     LedgerStore
	Quarantine QuarantineStore
	Gateway    StatusFetcher
	Accounts   Accounts
	Notifier   Notifier
	Publisher  Publisher
}

// Engine turns gateway observations into exactly-once account changes.
//
// There is no engine-level lock. Concurrent reconciliations of one order all
// classify, and the ledger's insert is the serialization point: the loser
// sees store.ErrDuplicateSettlement and reports ALREADY_SETTLED.
type Engine struct {
	ledger     LedgerStore
	quarantine QuarantineStore
	gateway    StatusFetcher
	accounts   Accounts
	notifier   Notifier
	publisher  Publisher

	classifier     Classifier
	retryDelay     time.Duration
	// recheckTimeout bounds the ambiguity re-fetch after the delay.
	recheckTimeout time.Duration
	now            func() time.Time
	sleep          func(ctx context.Context, d time.Duration) error
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithSleeper replaces the ambiguity delay.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Engine) { e.sleep = sleep }
}

// NewEngine wires the engine. The re-fetch delay is capped at
// config.MaxRetryDelay whatever the configuration says.
func NewEngine(cfg *config.EngineConfig, deps Dependencies, opts ...Option) (*Engine, error) {
	if deps.Ledger == nil || deps.Quarantine == nil || deps.Gateway == nil || deps.Accounts == nil {
		return nil, errors.New("reconcile: ledger, quarantine, gateway and accounts are required")
	}

	delay := cfg.RetryDelay
	if delay > config.MaxRetryDelay {
		delay = config.MaxRetryDelay
	}
	if delay < 0 {
		delay = 0
	}
	recheck := cfg.RecheckTimeout
	if recheck <= 0 || recheck > config.MaxRecheckTimeout {
		recheck = config.MaxRecheckTimeout
	}

	e := &Engine{
		ledger:         deps.Ledger,
		quarantine:     deps.Quarantine,
		gateway:        deps.Gateway,
		accounts:       deps.Accounts,
		notifier:       deps.Notifier,
		publisher:      deps.Publisher,
		classifier:     Classifier{TrustPaidAggregate: cfg.TrustPaidAggregate},
		retryDelay:     delay,
		recheckTimeout: recheck,
		now:            time.Now,
		sleep:          sleepContext,
	}
	if e.notifier == nil {
		e.notifier = nopNotifier{}
	}
	if e.publisher == nil {
		e.publisher = nopPublisher{}
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Reconcile processes one observation.
func (e *Engine) Reconcile(ctx context.Context, ev Event) (*Result, error) {
	if err := models.ValidateOrderID(ev.OrderID); err != nil {
		return nil, err
	}
	if !ev.Source.Valid() {
		return nil, fmt.Errorf("reconcile: unknown source %q", ev.Source)
	}
	ctx = logging.ContextWithOrderID(ctx, ev.OrderID)
	start := e.now()

	res, err := e.reconcile(ctx, ev)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("source", string(ev.Source)).Msg("Reconciliation failed")
		return nil, err
	}

	metrics.RecordReconcile(string(res.Outcome), string(ev.Source), e.now().Sub(start))
	logging.Ctx(ctx).Info().
		Str("source", string(ev.Source)).
		Str("outcome", string(res.Outcome)).
		Str("gateway_payment_id", res.GatewayPaymentID).
		Bool("quarantined", res.Quarantined).
		Msg("Reconciled order")

	e.publish(ctx, ev.Source, res)
	return res, nil
}

// FetchAndReconcile always reads the gateway before reconciling. The manual
// retry and sweeper paths use it.
func (e *Engine) FetchAndReconcile(ctx context.Context, orderID string, source models.Source) (*Result, error) {
	if err := models.ValidateOrderID(orderID); err != nil {
		return nil, err
	}
	snap, err := e.gateway.FetchStatus(ctx, orderID)
	if err != nil {
		metrics.ReconcileErrors.WithLabelValues("gateway").Inc()
		return nil, fmt.Errorf("fetch status: %w", err)
	}
	return e.Reconcile(ctx, Event{OrderID: orderID, Snapshot: snap, Source: source})
}

func (e *Engine) reconcile(ctx context.Context, ev Event) (*Result, error) {
	prior, err := e.priorEntry(ctx, ev.OrderID)
	if err != nil {
		return nil, err
	}
	if prior.Settled() {
		return e.alreadySettled(ctx, prior, ev.Source), nil
	}

	snap := ev.Snapshot
	if snap == nil {
		if snap, err = e.gateway.FetchStatus(ctx, ev.OrderID); err != nil {
			metrics.ReconcileErrors.WithLabelValues("gateway").Inc()
			return nil, fmt.Errorf("fetch status: %w", err)
		}
	}
	if snap.OrderID != "" && snap.OrderID != ev.OrderID {
		return nil, fmt.Errorf("reconcile: snapshot for %q does not match order %q", snap.OrderID, ev.OrderID)
	}
	if snap.OrderID == "" {
		snap.OrderID = ev.OrderID
	}

	cls := e.classifier.Classify(snap, prior, FirstObservation)
	if cls.Outcome == models.OutcomeAmbiguousRetry {
		snap, prior, cls, err = e.reobserve(ctx, snap)
		if err != nil {
			return nil, err
		}
	}

	switch cls.Outcome {
	case models.OutcomeAlreadySettled:
		return e.alreadySettled(ctx, prior, ev.Source), nil
	case models.OutcomeConfirmedSuccess:
		return e.settle(ctx, ev.Source, snap, cls)
	case models.OutcomeConfirmedFailure:
		return e.recordFailure(ctx, ev.Source, snap, prior)
	case models.OutcomeAmbiguousQuarantine:
		return e.hold(ctx, ev.Source, snap, cls.Reason)
	default:
		return baseResult(models.OutcomeNotCompleted, snap), nil
	}
}

// reobserve waits the bounded delay and classifies one fresh snapshot. The
// delay and the re-fetch together never exceed retryDelay+recheckTimeout. If
// the re-fetch fails or runs out of time the first snapshot is quarantined as
// still ambiguous.
func (e *Engine) reobserve(ctx context.Context, first *models.Snapshot) (*models.Snapshot, *models.LedgerEntry, Classification, error) {
	logging.Ctx(ctx).Info().Dur("delay", e.retryDelay).Msg("Ambiguous gateway status, re-checking")

	recheckCtx, cancel := context.WithTimeout(ctx, e.retryDelay+e.recheckTimeout)
	defer cancel()

	if err := e.sleep(recheckCtx, e.retryDelay); err != nil {
		if ctx.Err() != nil {
			return nil, nil, Classification{}, ctx.Err()
		}
		return first, nil, Classification{Outcome: models.OutcomeAmbiguousQuarantine, Reason: models.ReasonAmbiguousStatus}, nil
	}

	fresh, err := e.gateway.FetchStatus(recheckCtx, first.OrderID)
	if err != nil && ctx.Err() != nil {
		return nil, nil, Classification{}, ctx.Err()
	}
	if err != nil {
		metrics.ReconcileErrors.WithLabelValues("gateway").Inc()
		logging.Ctx(ctx).Warn().Err(err).Msg("Re-check failed, holding order for review")
		return first, nil, Classification{Outcome: models.OutcomeAmbiguousQuarantine, Reason: models.ReasonAmbiguousStatus}, nil
	}
	if fresh.OrderID == "" {
		fresh.OrderID = first.OrderID
	}

	// Another path may have settled the order while we waited.
	prior, err := e.priorEntry(ctx, first.OrderID)
	if err != nil {
		return nil, nil, Classification{}, err
	}
	return fresh, prior, e.classifier.Classify(fresh, prior, ReObservation), nil
}

func (e *Engine) settle(ctx context.Context, source models.Source, snap *models.Snapshot, cls Classification) (*Result, error) {
	purchase := DecodePurchase(snap)
	paymentID, method, bankRef := paymentIdentity(snap, cls.Attempt)

	acct, strategy, err := resolveAccount(ctx, e.accounts, snap.Customer)
	if errors.Is(err, ErrAccountUnresolvable) {
		metrics.ReconcileErrors.WithLabelValues("directory").Inc()
		logging.Ctx(ctx).Error().
			Str("gateway_payment_id", paymentID).
			Str("customer_email", logging.MaskEmail(snap.Customer.CustomerEmail)).
			Str("customer_phone", logging.MaskPhone(snap.Customer.CustomerPhone)).
			Msg("Successful payment matches no account, quarantining")
		return e.hold(ctx, source, snap, models.ReasonAccountUnresolved)
	}
	if err != nil {
		metrics.ReconcileErrors.WithLabelValues("directory").Inc()
		return nil, err
	}

	now := e.now().UTC()
	ent := purchase.Entitlement
	expiry := ExtendExpiry(acct.ExpiryDate, now, ent.Months)

	entry := models.LedgerEntry{
		OrderID:          snap.OrderID,
		GatewayPaymentID: paymentID,
		PaymentMethod:    method,
		BankReference:    bankRef,
		Amount:           snap.OrderAmount,
		Outcome:          models.LedgerSuccess,
		AccountID:        acct.ID,
		Plan:             ent.Tier,
		UserType:         ent.UserType,
		PromoCode:        purchase.PromoCode,
		DiscountAmount:   purchase.Discount,
		OriginalAmount:   purchase.OriginalAmount,
		ResolvedBy:       strategy,
		ExpiryDate:       &expiry,
		Source:           source,
	}

	written, err := e.ledger.InsertLedgerEntry(ctx, entry)
	if errors.Is(err, store.ErrDuplicateSettlement) {
		logging.Ctx(ctx).Info().Msg("Lost settlement race, order already settled")
		existing, gerr := e.priorEntry(ctx, snap.OrderID)
		if gerr != nil || existing == nil {
			return &Result{Outcome: models.OutcomeAlreadySettled, OrderID: snap.OrderID}, nil
		}
		return e.alreadySettled(ctx, existing, source), nil
	}
	if err != nil {
		metrics.ReconcileErrors.WithLabelValues("ledger").Inc()
		return nil, fmt.Errorf("write ledger entry: %w", err)
	}

	// The settlement stands even if the directory write fails; the entry
	// keeps the granted expiry for repair.
	if err := e.accounts.ApplyEntitlement(ctx, acct.ID, ent.Tier, expiry); err != nil {
		metrics.ReconcileErrors.WithLabelValues("directory").Inc()
		logging.Ctx(ctx).Error().Err(err).Str("account_id", acct.ID).Time("expiry", expiry).Msg("Failed to apply entitlement")
	}

	e.creditReferral(ctx, purchase, acct, snap, paymentID, ent.UserType)
	e.notifyPayment(ctx, acct, snap, written, purchase)

	res := baseResult(models.OutcomeConfirmedSuccess, snap)
	res.GatewayPaymentID = paymentID
	res.Plan = ent.Tier
	res.UserType = ent.UserType
	res.ExpiryDate = &expiry
	res.ResolvedBy = strategy
	res.QuarantineResolved = e.resolveQuarantine(ctx, snap.OrderID, source, "Settled via "+string(source))
	return res, nil
}

func (e *Engine) recordFailure(ctx context.Context, source models.Source, snap *models.Snapshot, prior *models.LedgerEntry) (*Result, error) {
	res := baseResult(models.OutcomeConfirmedFailure, snap)
	paymentID, method, bankRef := paymentIdentity(snap, firstAttempt(snap))
	res.GatewayPaymentID = paymentID
	// A definite failure ends any review hold.
	res.QuarantineResolved = e.closeOpenQuarantine(ctx, snap.OrderID, source, "Gateway reported failure via "+string(source))
	if prior != nil {
		return res, nil
	}

	acct, strategy, err := resolveAccount(ctx, e.accounts, snap.Customer)
	if err != nil {
		// Failures without an account are not worth a quarantine record.
		logging.Ctx(ctx).Info().Err(err).Msg("Skipping failure entry, account not resolved")
		return res, nil
	}

	_, err = e.ledger.InsertLedgerEntry(ctx, models.LedgerEntry{
		OrderID:          snap.OrderID,
		GatewayPaymentID: paymentID,
		PaymentMethod:    method,
		BankReference:    bankRef,
		Amount:           snap.OrderAmount,
		Outcome:          models.LedgerFailure,
		AccountID:        acct.ID,
		ResolvedBy:       strategy,
		Source:           source,
	})
	switch {
	case errors.Is(err, store.ErrEntryExists):
	case errors.Is(err, store.ErrDuplicateSettlement):
		existing, gerr := e.priorEntry(ctx, snap.OrderID)
		if gerr == nil && existing != nil {
			return e.alreadySettled(ctx, existing, source), nil
		}
		return &Result{Outcome: models.OutcomeAlreadySettled, OrderID: snap.OrderID}, nil
	case err != nil:
		metrics.ReconcileErrors.WithLabelValues("ledger").Inc()
		return nil, fmt.Errorf("write failure entry: %w", err)
	}
	res.ResolvedBy = strategy
	return res, nil
}

// hold upserts the quarantine record with the latest snapshot.
func (e *Engine) hold(ctx context.Context, source models.Source, snap *models.Snapshot, reason models.QuarantineReason) (*Result, error) {
	paymentID, method, _ := paymentIdentity(snap, firstAttempt(snap))
	paymentStatus, _ := snap.NormalizedPaymentStatus()

	rec := models.QuarantineRecord{
		OrderID:              snap.OrderID,
		TransactionID:        paymentID,
		Amount:               snap.OrderAmount,
		Customer:             snap.Customer,
		PaymentMethod:        method,
		GatewayOrderStatus:   snap.NormalizedOrderStatus(),
		GatewayPaymentStatus: paymentStatus,
		Reason:               reason,
		Snapshot:             snap.RawOrMarshal(),
		Source:               source,
	}
	if reason != models.ReasonAccountUnresolved {
		if acct, _, err := resolveAccount(ctx, e.accounts, snap.Customer); err == nil {
			rec.AccountID = acct.ID
		}
	}

	stored, created, err := e.quarantine.UpsertQuarantine(ctx, rec)
	if err != nil {
		metrics.ReconcileErrors.WithLabelValues("quarantine").Inc()
		return nil, fmt.Errorf("quarantine order: %w", err)
	}
	logging.Ctx(ctx).Warn().
		Str("reason", string(reason)).
		Bool("created", created).
		Int("observations", stored.Observations).
		Msg("Order quarantined for review")

	res := baseResult(models.OutcomeAmbiguousQuarantine, snap)
	res.GatewayPaymentID = paymentID
	res.Quarantined = true
	res.Reason = reason
	return res, nil
}

func (e *Engine) creditReferral(ctx context.Context, p Purchase, acct *models.Account, snap *models.Snapshot, paymentID string, userType models.UserType) {
	if p.PromoCode == "" {
		return
	}
	log := logging.Ctx(ctx).With().Str("promo_code", p.PromoCode).Logger()

	promoter, err := e.accounts.GetActivePromoter(ctx, p.PromoCode)
	if errors.Is(err, directory.ErrPromoterNotFound) {
		log.Info().Msg("Promo code has no active promoter, no referral credit")
		return
	}
	if err != nil {
		metrics.ReconcileErrors.WithLabelValues("referral").Inc()
		log.Error().Err(err).Msg("Promoter lookup failed")
		return
	}

	credit := models.ReferralCredit{
		PromoCode:         promoter.Code,
		ReferredAccountID: acct.ID,
		Email:             firstNonEmpty(acct.Email, snap.Customer.CustomerEmail),
		Phone:             firstNonEmpty(acct.Phone, snap.Customer.CustomerPhone),
		Amount:            models.ReferralCreditAmount,
		GatewayPaymentID:  paymentID,
		OrderID:           snap.OrderID,
		UserType:          userType,
		Status:            models.ReferralStatusPending,
	}
	created, err := e.accounts.CreateReferralCredit(ctx, credit)
	if err != nil {
		metrics.ReconcileErrors.WithLabelValues("referral").Inc()
		log.Error().Err(err).Msg("Failed to create referral credit")
		return
	}
	if !created {
		log.Info().Msg("Referral credit already recorded")
		return
	}

	notice := models.ReferralNotice{
		PromoCode:     promoter.Code,
		PromoterName:  promoter.Name,
		PromoterEmail: promoter.Email,
		ReferredEmail: credit.Email,
		OrderID:       snap.OrderID,
		Amount:        credit.Amount,
		UserType:      userType,
	}
	if err := e.notifier.ReferralCredited(ctx, notice); err != nil {
		log.Warn().Err(err).Msg("Promoter notification failed")
	}
}

func (e *Engine) notifyPayment(ctx context.Context, acct *models.Account, snap *models.Snapshot, entry *models.LedgerEntry, p Purchase) {
	notice := models.PaymentNotice{
		OrderID:          entry.OrderID,
		GatewayPaymentID: entry.GatewayPaymentID,
		AccountID:        acct.ID,
		Name:             firstNonEmpty(acct.Name, snap.Customer.CustomerName),
		Email:            firstNonEmpty(acct.Email, snap.Customer.CustomerEmail),
		Plan:             entry.Plan,
		Amount:           entry.Amount,
		OriginalAmount:   p.OriginalAmount,
		DiscountAmount:   p.Discount,
		PromoCode:        p.PromoCode,
	}
	if entry.ExpiryDate != nil {
		notice.ExpiryDate = *entry.ExpiryDate
	}
	if err := e.notifier.PaymentSucceeded(ctx, notice); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Payment notification failed")
	}
}

// alreadySettled reports a prior SUCCESS and closes any quarantine record
// still open for the order. A record can outlive its settlement when the
// resolve after the ledger insert failed, or when another path upserted it
// after the winner had already looked.
func (e *Engine) alreadySettled(ctx context.Context, entry *models.LedgerEntry, source models.Source) *Result {
	res := settledResult(entry)
	res.QuarantineResolved = e.closeOpenQuarantine(ctx, entry.OrderID, source, "Settled via "+string(source))
	return res
}

// closeOpenQuarantine resolves the record for orderID if one is still open.
func (e *Engine) closeOpenQuarantine(ctx context.Context, orderID string, source models.Source, notes string) bool {
	rec, err := e.quarantine.GetQuarantine(ctx, orderID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return false
	case err != nil:
		metrics.ReconcileErrors.WithLabelValues("quarantine").Inc()
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to read quarantine record")
		return false
	case rec.Resolved:
		return false
	}
	return e.resolveQuarantine(ctx, orderID, source, notes)
}

// resolveQuarantine flips a matching quarantine record.
func (e *Engine) resolveQuarantine(ctx context.Context, orderID string, source models.Source, notes string) bool {
	_, err := e.quarantine.ResolveQuarantine(ctx, orderID, string(source), notes)
	if errors.Is(err, store.ErrNotFound) {
		return false
	}
	if err != nil {
		metrics.ReconcileErrors.WithLabelValues("quarantine").Inc()
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to resolve quarantine record")
		return false
	}
	logging.Ctx(ctx).Info().Msg("Quarantine record resolved")
	return true
}

func (e *Engine) priorEntry(ctx context.Context, orderID string) (*models.LedgerEntry, error) {
	entry, err := e.ledger.GetLedgerEntry(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		metrics.ReconcileErrors.WithLabelValues("ledger").Inc()
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	return entry, nil
}

func (e *Engine) publish(ctx context.Context, source models.Source, res *Result) {
	event := models.ReconciliationEvent{
		EventID:          uuid.NewString(),
		OrderID:          res.OrderID,
		Outcome:          res.Outcome,
		Source:           source,
		GatewayPaymentID: res.GatewayPaymentID,
		Amount:           res.Amount,
		Plan:             res.Plan,
		ResolvedBy:       res.ResolvedBy,
		Quarantined:      res.Quarantined,
		OccurredAt:       e.now().UTC(),
	}
	if err := e.publisher.Publish(ctx, event); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to publish reconciliation event")
	}
}

func settledResult(entry *models.LedgerEntry) *Result {
	return &Result{
		Outcome:          models.OutcomeAlreadySettled,
		OrderID:          entry.OrderID,
		OrderStatus:      models.OrderStatusPaid,
		PaymentStatus:    models.PaymentStatusSuccess,
		GatewayPaymentID: entry.GatewayPaymentID,
		Amount:           entry.Amount,
		Plan:             entry.Plan,
		UserType:         entry.UserType,
		ExpiryDate:       entry.ExpiryDate,
		ResolvedBy:       entry.ResolvedBy,
	}
}

func baseResult(outcome models.Outcome, snap *models.Snapshot) *Result {
	paymentStatus, _ := snap.NormalizedPaymentStatus()
	return &Result{
		Outcome:       outcome,
		OrderID:       snap.OrderID,
		OrderStatus:   snap.NormalizedOrderStatus(),
		PaymentStatus: paymentStatus,
		Amount:        snap.OrderAmount,
	}
}

// paymentIdentity picks the payment id, method and bank reference. A
// specific attempt wins over the order aggregate; with no attempt the
// gateway order id stands in for the payment id.
func paymentIdentity(snap *models.Snapshot, attempt *models.PaymentAttempt) (id, method, bankRef string) {
	if attempt != nil {
		id = attempt.CFPaymentID.String()
		method = attempt.PaymentMethod.String()
		bankRef = attempt.BankReference
	}
	if id == "" {
		id = snap.CFOrderID.String()
	}
	if method == "" {
		method = snap.Method()
	}
	if method == "" {
		method = defaultPaymentMethod
	}
	return id, strings.ToUpper(method), bankRef
}

func firstAttempt(snap *models.Snapshot) *models.PaymentAttempt {
	attempts := snap.Attempts()
	if len(attempts) == 0 {
		return nil
	}
	return &attempts[0]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
