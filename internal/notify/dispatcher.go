// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package notify

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/paysync/internal/config"
	"github.com/tomtom215/paysync/internal/logging"
	"github.com/tomtom215/paysync/internal/metrics"
	"github.com/tomtom215/paysync/internal/models"
)

const defaultTimeout = 10 * time.Second

// Dispatcher renders notices and fans them out to every channel.
type Dispatcher struct {
	channels     []Channel
	timeout      time.Duration
	adminAddress string
}

// NewDispatcher creates a dispatcher over channels. A non-positive timeout
// uses 10 seconds.
func NewDispatcher(timeout time.Duration, adminAddress string, channels ...Channel) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Dispatcher{channels: channels, timeout: timeout, adminAddress: adminAddress}
}

// FromConfig builds the dispatcher with the channels cfg enables.
func FromConfig(cfg *config.NotifyConfig, client *http.Client) *Dispatcher {
	var channels []Channel
	if cfg.Email.Enabled {
		channels = append(channels, NewEmailChannel(cfg.Email))
	}
	if cfg.Webhook.Enabled {
		channels = append(channels, NewWebhookChannel(cfg.Webhook, client))
	}
	return NewDispatcher(cfg.Timeout, cfg.AdminAddress, channels...)
}

// Channels returns the configured channel names.
func (d *Dispatcher) Channels() []string {
	names := make([]string, 0, len(d.channels))
	for _, ch := range d.channels {
		names = append(names, ch.Name())
	}
	return names
}

// PaymentSucceeded tells the customer their plan is active.
func (d *Dispatcher) PaymentSucceeded(ctx context.Context, n models.PaymentNotice) error {
	msg, err := PaymentMessage(n)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to render payment notice")
		return nil
	}
	d.deliver(ctx, msg)
	return nil
}

// ReferralCredited tells the promoter about a new credit.
func (d *Dispatcher) ReferralCredited(ctx context.Context, n models.ReferralNotice) error {
	msg, err := ReferralMessage(n)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to render referral notice")
		return nil
	}
	d.deliver(ctx, msg)
	return nil
}

// TicketRaised alerts support about a quarantine ticket. It reports whether
// at least one channel accepted the alert so the caller can set the
// record's admin-notified flag.
func (d *Dispatcher) TicketRaised(ctx context.Context, rec *models.QuarantineRecord) bool {
	msg, err := TicketMessage(d.adminAddress, rec)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to render ticket alert")
		return false
	}
	return d.deliver(ctx, msg) > 0
}

// deliver sends msg on every channel and returns how many accepted it.
func (d *Dispatcher) deliver(ctx context.Context, msg *Message) int {
	delivered := 0
	for _, ch := range d.channels {
		sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
		err := ch.Send(sendCtx, msg)
		cancel()

		if errors.Is(err, ErrNoRecipient) {
			logging.Ctx(ctx).Debug().Str("channel", ch.Name()).Str("kind", msg.Kind).Msg("Notice has no recipient for channel")
			continue
		}
		metrics.RecordNotification(ch.Name(), msg.Kind, err)
		if err != nil {
			logging.Ctx(ctx).Warn().
				Err(err).
				Str("channel", ch.Name()).
				Str("kind", msg.Kind).
				Str("recipient", logging.MaskEmail(msg.To)).
				Msg("Notification delivery failed")
			continue
		}
		delivered++
	}
	return delivered
}
