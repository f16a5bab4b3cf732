// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package reconcile

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/paysync/internal/models"
)

// Entitlement lengths in months.
const (
	premiumMonths = 12
	silverMonths  = 6
)

// The gateway may HTML-escape the echoed note. &amp; is listed last so a
// literal "&amp;quot;" decodes once, not twice.
var noteUnescaper = strings.NewReplacer(
	"&quot;", `"`,
	"&#34;", `"`,
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
)

// Purchase is what the order note says was bought.
type Purchase struct {
	PlanType       models.PlanType
	PromoCode      string
	OriginalAmount float64
	Discount       float64
	Entitlement    models.Entitlement
}

// DecodePurchase recovers plan, promo code and pre-discount amount from the
// snapshot's order_note, falling back to order_tags. Unparseable metadata
// yields a silver purchase at the charged amount.
func DecodePurchase(snap *models.Snapshot) Purchase {
	note, ok := decodeNote(snap.OrderNote)
	if !ok {
		note = noteFromTags(snap.OrderTags)
	}

	p := Purchase{
		PlanType:       note.PlanType,
		OriginalAmount: snap.OrderAmount,
	}
	if note.PromoCode != nil {
		p.PromoCode = strings.ToUpper(strings.TrimSpace(*note.PromoCode))
	}
	if note.OriginalAmount != nil && *note.OriginalAmount > 0 {
		p.OriginalAmount = *note.OriginalAmount
	}
	if p.PromoCode != "" {
		p.Discount = math.Max(0, roundCents(p.OriginalAmount-snap.OrderAmount))
	}
	p.Entitlement = EntitlementFor(p.PlanType)
	return p
}

func decodeNote(raw *string) (models.OrderNote, bool) {
	var note models.OrderNote
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return note, false
	}
	text := noteUnescaper.Replace(strings.TrimSpace(*raw))
	if err := json.Unmarshal([]byte(text), &note); err != nil {
		return models.OrderNote{}, false
	}
	return note, true
}

func noteFromTags(tags map[string]string) models.OrderNote {
	var note models.OrderNote
	if len(tags) == 0 {
		return note
	}
	note.PlanType = models.PlanType(tags["planType"])
	if code := tags["promocode"]; code != "" {
		note.PromoCode = models.StringPtr(code)
	}
	if v, err := strconv.ParseFloat(tags["originalAmount"], 64); err == nil {
		note.OriginalAmount = models.Float64Ptr(v)
	}
	return note
}

// EntitlementFor maps a plan type to its tier and length. Anything other
// than premium is silver.
func EntitlementFor(plan models.PlanType) models.Entitlement {
	if strings.EqualFold(string(plan), string(models.PlanTypePremium)) {
		return models.Entitlement{Tier: models.TierPremium, UserType: models.UserTypePaidPremium, Months: premiumMonths}
	}
	return models.Entitlement{Tier: models.TierSilver, UserType: models.UserTypePaidSilver, Months: silverMonths}
}

// ExtendExpiry adds months to the later of now and the current expiry, so a
// renewal before expiry keeps the remaining days.
func ExtendExpiry(current *time.Time, now time.Time, months int) time.Time {
	base := now
	if current != nil && current.After(now) {
		base = *current
	}
	return base.AddDate(0, months, 0)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
