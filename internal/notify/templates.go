// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"io"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/tomtom215/paysync/internal/models"
)

const paymentSubject = `Payment received for order {{.OrderID}}`

const paymentText = `Hi {{or .Name "there"}},

We received your payment for order {{.OrderID}}.

Plan:        {{plan .Plan}}
Amount paid: {{money .Amount}}
{{- if .PromoCode}}
Promo code:  {{.PromoCode}} (you saved {{money .DiscountAmount}} on {{money .OriginalAmount}})
{{- end}}
Valid until: {{date .ExpiryDate}}
Payment ID:  {{.GatewayPaymentID}}

Thank you.
`

const paymentHTML = `<!DOCTYPE html>
<html><body style="font-family:sans-serif">
<p>Hi {{or .Name "there"}},</p>
<p>We received your payment for order <strong>{{.OrderID}}</strong>.</p>
<table cellpadding="4">
<tr><td>Plan</td><td>{{plan .Plan}}</td></tr>
<tr><td>Amount paid</td><td>{{money .Amount}}</td></tr>
{{- if .PromoCode}}
<tr><td>Promo code</td><td>{{.PromoCode}} (you saved {{money .DiscountAmount}} on {{money .OriginalAmount}})</td></tr>
{{- end}}
<tr><td>Valid until</td><td>{{date .ExpiryDate}}</td></tr>
<tr><td>Payment ID</td><td>{{.GatewayPaymentID}}</td></tr>
</table>
<p>Thank you.</p>
</body></html>
`

const referralSubject = `Your referral code {{.PromoCode}} was used`

const referralText = `Hi {{or .PromoterName "there"}},

Someone subscribed with your code {{.PromoCode}} (order {{.OrderID}}).
A referral credit of {{.Amount}} is now pending for you.
`

const ticketSubject = `Payment ticket raised for order {{.OrderID}}`

const ticketText = `A customer raised a ticket for quarantined order {{.OrderID}}.

Reason:         {{.Reason}}
Transaction ID: {{or .TransactionID "-"}}
Amount:         {{money .Amount}}
Gateway status: {{.GatewayOrderStatus}} / {{or .GatewayPaymentStatus "-"}}
{{- with .Ticket}}

Description:
{{.Description}}
{{range .Evidence}}
Evidence: {{.Name}} {{.URL}}
{{- end}}
{{- end}}
`

var funcs = map[string]any{
	"money": func(v float64) string { return fmt.Sprintf("₹%.2f", v) },
	"date": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("2 Jan 2006")
	},
	"plan": func(t models.Tier) string {
		return strings.TrimSuffix(string(t), "User")
	},
}

var (
	paymentSubjectTmpl  = texttemplate.Must(texttemplate.New("payment_subject").Funcs(funcs).Parse(paymentSubject))
	paymentTextTmpl     = texttemplate.Must(texttemplate.New("payment_text").Funcs(funcs).Parse(paymentText))
	paymentHTMLTmpl     = htmltemplate.Must(htmltemplate.New("payment_html").Funcs(funcs).Parse(paymentHTML))
	referralSubjectTmpl = texttemplate.Must(texttemplate.New("referral_subject").Funcs(funcs).Parse(referralSubject))
	referralTextTmpl    = texttemplate.Must(texttemplate.New("referral_text").Funcs(funcs).Parse(referralText))
	ticketSubjectTmpl   = texttemplate.Must(texttemplate.New("ticket_subject").Funcs(funcs).Parse(ticketSubject))
	ticketTextTmpl      = texttemplate.Must(texttemplate.New("ticket_text").Funcs(funcs).Parse(ticketText))
)

// template is satisfied by both text and html templates.
type template interface {
	Name() string
	Execute(w io.Writer, data any) error
}

func execute(t template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// PaymentMessage renders the customer confirmation.
func PaymentMessage(n models.PaymentNotice) (*Message, error) {
	subject, err := execute(paymentSubjectTmpl, n)
	if err != nil {
		return nil, err
	}
	text, err := execute(paymentTextTmpl, n)
	if err != nil {
		return nil, err
	}
	html, err := execute(paymentHTMLTmpl, n)
	if err != nil {
		return nil, err
	}
	return &Message{
		Kind:    KindPaymentSuccess,
		To:      n.Email,
		ToName:  n.Name,
		Subject: strings.TrimSpace(subject),
		Text:    text,
		HTML:    html,
		Data:    n,
	}, nil
}

// ReferralMessage renders the promoter notice.
func ReferralMessage(n models.ReferralNotice) (*Message, error) {
	subject, err := execute(referralSubjectTmpl, n)
	if err != nil {
		return nil, err
	}
	text, err := execute(referralTextTmpl, n)
	if err != nil {
		return nil, err
	}
	return &Message{
		Kind:    KindReferralCredit,
		To:      n.PromoterEmail,
		ToName:  n.PromoterName,
		Subject: strings.TrimSpace(subject),
		Text:    text,
		Data:    n,
	}, nil
}

// TicketMessage renders the support alert for a quarantine ticket.
func TicketMessage(to string, rec *models.QuarantineRecord) (*Message, error) {
	subject, err := execute(ticketSubjectTmpl, rec)
	if err != nil {
		return nil, err
	}
	text, err := execute(ticketTextTmpl, rec)
	if err != nil {
		return nil, err
	}
	// The raw snapshot stays out of the outbound payload.
	data := *rec
	data.Snapshot = nil
	return &Message{
		Kind:    KindQuarantineTicket,
		To:      to,
		Subject: strings.TrimSpace(subject),
		Text:    text,
		Data:    data,
	}, nil
}
