// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/paysync/internal/models"
)

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printQuarantineTable(w io.Writer, records []models.QuarantineRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No quarantined orders.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tAMOUNT\tREASON\tGATEWAY\tSEEN\tSTATE\tCREATED")
	for i := range records {
		rec := &records[i]
		fmt.Fprintf(tw, "%s\t%.2f\t%s\t%s/%s\t%d\t%s\t%s\n",
			rec.OrderID,
			rec.Amount,
			rec.Reason,
			orDash(rec.GatewayOrderStatus),
			orDash(rec.GatewayPaymentStatus),
			rec.Observations,
			quarantineState(rec),
			rec.CreatedAt.UTC().Format(time.RFC3339),
		)
	}
	return tw.Flush()
}

func printQuarantineDetail(w io.Writer, rec *models.QuarantineRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Order:\t%s\n", rec.OrderID)
	fmt.Fprintf(tw, "Transaction:\t%s\n", orDash(rec.TransactionID))
	fmt.Fprintf(tw, "Amount:\t%.2f\n", rec.Amount)
	fmt.Fprintf(tw, "Customer:\t%s <%s> %s\n", orDash(rec.Customer.CustomerName), orDash(rec.Customer.CustomerEmail), rec.Customer.CustomerPhone)
	fmt.Fprintf(tw, "Account:\t%s\n", orDash(rec.AccountID))
	fmt.Fprintf(tw, "Reason:\t%s\n", rec.Reason)
	fmt.Fprintf(tw, "Gateway:\t%s / %s\n", orDash(rec.GatewayOrderStatus), orDash(rec.GatewayPaymentStatus))
	fmt.Fprintf(tw, "Observations:\t%d (last via %s)\n", rec.Observations, rec.Source)
	fmt.Fprintf(tw, "State:\t%s\n", quarantineState(rec))
	if rec.Resolved {
		fmt.Fprintf(tw, "Resolved by:\t%s\n", rec.ResolvedBy)
		fmt.Fprintf(tw, "Notes:\t%s\n", rec.ResolutionNotes)
	}
	if rec.Ticket != nil {
		fmt.Fprintf(tw, "Ticket:\t%s\n", rec.Ticket.Description)
		for _, ev := range rec.Ticket.Evidence {
			fmt.Fprintf(tw, "Evidence:\t%s (%d bytes) %s\n", ev.Name, ev.Size, ev.URL)
		}
		fmt.Fprintf(tw, "Admin notified:\t%t\n", rec.AdminNotified)
	}
	fmt.Fprintf(tw, "Created:\t%s\n", rec.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(tw, "Updated:\t%s\n", rec.UpdatedAt.UTC().Format(time.RFC3339))
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(rec.Snapshot) > 0 {
		fmt.Fprintln(w, "\nGateway snapshot:")
		var pretty interface{}
		if err := json.Unmarshal(rec.Snapshot, &pretty); err != nil {
			_, err = fmt.Fprintln(w, string(rec.Snapshot))
			return err
		}
		return printJSON(w, pretty)
	}
	return nil
}

func printStatus(w io.Writer, orderID string, resp *models.StatusResponse) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Order:\t%s\n", orderID)
	fmt.Fprintf(tw, "Success:\t%t\n", resp.Success)
	fmt.Fprintf(tw, "Gateway:\t%s / %s\n", orDash(resp.OrderStatus), orDash(resp.PaymentStatus))
	if resp.Outcome != "" {
		fmt.Fprintf(tw, "Outcome:\t%s\n", resp.Outcome)
	}
	if resp.TransactionID != "" {
		fmt.Fprintf(tw, "Transaction:\t%s\n", resp.TransactionID)
	}
	if resp.Amount != nil {
		fmt.Fprintf(tw, "Amount:\t%.2f\n", *resp.Amount)
	}
	if resp.AlreadyProcessed {
		fmt.Fprintln(tw, "Already processed:\ttrue")
	}
	if resp.Message != "" {
		fmt.Fprintf(tw, "Message:\t%s\n", resp.Message)
	}
	return tw.Flush()
}

func printLedgerEntry(w io.Writer, e *models.LedgerEntry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Order:\t%s (seq %d)\n", e.OrderID, e.Sequence)
	fmt.Fprintf(tw, "Outcome:\t%s\n", e.Outcome)
	fmt.Fprintf(tw, "Payment:\t%s via %s\n", orDash(e.GatewayPaymentID), orDash(e.PaymentMethod))
	fmt.Fprintf(tw, "Amount:\t%.2f (original %.2f, discount %.2f)\n", e.Amount, e.OriginalAmount, e.DiscountAmount)
	fmt.Fprintf(tw, "Account:\t%s (%s, %s)\n", orDash(e.AccountID), e.Plan, e.UserType)
	if e.PromoCode != "" {
		fmt.Fprintf(tw, "Promo:\t%s\n", e.PromoCode)
	}
	if e.ExpiryDate != nil {
		fmt.Fprintf(tw, "Expires:\t%s\n", e.ExpiryDate.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(tw, "Source:\t%s\n", e.Source)
	fmt.Fprintf(tw, "Created:\t%s\n", e.CreatedAt.UTC().Format(time.RFC3339))
	return tw.Flush()
}

func quarantineState(rec *models.QuarantineRecord) string {
	switch {
	case rec.Resolved:
		return "resolved"
	case rec.TicketRaised:
		return "ticket"
	default:
		return "open"
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
