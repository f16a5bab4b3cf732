// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

// Package main is paysyncctl, the operator CLI for a Paysync server.
//
//	paysyncctl quarantine list --open
//	paysyncctl quarantine show ORD-1
//	paysyncctl quarantine resolve ORD-1 --notes "refunded at the bank"
//	paysyncctl orders status ORD-1
//	paysyncctl orders retry ORD-1
//	paysyncctl ledger show ORD-1
//
// Admin commands log in with --user/--password (or PAYSYNC_USER and
// PAYSYNC_PASSWORD) unless --token or PAYSYNC_TOKEN is given.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var version = "dev"

type globalOptions struct {
	server   string
	token    string
	username string
	password string
	timeout  time.Duration
	json     bool
}

func (o *globalOptions) client() *Client {
	return NewClient(o.server, o.token, o.username, o.password, o.timeout)
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "paysyncctl",
		Short:         "Operate a Paysync payment reconciliation server",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.server, "server", "s", envOr("PAYSYNC_SERVER", "http://localhost:3000"), "Paysync base URL")
	flags.StringVar(&opts.token, "token", os.Getenv("PAYSYNC_TOKEN"), "Admin bearer token")
	flags.StringVarP(&opts.username, "user", "u", os.Getenv("PAYSYNC_USER"), "Admin username")
	flags.StringVarP(&opts.password, "password", "p", os.Getenv("PAYSYNC_PASSWORD"), "Admin password")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "Request timeout")
	flags.BoolVar(&opts.json, "json", false, "Print raw JSON")

	cmd.AddCommand(loginCmd(opts))
	cmd.AddCommand(quarantineCmd(opts))
	cmd.AddCommand(ordersCmd(opts))
	cmd.AddCommand(ledgerCmd(opts))
	return cmd
}

func loginCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Print an admin token for use with --token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := opts.client().Login(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}

func quarantineCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "quarantine",
		Aliases: []string{"q"},
		Short:   "Inspect and resolve quarantined orders",
	}

	var (
		open     bool
		resolved bool
		limit    int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List quarantined orders, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if open && resolved {
				return fmt.Errorf("--open and --resolved are mutually exclusive")
			}
			var filter *bool
			switch {
			case open:
				f := false
				filter = &f
			case resolved:
				t := true
				filter = &t
			}
			records, err := opts.client().ListQuarantine(cmd.Context(), filter, limit)
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), records)
			}
			return printQuarantineTable(cmd.OutOrStdout(), records)
		},
	}
	list.Flags().BoolVar(&open, "open", false, "Only unresolved records")
	list.Flags().BoolVar(&resolved, "resolved", false, "Only resolved records")
	list.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum records (1-500)")

	show := &cobra.Command{
		Use:   "show ORDER_ID",
		Short: "Show one quarantined order with its gateway snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := opts.client().GetQuarantine(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), rec)
			}
			return printQuarantineDetail(cmd.OutOrStdout(), rec)
		},
	}

	var notes string
	resolve := &cobra.Command{
		Use:   "resolve ORDER_ID",
		Short: "Mark a quarantined order as handled",
		Long: `Mark a quarantined order as handled.

Resolving only closes the quarantine record. It never applies an
entitlement; settle the customer out of band first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if notes == "" {
				return fmt.Errorf("--notes is required")
			}
			rec, err := opts.client().ResolveQuarantine(cmd.Context(), args[0], notes)
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), rec)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s resolved by %s\n", rec.OrderID, rec.ResolvedBy)
			return nil
		},
	}
	resolve.Flags().StringVarP(&notes, "notes", "m", "", "Resolution notes")

	cmd.AddCommand(list, show, resolve)
	return cmd
}

func ordersCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Check and retry order reconciliation",
	}

	status := &cobra.Command{
		Use:   "status ORDER_ID",
		Short: "Report an order's payment status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.client().OrderStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			return printStatus(cmd.OutOrStdout(), args[0], resp)
		},
	}

	retry := &cobra.Command{
		Use:   "retry ORDER_ID",
		Short: "Re-fetch an order from the gateway and reconcile it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.client().RetryOrder(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			return printStatus(cmd.OutOrStdout(), args[0], resp)
		},
	}

	cmd.AddCommand(status, retry)
	return cmd
}

func ledgerCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect applied payments",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show ORDER_ID",
		Short: "Show the ledger entry for an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := opts.client().GetLedgerEntry(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), entry)
			}
			return printLedgerEntry(cmd.OutOrStdout(), entry)
		},
	})
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
