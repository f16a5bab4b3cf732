// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

// Package testinfra provides test infrastructure for integration testing with containers.
//
// This package uses testcontainers-go to manage Docker containers for integration tests.
// Everything here is behind the integration build tag:
//
//	go test -tags integration ./internal/directory/... ./internal/evidence/...
//
// # Postgres
//
//	pg, err := testinfra.NewPostgresContainer(ctx)
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer testinfra.CleanupContainer(t, ctx, pg)
//	dir, err := directory.Open(ctx, directory.Config{Driver: "postgres", DSN: pg.DSN, AutoMigrate: true})
//
// # MinIO
//
// MinIOContainer serves the S3 API used by the evidence store.
package testinfra
