// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

//go:build integration

package evidence

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/paysync/internal/testinfra"
)

func TestS3StoreAgainstMinIO(t *testing.T) {
	testinfra.SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	minio, err := testinfra.NewMinIOContainer(ctx)
	if err != nil {
		t.Fatalf("start minio: %v", err)
	}
	defer testinfra.CleanupContainer(t, ctx, minio)

	t.Setenv("AWS_ACCESS_KEY_ID", testinfra.MinIOAccessKey)
	t.Setenv("AWS_SECRET_ACCESS_KEY", testinfra.MinIOSecretKey)

	s, err := NewS3Store(ctx, S3Config{Bucket: "evidence", Endpoint: minio.Endpoint, Prefix: "tickets/"}, Limits{})
	if err != nil {
		t.Fatalf("NewS3Store: %v", err)
	}
	if err := s.EnsureBucket(ctx); err != nil {
		t.Fatalf("EnsureBucket: %v", err)
	}

	ref, err := s.Put(ctx, "ORD-1", "receipt.png", pngBytes)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := s.Put(ctx, "ORD-1", "receipt.png", pngBytes); err != nil {
		t.Fatalf("second Put: %v", err)
	}

	got, err := s.Get(ctx, ref.Key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, pngBytes) {
		t.Error("expected stored bytes back")
	}
	if _, err := s.Get(ctx, "tickets/ORD-1/missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
