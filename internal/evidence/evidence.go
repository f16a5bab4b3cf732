// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

// Package evidence stores files attached to quarantine tickets. Only the
// returned references are persisted with the record; the bytes live in a
// local directory or an S3-compatible bucket.
//
// Keys are content addressed per order:
//
//	<prefix><order id>/<sha256 prefix>-<sanitised file name>
//
// so uploading the same file twice for one order is a no-op.
package evidence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"path"
	"regexp"
	"strings"

	"github.com/tomtom215/paysync/internal/config"
	"github.com/tomtom215/paysync/internal/models"
)

// Default limits.
const (
	DefaultMaxFileBytes = 5 << 20
	DefaultMaxFiles     = models.MaxTicketEvidence
)

var (
	// ErrTooLarge is returned for a file over the size limit.
	ErrTooLarge = errors.New("evidence file too large")
	// ErrUnsupportedType is returned for content that is not an image or PDF.
	ErrUnsupportedType = errors.New("evidence must be an image or PDF")
	// ErrEmpty is returned for a zero-byte upload.
	ErrEmpty = errors.New("evidence file is empty")
	// ErrNotFound is returned by Get for an unknown key.
	ErrNotFound = errors.New("evidence not found")
)

var allowedTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// Store persists evidence bytes.
type Store interface {
	// Put stores data and returns its reference.
	Put(ctx context.Context, orderID, name string, data []byte) (models.Evidence, error)
	// Get returns the bytes for a key.
	Get(ctx context.Context, key string) ([]byte, error)
	// Backend names the implementation for metrics.
	Backend() string
}

// New builds the store cfg selects.
func New(ctx context.Context, cfg *config.EvidenceConfig) (Store, error) {
	limits := Limits{MaxFileBytes: cfg.MaxFileBytes}
	switch cfg.Backend {
	case "", "local":
		return NewFileStore(cfg.LocalDir, cfg.PublicBaseURL, limits)
	case "s3":
		return NewS3Store(ctx, S3Config{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			Prefix:        cfg.S3Prefix,
			PublicBaseURL: cfg.PublicBaseURL,
		}, limits)
	default:
		return nil, fmt.Errorf("unsupported evidence backend: %s", cfg.Backend)
	}
}

// Limits bounds a single upload.
type Limits struct {
	MaxFileBytes int64
}

func (l Limits) maxBytes() int64 {
	if l.MaxFileBytes <= 0 {
		return DefaultMaxFileBytes
	}
	return l.MaxFileBytes
}

// Check validates data and returns its sniffed content type.
func (l Limits) Check(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmpty
	}
	if int64(len(data)) > l.maxBytes() {
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(data), l.maxBytes())
	}
	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	if !allowedTypes[ct] {
		return "", fmt.Errorf("%w: got %s", ErrUnsupportedType, ct)
	}
	return ct, nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeName reduces a client file name to a safe key segment.
func SanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeName.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "file"
	}
	if len(name) > 64 {
		name = name[len(name)-64:]
	}
	return name
}

// ObjectKey returns the content-addressed key for data.
func ObjectKey(prefix, orderID, name string, data []byte) string {
	sum := sha256.Sum256(data)
	return prefix + SanitizeName(orderID) + "/" + hex.EncodeToString(sum[:8]) + "-" + SanitizeName(name)
}

func publicURL(base, key string) string {
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/" + key
}
