// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package evidence

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/tomtom215/paysync/internal/models"
)

// S3Config configures S3Store.
type S3Config struct {
	Bucket string
	Region string
	// Endpoint is an optional custom endpoint for MinIO or LocalStack.
	Endpoint      string
	Prefix        string
	PublicBaseURL string
}

// S3Store keeps evidence in an S3 bucket. Credentials come from the default
// AWS chain (environment, shared config, instance role).
type S3Store struct {
	client  *s3.Client
	bucket  string
	prefix  string
	baseURL string
	limits  Limits
}

// NewS3Store creates the client. It does not contact the bucket.
func NewS3Store(ctx context.Context, cfg S3Config, limits Limits) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("evidence s3 bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  cfg.Prefix,
		baseURL: cfg.PublicBaseURL,
		limits:  limits,
	}, nil
}

// Backend returns "s3".
func (s *S3Store) Backend() string { return "s3" }

// Put uploads data unless an object with the same key already exists.
func (s *S3Store) Put(ctx context.Context, orderID, name string, data []byte) (models.Evidence, error) {
	contentType, err := s.limits.Check(data)
	if err != nil {
		return models.Evidence{}, err
	}

	key := ObjectKey(s.prefix, orderID, name, data)
	ref := models.Evidence{Key: key, Name: SanitizeName(name), Size: int64(len(data)), URL: publicURL(s.baseURL, key)}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return ref, nil
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
		Metadata:      map[string]string{"order-id": orderID},
	})
	if err != nil {
		return models.Evidence{}, fmt.Errorf("s3 put %s: %w", key, err)
	}
	return ref, nil
}

// Get downloads the object at key.
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("s3 get %s: %w", key, err)
	}
	defer func() { _ = out.Body.Close() }()

	return io.ReadAll(out.Body)
}

// EnsureBucket creates the bucket if it is missing. Used by local setups
// and integration tests.
func (s *S3Store) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	var owned *types.BucketAlreadyOwnedByYou
	if err != nil && !errors.As(err, &owned) {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
