// Package s3 stores uploaded photos in an S3-compatible bucket (MinIO, AWS S3).
package s3

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/citysnap/gateway/internal/storage/imagecheck"
)

const keyPrefix = "uploads"

// Config holds the bucket connection settings.
type Config struct {
	Endpoint      string // host[:port], no scheme
	AccessKey     string
	SecretKey     string
	Bucket        string
	Region        string
	UseSSL        bool
	PublicBaseURL string // when set, returned paths are <PublicBaseURL>/<key>
	MaxBytes      int64
}

// Store writes images as uploads/<yyyy>/<mm>/<uuid>.<ext>.
type Store struct {
	client     *minio.Client
	bucket     string
	region     string
	publicBase string
	maxBytes   int64
	now        func() time.Time
	logger     *zap.Logger
}

// New creates an S3 store. It does not touch the network; call EnsureBucket at startup.
func New(cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("endpoint and bucket are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	return &Store{
		client:     client,
		bucket:     cfg.Bucket,
		region:     cfg.Region,
		publicBase: strings.TrimRight(cfg.PublicBaseURL, "/"),
		maxBytes:   cfg.MaxBytes,
		now:        time.Now,
		logger:     logger,
	}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("create bucket %q: %w", s.bucket, err)
	}
	s.logger.Info("Created upload bucket", zap.String("bucket", s.bucket))
	return nil
}

// Ping reports whether the bucket is reachable.
func (s *Store) Ping(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", s.bucket, err)
	}
	if !exists {
		return fmt.Errorf("bucket %q does not exist", s.bucket)
	}
	return nil
}

// Store validates and uploads an image, returning its public URL or s3:// reference.
func (s *Store) Store(ctx context.Context, data []byte) (string, error) {
	format, err := imagecheck.Detect(data, s.maxBytes)
	if err != nil {
		return "", err
	}

	key := s.objectKey(format.Ext)
	_, err = s.client.PutObject(
		ctx,
		s.bucket,
		key,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{ContentType: format.ContentType},
	)
	if err != nil {
		return "", fmt.Errorf("put object %q: %w", key, err)
	}

	s.logger.Debug("Image uploaded", zap.String("bucket", s.bucket), zap.String("key", key))
	return s.location(key), nil
}

// Delete removes an object by the location Store returned. Removing a
// missing object succeeds.
func (s *Store) Delete(ctx context.Context, location string) error {
	key, ok := s.keyOf(location)
	if !ok {
		return fmt.Errorf("delete image: %q is not in bucket %q", location, s.bucket)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %q: %w", key, err)
	}
	s.logger.Debug("Image removed", zap.String("bucket", s.bucket), zap.String("key", key))
	return nil
}

func (s *Store) objectKey(ext string) string {
	now := s.now().UTC()
	return fmt.Sprintf("%s/%04d/%02d/%s.%s", keyPrefix, now.Year(), int(now.Month()), uuid.NewString(), ext)
}

func (s *Store) location(key string) string {
	if s.publicBase != "" {
		return s.publicBase + "/" + key
	}
	return "s3://" + s.bucket + "/" + key
}

// keyOf is the inverse of location.
func (s *Store) keyOf(location string) (string, bool) {
	prefix := "s3://" + s.bucket + "/"
	if s.publicBase != "" {
		prefix = s.publicBase + "/"
	}
	key, ok := strings.CutPrefix(location, prefix)
	if !ok || !strings.HasPrefix(key, keyPrefix+"/") {
		return "", false
	}
	return key, true
}
