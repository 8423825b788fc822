package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ErrMediaUnavailable is returned when an upload is attempted without a
// configured media backend.
var ErrMediaUnavailable = errors.New("media storage is not configured")

// MediaStore is the upload bridge: it forwards already-validated file bytes
// to an external S3-compatible host and returns a stable public URL. The
// caller attaches the URL to the owning document afterwards.
type MediaStore interface {
	Enabled() bool
	Upload(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// MediaConfig wires the S3-compatible media host.
type MediaConfig struct {
	Endpoint       string
	PublicEndpoint string
	Region         string
	Bucket         string
	AccessKey      string
	SecretKey      string
	KeyPrefix      string
}

// NewMediaStore builds the S3-backed media store, or a disabled placeholder
// when no bucket is configured.
func NewMediaStore(ctx context.Context, cfg MediaConfig) (MediaStore, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return disabledMediaStore{}, nil
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load media storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	public := strings.TrimRight(cfg.PublicEndpoint, "/")
	if public == "" {
		public = strings.TrimRight(cfg.Endpoint, "/")
	}
	if public == "" {
		return nil, errors.New("media storage requires an endpoint or public endpoint")
	}

	return &s3MediaStore{client: client, cfg: cfg, publicBase: public}, nil
}

type s3MediaStore struct {
	client     *s3.Client
	cfg        MediaConfig
	publicBase string
}

func (s *s3MediaStore) Enabled() bool { return true }

func (s *s3MediaStore) Upload(ctx context.Context, key, contentType string, body []byte) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("upload object %s: %w", key, err)
	}
	return fmt.Sprintf("%s/%s/%s", s.publicBase, s.cfg.Bucket, urlEscapeKey(key)), nil
}

type disabledMediaStore struct{}

func (disabledMediaStore) Enabled() bool { return false }

func (disabledMediaStore) Upload(context.Context, string, string, []byte) (string, error) {
	return "", ErrMediaUnavailable
}

// ObjectKey produces a collision-free storage key partitioned by date so
// buckets stay browsable.
func ObjectKey(prefix string) string {
	now := time.Now().UTC()
	key := fmt.Sprintf("%04d/%02d/%02d/%s", now.Year(), now.Month(), now.Day(), uuid.NewString())
	if prefix = strings.Trim(prefix, "/"); prefix != "" {
		key = prefix + "/" + key
	}
	return key
}

func urlEscapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
