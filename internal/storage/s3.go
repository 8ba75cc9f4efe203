package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"doorman/internal/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const defaultRegion = "us-east-1"

// S3Config holds configuration for the S3 client.
type S3Config struct {
	Bucket    string // bucket that receives the artifacts
	Prefix    string // optional key prefix
	Region    string // AWS region (default: us-east-1)
	Endpoint  string // custom endpoint for S3-compatible storage (MinIO, etc.)
	AccessKey string // optional, default credential chain when empty
	SecretKey string
}

// putObjectAPI is the slice of *s3.Client the uploader needs.
type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader puts public-read objects into one bucket.
type S3Uploader struct {
	client putObjectAPI
	config S3Config
	log    *logger.Logger
}

// NewS3Uploader loads AWS configuration and builds the client.
func NewS3Uploader(ctx context.Context, cfg S3Config, log *logger.Logger) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("S3 bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = defaultRegion
	}
	if log == nil {
		log = logger.Nop()
	}

	var opts []func(*config.LoadOptions) error
	opts = append(opts, config.WithRegion(cfg.Region))
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	log.Infow("s3_uploader_initialized", "bucket", cfg.Bucket, "region", cfg.Region, "endpoint", cfg.Endpoint)

	return &S3Uploader{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		config: cfg,
		log:    log,
	}, nil
}

func (u *S3Uploader) fullKey(key string) string {
	if u.config.Prefix == "" {
		return key
	}
	return strings.TrimSuffix(u.config.Prefix, "/") + "/" + strings.TrimPrefix(key, "/")
}

// Upload puts body under key with a public-read ACL.
func (u *S3Uploader) Upload(ctx context.Context, key string, body []byte, contentType string) error {
	fullKey := u.fullKey(key)
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.config.Bucket),
		Key:         aws.String(fullKey),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", u.config.Bucket, fullKey, err)
	}
	u.log.Debugw("s3_object_uploaded", "bucket", u.config.Bucket, "key", fullKey, "bytes", len(body))
	return nil
}
