// Package archive mirrors local backups to an S3-compatible bucket.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrNoBucket is returned when no bucket is configured.
var ErrNoBucket = errors.New("archive bucket required")

// Environment variables read by FromEnv:
//   SRCPATCH_ARCHIVE_REGION=<region> (default us-east-1)
//   SRCPATCH_ARCHIVE_ENDPOINT=<url> (optional, e.g. MinIO)
//   SRCPATCH_ARCHIVE_PATH_STYLE=true|false
// Credentials come from the default AWS chain.

// Config holds the bucket location.
type Config struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	PathStyle bool
}

// FromEnv fills the optional connection fields of cfg from the environment.
func FromEnv(cfg Config) Config {
	if cfg.Region == "" {
		cfg.Region = os.Getenv("SRCPATCH_ARCHIVE_REGION")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = os.Getenv("SRCPATCH_ARCHIVE_ENDPOINT")
	}
	if !cfg.PathStyle {
		cfg.PathStyle = strings.EqualFold(os.Getenv("SRCPATCH_ARCHIVE_PATH_STYLE"), "true")
	}
	return cfg
}

// PutObjectAPI is the subset of the S3 client the archiver needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver uploads backups as objects named <prefix>/<backup file name>.
type S3Archiver struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// New creates an archiver using the default AWS configuration chain.
func New(ctx context.Context, cfg Config) (*S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, ErrNoBucket
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client PutObjectAPI, bucket, prefix string) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key used for backupPath.
func (a *S3Archiver) Key(backupPath string) string {
	name := filepath.Base(backupPath)
	if a.prefix == "" {
		return name
	}
	return path.Join(a.prefix, name)
}

// Location returns the s3:// URI of backupPath's archived copy.
func (a *S3Archiver) Location(backupPath string) string {
	return "s3://" + a.bucket + "/" + a.Key(backupPath)
}

// Archive uploads content under the key derived from backupPath.
func (a *S3Archiver) Archive(ctx context.Context, backupPath string, content []byte) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(a.Key(backupPath)),
		Body:        bytes.NewReader(content),
		ContentType: aws.String("text/plain; charset=utf-8"),
		Metadata:    map[string]string{"source-path": backupPath},
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", a.bucket, a.Key(backupPath), err)
	}
	return nil
}
