// Package archive stores a copy of each raw upload in S3.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/healthradar/internal/config"
	"github.com/kiranshivaraju/healthradar/pkg/models"
)

// PutObjectAPI is the slice of the S3 client the archiver needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver implements ingest.Archiver.
type S3Archiver struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// New builds an archiver from the default AWS credential chain. When
// EndpointURL is set (LocalStack) requests use path-style addressing.
func New(ctx context.Context, cfg config.ArchiveConfig) (*S3Archiver, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
		}
	})

	return NewWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewWithClient wraps an existing S3 client.
func NewWithClient(client PutObjectAPI, bucket, prefix string) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Archive uploads data under ObjectKey. It does nothing when no bucket is set.
func (a *S3Archiver) Archive(ctx context.Context, municipality string, batch int, uploadID uuid.UUID, data []byte) error {
	if a == nil || a.bucket == "" {
		return nil
	}

	key := ObjectKey(a.prefix, municipality, batch, uploadID)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/csv"),
		Metadata: map[string]string{
			"municipality": municipality,
			"batch-number": fmt.Sprint(batch),
		},
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", a.bucket, key, err)
	}

	slog.Debug("upload archived", "bucket", a.bucket, "key", key, "bytes", len(data))
	return nil
}

// ObjectKey returns {prefix}/{municipality}/{batch}-{uploadID}.csv with the
// municipality normalized and spaces replaced by underscores.
func ObjectKey(prefix, municipality string, batch int, uploadID uuid.UUID) string {
	m := strings.ReplaceAll(models.NormalizeMunicipality(municipality), " ", "_")
	if m == "" {
		m = "unknown"
	}
	name := fmt.Sprintf("%s/%d-%s.csv", m, batch, uploadID)
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
