package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// Archiver persists run artifacts (summaries, ledger extracts) to object
// storage for audit retention. It runs strictly after the database commit;
// a failed upload is logged and never fails the run.
type Archiver struct {
	client Client
	bucket string
	region string
	logger *zap.Logger
}

// NewArchiver creates an archiver writing to the configured bucket.
func NewArchiver(client Client, cfg Config, logger *zap.Logger) *Archiver {
	return &Archiver{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		logger: logger,
	}
}

// Store marshals payload as JSON and uploads it under objectName,
// creating the bucket on first use.
func (a *Archiver) Store(ctx context.Context, objectName string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}

	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{Region: a.region}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		a.logger.Info("Created archive bucket", zap.String("bucket", a.bucket))
	}

	_, err = a.client.PutObject(ctx, a.bucket, objectName,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("failed to upload artifact: %w", err)
	}

	a.logger.Info("Archived run artifact",
		zap.String("bucket", a.bucket),
		zap.String("object", objectName),
		zap.Int("bytes", len(data)),
	)
	return nil
}
