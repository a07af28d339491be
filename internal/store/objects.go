package store

import (
	"context"
	"fmt"
	"io"

	"github.com/maraichr/sqlshape/internal/config"
	minioclient "github.com/maraichr/sqlshape/internal/store/minio"
	s3client "github.com/maraichr/sqlshape/internal/store/s3"
	"github.com/maraichr/sqlshape/pkg/models"
)

// ObjectStore persists records and serves input files from a bucket.
type ObjectStore interface {
	SaveRecord(ctx context.Context, r *models.Record) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// NewObjectStore returns the object store selected by cfg.Records.Sink, or
// nil when the sink is "none".
func NewObjectStore(ctx context.Context, cfg *config.Config) (ObjectStore, error) {
	switch cfg.Records.Sink {
	case config.SinkMinIO:
		mc, err := minioclient.NewClient(cfg.MinIO, cfg.Records.Prefix)
		if err != nil {
			return nil, err
		}
		if err := mc.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("ensure bucket %s: %w", mc.Bucket(), err)
		}
		return mc, nil
	case config.SinkS3:
		sc, err := s3client.NewClient(ctx, cfg.S3, cfg.Records.Prefix)
		if err != nil {
			return nil, err
		}
		return sc, nil
	default:
		return nil, nil
	}
}
