// Package s3 stores evaluation records in an S3-compatible bucket.
package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "github.com/maraichr/sqlshape/internal/config"
	"github.com/maraichr/sqlshape/pkg/models"
)

type Client struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewClient works with both AWS S3 and S3-compatible endpoints. The
// record prefix is joined under cfg.Prefix.
func NewClient(ctx context.Context, cfg appconfig.S3Config, prefix string) (*Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = &cfg.Endpoint
			o.UsePathStyle = true
		}
	})

	return &Client{client: client, bucket: cfg.Bucket, prefix: path.Join(cfg.Prefix, prefix)}, nil
}

func (c *Client) SaveRecord(ctx context.Context, r *models.Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	key := r.ObjectKey(c.prefix)
	_, err = c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &c.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put record %s: %w", key, err)
	}
	return nil
}

func (c *Client) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &c.bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	return resp.Body, nil
}
