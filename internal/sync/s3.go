package sync

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Destination writes form exports to an S3-compatible bucket: a dated
// snapshot under prefix/snapshots/ and a copy at prefix/latest.jsonl.
type S3Destination struct {
	client *s3.Client
	bucket string
	prefix string
	now    func() time.Time
}

// NewS3Destination creates an S3 destination. If endpoint is non-empty,
// path-style addressing is enabled (for MinIO and similar).
func NewS3Destination(ctx context.Context, bucket, prefix, region, endpoint string) (*S3Destination, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3opts []func(*s3.Options)
	if endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Destination{
		client: s3.NewFromConfig(cfg, s3opts...),
		bucket: bucket,
		prefix: prefix,
		now:    time.Now,
	}, nil
}

// Keys returns the snapshot and latest object keys for an export taken at t.
func (d *S3Destination) Keys(t time.Time) (snapshot, latest string) {
	stamp := t.UTC().Format("20060102T150405Z")
	return path.Join(d.prefix, "snapshots", "forms-"+stamp+".jsonl"), path.Join(d.prefix, "latest.jsonl")
}

// Write uploads data as a new snapshot and replaces the latest copy.
func (d *S3Destination) Write(ctx context.Context, data []byte) error {
	snapshot, latest := d.Keys(d.now())
	for _, key := range []string{snapshot, latest} {
		if err := d.put(ctx, key, data); err != nil {
			return err
		}
	}
	return nil
}

func (d *S3Destination) put(ctx context.Context, key string, data []byte) error {
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("s3 put object %s: %w", key, err)
	}
	return nil
}
