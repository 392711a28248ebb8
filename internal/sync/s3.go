package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultSnapshotKey is the object key used when S3Options.Key is empty.
const DefaultSnapshotKey = "eventdesk/events.jsonl"

const snapshotContentType = "application/x-ndjson"

// S3Options locates the snapshot object.
type S3Options struct {
	Bucket string
	Key    string // leading slashes are ignored
	Region string
	// Endpoint overrides the AWS endpoint (MinIO, localstack). Requests
	// then use path-style addressing.
	Endpoint string
}

// S3Destination uploads each snapshot over the same object, so the bucket
// always holds the latest copy of the events table.
type S3Destination struct {
	client *s3.Client
	bucket string
	key    string
}

// NewS3Destination builds an S3 client from the default AWS credential
// chain and opts.
func NewS3Destination(ctx context.Context, opts S3Options) (*S3Destination, error) {
	if opts.Bucket == "" {
		return nil, errors.New("s3 destination: bucket is required")
	}
	key := strings.TrimLeft(opts.Key, "/")
	if key == "" {
		key = DefaultSnapshotKey
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("s3 destination: load AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Destination{client: client, bucket: opts.Bucket, key: key}, nil
}

// String names the destination in logs.
func (d *S3Destination) String() string {
	return fmt.Sprintf("s3://%s/%s", d.bucket, d.key)
}

// Write replaces the snapshot object with data.
func (d *S3Destination) Write(ctx context.Context, data []byte) error {
	in := &s3.PutObjectInput{
		Bucket:        aws.String(d.bucket),
		Key:           aws.String(d.key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(snapshotContentType),
	}
	if _, err := d.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("upload %s: %w", d, err)
	}
	return nil
}
