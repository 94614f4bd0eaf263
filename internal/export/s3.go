package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"ride-simulator/internal/config"
	mmetrics "ride-simulator/internal/metrics"
)

var ErrUploadDisabled = errors.New("object storage not configured")

// PutObjectAPI is the part of *s3.Client the uploader needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Uploader struct {
	client  PutObjectAPI
	bucket  string
	metrics *mmetrics.Collector
}

// NewUploader wraps an existing client. m may be nil.
func NewUploader(client PutObjectAPI, bucket string, m *mmetrics.Collector) *Uploader {
	return &Uploader{client: client, bucket: bucket, metrics: m}
}

// NewS3Uploader builds a client for an S3-compatible endpoint from the
// S3_* settings.
func NewS3Uploader(cfg *config.Config, m *mmetrics.Collector) (*Uploader, error) {
	if !cfg.S3Enabled() {
		return nil, ErrUploadDisabled
	}
	endpoint := cfg.S3Endpoint
	client := s3.New(s3.Options{
		BaseEndpoint: &endpoint,
		Region:       cfg.S3Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, ""),
		UsePathStyle: true,
	})
	return NewUploader(client, cfg.S3Bucket, m), nil
}

// Key returns the object key for an export of ride in format f.
func Key(ride string, f Format) string {
	return path.Join("rides", keySafe(ride), "track."+f.Ext())
}

// Upload stores body under key. meta is attached as object metadata.
func (u *Uploader) Upload(ctx context.Context, key string, f Format, body []byte, meta map[string]string) error {
	md := map[string]string{
		"format": string(f),
		"bytes":  strconv.Itoa(len(body)),
	}
	for k, v := range meta {
		md[k] = v
	}

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(f.ContentType()),
		Metadata:    md,
	})
	if u.metrics != nil {
		result := "ok"
		if err != nil {
			result = "error"
		}
		u.metrics.Uploads.WithLabelValues(result).Inc()
	}
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	log.Printf("uploaded s3://%s/%s (%d bytes)", u.bucket, key, len(body))
	return nil
}

// keySafe keeps object keys free of separators coming from file names.
func keySafe(s string) string {
	out := []byte(s)
	for i, c := range out {
		switch c {
		case '/', '\\', ' ', '?', '#', '%':
			out[i] = '_'
		}
	}
	if len(out) == 0 {
		return "_"
	}
	return string(out)
}
