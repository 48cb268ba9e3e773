package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/checkcells/checkcells/internal/config"
	"github.com/checkcells/checkcells/internal/log"
)

// StoredObject describes one persisted recording.
type StoredObject struct {
	Key          string    `json:"key"`
	URL          string    `json:"url"`
	SizeBytes    int64     `json:"sizeBytes"`
	LastModified time.Time `json:"lastModified"`
}

// S3Store uploads recordings to a bucket using the key scheme from
// ObjectKey.
type S3Store struct {
	client   *s3.Client
	bucket   string
	region   string
	endpoint string
	now      func() time.Time
}

// NewS3Store builds a store from static credentials. Call only when
// cfg.Configured() is true.
func NewS3Store(ctx context.Context, cfg config.S3Config) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:   client,
		bucket:   cfg.Bucket,
		region:   cfg.Region,
		endpoint: cfg.Endpoint,
		now:      time.Now,
	}, nil
}

// Bucket returns the configured bucket name.
func (s *S3Store) Bucket() string { return s.bucket }

// Put uploads one take and returns its key and public URL.
func (s *S3Store) Put(ctx context.Context, sampleID string, takeIndex int, data []byte, mimeType, ext string, metadata map[string]string) (StoredObject, error) {
	logger := log.WithContext(ctx, log.WithComponent("storage"))

	key := ObjectKey(sampleID, takeIndex, ext, s.now())
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mimeType),
		Metadata:    metadata,
	})
	if err != nil {
		return StoredObject{}, fmt.Errorf("storage: put %s: %w", key, err)
	}

	obj := StoredObject{
		Key:          key,
		URL:          s.URLForKey(key),
		SizeBytes:    int64(len(data)),
		LastModified: s.now(),
	}
	logger.Info().
		Str(log.FieldKey, key).
		Int64(log.FieldBytes, obj.SizeBytes).
		Msg("recording uploaded to object store")
	return obj, nil
}

// List returns all stored recordings for a sample, oldest key first.
func (s *S3Store) List(ctx context.Context, sampleID string) ([]StoredObject, error) {
	prefix := SamplePrefix(sampleID)

	var objects []StoredObject
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("storage: list %s: %w", prefix, err)
		}
		for _, item := range page.Contents {
			obj := StoredObject{
				Key:       aws.ToString(item.Key),
				SizeBytes: aws.ToInt64(item.Size),
			}
			obj.URL = s.URLForKey(obj.Key)
			if item.LastModified != nil {
				obj.LastModified = *item.LastModified
			}
			objects = append(objects, obj)
		}
	}
	return objects, nil
}

// URLForKey resolves the public URL of an object key, honoring a custom
// endpoint when one is configured.
func (s *S3Store) URLForKey(key string) string {
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(s.endpoint, "/"), s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
