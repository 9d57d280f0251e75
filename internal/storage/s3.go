// Package storage archives uploaded CSV files to S3 so an import can be
// audited or replayed after the fact.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/hunterai/recruit-engine/internal/config"
)

// ArchiveStore persists raw import files in S3.
type ArchiveStore struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewArchiveStore creates a store from the storage configuration. Static
// credentials are used when present; otherwise the default AWS chain
// applies (instance role on ECS, shared config locally).
func NewArchiveStore(ctx context.Context, cfg config.StorageConfig) (*ArchiveStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &ArchiveStore{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// archiveKey builds the object key for one upload, partitioned by date
// so the bucket stays browsable.
func (s *ArchiveStore) archiveKey(jobID, filename string) string {
	name := path.Base(filename)
	if name == "" || name == "." || name == "/" {
		name = "upload.csv"
	}
	key := fmt.Sprintf("imports/%s/%s-%s", time.Now().UTC().Format("2006/01/02"), jobID, name)
	if s.prefix != "" {
		key = s.prefix + "/" + key
	}
	return key
}

// Archive stores the raw file bytes and returns the object key.
func (s *ArchiveStore) Archive(ctx context.Context, jobID, filename string, data []byte) (string, error) {
	key := s.archiveKey(jobID, filename)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/csv"),
		Metadata: map[string]string{
			"import-job-id": jobID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("putting object to S3: %w", err)
	}

	return key, nil
}

// Fetch retrieves an archived file by its object key.
func (s *ArchiveStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("getting object from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("reading S3 object body: %w", err)
	}
	return data, nil
}

// Delete removes an archived file, used when an import is purged.
func (s *ArchiveStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("deleting object from S3: %w", err)
	}
	return nil
}

// ListArchived lists object keys for imports archived on a given day.
func (s *ArchiveStore) ListArchived(ctx context.Context, day time.Time) ([]string, error) {
	prefix := fmt.Sprintf("imports/%s/", day.UTC().Format("2006/01/02"))
	if s.prefix != "" {
		prefix = s.prefix + "/" + prefix
	}

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing S3 objects: %w", err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, *obj.Key)
		}
	}
	return keys, nil
}
