package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/archivio-hq/collection-notifier/internal/domain"
)

// s3Client defines the minimal subset of the S3 client used by s3Store.
type s3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// s3Store keeps the seen set as one JSON document under a fixed bucket/key.
type s3Store struct {
	client s3Client
	bucket string
	key    string
}

func newS3Store(opts Options) *s3Store {
	return &s3Store{
		client: s3.NewFromConfig(opts.AWSConfig),
		bucket: opts.Bucket,
		key:    opts.Key,
	}
}

func (s *s3Store) Load(ctx context.Context) ([]domain.Record, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%s/%s: %w", s.bucket, s.key, ErrNotFound)
		}
		return nil, fmt.Errorf("get seen set object: %w", err)
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read seen set body: %w", err)
	}

	var records []domain.Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode seen set: %w", err)
	}
	return records, nil
}

func (s *s3Store) Save(ctx context.Context, records []domain.Record) error {
	if records == nil {
		records = []domain.Record{}
	}
	body, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode seen set: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put seen set object: %w", err)
	}
	return nil
}

func (s *s3Store) Close() error { return nil }
