package storage

// Package storage persists the seen set between runs.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/archivio-hq/collection-notifier/internal/domain"
)

// ErrNotFound is returned by Load when no seen set has ever been saved.
// Callers decide whether that is fatal; the pipeline treats it as an empty set
// on the first run.
var ErrNotFound = errors.New("seen set not found")

// Store reads and overwrites the persisted seen set. There is exactly one
// writer by design, so Save is an unconditional overwrite.
type Store interface {
	Load(ctx context.Context) ([]domain.Record, error)
	Save(ctx context.Context, records []domain.Record) error
	Close() error
}

// Options carries backend-specific settings for NewStore.
type Options struct {
	// Key is the object key (s3) or bucket key (bbolt) holding the JSON document.
	Key string

	// S3 backend.
	Bucket    string
	AWSConfig aws.Config

	// bbolt backend.
	BoltPath string
}

// NewStore creates the configured storage backend.
func NewStore(typ string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	if strings.TrimSpace(opts.Key) == "" {
		return nil, fmt.Errorf("storage key must not be empty")
	}

	switch typ {
	case "s3":
		if strings.TrimSpace(opts.Bucket) == "" {
			return nil, fmt.Errorf("s3 storage requires a bucket")
		}
		return newS3Store(opts), nil
	case "bbolt":
		if strings.TrimSpace(opts.BoltPath) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(opts.BoltPath, opts.Key)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}
