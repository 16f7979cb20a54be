package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/archivio-hq/collection-notifier/internal/domain"
)

const seenBucket = "seen"

// boltStore is the local backend, mainly for development. It stores the same
// JSON document the s3 backend does, under one bucket/key.
type boltStore struct {
	db  *bolt.DB
	key []byte
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path, key string) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(seenBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	return &boltStore{db: db, key: []byte(key)}, nil
}

func (b *boltStore) Load(_ context.Context) ([]domain.Record, error) {
	var raw []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(seenBucket))
		if bucket == nil {
			return fmt.Errorf("seen bucket missing")
		}
		if value := bucket.Get(b.key); value != nil {
			raw = append(raw, value...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read seen set: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%s: %w", string(b.key), ErrNotFound)
	}

	var records []domain.Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode seen set: %w", err)
	}
	return records, nil
}

func (b *boltStore) Save(_ context.Context, records []domain.Record) error {
	if records == nil {
		records = []domain.Record{}
	}
	body, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode seen set: %w", err)
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(seenBucket))
		if bucket == nil {
			return fmt.Errorf("seen bucket missing")
		}
		return bucket.Put(b.key, body)
	})
}

func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}
