package status

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/trackboard/trackboard/internal/metrics"
)

var bucketStatus = []byte("status")

// BoltStore keeps each scope's entire flag map as one serialized blob in an
// embedded bolt database. SetOne reads the blob, mutates the one entry and
// writes the blob back inside a single update transaction.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens or creates the status database at path
func NewBoltStore(path string) (*BoltStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open status database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketStatus)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create status bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// GetAll returns every persisted flag under the scope
func (s *BoltStore) GetAll(ctx context.Context, scope string) (ScopeStatus, error) {
	status := ScopeStatus{}
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketStatus).Get([]byte(scope))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &status)
	})
	if err != nil {
		s.track("read", "error")
		return nil, fmt.Errorf("failed to read status for scope: %w", err)
	}
	s.track("read", "ok")
	return status, nil
}

// SetOne persists a single flag via read-blob, mutate, write-blob. The bolt
// update transaction serializes writers, so unlike the remote backend this
// path cannot lose a concurrent write.
func (s *BoltStore) SetOne(ctx context.Context, scope, campaignID, key string, active bool) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketStatus)

		status := ScopeStatus{}
		if data := b.Get([]byte(scope)); data != nil {
			if err := json.Unmarshal(data, &status); err != nil {
				return fmt.Errorf("corrupt status blob: %w", err)
			}
		}

		status.Set(campaignID, key, active)

		data, err := json.Marshal(status)
		if err != nil {
			return err
		}
		return b.Put([]byte(scope), data)
	})
	if err != nil {
		s.track("write", "error")
		return fmt.Errorf("failed to persist status flag: %w", err)
	}
	s.track("write", "ok")
	return nil
}

// DeleteScope removes the scope's blob entirely
func (s *BoltStore) DeleteScope(ctx context.Context, scope string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketStatus).Delete([]byte(scope))
	})
	if err != nil {
		return fmt.Errorf("failed to delete status scope: %w", err)
	}
	return nil
}

// Close closes the underlying database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) track(op, result string) {
	m := metrics.Global()
	if m == nil {
		return
	}
	if op == "read" {
		m.StatusReadsTotal.WithLabelValues("local", result).Inc()
	} else {
		m.StatusWritesTotal.WithLabelValues("local", result).Inc()
	}
}
