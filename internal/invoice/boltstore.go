package invoice

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

const invoiceBucket = "invoices"

// storedRecord wraps a record with its retention timestamp.
type storedRecord struct {
	Record    *Record   `json:"record"`
	CreatedAt time.Time `json:"created_at"`
}

// BoltStore implements Store on an embedded bbolt database, surviving
// process restarts. Retention is TTL-based; a sweeper goroutine removes
// expired records.
type BoltStore struct {
	db     *bbolt.DB
	ttl    time.Duration
	clock  TimeSource
	done   chan struct{}
	closed sync.Once
}

// NewBoltStore opens (or creates) the database at path. A zero ttl takes the
// default; a negative ttl disables expiry.
func NewBoltStore(path string, ttl time.Duration) (*BoltStore, error) {
	if ttl == 0 {
		ttl = defaultTTL
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(invoiceBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	s := &BoltStore{
		db:    db,
		ttl:   ttl,
		clock: defaultTimeSource{},
		done:  make(chan struct{}),
	}
	if ttl > 0 {
		go s.sweeper(janitorInterval(ttl))
	}
	return s, nil
}

// Put stores a record under its invoice id.
func (s *BoltStore) Put(record *Record) error {
	if record.InvoiceID == "" {
		return fmt.Errorf("record has no invoice id")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(storedRecord{Record: record, CreatedAt: s.clock.Now()})
		if err != nil {
			return fmt.Errorf("marshaling record: %w", err)
		}
		return tx.Bucket([]byte(invoiceBucket)).Put([]byte(record.InvoiceID), data)
	})
}

// Get retrieves a record by invoice id. Expired records are deleted and
// reported as ErrNotFound.
func (s *BoltStore) Get(id string) (*Record, error) {
	var record *Record
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(invoiceBucket))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("invoice %q: %w", id, ErrNotFound)
		}
		var stored storedRecord
		if err := json.Unmarshal(data, &stored); err != nil {
			return fmt.Errorf("unmarshaling record: %w", err)
		}
		if s.ttl > 0 && s.clock.Now().Sub(stored.CreatedAt) > s.ttl {
			if err := bucket.Delete([]byte(id)); err != nil {
				return err
			}
			return fmt.Errorf("invoice %q: %w", id, ErrNotFound)
		}
		record = stored.Record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Len returns the number of stored records.
func (s *BoltStore) Len() int {
	count := 0
	s.db.View(func(tx *bbolt.Tx) error {
		count = tx.Bucket([]byte(invoiceBucket)).Stats().KeyN
		return nil
	})
	return count
}

// Close stops the sweeper and closes the database.
func (s *BoltStore) Close() error {
	s.closed.Do(func() { close(s.done) })
	return s.db.Close()
}

func (s *BoltStore) sweeper(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *BoltStore) sweep() {
	now := s.clock.Now()
	s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(invoiceBucket))
		var expired [][]byte
		bucket.ForEach(func(k, v []byte) error {
			var stored storedRecord
			if err := json.Unmarshal(v, &stored); err != nil {
				expired = append(expired, append([]byte(nil), k...))
				return nil
			}
			if now.Sub(stored.CreatedAt) > s.ttl {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		})
		for _, k := range expired {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}
