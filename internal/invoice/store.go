package invoice

import (
	"container/list"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotFound is returned when no record exists for an invoice id, including
// records already evicted by retention.
var ErrNotFound = errors.New("invoice not found")

// Store retains assembled records between upload and download. The store is
// the only shared mutable resource in the pipeline; implementations must be
// safe for concurrent use and must evict by age or capacity.
type Store interface {
	Put(record *Record) error
	Get(id string) (*Record, error)
	Len() int
	Close() error
}

// TimeSource provides the current time.
type TimeSource interface {
	Now() time.Time
}

type defaultTimeSource struct{}

func (defaultTimeSource) Now() time.Time {
	return time.Now()
}

const (
	defaultTTL      = 30 * time.Minute
	defaultCapacity = 100
)

// MemoryStoreConfig configures retention for the in-memory store. Zero
// values take the defaults; a negative TTL or capacity disables that limit.
type MemoryStoreConfig struct {
	TTL      time.Duration
	Capacity int
	Clock    TimeSource
}

type memoryEntry struct {
	id        string
	record    *Record
	createdAt time.Time
}

// MemoryStore keeps records in memory with TTL and LRU-capacity eviction.
// A janitor goroutine sweeps expired entries; Close stops it.
type MemoryStore struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
	ttl      time.Duration
	capacity int
	clock    TimeSource
	done     chan struct{}
	closed   sync.Once
}

// NewMemoryStore creates a MemoryStore and starts its janitor.
func NewMemoryStore(cfg MemoryStoreConfig) *MemoryStore {
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = defaultTTL
	}
	capacity := cfg.Capacity
	if capacity == 0 {
		capacity = defaultCapacity
	}
	clock := cfg.Clock
	if clock == nil {
		clock = defaultTimeSource{}
	}

	s := &MemoryStore{
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		ttl:      ttl,
		capacity: capacity,
		clock:    clock,
		done:     make(chan struct{}),
	}
	if ttl > 0 {
		go s.janitor(janitorInterval(ttl))
	}
	return s
}

func janitorInterval(ttl time.Duration) time.Duration {
	interval := ttl / 10
	if interval < time.Second {
		interval = time.Second
	}
	if interval > time.Minute {
		interval = time.Minute
	}
	return interval
}

// Put stores a record under its invoice id, evicting the least recently
// used entry if the store is over capacity.
func (s *MemoryStore) Put(record *Record) error {
	if record.InvoiceID == "" {
		return fmt.Errorf("record has no invoice id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[record.InvoiceID]; ok {
		el.Value.(*memoryEntry).record = record
		el.Value.(*memoryEntry).createdAt = s.clock.Now()
		s.order.MoveToFront(el)
		return nil
	}

	el := s.order.PushFront(&memoryEntry{
		id:        record.InvoiceID,
		record:    record,
		createdAt: s.clock.Now(),
	})
	s.entries[record.InvoiceID] = el

	for s.capacity > 0 && s.order.Len() > s.capacity {
		oldest := s.order.Back()
		if oldest == nil {
			break
		}
		s.removeLocked(oldest)
	}
	return nil
}

// Get returns the record for an id, refreshing its LRU position. Expired
// entries are removed and reported as ErrNotFound.
func (s *MemoryStore) Get(id string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("invoice %q: %w", id, ErrNotFound)
	}
	entry := el.Value.(*memoryEntry)
	if s.expired(entry) {
		s.removeLocked(el)
		return nil, fmt.Errorf("invoice %q: %w", id, ErrNotFound)
	}
	s.order.MoveToFront(el)
	return entry.record, nil
}

// Len returns the number of retained records.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close stops the janitor.
func (s *MemoryStore) Close() error {
	s.closed.Do(func() { close(s.done) })
	return nil
}

func (s *MemoryStore) expired(entry *memoryEntry) bool {
	return s.ttl > 0 && s.clock.Now().Sub(entry.createdAt) > s.ttl
}

func (s *MemoryStore) removeLocked(el *list.Element) {
	entry := el.Value.(*memoryEntry)
	s.order.Remove(el)
	delete(s.entries, entry.id)
}

func (s *MemoryStore) janitor(interval time.Duration) {
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

func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for el := s.order.Back(); el != nil; {
		prev := el.Prev()
		if s.expired(el.Value.(*memoryEntry)) {
			s.removeLocked(el)
		}
		el = prev
	}
}
