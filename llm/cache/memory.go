package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	key      string
	value    []byte
	storedAt time.Time
}

// MemoryStore is an in-process Store. Entries live in insertion order, so
// both eviction and expiry work from the front of the list.
type MemoryStore struct {
	mu      sync.Mutex
	opts    Options
	order   *list.List
	entries map[string]*list.Element
	closed  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts Options) *MemoryStore {
	return &MemoryStore{
		opts:    opts,
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, false, ErrStoreClosed
	}
	el, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	entry := el.Value.(*memoryEntry)
	if s.opts.expired(entry.storedAt, s.opts.now()) {
		s.remove(el)
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	now := s.opts.now()
	s.pruneExpired(now)

	if el, ok := s.entries[key]; ok {
		s.remove(el)
	}
	if s.opts.Capacity > 0 {
		for s.order.Len() >= s.opts.Capacity {
			s.remove(s.order.Front())
		}
	}
	s.entries[key] = s.order.PushBack(&memoryEntry{key: key, value: value, storedAt: now})
	return nil
}

// Len implements Store.
func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}
	s.pruneExpired(s.opts.now())
	return s.order.Len(), nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	s.order.Init()
	s.entries = make(map[string]*list.Element)
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.order.Init()
	s.entries = nil
	return nil
}

// Keys returns the live keys from oldest to newest insertion.
func (s *MemoryStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneExpired(s.opts.now())
	keys := make([]string, 0, s.order.Len())
	for el := s.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*memoryEntry).key)
	}
	return keys
}

// pruneExpired drops expired entries from the front. Caller holds mu.
func (s *MemoryStore) pruneExpired(now time.Time) {
	for el := s.order.Front(); el != nil; el = s.order.Front() {
		if !s.opts.expired(el.Value.(*memoryEntry).storedAt, now) {
			return
		}
		s.remove(el)
	}
}

func (s *MemoryStore) remove(el *list.Element) {
	entry := s.order.Remove(el).(*memoryEntry)
	delete(s.entries, entry.key)
}
