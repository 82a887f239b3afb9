// Package cache holds the response caches used by the call pool. Every store
// keeps entries for a fixed TTL and, when full, evicts the oldest insertion.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrStoreClosed is returned by operations on a closed store.
var ErrStoreClosed = errors.New("cache store is closed")

// Store is a bounded key/value cache with insertion-time expiry.
type Store interface {
	// Get returns the value under key. Expired entries are reported as missing.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set inserts or replaces key. Replacing restarts the entry's TTL and
	// moves it to the newest position.
	Set(ctx context.Context, key string, value []byte) error

	// Len returns the number of live entries.
	Len(ctx context.Context) (int, error)

	// Clear drops every entry.
	Clear(ctx context.Context) error

	// Close releases the store's resources.
	Close() error
}

// Options bounds a store.
type Options struct {
	// Capacity is the maximum number of entries. <= 0 means unbounded.
	Capacity int
	// TTL is how long an entry stays valid after insertion. <= 0 never expires.
	TTL time.Duration
	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

func (o Options) now() time.Time {
	if o.Clock != nil {
		return o.Clock()
	}
	return time.Now()
}

func (o Options) expired(storedAt, now time.Time) bool {
	return o.TTL > 0 && now.Sub(storedAt) >= o.TTL
}
