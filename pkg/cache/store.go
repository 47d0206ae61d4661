package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/screwyprof/daodelegate/pkg/clock"
)

const (
	// DefaultSize bounds a store when no size is configured
	DefaultSize = 1024
	// DefaultLoadTimeout bounds a shared load once it no longer follows any caller's context
	DefaultLoadTimeout = time.Minute
)

// ErrInvalidSize is returned when a store is created without room for entries
var ErrInvalidSize = errors.New("cache size must be positive")

// StoreOption configures a Store
// ------------------------------
type StoreOption[T any] func(*storeOptions[T])

type storeOptions[T any] struct {
	clock       clock.Clock
	admit       func(T) bool
	loadTimeout time.Duration
}

// WithClock replaces the wall clock
func WithClock[T any](c clock.Clock) StoreOption[T] {
	return func(o *storeOptions[T]) { o.clock = c }
}

// WithAdmission keeps only values for which admit returns true.
// Rejected values are still returned to the caller, they are just not remembered.
func WithAdmission[T any](admit func(T) bool) StoreOption[T] {
	return func(o *storeOptions[T]) { o.admit = admit }
}

// WithLoadTimeout bounds how long a shared load may run. Zero disables the bound.
func WithLoadTimeout[T any](d time.Duration) StoreOption[T] {
	return func(o *storeOptions[T]) { o.loadTimeout = d }
}

// Store is a bounded, concurrency-safe set of entries sharing one TTL.
// Concurrent loads of the same key are collapsed into one.
type Store[K comparable, T any] struct {
	entries     *lru.Cache[K, Entry[T]]
	group       singleflight.Group
	ttl         time.Duration
	clock       clock.Clock
	admit       func(T) bool
	loadTimeout time.Duration
}

// NewStore creates a store holding at most size entries that stay fresh for ttl
func NewStore[K comparable, T any](size int, ttl time.Duration, opts ...StoreOption[T]) (*Store[K, T], error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	entries, err := lru.New[K, Entry[T]](size)
	if err != nil {
		return nil, err
	}

	o := storeOptions[T]{clock: clock.SystemClock{}, loadTimeout: DefaultLoadTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	return &Store[K, T]{
		entries:     entries,
		ttl:         ttl,
		clock:       o.clock,
		admit:       o.admit,
		loadTimeout: o.loadTimeout,
	}, nil
}

// Get returns the entry for key while it is fresh.
// Stale entries are left in place for the next Put to replace or the LRU to evict.
func (s *Store[K, T]) Get(key K) (Entry[T], bool) {
	entry, ok := s.entries.Get(key)
	if !ok || IsStale(entry, s.clock.Now()) {
		return Entry[T]{}, false
	}
	return entry, true
}

// Put stamps value with the current time and stores it
func (s *Store[K, T]) Put(key K, value T) Entry[T] {
	entry := NewEntry(value, s.clock.Now(), s.ttl)
	if s.admit == nil || s.admit(value) {
		s.entries.Add(key, entry)
	}
	return entry
}

// Invalidate drops key so the next Fetch reloads it
func (s *Store[K, T]) Invalidate(key K) {
	s.entries.Remove(key)
}

// Len reports how many entries are held, stale ones included
func (s *Store[K, T]) Len() int {
	return s.entries.Len()
}

// Fetch returns the fresh entry for key, loading and storing it when missing or stale.
// The load is shared by every caller waiting on key, so it runs detached from the
// first caller's cancellation. Each caller stops waiting when its own ctx is done.
func (s *Store[K, T]) Fetch(ctx context.Context, key K, load func(context.Context) (T, error)) (Entry[T], error) {
	if entry, ok := s.Get(key); ok {
		return entry, nil
	}

	ch := s.group.DoChan(fmt.Sprint(key), func() (any, error) {
		loadCtx := context.WithoutCancel(ctx)
		if s.loadTimeout > 0 {
			var cancel context.CancelFunc
			loadCtx, cancel = context.WithTimeout(loadCtx, s.loadTimeout)
			defer cancel()
		}

		value, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		return s.Put(key, value), nil
	})

	select {
	case <-ctx.Done():
		return Entry[T]{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Entry[T]{}, res.Err
		}
		return res.Val.(Entry[T]), nil
	}
}
