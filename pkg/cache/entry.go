// Package cache keeps explicitly timestamped values for a fixed freshness window.
package cache

import "time"

// Entry is a value together with the moment it was read and how long it stays fresh
type Entry[T any] struct {
	Value     T
	FetchedAt time.Time
	TTL       time.Duration
}

// NewEntry stamps value with fetchedAt
func NewEntry[T any](value T, fetchedAt time.Time, ttl time.Duration) Entry[T] {
	return Entry[T]{Value: value, FetchedAt: fetchedAt, TTL: ttl}
}

// ExpiresAt is the first instant at which the entry is stale
func (e Entry[T]) ExpiresAt() time.Time {
	return e.FetchedAt.Add(e.TTL)
}

// Remaining is how long the entry stays fresh after now, never negative
func (e Entry[T]) Remaining(now time.Time) time.Duration {
	if IsStale(e, now) {
		return 0
	}
	return e.ExpiresAt().Sub(now)
}

// IsStale reports whether entry must be refetched at now.
// Entries that were never fetched or carry no TTL are always stale.
func IsStale[T any](entry Entry[T], now time.Time) bool {
	if entry.FetchedAt.IsZero() || entry.TTL <= 0 {
		return true
	}
	return !now.Before(entry.ExpiresAt())
}
