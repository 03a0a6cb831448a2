// Package ttlcache holds the result of an expensive probe for a fixed time
// window. A missing result is cached the same way as a present one, so a
// failing probe is retried at most once per window.
package ttlcache

import "time"

// Refresher fetches a fresh value. ok=false means the value is unavailable.
type Refresher[T any] func() (value T, ok bool)

type entry[T any] struct {
	value     T
	ok        bool
	fetchedAt time.Time
}

// Cache is not safe for concurrent use.
type Cache[T any] struct {
	ttl     time.Duration
	entry   *entry[T]
	fetches int
}

func New[T any](ttl time.Duration) *Cache[T] {
	return &Cache[T]{ttl: ttl}
}

// TTL returns the refresh interval.
func (c *Cache[T]) TTL() time.Duration { return c.ttl }

// Get returns the cached value while it is younger than the TTL and calls
// refresh otherwise. A clock that moved backwards counts as expired.
func (c *Cache[T]) Get(now time.Time, refresh Refresher[T]) (T, bool) {
	if c.entry != nil {
		age := now.Sub(c.entry.fetchedAt)
		if age >= 0 && age < c.ttl {
			return c.entry.value, c.entry.ok
		}
	}

	v, ok := refresh()
	if !ok {
		var zero T
		v = zero
	}
	c.fetches++
	c.entry = &entry[T]{value: v, ok: ok, fetchedAt: now}
	return v, ok
}

// Peek returns the cached value without refreshing, and when it was fetched.
func (c *Cache[T]) Peek() (value T, ok bool, fetchedAt time.Time) {
	if c.entry == nil {
		return value, false, time.Time{}
	}
	return c.entry.value, c.entry.ok, c.entry.fetchedAt
}

// Fetches counts refresh calls made so far.
func (c *Cache[T]) Fetches() int { return c.fetches }

// Invalidate forces the next Get to refresh.
func (c *Cache[T]) Invalidate() { c.entry = nil }
