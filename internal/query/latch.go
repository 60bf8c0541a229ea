package query

import (
	"github.com/gcbaptista/go-shard-query/internal/errors"
)

// CacheabilityLatch records whether the result of the current query may be
// cached and whether non-deterministic operations are refused outright.
//
// Both flags only move one way: cacheable from true to false, frozen from
// false to true. The zero value is not usable; use newCacheabilityLatch.
type CacheabilityLatch struct {
	cacheable bool
	frozen    bool
}

func newCacheabilityLatch() CacheabilityLatch {
	return CacheabilityLatch{cacheable: true}
}

// Freeze refuses every later non-deterministic operation. Idempotent.
func (l *CacheabilityLatch) Freeze() {
	l.frozen = true
}

// IsFrozen reports whether Freeze was called.
func (l *CacheabilityLatch) IsFrozen() bool {
	return l.frozen
}

// IsCacheable reports whether no non-deterministic operation was attempted.
func (l *CacheabilityLatch) IsCacheable() bool {
	return l.cacheable
}

// RequireMutableAllowed must be called before reading the clock, obtaining a
// client or registering an async action. The attempt alone makes the result
// uncacheable; when frozen it also fails.
func (l *CacheabilityLatch) RequireMutableAllowed() error {
	l.cacheable = false
	if l.frozen {
		return errors.NewFrozenContextError()
	}
	return nil
}
