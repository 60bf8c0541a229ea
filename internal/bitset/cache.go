// Package bitset caches the doc sets of filter queries per segment.
package bitset

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"

	"github.com/gcbaptista/go-shard-query/internal/logging"
	"github.com/gcbaptista/go-shard-query/internal/search"
)

// Producer yields the doc set of one filter query.
type Producer = search.DocSetProducer

type cacheKey struct {
	segment *search.Segment
	query   string
}

// Cache is an LRU of filter doc sets keyed by segment and query. It is safe
// for concurrent use and shared by all contexts of an index.
type Cache struct {
	entries *lru.Cache
	logger  *slog.Logger
	hits    atomic.Uint64
	misses  atomic.Uint64
}

// NewCache creates a cache holding at most size doc sets.
func NewCache(size int, logger *slog.Logger) (*Cache, error) {
	entries, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create bitset cache: %w", err)
	}
	return &Cache{
		entries: entries,
		logger:  logging.Default(logger).With("component", "bitset-cache"),
	}, nil
}

// Producer returns a producer for q backed by the cache.
func (c *Cache) Producer(q search.Query) Producer {
	return &producer{cache: c, query: q}
}

// Clear drops every cached doc set. Callers clear after the segment changed.
func (c *Cache) Clear() {
	c.entries.Purge()
	c.logger.Debug("cleared")
}

// Stats returns the hit and miss counters and the number of cached entries.
func (c *Cache) Stats() (hits, misses uint64, size int) {
	return c.hits.Load(), c.misses.Load(), c.entries.Len()
}

type producer struct {
	cache *Cache
	query search.Query
}

func (p *producer) DocSet(seg *search.Segment) (search.DocSet, error) {
	key := cacheKey{segment: seg, query: p.query.String()}
	if v, ok := p.cache.entries.Get(key); ok {
		p.cache.hits.Add(1)
		return v.(search.DocSet), nil
	}
	p.cache.misses.Add(1)

	docs, err := p.query.Execute(seg)
	if err != nil {
		return nil, err
	}
	p.cache.entries.Add(key, docs)
	return docs, nil
}
