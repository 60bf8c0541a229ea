package query

import (
	"github.com/gcbaptista/go-shard-query/internal/lookup"
)

// FieldLookupCache builds a lookup on first use and keeps it until cleared.
type FieldLookupCache struct {
	build   func() *lookup.Lookup
	current *lookup.Lookup
}

func newFieldLookupCache(build func() *lookup.Lookup) FieldLookupCache {
	return FieldLookupCache{build: build}
}

// Get returns the memoized lookup, building it if needed.
func (c *FieldLookupCache) Get() *lookup.Lookup {
	if c.current == nil {
		c.current = c.build()
	}
	return c.current
}

// Fresh builds a lookup that is not memoized.
func (c *FieldLookupCache) Fresh() *lookup.Lookup {
	return c.build()
}

// Clear drops the memoized lookup.
func (c *FieldLookupCache) Clear() {
	c.current = nil
}
