package query

import (
	"github.com/gcbaptista/go-shard-query/internal/search"
)

// NamedQueryRegistry maps caller labels (`_name`) to the queries built for them.
type NamedQueryRegistry struct {
	queries map[string]search.Query
}

// NewNamedQueryRegistry creates an empty registry.
func NewNamedQueryRegistry() *NamedQueryRegistry {
	return &NamedQueryRegistry{queries: make(map[string]search.Query)}
}

// Add records q under label. A nil query is ignored; a repeated label keeps the last query.
func (r *NamedQueryRegistry) Add(label string, q search.Query) {
	if q == nil {
		return
	}
	r.queries[label] = q
}

// Snapshot returns a copy that later Add or Clear calls do not affect.
func (r *NamedQueryRegistry) Snapshot() map[string]search.Query {
	out := make(map[string]search.Query, len(r.queries))
	for label, q := range r.queries {
		out[label] = q
	}
	return out
}

// Clear removes every entry.
func (r *NamedQueryRegistry) Clear() {
	clear(r.queries)
}

// Len returns the number of labels.
func (r *NamedQueryRegistry) Len() int {
	return len(r.queries)
}
