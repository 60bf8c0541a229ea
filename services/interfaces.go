package services

import (
	"context"
	"encoding/json"

	"github.com/gcbaptista/go-shard-query/config"
	"github.com/gcbaptista/go-shard-query/internal/jobs"
	"github.com/gcbaptista/go-shard-query/mapping"
	"github.com/gcbaptista/go-shard-query/model"
)

// SearchRequest is a query against the single shard of an index.
type SearchRequest struct {
	Query        json.RawMessage `json:"query"`
	From         int             `json:"from,omitempty"`
	Size         int             `json:"size,omitempty"`
	RequestCache *bool           `json:"request_cache,omitempty"` // nil: cache when the query turns out cacheable
	ClusterAlias string          `json:"cluster_alias,omitempty"`
}

// HitResult is one matching document.
type HitResult struct {
	ID             string         `json:"id"`
	Document       model.Document `json:"document"`
	MatchedQueries []string       `json:"matched_queries,omitempty"`
}

// SearchResult is the response to a SearchRequest.
type SearchResult struct {
	Hits      []HitResult `json:"hits"`
	Total     int         `json:"total"`
	From      int         `json:"from"`
	Size      int         `json:"size"`
	Took      int64       `json:"took"`     // milliseconds
	QueryId   string      `json:"query_id"` // unique UUID for this search query
	Cacheable bool        `json:"cacheable"`
	Cached    bool        `json:"cached"`
}

// ValidateRequest asks whether a query compiles on an index.
type ValidateRequest struct {
	Query        json.RawMessage `json:"query"`
	ClusterAlias string          `json:"cluster_alias,omitempty"`
}

// ValidateResult describes the compiled form of a query, or why it failed.
type ValidateResult struct {
	Valid        bool     `json:"valid"`
	Explanation  string   `json:"explanation,omitempty"`
	NamedQueries []string `json:"named_queries,omitempty"`
	Cacheable    bool     `json:"cacheable"`
	Error        string   `json:"error,omitempty"`
}

// IndexInfo summarizes an index.
type IndexInfo struct {
	Settings      config.IndexSettings `json:"settings"`
	Fields        []string             `json:"fields"`
	DocumentType  string               `json:"document_type,omitempty"`
	DocumentCount int                  `json:"document_count"`
}

// Indexer defines operations for adding data to an index
type Indexer interface {
	AddDocuments(indexName string, docs []model.Document) error
	DeleteDocument(indexName, documentID string) error
	GetDocument(ctx context.Context, indexName, documentID string) (model.Document, error)
}

// Searcher defines operations for querying an index
type Searcher interface {
	Search(ctx context.Context, indexName string, req SearchRequest) (SearchResult, error)
	ValidateQuery(ctx context.Context, indexName string, req ValidateRequest) (ValidateResult, error)
}

// IndexManager manages the lifecycle of indices
type IndexManager interface {
	CreateIndex(settings config.IndexSettings, def *mapping.Definition) error
	GetIndexInfo(name string) (IndexInfo, error)
	UpdateIndexSettings(name string, settings config.IndexSettings) error
	UpdateMapping(name string, def *mapping.Definition) error
	DeleteIndex(name string) error
	ListIndexes(pattern string) []string
}

// ActionLister lists the asynchronous actions queries registered.
type ActionLister interface {
	ListActions(indexName string, status *model.ActionStatus) []*model.Action
	GetAction(actionID string) (*model.Action, error)
	ActionMetrics() jobs.ActionMetricsData
}

// Engine is everything the HTTP surface needs.
type Engine interface {
	IndexManager
	Indexer
	Searcher
	ActionLister
}
