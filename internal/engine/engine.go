// Package engine owns the indexes of a node. Each index is served by a single
// shard; the engine builds the query contexts that search it and serves as
// the client that async query actions fetch documents with.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/gcbaptista/go-shard-query/internal/bigarrays"
	"github.com/gcbaptista/go-shard-query/internal/errors"
	"github.com/gcbaptista/go-shard-query/internal/jobs"
	"github.com/gcbaptista/go-shard-query/internal/logging"
	"github.com/gcbaptista/go-shard-query/internal/query"
	"github.com/gcbaptista/go-shard-query/internal/script"
	"github.com/gcbaptista/go-shard-query/internal/similarity"
	"github.com/gcbaptista/go-shard-query/mapping"
	"github.com/gcbaptista/go-shard-query/model"
	"github.com/gcbaptista/go-shard-query/services"
)

const (
	defaultActionWorkers   = 4
	defaultScriptCacheSize = 100
)

// Options configure an Engine. The zero value is usable.
type Options struct {
	ActionWorkers   int
	ScriptCacheSize int
	Similarity      string // empty selects BM25
	NowInMillis     func() int64
	Logger          *slog.Logger
}

// Engine manages multiple indexes.
// It implements services.Engine and query.Client.
type Engine struct {
	mu          sync.RWMutex
	indexes     map[string]*IndexInstance
	registry    *mapping.Registry
	scripts     *script.Service
	similarity  similarity.Provider
	bigArrays   *bigarrays.Pool
	actions     *jobs.Manager
	nowInMillis func() int64
	logger      *slog.Logger
	deprecation *logging.DeprecationLogger
}

var (
	_ services.Engine = (*Engine)(nil)
	_ query.Client    = (*Engine)(nil)
)

// NewEngine creates an engine and starts its action workers. Call Close when done.
func NewEngine(opts Options) (*Engine, error) {
	logger := logging.Default(opts.Logger)

	scriptCacheSize := opts.ScriptCacheSize
	if scriptCacheSize <= 0 {
		scriptCacheSize = defaultScriptCacheSize
	}
	scripts, err := script.NewService(scriptCacheSize, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create script service: %w", err)
	}
	sim, err := similarity.NewProvider(opts.Similarity)
	if err != nil {
		return nil, err
	}

	workers := opts.ActionWorkers
	if workers <= 0 {
		workers = defaultActionWorkers
	}
	actions := jobs.NewManager(workers, logger)
	actions.Start()

	now := opts.NowInMillis
	if now == nil {
		now = func() int64 { return time.Now().UnixMilli() }
	}

	return &Engine{
		indexes:     make(map[string]*IndexInstance),
		registry:    mapping.NewRegistry(),
		scripts:     scripts,
		similarity:  sim,
		bigArrays:   bigarrays.NewPool(),
		actions:     actions,
		nowInMillis: now,
		logger:      logger.With("component", "engine"),
		deprecation: logging.NewDeprecationLogger(logger),
	}, nil
}

// Close stops the action workers.
func (e *Engine) Close() {
	e.actions.Stop()
}

func (e *Engine) instance(name string) (*IndexInstance, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	instance, exists := e.indexes[name]
	if !exists {
		return nil, errors.NewIndexNotFoundError(name)
	}
	return instance, nil
}

// GetIndex retrieves an index by its name.
func (e *Engine) GetIndex(name string) (*IndexInstance, error) {
	return e.instance(name)
}

// ListIndexes returns the sorted names of the indexes matching pattern.
// An empty pattern matches every index.
func (e *Engine) ListIndexes(pattern string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.indexes))
	for name := range e.indexes {
		if pattern != "" {
			if ok, err := doublestar.Match(pattern, name); err != nil || !ok {
				continue
			}
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewQueryContext creates a query context on the shard of indexName.
// clusterAlias is set when the request came from a remote cluster.
func (e *Engine) NewQueryContext(indexName, clusterAlias string) (*query.Context, error) {
	instance, err := e.instance(indexName)
	if err != nil {
		return nil, err
	}
	return e.newQueryContext(instance, clusterAlias)
}

func (e *Engine) newQueryContext(instance *IndexInstance, clusterAlias string) (*query.Context, error) {
	return query.New(query.Options{
		ShardID:      0,
		Settings:     instance.Settings(),
		Mappings:     instance.mappings,
		FieldData:    instance.fieldData,
		Scripts:      e.scripts,
		Similarity:   e.similarity,
		BitsetCache:  instance.bitsets,
		BigArrays:    e.bigArrays,
		Searcher:     instance.segment,
		Client:       e,
		Actions:      e.actions,
		NowInMillis:  e.nowInMillis,
		ClusterAlias: clusterAlias,
		Logger:       e.logger,
		Deprecation:  e.deprecation,
	})
}

// GetDocument returns a stored document. It is the client async query
// actions fetch documents with, so it takes no index-level lock.
func (e *Engine) GetDocument(ctx context.Context, indexName, documentID string) (model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	instance, err := e.instance(indexName)
	if err != nil {
		return nil, err
	}
	doc, ok := instance.lookupDocument(documentID)
	if !ok {
		return nil, errors.NewDocumentNotFoundError(documentID, indexName)
	}
	return doc, nil
}

// ListActions lists the async actions queries registered, optionally for
// one index and one status.
func (e *Engine) ListActions(indexName string, status *model.ActionStatus) []*model.Action {
	actions := e.actions.List(indexName, status)
	sort.Slice(actions, func(i, j int) bool {
		return actions[i].CreatedAt.Before(actions[j].CreatedAt)
	})
	return actions
}

// GetAction returns one async action.
func (e *Engine) GetAction(actionID string) (*model.Action, error) {
	return e.actions.Get(actionID)
}

// ActionMetrics returns counters of the async actions run so far.
func (e *Engine) ActionMetrics() jobs.ActionMetricsData {
	return e.actions.Metrics()
}
