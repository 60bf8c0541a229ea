// Package query builds executable queries for one shard. Context is the
// short-lived environment query builders resolve fields, scripts and named
// queries against while a query description is rewritten and compiled.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"

	"github.com/gcbaptista/go-shard-query/config"
	"github.com/gcbaptista/go-shard-query/internal/bigarrays"
	"github.com/gcbaptista/go-shard-query/internal/bitset"
	"github.com/gcbaptista/go-shard-query/internal/errors"
	"github.com/gcbaptista/go-shard-query/internal/fielddata"
	"github.com/gcbaptista/go-shard-query/internal/jobs"
	"github.com/gcbaptista/go-shard-query/internal/logging"
	"github.com/gcbaptista/go-shard-query/internal/lookup"
	"github.com/gcbaptista/go-shard-query/internal/script"
	"github.com/gcbaptista/go-shard-query/internal/search"
	"github.com/gcbaptista/go-shard-query/internal/similarity"
	"github.com/gcbaptista/go-shard-query/mapping"
	"github.com/gcbaptista/go-shard-query/model"
)

// Client fetches documents from any local index. Queries reach it only
// through Context.Client or async actions.
type Client interface {
	GetDocument(ctx context.Context, index, id string) (model.Document, error)
}

// AsyncAction is a follow-up registered during rewrite, run before the next rewrite step.
type AsyncAction func(ctx context.Context, client Client) error

type pendingAction struct {
	actionType model.ActionType
	metadata   map[string]string
	run        AsyncAction
}

// Options are the collaborators a Context is built from. Settings and
// Mappings are required; everything else may be left nil.
type Options struct {
	ShardID               int
	Settings              *config.IndexSettings
	Mappings              mapping.Lookup
	FieldData             fielddata.Factory
	Scripts               script.Compiler
	Similarity            similarity.Provider
	BitsetCache           *bitset.Cache
	BigArrays             *bigarrays.Pool
	Searcher              *search.Segment
	Client                Client
	Actions               *jobs.Manager
	NowInMillis           func() int64
	ClusterAlias          string
	IndexNameMatcher      func(pattern string) bool
	AllowExpensiveQueries func() bool
	Logger                *slog.Logger
	Deprecation           *logging.DeprecationLogger
}

// Context is the per-shard, per-request query building context. It is not
// safe for concurrent use; build one per goroutine, or Clone one.
type Context struct {
	opts             Options
	index            mapping.Index
	indexNameMatcher func(pattern string) bool
	allowExpensive   func() bool
	nowInMillis      func() int64
	logger           *slog.Logger
	deprecation      *logging.DeprecationLogger

	types             []string
	allowUnmapped     bool
	mapUnmappedAsText bool
	nestedScope       *NestedScope
	namedQueries      *NamedQueryRegistry
	lookups           FieldLookupCache
	latch             CacheabilityLatch
	pending           []pendingAction
}

// New creates a context.
func New(opts Options) (*Context, error) {
	if opts.Settings == nil {
		return nil, fmt.Errorf("index settings cannot be nil")
	}
	if opts.Mappings == nil {
		return nil, fmt.Errorf("mappings cannot be nil")
	}
	return newContext(opts), nil
}

// newContext builds a context from options New has validated.
func newContext(opts Options) *Context {
	c := &Context{
		opts:             opts,
		index:            mapping.Index{Name: fullyQualifiedName(opts.ClusterAlias, opts.Settings.Name), UUID: opts.Settings.UUID},
		indexNameMatcher: opts.IndexNameMatcher,
		allowExpensive:   opts.AllowExpensiveQueries,
		nowInMillis:      opts.NowInMillis,
		logger:           logging.Default(opts.Logger).With("component", "query-context", "index", opts.Settings.Name, "shard", opts.ShardID),
		deprecation:      opts.Deprecation,
		allowUnmapped:    opts.Settings.IsDefaultAllowUnmappedFields(),
		nestedScope:      &NestedScope{},
		namedQueries:     NewNamedQueryRegistry(),
		latch:            newCacheabilityLatch(),
	}
	if c.indexNameMatcher == nil {
		c.indexNameMatcher = func(pattern string) bool {
			ok, err := doublestar.Match(pattern, c.index.Name)
			return err == nil && ok
		}
	}
	if c.allowExpensive == nil {
		c.allowExpensive = opts.Settings.IsAllowExpensiveQueries
	}
	if c.nowInMillis == nil {
		c.nowInMillis = func() int64 { return time.Now().UnixMilli() }
	}
	if c.deprecation == nil {
		c.deprecation = logging.NewDeprecationLogger(opts.Logger)
	}
	c.lookups = newFieldLookupCache(c.newLookup)
	return c
}

// Clone returns a context sharing this one's collaborators with fresh mutable state.
func (c *Context) Clone() *Context {
	return newContext(c.opts)
}

func fullyQualifiedName(clusterAlias, indexName string) string {
	if clusterAlias == "" {
		return indexName
	}
	return clusterAlias + ":" + indexName
}

func (c *Context) reset() {
	c.allowUnmapped = c.opts.Settings.IsDefaultAllowUnmappedFields()
	c.lookups.Clear()
	c.namedQueries.Clear()
	c.nestedScope = &NestedScope{}
	c.pending = nil
}

// ShardID returns the shard the context builds queries for.
func (c *Context) ShardID() int { return c.opts.ShardID }

// IndexSettings returns the settings of the index.
func (c *Context) IndexSettings() *config.IndexSettings { return c.opts.Settings }

// Index returns the index identity, without cluster alias.
func (c *Context) Index() mapping.Index {
	return mapping.Index{Name: c.opts.Settings.Name, UUID: c.opts.Settings.UUID}
}

// FullyQualifiedIndex returns the index identity prefixed with the cluster alias, if any.
func (c *Context) FullyQualifiedIndex() mapping.Index { return c.index }

// IndexVersionCreated returns the version the index was created with.
func (c *Context) IndexVersionCreated() string { return c.opts.Settings.VersionCreated }

// IndexMatches reports whether pattern matches this index's name.
func (c *Context) IndexMatches(pattern string) bool {
	return c.indexNameMatcher(pattern)
}

// IndexSortedOnField reports whether field is the primary sort of the index.
func (c *Context) IndexSortedOnField(field string) bool {
	return c.opts.Settings.HasPrimarySortOnField(field)
}

// AllowExpensiveQueries reports whether expensive queries may run.
func (c *Context) AllowExpensiveQueries() bool { return c.allowExpensive() }

// DefaultFields returns the fields queries without a field search.
func (c *Context) DefaultFields() []string { return c.opts.Settings.DefaultFields }

// QueryStringLenient reports whether format errors are ignored by default.
func (c *Context) QueryStringLenient() bool { return c.opts.Settings.QueryStringLenient }

// QueryStringAnalyzeWildcard reports whether wildcard terms are analyzed by default.
func (c *Context) QueryStringAnalyzeWildcard() bool {
	return c.opts.Settings.QueryStringAnalyzeWildcard
}

// QueryStringAllowLeadingWildcard reports whether wildcard patterns may start with '*' or '?'.
func (c *Context) QueryStringAllowLeadingWildcard() bool {
	return c.opts.Settings.IsQueryStringAllowLeadingWildcard()
}

// BigArrays returns the shared scratch buffer pool, or nil.
func (c *Context) BigArrays() *bigarrays.Pool { return c.opts.BigArrays }

// SearchSimilarity returns the similarity of the index, or nil when none is configured.
func (c *Context) SearchSimilarity() similarity.Similarity {
	if c.opts.Similarity == nil {
		return nil
	}
	return c.opts.Similarity(c.opts.Mappings.FieldType)
}

// BitsetFilter returns a cached doc set producer for q. Without a cache the
// producer executes q every time.
func (c *Context) BitsetFilter(q search.Query) bitset.Producer {
	if c.opts.BitsetCache == nil {
		return uncachedProducer{query: q}
	}
	return c.opts.BitsetCache.Producer(q)
}

type uncachedProducer struct {
	query search.Query
}

func (p uncachedProducer) DocSet(seg *search.Segment) (search.DocSet, error) {
	return p.query.Execute(seg)
}

// Searcher returns the segment queries run against, or nil outside of a search.
func (c *Context) Searcher() *search.Segment { return c.opts.Searcher }

// Types returns the type filter of the request.
func (c *Context) Types() []string { return c.types }

// SetTypes narrows the request to types.
func (c *Context) SetTypes(types ...string) {
	c.types = append([]string(nil), types...)
}

// QueryTypes returns the types the query applies to. An empty filter or
// "_all" means the single type of the mapping.
func (c *Context) QueryTypes() []string {
	if len(c.types) == 0 || (len(c.types) == 1 && (c.types[0] == "_all" || c.types[0] == "*")) {
		if docType := c.opts.Mappings.DocumentType(); docType != "" {
			return []string{docType}
		}
		return []string{}
	}
	return c.types
}

// DocumentType returns the document type of the mapping, or "" without mappings.
func (c *Context) DocumentType() string { return c.opts.Mappings.DocumentType() }

// TypeExists reports whether docType is the mapping's document type.
func (c *Context) TypeExists(docType string) bool {
	return docType != "" && c.opts.Mappings.DocumentType() == docType
}

// HasMappings reports whether the index has a mapping document.
func (c *Context) HasMappings() bool { return c.opts.Mappings.HasMappings() }

// HasNested reports whether any object of the mapping is nested.
func (c *Context) HasNested() bool { return c.opts.Mappings.HasNested() }

// ObjectMapper returns the object mapper at path, or nil.
func (c *Context) ObjectMapper(path string) *mapping.ObjectMapper {
	return c.opts.Mappings.ObjectMapper(path)
}

// SimpleMatchToIndexNames expands a field name pattern to mapped field names.
func (c *Context) SimpleMatchToIndexNames(pattern string) []string {
	return c.opts.Mappings.SimpleMatchToFullName(pattern)
}

// NestedScope returns the nested scope of the current pass.
func (c *Context) NestedScope() *NestedScope { return c.nestedScope }

// SetAllowUnmappedFields sets whether unmapped fields resolve to nil instead of failing.
func (c *Context) SetAllowUnmappedFields(allow bool) { c.allowUnmapped = allow }

// SetMapUnmappedFieldAsText sets whether unmapped fields resolve to a text field
// when they are not allowed to be unmapped.
func (c *Context) SetMapUnmappedFieldAsText(asText bool) { c.mapUnmappedAsText = asText }

// IsFieldMapped reports whether name has a mapping, regardless of the unmapped policy.
func (c *Context) IsFieldMapped(name string) bool {
	return c.opts.Mappings.FieldType(name) != nil
}

// FieldType resolves name under the unmapped-field policy: the mapped type if
// any; otherwise nil when unmapped fields are allowed; otherwise a text type
// built for this request when unmapped fields map as text; otherwise a
// FieldResolutionError.
func (c *Context) FieldType(name string) (*mapping.FieldType, error) {
	if ft := c.opts.Mappings.FieldType(name); ft != nil {
		return ft, nil
	}
	if c.allowUnmapped {
		return nil, nil
	}
	if c.mapUnmappedAsText {
		return mapping.NewTextFieldType(name), nil
	}
	return nil, errors.NewFieldResolutionError(c.index.Name, c.opts.ShardID, name)
}

// BuildAnonymousFieldType builds a field type of typeName that belongs to no
// mapping, for example for sorting on unmapped fields.
func (c *Context) BuildAnonymousFieldType(typeName string) (*mapping.FieldType, error) {
	if typeName == "string" {
		c.deprecation.Deprecate("unmapped_type_string", "[unmapped_type:string] should be replaced with [unmapped_type:keyword]")
		typeName = mapping.TypeKeyword
	}
	pc := c.opts.Mappings.ParserContext()
	parser, ok := pc.TypeParser(typeName)
	if !ok {
		return nil, errors.NewUnknownFieldTypeError(typeName)
	}
	mapper, err := parser("__anonymous_"+typeName, map[string]interface{}{}, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to build anonymous field of type [%s]: %w", typeName, err)
	}
	fm, ok := mapper.(*mapping.FieldMapper)
	if !ok {
		return nil, errors.NewInvalidFieldTypeError(typeName)
	}
	return fm.FieldType(), nil
}

// Lookup returns the lookup of the current pass, building it on first use.
func (c *Context) Lookup() *lookup.Lookup {
	return c.lookups.Get()
}

// NewFetchLookup returns a lookup for a later phase; it is never memoized.
func (c *Context) NewFetchLookup() *lookup.Lookup {
	return c.lookups.Fresh()
}

func (c *Context) newLookup() *lookup.Lookup {
	return lookup.New(c.FieldType, func(ft *mapping.FieldType, searchLookup func() (*lookup.Lookup, error)) (search.DocValues, error) {
		if c.opts.FieldData == nil {
			return nil, fmt.Errorf("no field data available for [%s]", ft.Name)
		}
		fd, err := c.opts.FieldData(ft, c.index.Name, searchLookup)
		if err != nil {
			return nil, err
		}
		return fd, nil
	}, c.source)
}

func (c *Context) source(docID uint32) (model.Document, bool) {
	if c.opts.Searcher == nil {
		return nil, false
	}
	return c.opts.Searcher.Document(docID)
}

// FieldData returns the value reader of ft. Computed fields read their
// sources through the current lookup forked for ft.
func (c *Context) FieldData(ft *mapping.FieldType) (fielddata.IndexFieldData, error) {
	if c.opts.FieldData == nil {
		return nil, fmt.Errorf("no field data available for [%s]", ft.Name)
	}
	return c.opts.FieldData(ft, c.index.Name, func() (*lookup.Lookup, error) {
		return c.Lookup().ForkAndTrackFieldReferences(ft.Name)
	})
}

// AddNamedQuery records q under label.
func (c *Context) AddNamedQuery(label string, q search.Query) {
	c.namedQueries.Add(label, q)
}

// NamedQueries returns a snapshot of the named queries of the current pass.
func (c *Context) NamedQueries() map[string]search.Query {
	return c.namedQueries.Snapshot()
}

// Freeze makes every later non-deterministic operation fail. Callers freeze
// a context once they decided to cache the result.
func (c *Context) Freeze() { c.latch.Freeze() }

// IsFrozen reports whether Freeze was called.
func (c *Context) IsFrozen() bool { return c.latch.IsFrozen() }

// IsCacheable reports whether the queries built so far may be cached.
func (c *Context) IsCacheable() bool { return c.latch.IsCacheable() }

// NowInMillis returns the current time. The result is not cacheable afterwards.
func (c *Context) NowInMillis() (int64, error) {
	if err := c.latch.RequireMutableAllowed(); err != nil {
		return 0, err
	}
	return c.nowInMillis(), nil
}

// Client returns the live client. The result is not cacheable afterwards.
func (c *Context) Client() (Client, error) {
	if err := c.latch.RequireMutableAllowed(); err != nil {
		return nil, err
	}
	if c.opts.Client == nil {
		return nil, fmt.Errorf("no client available on shard [%s][%d]", c.index.Name, c.opts.ShardID)
	}
	return c.opts.Client, nil
}

// CompileScript compiles s. Scripts with non-deterministic results make the
// result uncacheable and are refused on a frozen context.
func (c *Context) CompileScript(s script.Script, kind script.Kind) (script.Factory, error) {
	if c.opts.Scripts == nil {
		return nil, fmt.Errorf("scripts are not available on index [%s]", c.index.Name)
	}
	factory, err := c.opts.Scripts.Compile(s, kind)
	if err != nil {
		return nil, err
	}
	if !factory.IsResultDeterministic() {
		if err := c.latch.RequireMutableAllowed(); err != nil {
			return nil, err
		}
	}
	return factory, nil
}

// RegisterAsyncAction queues an action to run before the next rewrite step.
// The result is not cacheable afterwards.
func (c *Context) RegisterAsyncAction(actionType model.ActionType, metadata map[string]string, action AsyncAction) error {
	if err := c.latch.RequireMutableAllowed(); err != nil {
		return err
	}
	c.pending = append(c.pending, pendingAction{actionType: actionType, metadata: metadata, run: action})
	return nil
}

// HasAsyncActions reports whether actions are waiting to run.
func (c *Context) HasAsyncActions() bool { return len(c.pending) > 0 }

// ExecuteAsyncActions runs the queued actions and blocks until all finished.
// Failures of several actions are returned together.
func (c *Context) ExecuteAsyncActions(ctx context.Context) error {
	if err := c.latch.RequireMutableAllowed(); err != nil {
		return err
	}
	actions := c.pending
	c.pending = nil
	if len(actions) == 0 {
		return nil
	}

	client := c.opts.Client
	if client == nil {
		return fmt.Errorf("no client available on shard [%s][%d]", c.index.Name, c.opts.ShardID)
	}
	c.logger.Debug("executing async actions", "count", len(actions))

	if c.opts.Actions == nil {
		var result *multierror.Error
		for _, a := range actions {
			if err := a.run(ctx, client); err != nil {
				result = multierror.Append(result, err)
			}
		}
		return result.ErrorOrNil()
	}

	tasks := make([]jobs.Task, len(actions))
	for i, a := range actions {
		run := a.run
		tasks[i] = jobs.Task{
			Type:     a.actionType,
			Metadata: a.metadata,
			Run:      func(ctx context.Context) error { return run(ctx, client) },
		}
	}
	return c.opts.Actions.RunAll(ctx, c.opts.Settings.Name, tasks)
}
