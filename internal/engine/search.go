package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/gcbaptista/go-shard-query/config"
	"github.com/gcbaptista/go-shard-query/internal/errors"
	"github.com/gcbaptista/go-shard-query/internal/query"
	"github.com/gcbaptista/go-shard-query/internal/search"
	"github.com/gcbaptista/go-shard-query/services"
)

const defaultPageSize = 10

// requestCacheKey identifies a search result in the request cache of an index.
type requestCacheKey struct {
	query        string
	from, size   int
	clusterAlias string
}

// Search compiles req.Query on the shard of indexName and returns the page of
// matching documents. Results are served from and stored in the request cache
// according to req.RequestCache: true freezes the context before compiling so
// that queries depending on the clock or on scripts that are not deterministic
// fail; unset caches whenever the compiled query turned out cacheable; false
// never caches.
func (e *Engine) Search(ctx context.Context, indexName string, req services.SearchRequest) (services.SearchResult, error) {
	startTime := time.Now()

	from, size, err := pagination(req)
	if err != nil {
		return services.SearchResult{}, err
	}
	builder, err := query.Parse(req.Query)
	if err != nil {
		return services.SearchResult{}, err
	}

	instance, err := e.instance(indexName)
	if err != nil {
		return services.SearchResult{}, err
	}
	instance.mu.RLock()
	defer instance.mu.RUnlock()

	qctx, err := e.newQueryContext(instance, req.ClusterAlias)
	if err != nil {
		return services.SearchResult{}, err
	}
	forceCache := req.RequestCache != nil && *req.RequestCache
	if forceCache {
		qctx.Freeze()
	}

	parsed, err := qctx.Compile(ctx, builder)
	if err != nil {
		return services.SearchResult{}, err
	}

	cacheable := qctx.IsCacheable()
	useCache := cacheable && (req.RequestCache == nil || forceCache)
	var key requestCacheKey
	if useCache {
		key, err = cacheKey(req, from, size)
		if err != nil {
			return services.SearchResult{}, err
		}
		if cached, ok := instance.requestCache.Get(key); ok {
			result := cached.(services.SearchResult)
			result.Cached = true
			result.QueryId = uuid.New().String()
			result.Took = time.Since(startTime).Milliseconds()
			return result, nil
		}
	}

	docs, err := parsed.Query.Execute(qctx.Searcher())
	if err != nil {
		return services.SearchResult{}, fmt.Errorf("failed to execute query on [%s]: %w", indexName, err)
	}
	page, err := e.sortedPage(qctx, docs, from, size)
	if err != nil {
		return services.SearchResult{}, err
	}
	hits, err := buildHits(qctx.Searcher(), page, parsed.NamedQueries)
	if err != nil {
		return services.SearchResult{}, err
	}

	result := services.SearchResult{
		Hits:      hits,
		Total:     len(docs),
		From:      from,
		Size:      size,
		Cacheable: cacheable,
	}
	if useCache {
		instance.requestCache.Add(key, result)
	}

	result.QueryId = uuid.New().String()
	result.Took = time.Since(startTime).Milliseconds()
	instance.logger.Debug("search executed",
		"query_id", result.QueryId,
		"total", result.Total,
		"cacheable", cacheable,
		"took_ms", result.Took)
	return result, nil
}

func pagination(req services.SearchRequest) (from, size int, err error) {
	if req.From < 0 {
		return 0, 0, errors.NewValidationError("from", "must not be negative")
	}
	if req.Size < 0 {
		return 0, 0, errors.NewValidationError("size", "must not be negative")
	}
	size = req.Size
	if size == 0 {
		size = defaultPageSize
	}
	return req.From, size, nil
}

func cacheKey(req services.SearchRequest, from, size int) (requestCacheKey, error) {
	var compact bytes.Buffer
	if err := json.Compact(&compact, req.Query); err != nil {
		return requestCacheKey{}, errors.NewParsingError("query", "malformed query: %v", err)
	}
	return requestCacheKey{
		query:        compact.String(),
		from:         from,
		size:         size,
		clusterAlias: req.ClusterAlias,
	}, nil
}

// sortedPage orders docs by the index sort and returns the requested window.
// Without an index sort, documents keep doc id order.
func (e *Engine) sortedPage(qctx *query.Context, docs search.DocSet, from, size int) ([]uint32, error) {
	if from >= len(docs) {
		return []uint32{}, nil
	}

	buf := e.bigArrays.Get()
	defer e.bigArrays.Put(buf)
	*buf = append(*buf, docs...)
	ordered := *buf

	sortFields := qctx.IndexSettings().SortFields
	if len(sortFields) > 0 {
		keys, err := sortKeys(qctx, sortFields, ordered)
		if err != nil {
			return nil, err
		}
		sort.SliceStable(ordered, func(i, j int) bool {
			a, b := ordered[i], ordered[j]
			for k, sf := range sortFields {
				if cmp := compareSortValues(keys[k][a], keys[k][b], sf.Order); cmp != 0 {
					return cmp < 0
				}
			}
			return a < b
		})
	}

	end := from + size
	if end > len(ordered) {
		end = len(ordered)
	}
	page := make([]uint32, end-from)
	copy(page, ordered[from:end])
	return page, nil
}

// sortKeys loads the first value of every sort field for every doc. A missing
// value is stored as nil.
func sortKeys(qctx *query.Context, sortFields []config.SortField, docs []uint32) ([]map[uint32]interface{}, error) {
	keys := make([]map[uint32]interface{}, len(sortFields))
	for k, sf := range sortFields {
		keys[k] = make(map[uint32]interface{}, len(docs))
		ft, err := qctx.FieldType(sf.Field)
		if err != nil {
			return nil, err
		}
		if ft == nil {
			continue
		}
		fd, err := qctx.FieldData(ft)
		if err != nil {
			return nil, err
		}
		for _, docID := range docs {
			values, err := fd.Values(docID)
			if err != nil {
				return nil, fmt.Errorf("failed to load sort value of [%s]: %w", sf.Field, err)
			}
			if len(values) > 0 {
				keys[k][docID] = values[0]
			}
		}
	}
	return keys, nil
}

// compareSortValues orders two sort values; missing values sort last in both directions.
func compareSortValues(a, b interface{}, order string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	cmp, ok := search.CompareValues(a, b)
	if !ok {
		return 0
	}
	if order == "desc" {
		return -cmp
	}
	return cmp
}

func buildHits(seg *search.Segment, page []uint32, named map[string]search.Query) ([]services.HitResult, error) {
	names := make([]string, 0, len(named))
	for name := range named {
		names = append(names, name)
	}
	sort.Strings(names)

	matches := make(map[string]search.DocSet, len(names))
	for _, name := range names {
		docs, err := named[name].Execute(seg)
		if err != nil {
			return nil, fmt.Errorf("failed to execute named query [%s]: %w", name, err)
		}
		matches[name] = docs
	}

	hits := make([]services.HitResult, 0, len(page))
	for _, docID := range page {
		doc, ok := seg.Document(docID)
		if !ok {
			continue
		}
		id, _ := doc.GetDocumentID()
		hit := services.HitResult{ID: id, Document: doc}
		for _, name := range names {
			if matches[name].Contains(docID) {
				hit.MatchedQueries = append(hit.MatchedQueries, name)
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// ValidateQuery compiles req.Query without executing it. Queries that fail to
// parse or compile are reported as invalid rather than returned as errors;
// only an unknown index is an error.
func (e *Engine) ValidateQuery(ctx context.Context, indexName string, req services.ValidateRequest) (services.ValidateResult, error) {
	instance, err := e.instance(indexName)
	if err != nil {
		return services.ValidateResult{}, err
	}

	builder, err := query.Parse(req.Query)
	if err != nil {
		return services.ValidateResult{Valid: false, Error: err.Error()}, nil
	}

	instance.mu.RLock()
	defer instance.mu.RUnlock()

	qctx, err := e.newQueryContext(instance, req.ClusterAlias)
	if err != nil {
		return services.ValidateResult{}, err
	}
	parsed, err := qctx.Compile(ctx, builder)
	if err != nil {
		return services.ValidateResult{Valid: false, Error: err.Error()}, nil
	}

	names := make([]string, 0, len(parsed.NamedQueries))
	for name := range parsed.NamedQueries {
		names = append(names, name)
	}
	sort.Strings(names)

	return services.ValidateResult{
		Valid:        true,
		Explanation:  parsed.Query.String(),
		NamedQueries: names,
		Cacheable:    qctx.IsCacheable(),
	}, nil
}
