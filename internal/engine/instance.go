package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"

	"github.com/gcbaptista/go-shard-query/config"
	"github.com/gcbaptista/go-shard-query/index"
	"github.com/gcbaptista/go-shard-query/internal/bitset"
	"github.com/gcbaptista/go-shard-query/internal/fielddata"
	"github.com/gcbaptista/go-shard-query/internal/indexing"
	"github.com/gcbaptista/go-shard-query/internal/search"
	"github.com/gcbaptista/go-shard-query/mapping"
	"github.com/gcbaptista/go-shard-query/model"
	"github.com/gcbaptista/go-shard-query/store"
)

// bulkThreshold is the batch size from which documents are analyzed in parallel.
const bulkThreshold = 1000

// IndexInstance holds all components of the single shard of an index.
type IndexInstance struct {
	// mu is held for reading while a search runs and for writing while
	// documents, mappings or settings change.
	mu            sync.RWMutex
	settings      *config.IndexSettings
	mappings      *mapping.Service
	InvertedIndex *index.InvertedIndex
	DocumentStore *store.DocumentStore
	indexer       *indexing.Service
	segment       *search.Segment
	bitsets       *bitset.Cache
	fieldData     fielddata.Factory
	requestCache  *lru.Cache
	logger        *slog.Logger

	// published is the document store GetDocument reads without taking mu.
	published atomic.Pointer[store.DocumentStore]
}

// NewIndexInstance creates and initializes a new IndexInstance. settings must
// have their defaults applied.
func NewIndexInstance(settings config.IndexSettings, def *mapping.Definition, registry *mapping.Registry, logger *slog.Logger) (*IndexInstance, error) {
	if settings.Name == "" {
		return nil, fmt.Errorf("index name cannot be empty in settings")
	}
	logger = logger.With("index", settings.Name)

	bitsets, err := bitset.NewCache(settings.BitsetCacheSize, logger)
	if err != nil {
		return nil, err
	}
	requestCache, err := lru.New(settings.RequestCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create request cache: %w", err)
	}

	instance := &IndexInstance{
		settings:     &settings,
		bitsets:      bitsets,
		requestCache: requestCache,
		logger:       logger,
	}
	if err := instance.build(def, registry); err != nil {
		return nil, err
	}
	return instance, nil
}

// build creates empty shard structures for def. Callers hold mu or own the instance.
func (i *IndexInstance) build(def *mapping.Definition, registry *mapping.Registry) error {
	mappings, err := mapping.NewService(mapping.Index{Name: i.settings.Name, UUID: i.settings.UUID}, def, registry)
	if err != nil {
		return err
	}

	invIndex := index.NewInvertedIndex()
	docStore := store.NewDocumentStore()
	indexer, err := indexing.NewService(mappings, invIndex, docStore, i.logger)
	if err != nil {
		return fmt.Errorf("failed to create indexer service: %w", err)
	}
	segment, err := search.NewSegment(invIndex, docStore)
	if err != nil {
		return err
	}
	indexer.OnChange(i.invalidateCaches)

	i.mappings = mappings
	i.InvertedIndex = invIndex
	i.DocumentStore = docStore
	i.indexer = indexer
	i.segment = segment
	i.fieldData = fielddata.NewFactory(docStore)
	i.published.Store(docStore)
	i.invalidateCaches()
	return nil
}

// shardState is the part of an instance a mapping update replaces.
type shardState struct {
	mappings      *mapping.Service
	invertedIndex *index.InvertedIndex
	documentStore *store.DocumentStore
	indexer       *indexing.Service
	segment       *search.Segment
	fieldData     fielddata.Factory
}

func (i *IndexInstance) state() shardState {
	return shardState{
		mappings:      i.mappings,
		invertedIndex: i.InvertedIndex,
		documentStore: i.DocumentStore,
		indexer:       i.indexer,
		segment:       i.segment,
		fieldData:     i.fieldData,
	}
}

func (i *IndexInstance) restore(s shardState) {
	i.mappings = s.mappings
	i.InvertedIndex = s.invertedIndex
	i.DocumentStore = s.documentStore
	i.indexer = s.indexer
	i.segment = s.segment
	i.fieldData = s.fieldData
	i.published.Store(s.documentStore)
	i.invalidateCaches()
}

// invalidateCaches drops everything computed from the previous segment state.
func (i *IndexInstance) invalidateCaches() {
	i.bitsets.Clear()
	i.requestCache.Purge()
}

// Settings returns the current settings. They must not be modified.
func (i *IndexInstance) Settings() *config.IndexSettings {
	return i.settings
}

// Mappings returns the parsed mappings of the index.
func (i *IndexInstance) Mappings() *mapping.Service {
	return i.mappings
}

// Segment returns the searchable view of the shard.
func (i *IndexInstance) Segment() *search.Segment {
	return i.segment
}

// AddDocuments indexes docs, replacing documents with the same documentID.
func (i *IndexInstance) AddDocuments(docs []model.Document) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if len(docs) >= bulkThreshold {
		return i.indexer.AddDocumentsBulk(docs, indexing.DefaultBulkConfig())
	}
	return i.indexer.AddDocuments(docs)
}

// DeleteDocument removes a document and reports whether it existed.
func (i *IndexInstance) DeleteDocument(documentID string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.indexer.DeleteDocument(documentID)
}

// Documents returns every stored document in doc id order.
func (i *IndexInstance) Documents() []model.Document {
	ids := i.DocumentStore.IDs()
	docs := make([]model.Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := i.DocumentStore.Get(id); ok {
			docs = append(docs, doc)
		}
	}
	return docs
}

// lookupDocument reads a document without waiting for writers, so async
// actions of a running search can read the index the search holds.
func (i *IndexInstance) lookupDocument(documentID string) (model.Document, bool) {
	doc, _, ok := i.published.Load().GetByExternalID(documentID)
	return doc, ok
}

// RequestCacheLen returns the number of cached search results.
func (i *IndexInstance) RequestCacheLen() int {
	return i.requestCache.Len()
}
