// Package indexing writes documents of one shard to its document store and
// inverted index, analyzing every mapped field with its field type.
package indexing

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gcbaptista/go-shard-query/index"
	"github.com/gcbaptista/go-shard-query/internal/logging"
	"github.com/gcbaptista/go-shard-query/mapping"
	"github.com/gcbaptista/go-shard-query/model"
	"github.com/gcbaptista/go-shard-query/store"
)

// Service implements the indexing logic for a single shard.
type Service struct {
	mappings      *mapping.Service
	invertedIndex *index.InvertedIndex
	documentStore *store.DocumentStore
	logger        *slog.Logger

	mu        sync.Mutex // serializes writers; doc ids must reach the index in order
	listeners []func()
}

// NewService creates a new indexing Service.
func NewService(mappings *mapping.Service, invertedIndex *index.InvertedIndex, documentStore *store.DocumentStore, logger *slog.Logger) (*Service, error) {
	if mappings == nil {
		return nil, fmt.Errorf("mappings cannot be nil")
	}
	if invertedIndex == nil {
		return nil, fmt.Errorf("inverted index cannot be nil")
	}
	if documentStore == nil {
		return nil, fmt.Errorf("document store cannot be nil")
	}
	return &Service{
		mappings:      mappings,
		invertedIndex: invertedIndex,
		documentStore: documentStore,
		logger:        logging.Default(logger).With("component", "indexing", "index", mappings.Index().Name),
	}, nil
}

// OnChange registers fn to run after every write, e.g. to drop caches that
// hold doc sets of the previous state.
func (s *Service) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// analyzedDocument is a validated document with the terms of every searchable field.
type analyzedDocument struct {
	doc   model.Document
	terms map[string][]string // field -> tokens
}

// AddDocuments adds or replaces a batch of documents. The batch is validated
// as a whole first; a single invalid document rejects the batch.
func (s *Service) AddDocuments(docs []model.Document) error {
	analyzed := make([]analyzedDocument, len(docs))
	for i, doc := range docs {
		a, err := s.analyze(doc)
		if err != nil {
			return fmt.Errorf("failed to add document at position %d: %w", i, err)
		}
		analyzed[i] = a
	}
	return s.apply(analyzed)
}

// DeleteDocument removes a document by its documentID.
func (s *Service) DeleteDocument(documentID string) bool {
	s.mu.Lock()
	docID, ok := s.documentStore.Delete(documentID)
	if ok {
		s.invertedIndex.RemoveDocument(docID)
	}
	listeners := s.listeners
	s.mu.Unlock()

	if ok {
		notify(listeners)
	}
	return ok
}

func (s *Service) apply(docs []analyzedDocument) error {
	start := time.Now()
	s.mu.Lock()
	for _, a := range docs {
		docID, previous, replaced, err := s.documentStore.Put(a.doc)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		if replaced {
			s.invertedIndex.RemoveDocument(previous)
		}
		for field, tokens := range a.terms {
			s.invertedIndex.Add(docID, field, tokens)
		}
	}
	listeners := s.listeners
	s.mu.Unlock()

	notify(listeners)
	s.logger.Debug("indexed documents", "count", len(docs), "took", time.Since(start))
	return nil
}

func notify(listeners []func()) {
	for _, fn := range listeners {
		fn()
	}
}

// analyze validates doc against the mapping and computes its index terms.
func (s *Service) analyze(doc model.Document) (analyzedDocument, error) {
	idValue, exists := doc["documentID"]
	if !exists {
		return analyzedDocument{}, fmt.Errorf("document documentID not found; documentID must be provided in the document data with key 'documentID'")
	}
	id, ok := idValue.(string)
	if !ok {
		return analyzedDocument{}, fmt.Errorf("document documentID has an invalid type in the map, expected string")
	}
	if strings.TrimSpace(id) == "" {
		return analyzedDocument{}, fmt.Errorf("document documentID cannot be empty or whitespace-only")
	}

	terms := make(map[string][]string)
	for _, field := range s.mappings.FieldNames() {
		ft := s.mappings.FieldType(field)
		if ft == nil || ft.Type == mapping.TypeRuntime {
			continue
		}
		for _, value := range doc.Path(field) {
			if ft.HasDocValues {
				if _, err := ft.ParseValue(value); err != nil {
					return analyzedDocument{}, fmt.Errorf("failed to parse field [%s] of document with id '%s': %w", field, id, err)
				}
			}
			terms[field] = append(terms[field], ft.IndexTerms(value)...)
		}
	}
	return analyzedDocument{doc: doc, terms: terms}, nil
}
