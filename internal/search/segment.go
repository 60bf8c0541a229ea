package search

import (
	"fmt"

	"github.com/gcbaptista/go-shard-query/index"
	"github.com/gcbaptista/go-shard-query/model"
	"github.com/gcbaptista/go-shard-query/store"
)

// Segment is the searchable view of a shard: its inverted index and its document store.
type Segment struct {
	invertedIndex *index.InvertedIndex
	documentStore *store.DocumentStore
}

// NewSegment creates a segment over an inverted index and a document store.
func NewSegment(invIndex *index.InvertedIndex, docStore *store.DocumentStore) (*Segment, error) {
	if invIndex == nil {
		return nil, fmt.Errorf("inverted index cannot be nil")
	}
	if docStore == nil {
		return nil, fmt.Errorf("document store cannot be nil")
	}
	return &Segment{invertedIndex: invIndex, documentStore: docStore}, nil
}

// InvertedIndex returns the segment's inverted index.
func (s *Segment) InvertedIndex() *index.InvertedIndex { return s.invertedIndex }

// AllDocs returns every live doc id.
func (s *Segment) AllDocs() DocSet {
	return DocSet(s.documentStore.IDs())
}

// Document returns the source of a doc id.
func (s *Segment) Document(docID uint32) (model.Document, bool) {
	return s.documentStore.Get(docID)
}

// DocIDForExternalID maps a documentID to its internal id.
func (s *Segment) DocIDForExternalID(externalID string) (uint32, bool) {
	_, docID, ok := s.documentStore.GetByExternalID(externalID)
	return docID, ok
}

// TermDocs returns the docs containing term in field.
func (s *Segment) TermDocs(field, term string) DocSet {
	postings := s.invertedIndex.Postings(field, term)
	ids := make([]uint32, len(postings))
	for i, p := range postings {
		ids[i] = p.DocID
	}
	return NewDocSet(ids...)
}

// Count returns the number of live docs.
func (s *Segment) Count() int {
	return s.documentStore.Len()
}
