package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gcbaptista/go-shard-query/model"
)

// DocumentStore keeps the source of every document of a shard, keyed by an
// internal numeric doc id. Doc ids are never reused within a store.
type DocumentStore struct {
	Mu                     sync.RWMutex
	Docs                   map[uint32]model.Document // Internal ID to full document
	ExternalIDtoInternalID map[string]uint32         // User-provided ID to internal uint32 ID
	NextID                 uint32
}

// NewDocumentStore creates an empty store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		Docs:                   make(map[uint32]model.Document),
		ExternalIDtoInternalID: make(map[string]uint32),
	}
}

// Put stores doc under a fresh internal id. If a document with the same
// documentID exists, its old internal id is returned as previous so the
// caller can drop its postings.
func (ds *DocumentStore) Put(doc model.Document) (docID uint32, previous uint32, replaced bool, err error) {
	externalID, ok := doc.GetDocumentID()
	if !ok {
		return 0, 0, false, fmt.Errorf("document is missing a non-empty string 'documentID'")
	}

	ds.Mu.Lock()
	defer ds.Mu.Unlock()

	if old, exists := ds.ExternalIDtoInternalID[externalID]; exists {
		delete(ds.Docs, old)
		previous, replaced = old, true
	}

	docID = ds.NextID
	ds.NextID++
	ds.Docs[docID] = doc
	ds.ExternalIDtoInternalID[externalID] = docID
	return docID, previous, replaced, nil
}

// Get returns the document stored under an internal id.
func (ds *DocumentStore) Get(docID uint32) (model.Document, bool) {
	ds.Mu.RLock()
	defer ds.Mu.RUnlock()
	doc, ok := ds.Docs[docID]
	return doc, ok
}

// GetByExternalID returns the document and its internal id for a documentID.
func (ds *DocumentStore) GetByExternalID(externalID string) (model.Document, uint32, bool) {
	ds.Mu.RLock()
	defer ds.Mu.RUnlock()
	docID, ok := ds.ExternalIDtoInternalID[externalID]
	if !ok {
		return nil, 0, false
	}
	return ds.Docs[docID], docID, true
}

// Delete removes a document by its documentID and returns its internal id.
func (ds *DocumentStore) Delete(externalID string) (uint32, bool) {
	ds.Mu.Lock()
	defer ds.Mu.Unlock()
	docID, ok := ds.ExternalIDtoInternalID[externalID]
	if !ok {
		return 0, false
	}
	delete(ds.ExternalIDtoInternalID, externalID)
	delete(ds.Docs, docID)
	return docID, true
}

// IDs returns the live internal ids in ascending order.
func (ds *DocumentStore) IDs() []uint32 {
	ds.Mu.RLock()
	defer ds.Mu.RUnlock()
	ids := make([]uint32, 0, len(ds.Docs))
	for id := range ds.Docs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of live documents.
func (ds *DocumentStore) Len() int {
	ds.Mu.RLock()
	defer ds.Mu.RUnlock()
	return len(ds.Docs)
}
