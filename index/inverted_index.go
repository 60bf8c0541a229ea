package index

import (
	"sort"
	"sync"
)

// InvertedIndex maps a term (token) to the documents containing it.
// A term indexed in several fields has one entry per (doc, field) pair.
type InvertedIndex struct {
	Mu    sync.RWMutex
	Index map[string]PostingList
	// FieldLengths holds the token count of every indexed field value: field -> doc -> length.
	FieldLengths map[string]map[uint32]int
}

// NewInvertedIndex creates an empty index.
func NewInvertedIndex() *InvertedIndex {
	return &InvertedIndex{
		Index:        make(map[string]PostingList),
		FieldLengths: make(map[string]map[uint32]int),
	}
}

// Add indexes the analyzed tokens of one field of one document.
// Doc ids must be added in ascending order for posting lists to stay sorted.
func (ii *InvertedIndex) Add(docID uint32, field string, tokens []string) {
	if len(tokens) == 0 {
		return
	}

	positions := make(map[string][]int)
	order := make([]string, 0, len(tokens))
	for pos, token := range tokens {
		if _, seen := positions[token]; !seen {
			order = append(order, token)
		}
		positions[token] = append(positions[token], pos)
	}

	ii.Mu.Lock()
	defer ii.Mu.Unlock()

	for _, token := range order {
		ii.Index[token] = append(ii.Index[token], PostingEntry{
			DocID:     docID,
			FieldName: field,
			Score:     float64(len(positions[token])),
			Positions: positions[token],
		})
	}

	lengths, ok := ii.FieldLengths[field]
	if !ok {
		lengths = make(map[uint32]int)
		ii.FieldLengths[field] = lengths
	}
	lengths[docID] += len(tokens)
}

// RemoveDocument drops every posting of docID.
func (ii *InvertedIndex) RemoveDocument(docID uint32) {
	ii.Mu.Lock()
	defer ii.Mu.Unlock()

	for term, list := range ii.Index {
		kept := list[:0]
		for _, entry := range list {
			if entry.DocID != docID {
				kept = append(kept, entry)
			}
		}
		if len(kept) == 0 {
			delete(ii.Index, term)
		} else {
			ii.Index[term] = kept
		}
	}
	for _, lengths := range ii.FieldLengths {
		delete(lengths, docID)
	}
}

// Postings returns the entries of term restricted to field.
func (ii *InvertedIndex) Postings(field, term string) PostingList {
	ii.Mu.RLock()
	defer ii.Mu.RUnlock()

	var out PostingList
	for _, entry := range ii.Index[term] {
		if entry.FieldName == field {
			out = append(out, entry)
		}
	}
	return out
}

// Terms returns the sorted term dictionary of field.
func (ii *InvertedIndex) Terms(field string) []string {
	ii.Mu.RLock()
	defer ii.Mu.RUnlock()

	var terms []string
	for term, list := range ii.Index {
		for _, entry := range list {
			if entry.FieldName == field {
				terms = append(terms, term)
				break
			}
		}
	}
	sort.Strings(terms)
	return terms
}

// DocFreq returns the number of documents containing term in field.
func (ii *InvertedIndex) DocFreq(field, term string) int {
	return len(ii.Postings(field, term))
}

// FieldLength returns the token count of field in docID.
func (ii *InvertedIndex) FieldLength(field string, docID uint32) int {
	ii.Mu.RLock()
	defer ii.Mu.RUnlock()
	return ii.FieldLengths[field][docID]
}

// AverageFieldLength returns the mean token count of field over the documents that have it.
func (ii *InvertedIndex) AverageFieldLength(field string) float64 {
	ii.Mu.RLock()
	defer ii.Mu.RUnlock()

	lengths := ii.FieldLengths[field]
	if len(lengths) == 0 {
		return 0
	}
	total := 0
	for _, l := range lengths {
		total += l
	}
	return float64(total) / float64(len(lengths))
}
