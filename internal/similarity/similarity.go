// Package similarity provides the term-scoring functions an index can be configured with.
package similarity

import (
	"fmt"
	"math"

	"github.com/gcbaptista/go-shard-query/index"
	"github.com/gcbaptista/go-shard-query/mapping"
)

// Names of the built-in similarities.
const (
	BM25Name    = "BM25"
	BooleanName = "boolean"
)

// TermStats are the statistics a similarity scores one (term, doc, field) with.
type TermStats struct {
	TermFreq       float64
	FieldLength    int
	AvgFieldLength float64
	DocFreq        int
	DocCount       int
}

// Similarity scores a term occurrence.
type Similarity interface {
	Name() string
	Score(stats TermStats) float64
}

// Provider returns the similarity for an index given access to its field types.
// It may return nil when the index does not score.
type Provider func(fieldType func(name string) *mapping.FieldType) Similarity

// NewProvider returns the provider for a similarity name. An empty name selects BM25.
func NewProvider(name string) (Provider, error) {
	switch name {
	case "", BM25Name:
		sim := NewBM25()
		return func(func(string) *mapping.FieldType) Similarity { return sim }, nil
	case BooleanName:
		return func(func(string) *mapping.FieldType) Similarity { return Boolean{} }, nil
	default:
		return nil, fmt.Errorf("unknown similarity [%s]", name)
	}
}

// BM25 = IDF * (tf * (k1 + 1)) / (tf + k1 * (1 - b + b * (|d| / avgdl)))
type BM25 struct {
	K1 float64 // Controls term frequency saturation
	B  float64 // Controls how much effect document length has
}

// NewBM25 returns BM25 with the usual parameters.
func NewBM25() *BM25 {
	return &BM25{K1: 1.2, B: 0.75}
}

func (s *BM25) Name() string { return BM25Name }

// Score calculates BM25 with document length normalization.
func (s *BM25) Score(stats TermStats) float64 {
	idf := idf(stats.DocCount, stats.DocFreq)
	if idf == 0 || stats.TermFreq == 0 {
		return 0
	}

	norm := 1.0
	if stats.AvgFieldLength > 0 {
		norm = 1 - s.B + s.B*(float64(stats.FieldLength)/stats.AvgFieldLength)
	}
	tf := stats.TermFreq
	return idf * (tf * (s.K1 + 1)) / (tf + s.K1*norm)
}

// idf calculates the inverse document frequency
// IDF = log(N / df) where N = total documents, df = documents containing term
func idf(docCount, docFreq int) float64 {
	if docCount == 0 || docFreq == 0 {
		return 0
	}
	return math.Log(float64(docCount) / float64(docFreq))
}

// Boolean scores every matching term 1.
type Boolean struct{}

func (Boolean) Name() string { return BooleanName }

func (Boolean) Score(stats TermStats) float64 {
	if stats.TermFreq > 0 {
		return 1
	}
	return 0
}

// Stats gathers the statistics of term in field for docID from an inverted index.
func Stats(ii *index.InvertedIndex, docCount int, field, term string, docID uint32) TermStats {
	stats := TermStats{
		FieldLength:    ii.FieldLength(field, docID),
		AvgFieldLength: ii.AverageFieldLength(field),
		DocCount:       docCount,
	}
	for _, entry := range ii.Postings(field, term) {
		stats.DocFreq++
		if entry.DocID == docID {
			stats.TermFreq = entry.Score
		}
	}
	return stats
}
