// Package search holds the executable query primitives of a shard: doc sets,
// the segment they are evaluated against, and the query types a compiled
// query description is made of.
package search

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/gcbaptista/go-shard-query/internal/typoutil"
)

// Query is an executable query. Execute must not mutate the query, so one
// compiled query can be run against several segments and cached by String().
type Query interface {
	Execute(seg *Segment) (DocSet, error)
	String() string
}

// DocValues reads the values of one field for a document.
type DocValues interface {
	Values(docID uint32) ([]interface{}, error)
}

// MatchAllDocsQuery matches every live document.
type MatchAllDocsQuery struct{}

func (MatchAllDocsQuery) Execute(seg *Segment) (DocSet, error) { return seg.AllDocs(), nil }
func (MatchAllDocsQuery) String() string                      { return "*:*" }

// MatchNoDocsQuery matches nothing. Reason explains why the query was reduced to it.
type MatchNoDocsQuery struct {
	Reason string
}

// MatchNoDocs returns a MatchNoDocsQuery carrying reason.
func MatchNoDocs(reason string) *MatchNoDocsQuery {
	return &MatchNoDocsQuery{Reason: reason}
}

func (q *MatchNoDocsQuery) Execute(*Segment) (DocSet, error) { return DocSet{}, nil }
func (q *MatchNoDocsQuery) String() string {
	return fmt.Sprintf("MatchNoDocsQuery(%q)", q.Reason)
}

// TermQuery matches documents whose field contains term in the inverted index.
type TermQuery struct {
	Field string
	Term  string
}

func (q *TermQuery) Execute(seg *Segment) (DocSet, error) {
	return seg.TermDocs(q.Field, q.Term), nil
}

func (q *TermQuery) String() string { return q.Field + ":" + q.Term }

// TermInSetQuery matches documents containing any of the terms.
type TermInSetQuery struct {
	Field string
	Terms []string
}

func (q *TermInSetQuery) Execute(seg *Segment) (DocSet, error) {
	result := DocSet{}
	for _, term := range q.Terms {
		result = result.Or(seg.TermDocs(q.Field, term))
	}
	return result, nil
}

func (q *TermInSetQuery) String() string {
	terms := make([]string, len(q.Terms))
	copy(terms, q.Terms)
	sort.Strings(terms)
	return q.Field + ":(" + strings.Join(terms, " ") + ")"
}

// WildcardQuery matches documents containing a term of field that matches Pattern.
// '*' matches any sequence of characters, '?' a single one and '\' escapes
// the character after it. Every other character is literal.
type WildcardQuery struct {
	Field   string
	Pattern string
}

func (q *WildcardQuery) Execute(seg *Segment) (DocSet, error) {
	glob := wildcardGlob(q.Pattern)
	result := DocSet{}
	for _, term := range seg.InvertedIndex().Terms(q.Field) {
		ok, err := doublestar.Match(glob, globSubject(term))
		if err != nil {
			return nil, fmt.Errorf("invalid wildcard pattern [%s]: %w", q.Pattern, err)
		}
		if ok {
			result = result.Or(seg.TermDocs(q.Field, term))
		}
	}
	return result, nil
}

// separatorStandIn replaces '/' on both sides of a glob match; doublestar
// never lets '*' or '?' cross a path separator.
const separatorStandIn = '\uE000'

// wildcardGlob translates a wildcard pattern to the doublestar pattern that
// matches the same terms once they went through globSubject.
func wildcardGlob(pattern string) string {
	var b strings.Builder
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			writeGlobLiteral(&b, r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '*' || r == '?':
			b.WriteRune(r)
		default:
			writeGlobLiteral(&b, r)
		}
	}
	if escaped {
		// A trailing backslash is literal.
		writeGlobLiteral(&b, '\\')
	}
	return b.String()
}

func writeGlobLiteral(b *strings.Builder, r rune) {
	switch r {
	case '/':
		b.WriteRune(separatorStandIn)
	case '*', '?', '[', ']', '{', '}', '\\':
		b.WriteByte('\\')
		b.WriteRune(r)
	default:
		b.WriteRune(r)
	}
}

func globSubject(term string) string {
	return strings.ReplaceAll(term, "/", string(separatorStandIn))
}

func (q *WildcardQuery) String() string { return q.Field + ":" + q.Pattern }

// FuzzyQuery matches documents containing a term of Field within MaxEdits
// of Term. Terms are expanded against the segment at execution time.
type FuzzyQuery struct {
	Field          string
	Term           string
	MaxEdits       int
	PrefixLength   int
	MaxExpansions  int
	Transpositions bool
}

func (q *FuzzyQuery) Execute(seg *Segment) (DocSet, error) {
	candidates := typoutil.Expand(q.Term, seg.InvertedIndex().Terms(q.Field), typoutil.Options{
		MaxEdits:       q.MaxEdits,
		PrefixLength:   q.PrefixLength,
		MaxExpansions:  q.MaxExpansions,
		Transpositions: q.Transpositions,
	})
	result := DocSet{}
	for _, c := range candidates {
		result = result.Or(seg.TermDocs(q.Field, c.Term))
	}
	return result, nil
}

func (q *FuzzyQuery) String() string {
	return fmt.Sprintf("%s:%s~%d", q.Field, q.Term, q.MaxEdits)
}

// DocValuesQuery matches documents having at least one value of Field that satisfies Match.
type DocValuesQuery struct {
	Field       string
	Values      DocValues
	Match       func(value interface{}) bool
	Description string
}

func (q *DocValuesQuery) Execute(seg *Segment) (DocSet, error) {
	result := DocSet{}
	for _, docID := range seg.AllDocs() {
		values, err := q.Values.Values(docID)
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			if q.Match(v) {
				result = append(result, docID)
				break
			}
		}
	}
	return result, nil
}

func (q *DocValuesQuery) String() string { return q.Description }

// ExistsQuery matches documents with at least one value for Field in their source.
type ExistsQuery struct {
	Field string
}

func (q *ExistsQuery) Execute(seg *Segment) (DocSet, error) {
	result := DocSet{}
	for _, docID := range seg.AllDocs() {
		doc, ok := seg.Document(docID)
		if ok && len(doc.Path(q.Field)) > 0 {
			result = append(result, docID)
		}
	}
	return result, nil
}

func (q *ExistsQuery) String() string { return "ExistsQuery(" + q.Field + ")" }

// IDsQuery matches documents by their documentID.
type IDsQuery struct {
	IDs []string
}

func (q *IDsQuery) Execute(seg *Segment) (DocSet, error) {
	ids := make([]uint32, 0, len(q.IDs))
	for _, id := range q.IDs {
		if docID, ok := seg.DocIDForExternalID(id); ok {
			ids = append(ids, docID)
		}
	}
	return NewDocSet(ids...), nil
}

func (q *IDsQuery) String() string {
	ids := make([]string, len(q.IDs))
	copy(ids, q.IDs)
	sort.Strings(ids)
	return "_id:(" + strings.Join(ids, " ") + ")"
}

// ScriptQuery matches documents for which Match returns true.
type ScriptQuery struct {
	Description string
	Match       func(docID uint32) (bool, error)
}

func (q *ScriptQuery) Execute(seg *Segment) (DocSet, error) {
	result := DocSet{}
	for _, docID := range seg.AllDocs() {
		ok, err := q.Match(docID)
		if err != nil {
			return nil, err
		}
		if ok {
			result = append(result, docID)
		}
	}
	return result, nil
}

func (q *ScriptQuery) String() string { return "ScriptQuery(" + q.Description + ")" }

// DocSetProducer yields the doc set of a filter, possibly from a cache.
type DocSetProducer interface {
	DocSet(seg *Segment) (DocSet, error)
}

// NestedQuery runs Inner against the objects under Path. Nested objects are
// stored inline with their parent, so a parent matches when it has objects
// under Path (Parents) and Inner matches it.
type NestedQuery struct {
	Path    string
	Inner   Query
	Parents DocSetProducer
}

func (q *NestedQuery) Execute(seg *Segment) (DocSet, error) {
	docs, err := q.Inner.Execute(seg)
	if err != nil {
		return nil, err
	}
	if q.Parents == nil {
		return docs, nil
	}
	parents, err := q.Parents.DocSet(seg)
	if err != nil {
		return nil, err
	}
	return docs.And(parents), nil
}

func (q *NestedQuery) String() string {
	return "nested(" + q.Path + ", " + q.Inner.String() + ")"
}

// BooleanQuery combines clauses. Must and Filter clauses are required, MustNot
// clauses are excluded, and Should clauses must match at least
// MinimumShouldMatch times (one when there are no required clauses).
type BooleanQuery struct {
	Must               []Query
	Filter             []Query
	Should             []Query
	MustNot            []Query
	MinimumShouldMatch int
}

func (q *BooleanQuery) Execute(seg *Segment) (DocSet, error) {
	var result DocSet
	started := false

	for _, clause := range append(append([]Query{}, q.Must...), q.Filter...) {
		docs, err := clause.Execute(seg)
		if err != nil {
			return nil, err
		}
		if started {
			result = result.And(docs)
		} else {
			result, started = docs, true
		}
	}

	if len(q.Should) > 0 {
		msm := q.MinimumShouldMatch
		if msm == 0 && !started {
			msm = 1
		}
		if msm > 0 {
			counts := make(map[uint32]int)
			for _, clause := range q.Should {
				docs, err := clause.Execute(seg)
				if err != nil {
					return nil, err
				}
				for _, id := range docs {
					counts[id]++
				}
			}
			ids := make([]uint32, 0, len(counts))
			for id, n := range counts {
				if n >= msm {
					ids = append(ids, id)
				}
			}
			should := NewDocSet(ids...)
			if started {
				result = result.And(should)
			} else {
				result, started = should, true
			}
		}
	}

	if !started {
		result = seg.AllDocs()
	}
	for _, clause := range q.MustNot {
		docs, err := clause.Execute(seg)
		if err != nil {
			return nil, err
		}
		result = result.AndNot(docs)
	}
	return result, nil
}

func (q *BooleanQuery) String() string {
	var parts []string
	add := func(prefix string, clauses []Query) {
		for _, c := range clauses {
			s := c.String()
			if _, nested := c.(*BooleanQuery); nested {
				s = "(" + s + ")"
			}
			parts = append(parts, prefix+s)
		}
	}
	add("+", q.Must)
	add("#", q.Filter)
	add("", q.Should)
	add("-", q.MustNot)
	s := strings.Join(parts, " ")
	if q.MinimumShouldMatch > 0 {
		s += fmt.Sprintf("~%d", q.MinimumShouldMatch)
	}
	return s
}
