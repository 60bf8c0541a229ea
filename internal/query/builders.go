package query

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gcbaptista/go-shard-query/internal/errors"
	"github.com/gcbaptista/go-shard-query/internal/script"
	"github.com/gcbaptista/go-shard-query/internal/search"
	"github.com/gcbaptista/go-shard-query/internal/typoutil"
	"github.com/gcbaptista/go-shard-query/mapping"
	"github.com/gcbaptista/go-shard-query/model"
)

// Builder kinds, as they appear in the query DSL.
const (
	KindMatchAll  = "match_all"
	KindMatchNone = "match_none"
	KindTerm      = "term"
	KindTerms     = "terms"
	KindMatch     = "match"
	KindBool      = "bool"
	KindRange     = "range"
	KindExists    = "exists"
	KindIDs       = "ids"
	KindFuzzy     = "fuzzy"
	KindWildcard  = "wildcard"
	KindNested    = "nested"
	KindScript    = "script"
)

// named registers q under name when the caller labelled the query.
func named(ctx *Context, name string, q search.Query) search.Query {
	if name != "" {
		ctx.AddNamedQuery(name, q)
	}
	return q
}

// rewriteUnmapped replaces b by a match_none when field is unmapped and the
// policy allows it. Resolution errors are returned as is.
func rewriteUnmapped(ctx *Context, field, name string, b Builder) (Builder, error) {
	ft, err := ctx.FieldType(field)
	if err != nil {
		return nil, err
	}
	if ft == nil {
		return &MatchNoneBuilder{Name: name, Reason: "unmapped field [" + field + "]"}, nil
	}
	return b, nil
}

// valueType returns the field type query values are parsed with. Runtime
// fields expose the values of their source field.
func valueType(ctx *Context, ft *mapping.FieldType) *mapping.FieldType {
	if ft.Type == mapping.TypeRuntime && ft.Path != "" {
		if target := ctx.opts.Mappings.FieldType(ft.Path); target != nil {
			return target
		}
	}
	return ft
}

// indexTerm renders value the way the field writes it to the inverted index.
func indexTerm(ft *mapping.FieldType, value interface{}) (string, error) {
	if ft.Type == mapping.TypeBoolean {
		parsed, err := ft.ParseValue(value)
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(parsed.(bool)), nil
	}
	return fmt.Sprint(value), nil
}

func docValuesQuery(ctx *Context, ft *mapping.FieldType, description string, match func(v interface{}) bool) (search.Query, error) {
	fd, err := ctx.FieldData(ft)
	if err != nil {
		return nil, err
	}
	return &search.DocValuesQuery{Field: ft.Name, Values: fd, Match: match, Description: description}, nil
}

func termsQuery(ctx *Context, ft *mapping.FieldType, values []interface{}) (search.Query, error) {
	if ft.Searchable {
		terms := make([]string, 0, len(values))
		for _, v := range values {
			term, err := indexTerm(ft, v)
			if err != nil {
				return nil, err
			}
			terms = append(terms, term)
		}
		if len(terms) == 1 {
			return &search.TermQuery{Field: ft.Name, Term: terms[0]}, nil
		}
		return &search.TermInSetQuery{Field: ft.Name, Terms: terms}, nil
	}
	if !ft.HasDocValues {
		return nil, fmt.Errorf("cannot search on field [%s] since it is not indexed", ft.Name)
	}

	vt := valueType(ctx, ft)
	parsed := make([]interface{}, 0, len(values))
	rendered := make([]string, 0, len(values))
	for _, v := range values {
		p, err := vt.ParseValue(v)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, p)
		rendered = append(rendered, fmt.Sprint(v))
	}
	description := ft.Name + ":" + strings.Join(rendered, ",")
	return docValuesQuery(ctx, ft, description, func(v interface{}) bool {
		for _, p := range parsed {
			if c, ok := search.CompareValues(v, p); ok && c == 0 {
				return true
			}
		}
		return false
	})
}

// MatchAllBuilder matches every document.
type MatchAllBuilder struct {
	Name string
}

func (b *MatchAllBuilder) Kind() string                     { return KindMatchAll }
func (b *MatchAllBuilder) Rewrite(*Context) (Builder, error) { return b, nil }

func (b *MatchAllBuilder) ToQuery(ctx *Context) (search.Query, error) {
	return named(ctx, b.Name, search.MatchAllDocsQuery{}), nil
}

// MatchNoneBuilder matches nothing. Rewrites produce it with a Reason.
type MatchNoneBuilder struct {
	Name   string
	Reason string
}

func (b *MatchNoneBuilder) Kind() string                     { return KindMatchNone }
func (b *MatchNoneBuilder) Rewrite(*Context) (Builder, error) { return b, nil }

func (b *MatchNoneBuilder) ToQuery(ctx *Context) (search.Query, error) {
	reason := b.Reason
	if reason == "" {
		reason = `User requested "match_none" query.`
	}
	return named(ctx, b.Name, search.MatchNoDocs(reason)), nil
}

// TermBuilder matches an exact value.
type TermBuilder struct {
	Field string
	Value interface{}
	Name  string
}

func (b *TermBuilder) Kind() string { return KindTerm }

func (b *TermBuilder) Rewrite(ctx *Context) (Builder, error) {
	return rewriteUnmapped(ctx, b.Field, b.Name, b)
}

func (b *TermBuilder) ToQuery(ctx *Context) (search.Query, error) {
	ft, err := ctx.FieldType(b.Field)
	if err != nil {
		return nil, err
	}
	if ft == nil {
		return named(ctx, b.Name, search.MatchNoDocs("unmapped field ["+b.Field+"]")), nil
	}
	q, err := termsQuery(ctx, ft, []interface{}{b.Value})
	if err != nil {
		return nil, err
	}
	return named(ctx, b.Name, q), nil
}

// TermsLookup points at a field of a document whose values are the terms to match.
type TermsLookup struct {
	Index string `json:"index"`
	ID    string `json:"id"`
	Path  string `json:"path"`
}

func (l TermsLookup) String() string {
	return l.Index + "/" + l.ID + "/" + l.Path
}

// fetchedTerms is filled by the async action of a terms lookup.
type fetchedTerms struct {
	values []interface{}
	done   bool
}

// TermsBuilder matches any of Values, or any of the values found by Lookup.
type TermsBuilder struct {
	Field   string
	Values  []interface{}
	Lookup  *TermsLookup
	Name    string
	fetched *fetchedTerms
}

func (b *TermsBuilder) Kind() string { return KindTerms }

// Rewrite resolves a lookup in two steps: the first registers an action that
// fetches the document, the next one reads the fetched values.
func (b *TermsBuilder) Rewrite(ctx *Context) (Builder, error) {
	if b.fetched != nil {
		if !b.fetched.done {
			return b, nil
		}
		return &TermsBuilder{Field: b.Field, Values: b.fetched.values, Name: b.Name}, nil
	}
	if b.Lookup != nil {
		fetched := &fetchedTerms{}
		l := *b.Lookup
		metadata := map[string]string{"index": l.Index, "id": l.ID, "path": l.Path}
		err := ctx.RegisterAsyncAction(model.ActionTypeTermsLookup, metadata, func(ctx context.Context, client Client) error {
			doc, err := client.GetDocument(ctx, l.Index, l.ID)
			if err != nil {
				if stderrors.Is(err, errors.ErrDocumentNotFound) {
					fetched.done = true
					return nil
				}
				return fmt.Errorf("failed to fetch terms from [%s]: %w", l, err)
			}
			fetched.values = doc.Path(l.Path)
			fetched.done = true
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &TermsBuilder{Field: b.Field, Lookup: b.Lookup, Name: b.Name, fetched: fetched}, nil
	}
	if len(b.Values) == 0 {
		return &MatchNoneBuilder{Name: b.Name, Reason: `No terms supplied for "terms" query.`}, nil
	}
	return rewriteUnmapped(ctx, b.Field, b.Name, b)
}

func (b *TermsBuilder) ToQuery(ctx *Context) (search.Query, error) {
	if b.Lookup != nil {
		return nil, fmt.Errorf("query must be rewritten first: terms lookup [%s] was not fetched", *b.Lookup)
	}
	if len(b.Values) == 0 {
		return named(ctx, b.Name, search.MatchNoDocs(`No terms supplied for "terms" query.`)), nil
	}
	ft, err := ctx.FieldType(b.Field)
	if err != nil {
		return nil, err
	}
	if ft == nil {
		return named(ctx, b.Name, search.MatchNoDocs("unmapped field ["+b.Field+"]")), nil
	}
	q, err := termsQuery(ctx, ft, b.Values)
	if err != nil {
		return nil, err
	}
	return named(ctx, b.Name, q), nil
}

// MatchBuilder analyzes Query with the field's analyzer and matches the terms.
type MatchBuilder struct {
	Field     string
	Query     interface{}
	Operator  string // "or" (default) or "and"
	Fuzziness string
	Name      string
}

func (b *MatchBuilder) Kind() string { return KindMatch }

// Rewrite turns a match on a field that is not analyzed into a term query.
func (b *MatchBuilder) Rewrite(ctx *Context) (Builder, error) {
	ft, err := ctx.FieldType(b.Field)
	if err != nil {
		return nil, err
	}
	if ft == nil {
		return &MatchNoneBuilder{Name: b.Name, Reason: "unmapped field [" + b.Field + "]"}, nil
	}
	if !ft.IsAnalyzed() {
		return &TermBuilder{Field: b.Field, Value: b.Query, Name: b.Name}, nil
	}
	return b, nil
}

func (b *MatchBuilder) ToQuery(ctx *Context) (search.Query, error) {
	ft, err := ctx.FieldType(b.Field)
	if err != nil {
		return nil, err
	}
	if ft == nil {
		return named(ctx, b.Name, search.MatchNoDocs("unmapped field ["+b.Field+"]")), nil
	}
	if !ft.IsAnalyzed() {
		return (&TermBuilder{Field: b.Field, Value: b.Query, Name: b.Name}).ToQuery(ctx)
	}

	tokens := ft.Analyze(fmt.Sprint(b.Query))
	if len(tokens) == 0 {
		return named(ctx, b.Name, search.MatchNoDocs("Matching no documents because no terms present.")), nil
	}
	clauses := make([]search.Query, 0, len(tokens))
	for _, token := range tokens {
		if b.Fuzziness == "" {
			clauses = append(clauses, &search.TermQuery{Field: ft.Name, Term: token})
			continue
		}
		edits, err := parseFuzziness(b.Fuzziness, token)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, &search.FuzzyQuery{
			Field: ft.Name, Term: token, MaxEdits: edits, MaxExpansions: defaultMaxExpansions, Transpositions: true,
		})
	}

	var q search.Query
	switch {
	case len(clauses) == 1:
		q = clauses[0]
	case strings.EqualFold(b.Operator, "and"):
		q = &search.BooleanQuery{Must: clauses}
	default:
		q = &search.BooleanQuery{Should: clauses}
	}
	return named(ctx, b.Name, q), nil
}

// BoolBuilder combines clauses.
type BoolBuilder struct {
	Must               []Builder
	Filter             []Builder
	Should             []Builder
	MustNot            []Builder
	MinimumShouldMatch int
	Name               string
}

func (b *BoolBuilder) Kind() string { return KindBool }

func (b *BoolBuilder) clauses() int {
	return len(b.Must) + len(b.Filter) + len(b.Should) + len(b.MustNot)
}

// Rewrite rewrites every clause once. An empty bool becomes match_all and a
// required match_none clause makes the whole bool match_none.
func (b *BoolBuilder) Rewrite(ctx *Context) (Builder, error) {
	if b.clauses() == 0 {
		return &MatchAllBuilder{Name: b.Name}, nil
	}

	changed := false
	rewriteAll := func(clauses []Builder) ([]Builder, error) {
		out := make([]Builder, len(clauses))
		for i, clause := range clauses {
			next, err := clause.Rewrite(ctx)
			if err != nil {
				return nil, err
			}
			if next != clause {
				changed = true
			}
			out[i] = next
		}
		return out, nil
	}

	rewritten := &BoolBuilder{MinimumShouldMatch: b.MinimumShouldMatch, Name: b.Name}
	var err error
	if rewritten.Must, err = rewriteAll(b.Must); err != nil {
		return nil, err
	}
	if rewritten.Filter, err = rewriteAll(b.Filter); err != nil {
		return nil, err
	}
	if rewritten.Should, err = rewriteAll(b.Should); err != nil {
		return nil, err
	}
	if rewritten.MustNot, err = rewriteAll(b.MustNot); err != nil {
		return nil, err
	}

	for _, clause := range append(append([]Builder{}, rewritten.Must...), rewritten.Filter...) {
		if _, ok := clause.(*MatchNoneBuilder); ok {
			return &MatchNoneBuilder{Name: b.Name, Reason: "bool query has a required match_none clause"}, nil
		}
	}
	if !changed {
		return b, nil
	}
	return rewritten, nil
}

func (b *BoolBuilder) ToQuery(ctx *Context) (search.Query, error) {
	if b.clauses() == 0 {
		return named(ctx, b.Name, search.MatchAllDocsQuery{}), nil
	}
	convert := func(clauses []Builder) ([]search.Query, error) {
		out := make([]search.Query, 0, len(clauses))
		for _, clause := range clauses {
			q, err := clause.ToQuery(ctx)
			if err != nil {
				return nil, err
			}
			if q != nil {
				out = append(out, q)
			}
		}
		return out, nil
	}

	q := &search.BooleanQuery{MinimumShouldMatch: b.MinimumShouldMatch}
	var err error
	if q.Must, err = convert(b.Must); err != nil {
		return nil, err
	}
	if q.Filter, err = convert(b.Filter); err != nil {
		return nil, err
	}
	if q.Should, err = convert(b.Should); err != nil {
		return nil, err
	}
	if q.MustNot, err = convert(b.MustNot); err != nil {
		return nil, err
	}
	return named(ctx, b.Name, q), nil
}

// RangeBuilder matches values between bounds. Date bounds accept date math.
type RangeBuilder struct {
	Field string
	GT    interface{}
	GTE   interface{}
	LT    interface{}
	LTE   interface{}
	Name  string
}

func (b *RangeBuilder) Kind() string { return KindRange }

func (b *RangeBuilder) Rewrite(ctx *Context) (Builder, error) {
	return rewriteUnmapped(ctx, b.Field, b.Name, b)
}

func (b *RangeBuilder) ToQuery(ctx *Context) (search.Query, error) {
	ft, err := ctx.FieldType(b.Field)
	if err != nil {
		return nil, err
	}
	if ft == nil {
		return named(ctx, b.Name, search.MatchNoDocs("unmapped field ["+b.Field+"]")), nil
	}
	if !ft.HasDocValues {
		return nil, fmt.Errorf("field [%s] of type [%s] does not support range queries", ft.Name, ft.Type)
	}

	vt := valueType(ctx, ft)
	var r search.Range
	switch {
	case b.GTE != nil:
		r.Lower, r.IncludeLower = b.GTE, true
	case b.GT != nil:
		r.Lower = b.GT
	}
	switch {
	case b.LTE != nil:
		r.Upper, r.IncludeUpper = b.LTE, true
	case b.LT != nil:
		r.Upper = b.LT
	}
	if r.Lower != nil {
		// gt rounds up so the whole rounded unit is excluded.
		if r.Lower, err = rangeBound(ctx, vt, r.Lower, !r.IncludeLower); err != nil {
			return nil, err
		}
	}
	if r.Upper != nil {
		if r.Upper, err = rangeBound(ctx, vt, r.Upper, r.IncludeUpper); err != nil {
			return nil, err
		}
	}

	q, err := docValuesQuery(ctx, ft, ft.Name+":"+r.String(), r.Contains)
	if err != nil {
		return nil, err
	}
	return named(ctx, b.Name, q), nil
}

func rangeBound(ctx *Context, ft *mapping.FieldType, value interface{}, roundUp bool) (interface{}, error) {
	if s, ok := value.(string); ok && ft.Type == mapping.TypeDate {
		return resolveDateMath(s, ctx.NowInMillis, roundUp)
	}
	return ft.ParseValue(value)
}

// ExistsBuilder matches documents with a value for Field. Field may be a pattern.
type ExistsBuilder struct {
	Field string
	Name  string
}

func (b *ExistsBuilder) Kind() string                     { return KindExists }
func (b *ExistsBuilder) Rewrite(*Context) (Builder, error) { return b, nil }

func (b *ExistsBuilder) ToQuery(ctx *Context) (search.Query, error) {
	var clauses []search.Query
	for _, name := range ctx.SimpleMatchToIndexNames(b.Field) {
		if ctx.IsFieldMapped(name) || ctx.ObjectMapper(name) != nil {
			clauses = append(clauses, &search.ExistsQuery{Field: name})
		}
	}

	var q search.Query
	switch len(clauses) {
	case 0:
		q = search.MatchNoDocs("no mapped fields match [" + b.Field + "]")
	case 1:
		q = clauses[0]
	default:
		q = &search.BooleanQuery{Should: clauses}
	}
	return named(ctx, b.Name, q), nil
}

// IDsBuilder matches documents by id. Without Types the query applies to the
// types of the request.
type IDsBuilder struct {
	IDs   []string
	Types []string
	Name  string
}

func (b *IDsBuilder) Kind() string                     { return KindIDs }
func (b *IDsBuilder) Rewrite(*Context) (Builder, error) { return b, nil }

func (b *IDsBuilder) ToQuery(ctx *Context) (search.Query, error) {
	if len(b.IDs) == 0 {
		return named(ctx, b.Name, search.MatchNoDocs(`Missing ids in "ids" query.`)), nil
	}
	types := b.Types
	if len(types) == 0 {
		types = ctx.QueryTypes()
	}
	matching := false
	for _, t := range types {
		if t == "_all" || ctx.TypeExists(t) {
			matching = true
			break
		}
	}
	if !matching {
		return named(ctx, b.Name, search.MatchNoDocs(`Type mismatch in "ids" query.`)), nil
	}
	return named(ctx, b.Name, &search.IDsQuery{IDs: b.IDs}), nil
}

const defaultMaxExpansions = 50

func parseFuzziness(fuzziness, term string) (int, error) {
	switch strings.ToUpper(fuzziness) {
	case "", "AUTO":
		return typoutil.AutoEdits(utf8.RuneCountInString(term)), nil
	case "0", "1", "2":
		return int(fuzziness[0] - '0'), nil
	}
	return 0, errors.NewParsingError(KindFuzzy, "invalid fuzziness [%s], expected AUTO, 0, 1 or 2", fuzziness)
}

// FuzzyBuilder matches terms within an edit distance of Value.
type FuzzyBuilder struct {
	Field          string
	Value          string
	Fuzziness      string
	PrefixLength   int
	MaxExpansions  int
	Transpositions *bool
	Name           string
}

func (b *FuzzyBuilder) Kind() string { return KindFuzzy }

func (b *FuzzyBuilder) Rewrite(ctx *Context) (Builder, error) {
	return rewriteUnmapped(ctx, b.Field, b.Name, b)
}

func (b *FuzzyBuilder) ToQuery(ctx *Context) (search.Query, error) {
	if !ctx.AllowExpensiveQueries() {
		return nil, fmt.Errorf("[fuzzy] queries cannot be executed when 'search.allow_expensive_queries' is set to false")
	}
	ft, err := ctx.FieldType(b.Field)
	if err != nil {
		return nil, err
	}
	if ft == nil {
		return named(ctx, b.Name, search.MatchNoDocs("unmapped field ["+b.Field+"]")), nil
	}
	if !ft.Searchable {
		return nil, fmt.Errorf("can only use fuzzy queries on indexed fields, not on [%s] which is of type [%s]", ft.Name, ft.Type)
	}
	edits, err := parseFuzziness(b.Fuzziness, b.Value)
	if err != nil {
		return nil, err
	}
	maxExpansions := b.MaxExpansions
	if maxExpansions <= 0 {
		maxExpansions = defaultMaxExpansions
	}
	transpositions := b.Transpositions == nil || *b.Transpositions
	return named(ctx, b.Name, &search.FuzzyQuery{
		Field:          ft.Name,
		Term:           b.Value,
		MaxEdits:       edits,
		PrefixLength:   b.PrefixLength,
		MaxExpansions:  maxExpansions,
		Transpositions: transpositions,
	}), nil
}

// WildcardBuilder matches terms against a '*' and '?' pattern.
type WildcardBuilder struct {
	Field string
	Value string
	Name  string
}

func (b *WildcardBuilder) Kind() string { return KindWildcard }

func (b *WildcardBuilder) Rewrite(ctx *Context) (Builder, error) {
	return rewriteUnmapped(ctx, b.Field, b.Name, b)
}

func (b *WildcardBuilder) ToQuery(ctx *Context) (search.Query, error) {
	if !ctx.AllowExpensiveQueries() {
		return nil, fmt.Errorf("[wildcard] queries cannot be executed when 'search.allow_expensive_queries' is set to false")
	}
	if strings.HasPrefix(b.Value, "*") || strings.HasPrefix(b.Value, "?") {
		if !ctx.QueryStringAllowLeadingWildcard() {
			return nil, errors.NewParsingError(KindWildcard, "leading wildcard is not allowed in [%s]", b.Value)
		}
	}
	ft, err := ctx.FieldType(b.Field)
	if err != nil {
		return nil, err
	}
	if ft == nil {
		return named(ctx, b.Name, search.MatchNoDocs("unmapped field ["+b.Field+"]")), nil
	}
	if !ft.Searchable {
		return nil, fmt.Errorf("can only use wildcard queries on indexed fields, not on [%s] which is of type [%s]", ft.Name, ft.Type)
	}
	pattern := b.Value
	if ft.IsAnalyzed() && ctx.QueryStringAnalyzeWildcard() {
		pattern = strings.ToLower(pattern)
	}
	return named(ctx, b.Name, &search.WildcardQuery{Field: ft.Name, Pattern: pattern}), nil
}

// NestedBuilder runs Query against the nested objects under Path.
type NestedBuilder struct {
	Path           string
	Query          Builder
	IgnoreUnmapped bool
	Name           string
}

func (b *NestedBuilder) Kind() string { return KindNested }

func (b *NestedBuilder) Rewrite(ctx *Context) (Builder, error) {
	inner, err := b.Query.Rewrite(ctx)
	if err != nil {
		return nil, err
	}
	if inner == b.Query {
		return b, nil
	}
	return &NestedBuilder{Path: b.Path, Query: inner, IgnoreUnmapped: b.IgnoreUnmapped, Name: b.Name}, nil
}

func (b *NestedBuilder) ToQuery(ctx *Context) (search.Query, error) {
	obj := ctx.ObjectMapper(b.Path)
	if obj == nil {
		if b.IgnoreUnmapped {
			return named(ctx, b.Name, search.MatchNoDocs("unmapped nested path ["+b.Path+"]")), nil
		}
		return nil, errors.NewParsingError(KindNested, "failed to find nested object under path [%s]", b.Path)
	}
	if !obj.Nested() {
		return nil, errors.NewParsingError(KindNested, "nested object under path [%s] is not of nested type", b.Path)
	}

	scope := ctx.NestedScope()
	scope.NextLevel(obj)
	inner, err := b.Query.ToQuery(ctx)
	scope.PreviousLevel()
	if err != nil {
		return nil, err
	}
	if inner == nil {
		inner = search.MatchNoDocs("nested query is empty")
	}
	parents := ctx.BitsetFilter(&search.ExistsQuery{Field: obj.Name()})
	return named(ctx, b.Name, &search.NestedQuery{Path: obj.Name(), Inner: inner, Parents: parents}), nil
}

// ScriptBuilder matches documents a filter script accepts.
type ScriptBuilder struct {
	Script script.Script
	Name   string
}

func (b *ScriptBuilder) Kind() string                     { return KindScript }
func (b *ScriptBuilder) Rewrite(*Context) (Builder, error) { return b, nil }

func (b *ScriptBuilder) ToQuery(ctx *Context) (search.Query, error) {
	factory, err := ctx.CompileScript(b.Script, script.FilterKind)
	if err != nil {
		return nil, err
	}
	filter := factory.NewFilter(b.Script.Params, ctx.Lookup())
	return named(ctx, b.Name, &search.ScriptQuery{Description: b.Script.String(), Match: filter}), nil
}
