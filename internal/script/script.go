// Package script compiles the scripts a query may embed. Two languages are
// built in: "jsonpath", which matches a document when a JSONPath expression
// selects anything from its source, and "sample", which matches a random
// fraction of documents.
package script

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"

	lru "github.com/hashicorp/golang-lru"
	"github.com/theory/jsonpath"

	"github.com/gcbaptista/go-shard-query/internal/logging"
	"github.com/gcbaptista/go-shard-query/internal/lookup"
)

// Script language names.
const (
	LangJSONPath = "jsonpath"
	LangSample   = "sample"
)

// Script is a script as written in a query.
type Script struct {
	Lang   string                 `json:"lang"`
	Source string                 `json:"source"`
	Params map[string]interface{} `json:"params,omitempty"`
}

func (s Script) String() string {
	return s.Lang + ":" + s.Source
}

// Kind is the context a script is compiled for.
type Kind string

// FilterKind scripts decide whether a document matches.
const FilterKind Kind = "filter"

// Filter decides whether a document matches.
type Filter func(docID uint32) (bool, error)

// Factory creates filters from a compiled script.
type Factory interface {
	// IsResultDeterministic reports whether the script returns the same
	// result for the same document every time it runs.
	IsResultDeterministic() bool
	NewFilter(params map[string]interface{}, l *lookup.Lookup) Filter
}

// Compiler compiles scripts.
type Compiler interface {
	Compile(s Script, kind Kind) (Factory, error)
}

// Service is a Compiler with an LRU of compiled scripts. It is safe for concurrent use.
type Service struct {
	cache  *lru.Cache
	logger *slog.Logger
}

// NewService creates a script service caching up to cacheSize compiled scripts.
func NewService(cacheSize int, logger *slog.Logger) (*Service, error) {
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create script cache: %w", err)
	}
	return &Service{cache: cache, logger: logging.Default(logger).With("component", "script")}, nil
}

type cacheKey struct {
	lang   string
	source string
	kind   Kind
}

// Compile returns the factory of s for kind, compiling it on a cache miss.
func (s *Service) Compile(sc Script, kind Kind) (Factory, error) {
	if kind != FilterKind {
		return nil, fmt.Errorf("script context [%s] not supported", kind)
	}
	key := cacheKey{lang: sc.Lang, source: sc.Source, kind: kind}
	if f, ok := s.cache.Get(key); ok {
		return f.(Factory), nil
	}

	var (
		factory Factory
		err     error
	)
	switch sc.Lang {
	case LangJSONPath, "":
		factory, err = compileJSONPath(sc.Source)
	case LangSample:
		factory, err = compileSample(sc.Source)
	default:
		return nil, fmt.Errorf("script_lang not supported [%s]", sc.Lang)
	}
	if err != nil {
		return nil, fmt.Errorf("compile error in script [%s]: %w", sc, err)
	}

	s.cache.Add(key, factory)
	s.logger.Debug("compiled script", "lang", sc.Lang, "deterministic", factory.IsResultDeterministic())
	return factory, nil
}

type jsonPathFactory struct {
	path *jsonpath.Path
}

func compileJSONPath(source string) (Factory, error) {
	path, err := jsonpath.Parse(source)
	if err != nil {
		return nil, err
	}
	return &jsonPathFactory{path: path}, nil
}

func (f *jsonPathFactory) IsResultDeterministic() bool { return true }

func (f *jsonPathFactory) NewFilter(_ map[string]interface{}, l *lookup.Lookup) Filter {
	return func(docID uint32) (bool, error) {
		doc, ok := l.Source(docID)
		if !ok {
			return false, nil
		}
		return len(f.path.Select(map[string]any(doc))) > 0, nil
	}
}

type sampleFactory struct {
	probability float64
}

func compileSample(source string) (Factory, error) {
	p, err := strconv.ParseFloat(source, 64)
	if err != nil || p < 0 || p > 1 {
		return nil, fmt.Errorf("sample probability must be a number between 0 and 1, got [%s]", source)
	}
	return &sampleFactory{probability: p}, nil
}

func (f *sampleFactory) IsResultDeterministic() bool { return false }

// NewFilter honours an optional "seed" param so tests can pin the sequence.
func (f *sampleFactory) NewFilter(params map[string]interface{}, _ *lookup.Lookup) Filter {
	var rng *rand.Rand
	if seed, ok := params["seed"].(float64); ok {
		rng = rand.New(rand.NewPCG(uint64(seed), 0))
	}
	return func(uint32) (bool, error) {
		if rng != nil {
			return rng.Float64() < f.probability, nil
		}
		return rand.Float64() < f.probability, nil
	}
}
