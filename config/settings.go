// Package config provides configuration structures for shard query contexts.
// It defines index settings, query-string defaults, index sort and cache sizing.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultMaxRewriteSteps bounds the fixed-point rewrite of a single compile pass.
	DefaultMaxRewriteSteps  = 16
	DefaultRequestCacheSize = 256
	DefaultScriptCacheSize  = 100
	DefaultBitsetCacheSize  = 64
	DefaultVersionCreated   = "7.10.0"
)

// SortField defines one entry of the index sort. Only the first entry is the primary sort.
type SortField struct {
	Field string `json:"field" yaml:"field"`
	Order string `json:"order" yaml:"order"` // "asc" or "desc"
}

// IndexSettings contains the configuration of one index as seen by the query layer.
//
// Pointer booleans distinguish "unset" from "false" so that ApplyDefaults can
// fill in the defaults that are true.
type IndexSettings struct {
	Name                            string      `json:"name" yaml:"name"`
	UUID                            string      `json:"uuid,omitempty" yaml:"uuid,omitempty"`
	VersionCreated                  string      `json:"version_created,omitempty" yaml:"version_created,omitempty"`
	AllowUnmappedFields             *bool       `json:"allow_unmapped_fields,omitempty" yaml:"allow_unmapped_fields,omitempty"`
	DefaultFields                   []string    `json:"default_fields,omitempty" yaml:"default_fields,omitempty"`
	QueryStringLenient              bool        `json:"query_string_lenient,omitempty" yaml:"query_string_lenient,omitempty"`
	QueryStringAnalyzeWildcard      bool        `json:"query_string_analyze_wildcard,omitempty" yaml:"query_string_analyze_wildcard,omitempty"`
	QueryStringAllowLeadingWildcard *bool       `json:"query_string_allow_leading_wildcard,omitempty" yaml:"query_string_allow_leading_wildcard,omitempty"`
	SortFields                      []SortField `json:"sort_fields,omitempty" yaml:"sort_fields,omitempty"`
	MaxRewriteSteps                 int         `json:"max_rewrite_steps,omitempty" yaml:"max_rewrite_steps,omitempty"`
	AllowExpensiveQueries           *bool       `json:"allow_expensive_queries,omitempty" yaml:"allow_expensive_queries,omitempty"`
	RequestCacheSize                int         `json:"request_cache_size,omitempty" yaml:"request_cache_size,omitempty"`
	ScriptCacheSize                 int         `json:"script_cache_size,omitempty" yaml:"script_cache_size,omitempty"`
	BitsetCacheSize                 int         `json:"bitset_cache_size,omitempty" yaml:"bitset_cache_size,omitempty"`
}

// Validate checks the settings and returns one message per problem found.
func (settings *IndexSettings) Validate() []string {
	var problems []string

	if strings.TrimSpace(settings.Name) == "" {
		problems = append(problems, "Index name cannot be empty or whitespace-only")
	}
	if strings.ContainsAny(settings.Name, ":*?, ") {
		problems = append(problems, "Index name '"+settings.Name+"' must not contain ':', '*', '?', ',' or spaces")
	}

	problems = append(problems, checkDuplicates("default_fields", settings.DefaultFields)...)

	seenSort := make(map[string]bool)
	for _, sf := range settings.SortFields {
		if strings.TrimSpace(sf.Field) == "" {
			problems = append(problems, "Field name cannot be empty or whitespace-only in sort_fields")
			continue
		}
		if seenSort[sf.Field] {
			problems = append(problems, "Duplicate field '"+sf.Field+"' found in sort_fields")
		}
		seenSort[sf.Field] = true
		if sf.Order != "asc" && sf.Order != "desc" {
			problems = append(problems, "Invalid order '"+sf.Order+"' for field '"+sf.Field+"' in sort_fields (must be 'asc' or 'desc')")
		}
	}

	if settings.MaxRewriteSteps < 0 {
		problems = append(problems, "max_rewrite_steps must not be negative")
	}

	return problems
}

// checkDuplicates checks for duplicate values in a slice and returns error messages
func checkDuplicates(fieldName string, fields []string) []string {
	var errs []string
	seen := make(map[string]bool)

	for _, field := range fields {
		if seen[field] {
			errs = append(errs, "Duplicate field '"+field+"' found in "+fieldName)
		}
		seen[field] = true
	}

	return errs
}

// ApplyDefaults applies default values to the index settings
func (settings *IndexSettings) ApplyDefaults() {
	if settings.VersionCreated == "" {
		settings.VersionCreated = DefaultVersionCreated
	}
	if settings.AllowUnmappedFields == nil {
		settings.AllowUnmappedFields = boolPtr(true)
	}
	if settings.QueryStringAllowLeadingWildcard == nil {
		settings.QueryStringAllowLeadingWildcard = boolPtr(true)
	}
	if settings.AllowExpensiveQueries == nil {
		settings.AllowExpensiveQueries = boolPtr(true)
	}
	if settings.MaxRewriteSteps == 0 {
		settings.MaxRewriteSteps = DefaultMaxRewriteSteps
	}
	if settings.RequestCacheSize == 0 {
		settings.RequestCacheSize = DefaultRequestCacheSize
	}
	if settings.ScriptCacheSize == 0 {
		settings.ScriptCacheSize = DefaultScriptCacheSize
	}
	if settings.BitsetCacheSize == 0 {
		settings.BitsetCacheSize = DefaultBitsetCacheSize
	}

	// Initialize empty slices if nil to prevent nil pointer issues
	if settings.DefaultFields == nil {
		settings.DefaultFields = []string{"*"}
	}
	if settings.SortFields == nil {
		settings.SortFields = []SortField{}
	}
}

// IsDefaultAllowUnmappedFields reports the allow-unmapped policy a fresh context starts with.
func (settings *IndexSettings) IsDefaultAllowUnmappedFields() bool {
	return settings.AllowUnmappedFields == nil || *settings.AllowUnmappedFields
}

// IsAllowExpensiveQueries reports whether expensive queries (fuzzy, leading wildcards, scripts) may run.
func (settings *IndexSettings) IsAllowExpensiveQueries() bool {
	return settings.AllowExpensiveQueries == nil || *settings.AllowExpensiveQueries
}

// IsQueryStringAllowLeadingWildcard reports whether wildcard patterns may start with '*' or '?'.
func (settings *IndexSettings) IsQueryStringAllowLeadingWildcard() bool {
	return settings.QueryStringAllowLeadingWildcard == nil || *settings.QueryStringAllowLeadingWildcard
}

// HasPrimarySortOnField reports whether the index is sorted on field first.
func (settings *IndexSettings) HasPrimarySortOnField(field string) bool {
	return len(settings.SortFields) > 0 && settings.SortFields[0].Field == field
}

// DecodeFile reads a YAML or JSON file into out. The format is picked from the extension;
// anything that is not .json is decoded as YAML.
func DecodeFile(path string, out interface{}) error {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the operator's command line
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, out); err != nil {
			return errors.Wrapf(err, "failed to decode JSON from %s", path)
		}
	default:
		if err := yaml.Unmarshal(data, out); err != nil {
			return errors.Wrapf(err, "failed to decode YAML from %s", path)
		}
	}
	return nil
}

// LoadSettings reads index settings from a YAML or JSON file and applies defaults.
func LoadSettings(path string) (IndexSettings, error) {
	var settings IndexSettings
	if err := DecodeFile(path, &settings); err != nil {
		return IndexSettings{}, err
	}
	settings.ApplyDefaults()
	return settings, nil
}

func boolPtr(b bool) *bool {
	return &b
}
