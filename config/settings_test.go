package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name           string
		settings       IndexSettings
		expectedErrors int
		description    string
	}{
		{
			name:           "minimal valid settings",
			settings:       IndexSettings{Name: "movies"},
			expectedErrors: 0,
			description:    "A name alone is enough",
		},
		{
			name:           "empty name",
			settings:       IndexSettings{Name: "  "},
			expectedErrors: 1,
			description:    "Whitespace-only names are rejected",
		},
		{
			name:           "name with cluster separator",
			settings:       IndexSettings{Name: "remote:movies"},
			expectedErrors: 1,
			description:    "':' is reserved for cluster aliases",
		},
		{
			name: "invalid sort order",
			settings: IndexSettings{
				Name:       "movies",
				SortFields: []SortField{{Field: "year", Order: "up"}},
			},
			expectedErrors: 1,
			description:    "Sort order must be asc or desc",
		},
		{
			name: "duplicate sort and default fields",
			settings: IndexSettings{
				Name:          "movies",
				DefaultFields: []string{"title", "title"},
				SortFields:    []SortField{{Field: "year", Order: "asc"}, {Field: "year", Order: "desc"}},
			},
			expectedErrors: 2,
			description:    "Duplicates are reported per list",
		},
		{
			name:           "negative rewrite budget",
			settings:       IndexSettings{Name: "movies", MaxRewriteSteps: -1},
			expectedErrors: 1,
			description:    "The rewrite budget cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errors := tt.settings.Validate()

			if len(errors) != tt.expectedErrors {
				t.Errorf("Expected %d errors, got %d. Errors: %v", tt.expectedErrors, len(errors), errors)
				t.Logf("Description: %s", tt.description)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	settings := IndexSettings{Name: "movies"}
	settings.ApplyDefaults()

	if !settings.IsDefaultAllowUnmappedFields() {
		t.Error("allow_unmapped_fields should default to true")
	}
	if !settings.IsAllowExpensiveQueries() {
		t.Error("allow_expensive_queries should default to true")
	}
	if !settings.IsQueryStringAllowLeadingWildcard() {
		t.Error("query_string_allow_leading_wildcard should default to true")
	}
	if settings.MaxRewriteSteps != DefaultMaxRewriteSteps {
		t.Errorf("Expected max rewrite steps %d, got %d", DefaultMaxRewriteSteps, settings.MaxRewriteSteps)
	}
	if len(settings.DefaultFields) != 1 || settings.DefaultFields[0] != "*" {
		t.Errorf("Expected default fields [*], got %v", settings.DefaultFields)
	}

	// Explicit false survives defaults
	disallow := false
	explicit := IndexSettings{Name: "strict", AllowUnmappedFields: &disallow}
	explicit.ApplyDefaults()
	if explicit.IsDefaultAllowUnmappedFields() {
		t.Error("explicit allow_unmapped_fields=false must not be overridden")
	}
}

func TestHasPrimarySortOnField(t *testing.T) {
	settings := IndexSettings{
		Name:       "logs",
		SortFields: []SortField{{Field: "timestamp", Order: "desc"}, {Field: "host", Order: "asc"}},
	}

	if !settings.HasPrimarySortOnField("timestamp") {
		t.Error("timestamp is the primary sort field")
	}
	if settings.HasPrimarySortOnField("host") {
		t.Error("host is only a secondary sort field")
	}
	if (&IndexSettings{}).HasPrimarySortOnField("timestamp") {
		t.Error("an unsorted index has no primary sort field")
	}
}

func TestLoadSettings(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "movies.yaml")
	yamlBody := "name: movies\nallow_unmapped_fields: false\nsort_fields:\n  - field: year\n    order: desc\n"
	if err := os.WriteFile(yamlPath, []byte(yamlBody), 0o600); err != nil {
		t.Fatal(err)
	}

	settings, err := LoadSettings(yamlPath)
	if err != nil {
		t.Fatalf("LoadSettings(yaml) failed: %v", err)
	}
	if settings.Name != "movies" || settings.IsDefaultAllowUnmappedFields() {
		t.Errorf("Unexpected settings decoded from YAML: %+v", settings)
	}
	if !settings.HasPrimarySortOnField("year") {
		t.Error("Expected year as primary sort field")
	}

	jsonPath := filepath.Join(dir, "books.json")
	if err := os.WriteFile(jsonPath, []byte(`{"name":"books","max_rewrite_steps":4}`), 0o600); err != nil {
		t.Fatal(err)
	}
	settings, err = LoadSettings(jsonPath)
	if err != nil {
		t.Fatalf("LoadSettings(json) failed: %v", err)
	}
	if settings.Name != "books" || settings.MaxRewriteSteps != 4 {
		t.Errorf("Unexpected settings decoded from JSON: %+v", settings)
	}

	if _, err := LoadSettings(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}
