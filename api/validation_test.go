package api

import (
	"encoding/json"
	"testing"

	"github.com/gcbaptista/go-shard-query/config"
	"github.com/gcbaptista/go-shard-query/model"
)

func TestValidationResult_AddError(t *testing.T) {
	result := &ValidationResult{Valid: true}

	result.AddError("field1", "error message")

	if result.Valid {
		t.Error("Expected Valid to be false after adding error")
	}

	if len(result.Errors) != 1 {
		t.Errorf("Expected 1 error, got %d", len(result.Errors))
	}

	if result.Errors[0].Field != "field1" {
		t.Errorf("Expected field 'field1', got '%s'", result.Errors[0].Field)
	}

	if result.Errors[0].Message != "error message" {
		t.Errorf("Expected message 'error message', got '%s'", result.Errors[0].Message)
	}
}

func TestValidateIndexName(t *testing.T) {
	tests := []struct {
		name      string
		indexName string
		wantValid bool
		wantError string
	}{
		{
			name:      "valid index name",
			indexName: "movies-2025",
			wantValid: true,
		},
		{
			name:      "empty index name",
			indexName: "",
			wantValid: false,
			wantError: "Index name is required",
		},
		{
			name:      "index name with trailing whitespace",
			indexName: "movies ",
			wantValid: false,
			wantError: "Index name cannot have leading or trailing whitespace",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateIndexName(tt.indexName)

			if result.Valid != tt.wantValid {
				t.Errorf("ValidateIndexName() Valid = %v, want %v", result.Valid, tt.wantValid)
			}

			if !tt.wantValid && len(result.Errors) > 0 {
				if result.Errors[0].Message != tt.wantError {
					t.Errorf("ValidateIndexName() error = %v, want %v", result.Errors[0].Message, tt.wantError)
				}
			}
		})
	}
}

func TestValidateDocumentID(t *testing.T) {
	tests := []struct {
		name       string
		documentID string
		wantValid  bool
	}{
		{name: "valid document ID", documentID: "m1", wantValid: true},
		{name: "empty document ID", documentID: "", wantValid: false},
		{name: "document ID with leading whitespace", documentID: " m1", wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateDocumentID(tt.documentID)
			if result.Valid != tt.wantValid {
				t.Errorf("ValidateDocumentID() Valid = %v, want %v", result.Valid, tt.wantValid)
			}
		})
	}
}

func TestValidateIndexSettings(t *testing.T) {
	tests := []struct {
		name      string
		settings  *config.IndexSettings
		wantValid bool
		wantError string
	}{
		{
			name:      "valid settings",
			settings:  &config.IndexSettings{Name: "movies", SortFields: []config.SortField{{Field: "released", Order: "desc"}}},
			wantValid: true,
		},
		{
			name:      "nil settings",
			settings:  nil,
			wantValid: false,
			wantError: "Index settings are required",
		},
		{
			name:      "empty name",
			settings:  &config.IndexSettings{},
			wantValid: false,
			wantError: "Index name cannot be empty or whitespace-only",
		},
		{
			name:      "invalid sort order",
			settings:  &config.IndexSettings{Name: "movies", SortFields: []config.SortField{{Field: "released", Order: "down"}}},
			wantValid: false,
			wantError: "Invalid order 'down' for field 'released' in sort_fields (must be 'asc' or 'desc')",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateIndexSettings(tt.settings)

			if result.Valid != tt.wantValid {
				t.Errorf("ValidateIndexSettings() Valid = %v, want %v", result.Valid, tt.wantValid)
			}

			if !tt.wantValid {
				found := false
				for _, err := range result.Errors {
					if err.Message == tt.wantError {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("ValidateIndexSettings() expected error '%v' not found in %v", tt.wantError, result.Errors)
				}
			}
		})
	}
}

func TestValidateDocuments(t *testing.T) {
	tests := []struct {
		name       string
		docs       []model.Document
		wantErrors int
	}{
		{name: "valid documents", docs: []model.Document{{"documentID": "m1"}, {"documentID": "m2"}}},
		{name: "no documents", docs: nil, wantErrors: 1},
		{name: "missing and blank ids", docs: []model.Document{{"title": "Heat"}, {"documentID": "  "}, {"documentID": 7}}, wantErrors: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateDocuments(tt.docs)
			if len(result.Errors) != tt.wantErrors {
				t.Errorf("ValidateDocuments() got %d errors, want %d: %v", len(result.Errors), tt.wantErrors, result.Errors)
			}
		})
	}
}

func TestValidateQueryBody(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantValid bool
	}{
		{name: "object", query: `{"match_all": {}}`, wantValid: true},
		{name: "missing", query: ``, wantValid: false},
		{name: "null", query: `null`, wantValid: false},
		{name: "array", query: `[{"match_all": {}}]`, wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateQueryBody(json.RawMessage(tt.query))
			if result.Valid != tt.wantValid {
				t.Errorf("ValidateQueryBody(%q) Valid = %v, want %v", tt.query, result.Valid, tt.wantValid)
			}
		})
	}
}

func TestValidateSearchWindow(t *testing.T) {
	from, size, result := ValidateSearchWindow(20, 500)
	if result.HasErrors() {
		t.Fatalf("Unexpected errors: %v", result.Errors)
	}
	if from != 20 || size != maxPageSize {
		t.Errorf("ValidateSearchWindow() = (%d, %d), want (20, %d)", from, size, maxPageSize)
	}

	_, _, result = ValidateSearchWindow(-1, -1)
	if len(result.Errors) != 2 {
		t.Errorf("Expected 2 errors, got %v", result.Errors)
	}
}
