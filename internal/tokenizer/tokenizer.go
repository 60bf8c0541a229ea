// Package tokenizer turns field values into index terms.
package tokenizer

import (
	"regexp"
	"strings"
)

// Analyzer names understood by Analyze.
const (
	Standard   = "standard"
	Keyword    = "keyword"
	Whitespace = "whitespace"
)

// nonAlphanumericRegex matches sequences of non-alphanumeric characters.
var nonAlphanumericRegex = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// acronymRegex handles cases like "HTTPRequest" -> "HTTP Request"
var acronymRegex = regexp.MustCompile(`([A-Z]+)([A-Z][a-z])`)

// camelCaseRegex handles cases like "theOffice" -> "the Office" or "myAPI" -> "my API"
var camelCaseRegex = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// Tokenize converts a string into a slice of tokens.
// It splits camel/PascalCase, lowercases the string, and splits by non-alphanumeric characters.
func Tokenize(text string) []string {
	// 1. Split camelCase/PascalCase
	processedText := acronymRegex.ReplaceAllString(text, "$1 $2")
	processedText = camelCaseRegex.ReplaceAllString(processedText, "$1 $2")

	// 2. Lowercase
	lowerText := strings.ToLower(processedText)

	// 3. Split by non-alphanumeric characters
	split := nonAlphanumericRegex.Split(lowerText, -1)

	tokens := make([]string, 0) // Initialize as empty slice, not nil
	for _, s := range split {
		if s != "" { // Filter out empty strings
			tokens = append(tokens, s)
		}
	}
	return tokens
}

// Analyze runs the named analyzer over text. Unknown names fall back to Standard.
func Analyze(analyzer, text string) []string {
	switch analyzer {
	case Keyword:
		if text == "" {
			return []string{}
		}
		return []string{text}
	case Whitespace:
		tokens := strings.Fields(text)
		if tokens == nil {
			return []string{}
		}
		return tokens
	default:
		return Tokenize(text)
	}
}

// IsKnownAnalyzer reports whether name is an analyzer Analyze implements.
func IsKnownAnalyzer(name string) bool {
	switch name {
	case Standard, Keyword, Whitespace:
		return true
	}
	return false
}
