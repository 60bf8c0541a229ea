package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions
var (
	// ErrIndexNotFound is returned when an index is not found
	ErrIndexNotFound = errors.New("index not found")

	// ErrIndexAlreadyExists is returned when trying to create an index that already exists
	ErrIndexAlreadyExists = errors.New("index already exists")

	// ErrDocumentNotFound is returned when a document is not found
	ErrDocumentNotFound = errors.New("document not found")

	// ErrActionNotFound is returned when an async query action is not found
	ErrActionNotFound = errors.New("action not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrFrozenContext is returned when a non-deterministic operation is used on a frozen query context
	ErrFrozenContext = errors.New("frozen query context")

	// ErrFieldResolution is returned when a field has no mapping and the unmapped policy forbids it
	ErrFieldResolution = errors.New("field resolution failed")

	// ErrUnknownFieldType is returned when no type parser is registered for a field type
	ErrUnknownFieldType = errors.New("unknown field type")

	// ErrInvalidFieldType is returned when a field type does not build a leaf field
	ErrInvalidFieldType = errors.New("invalid field type")

	// ErrRewriteLoop is returned when a query does not reach a fixed point within the rewrite budget
	ErrRewriteLoop = errors.New("rewrite loop")

	// ErrQueryCompilation is returned when turning a query description into an executable query fails
	ErrQueryCompilation = errors.New("query compilation failed")

	// ErrParsing is returned when a query description cannot be parsed
	ErrParsing = errors.New("parsing failed")
)

// IndexNotFoundError represents an index not found error with context
type IndexNotFoundError struct {
	IndexName string
}

func (e *IndexNotFoundError) Error() string {
	return fmt.Sprintf("index named '%s' not found", e.IndexName)
}

func (e *IndexNotFoundError) Is(target error) bool {
	return target == ErrIndexNotFound
}

// NewIndexNotFoundError creates a new IndexNotFoundError
func NewIndexNotFoundError(indexName string) *IndexNotFoundError {
	return &IndexNotFoundError{IndexName: indexName}
}

// IndexAlreadyExistsError represents an index already exists error with context
type IndexAlreadyExistsError struct {
	IndexName string
}

func (e *IndexAlreadyExistsError) Error() string {
	return fmt.Sprintf("index named '%s' already exists", e.IndexName)
}

func (e *IndexAlreadyExistsError) Is(target error) bool {
	return target == ErrIndexAlreadyExists
}

// NewIndexAlreadyExistsError creates a new IndexAlreadyExistsError
func NewIndexAlreadyExistsError(indexName string) *IndexAlreadyExistsError {
	return &IndexAlreadyExistsError{IndexName: indexName}
}

// DocumentNotFoundError represents a document not found error with context
type DocumentNotFoundError struct {
	DocumentID string
	IndexName  string
}

func (e *DocumentNotFoundError) Error() string {
	if e.IndexName != "" {
		return fmt.Sprintf("document with ID '%s' not found in index '%s'", e.DocumentID, e.IndexName)
	}
	return fmt.Sprintf("document with ID '%s' not found", e.DocumentID)
}

func (e *DocumentNotFoundError) Is(target error) bool {
	return target == ErrDocumentNotFound
}

// NewDocumentNotFoundError creates a new DocumentNotFoundError
func NewDocumentNotFoundError(documentID string, indexName ...string) *DocumentNotFoundError {
	err := &DocumentNotFoundError{DocumentID: documentID}
	if len(indexName) > 0 {
		err.IndexName = indexName[0]
	}
	return err
}

// ActionNotFoundError represents an unknown async action id
type ActionNotFoundError struct {
	ActionID string
}

func (e *ActionNotFoundError) Error() string {
	return fmt.Sprintf("action with ID '%s' not found", e.ActionID)
}

func (e *ActionNotFoundError) Is(target error) bool {
	return target == ErrActionNotFound
}

// NewActionNotFoundError creates a new ActionNotFoundError
func NewActionNotFoundError(actionID string) *ActionNotFoundError {
	return &ActionNotFoundError{ActionID: actionID}
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// FrozenContextError is returned by gated operations once the context was frozen.
type FrozenContextError struct{}

func (e *FrozenContextError) Error() string {
	return "features that prevent cachability are disabled on this context"
}

func (e *FrozenContextError) Is(target error) bool {
	return target == ErrFrozenContext
}

// NewFrozenContextError creates a new FrozenContextError
func NewFrozenContextError() *FrozenContextError {
	return &FrozenContextError{}
}

// FieldResolutionError represents a lookup of an unmapped field that the policy forbids
type FieldResolutionError struct {
	FieldName string
	IndexName string
	ShardID   int
}

func (e *FieldResolutionError) Error() string {
	return fmt.Sprintf("[%s][%d] No field mapping can be found for the field with name [%s]", e.IndexName, e.ShardID, e.FieldName)
}

func (e *FieldResolutionError) Is(target error) bool {
	return target == ErrFieldResolution
}

// NewFieldResolutionError creates a new FieldResolutionError
func NewFieldResolutionError(indexName string, shardID int, fieldName string) *FieldResolutionError {
	return &FieldResolutionError{FieldName: fieldName, IndexName: indexName, ShardID: shardID}
}

// UnknownFieldTypeError represents a field type with no registered parser
type UnknownFieldTypeError struct {
	TypeName string
}

func (e *UnknownFieldTypeError) Error() string {
	return fmt.Sprintf("No mapper found for type [%s]", e.TypeName)
}

func (e *UnknownFieldTypeError) Is(target error) bool {
	return target == ErrUnknownFieldType
}

// NewUnknownFieldTypeError creates a new UnknownFieldTypeError
func NewUnknownFieldTypeError(typeName string) *UnknownFieldTypeError {
	return &UnknownFieldTypeError{TypeName: typeName}
}

// InvalidFieldTypeError represents a field type whose mapper is not a leaf field
type InvalidFieldTypeError struct {
	TypeName string
}

func (e *InvalidFieldTypeError) Error() string {
	return fmt.Sprintf("Mapper for type [%s] must be a leaf field", e.TypeName)
}

func (e *InvalidFieldTypeError) Is(target error) bool {
	return target == ErrInvalidFieldType
}

// NewInvalidFieldTypeError creates a new InvalidFieldTypeError
func NewInvalidFieldTypeError(typeName string) *InvalidFieldTypeError {
	return &InvalidFieldTypeError{TypeName: typeName}
}

// RewriteLoopError represents a query that kept changing under rewrite
type RewriteLoopError struct {
	MaxSteps int
	Kind     string
}

func (e *RewriteLoopError) Error() string {
	return fmt.Sprintf("query [%s] did not reach a fixed point after %d rewrite steps", e.Kind, e.MaxSteps)
}

func (e *RewriteLoopError) Is(target error) bool {
	return target == ErrRewriteLoop
}

// NewRewriteLoopError creates a new RewriteLoopError
func NewRewriteLoopError(kind string, maxSteps int) *RewriteLoopError {
	return &RewriteLoopError{Kind: kind, MaxSteps: maxSteps}
}

// QueryCompilationError wraps an unexpected failure raised while compiling a query
type QueryCompilationError struct {
	IndexName string
	ShardID   int
	Message   string
	Cause     error
}

func (e *QueryCompilationError) Error() string {
	return fmt.Sprintf("[%s][%d] failed to create query: %s", e.IndexName, e.ShardID, e.Message)
}

func (e *QueryCompilationError) Unwrap() error {
	return e.Cause
}

func (e *QueryCompilationError) Is(target error) bool {
	return target == ErrQueryCompilation
}

// NewQueryCompilationError creates a new QueryCompilationError carrying the original cause
func NewQueryCompilationError(indexName string, shardID int, cause error) *QueryCompilationError {
	msg := "<nil>"
	if cause != nil {
		msg = cause.Error()
	}
	return &QueryCompilationError{IndexName: indexName, ShardID: shardID, Message: msg, Cause: cause}
}

// ParsingError represents a malformed query description
type ParsingError struct {
	Kind    string
	Message string
}

func (e *ParsingError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	}
	return e.Message
}

func (e *ParsingError) Is(target error) bool {
	return target == ErrParsing
}

// NewParsingError creates a new ParsingError
func NewParsingError(kind, format string, args ...interface{}) *ParsingError {
	return &ParsingError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
