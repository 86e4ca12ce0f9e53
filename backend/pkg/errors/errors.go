package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInput represents invalid caller input
	ErrorTypeInput ErrorType = "input"
	// ErrorTypeLookup represents entity lookup (Wikipedia) errors
	ErrorTypeLookup ErrorType = "lookup"
	// ErrorTypeSPARQL represents knowledge-base query errors
	ErrorTypeSPARQL ErrorType = "sparql"
	// ErrorTypeGeneration represents triplet generation (LLM) errors
	ErrorTypeGeneration ErrorType = "generation"
	// ErrorTypeCoref represents coreference resolution errors
	ErrorTypeCoref ErrorType = "coref"
	// ErrorTypeRender represents graph rendering errors
	ErrorTypeRender ErrorType = "render"
	// ErrorTypeGraph represents graph database errors
	ErrorTypeGraph ErrorType = "graph"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// errorType is promoted into every typed error that embeds BaseError
func (e *BaseError) errorType() ErrorType {
	return e.Type
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Input Errors

// ErrEmptyText is returned when the pipeline is given blank text
var ErrEmptyText = NewBaseError(ErrorTypeInput, "input text cannot be empty", nil)

// Lookup Errors

// ErrLookupNotFound is returned when no page exists for a candidate name
type ErrLookupNotFound struct {
	*BaseError
	Name string
}

func NewLookupNotFound(name string) *ErrLookupNotFound {
	return &ErrLookupNotFound{
		BaseError: NewBaseError(ErrorTypeLookup, fmt.Sprintf("page not found: %s", name), nil),
		Name:      name,
	}
}

// ErrLookupAmbiguous is returned when the candidate name lands on a disambiguation page
type ErrLookupAmbiguous struct {
	*BaseError
	Name    string
	Options []string
}

func NewLookupAmbiguous(name string, options []string) *ErrLookupAmbiguous {
	return &ErrLookupAmbiguous{
		BaseError: NewBaseError(ErrorTypeLookup, fmt.Sprintf("ambiguous name: %s (%d options)", name, len(options)), nil),
		Name:      name,
		Options:   options,
	}
}

// ErrLookupFailed is returned for transport or parse failures during lookup
type ErrLookupFailed struct {
	*BaseError
	Name string
}

func NewLookupFailed(name string, err error) *ErrLookupFailed {
	return &ErrLookupFailed{
		BaseError: NewBaseError(ErrorTypeLookup, fmt.Sprintf("lookup failed: %s", name), err),
		Name:      name,
	}
}

// SPARQL Errors

// ErrSPARQLQueryFailed is returned when the endpoint rejects or fails a query
type ErrSPARQLQueryFailed struct {
	*BaseError
	Endpoint   string
	StatusCode int
}

func NewSPARQLQueryFailed(endpoint string, statusCode int, err error) *ErrSPARQLQueryFailed {
	return &ErrSPARQLQueryFailed{
		BaseError:  NewBaseError(ErrorTypeSPARQL, fmt.Sprintf("query against %s failed (status %d)", endpoint, statusCode), err),
		Endpoint:   endpoint,
		StatusCode: statusCode,
	}
}

// Generation Errors

// ErrGenerationFailed is returned when the LLM request fails. StatusCode is the
// HTTP status of the last attempt, 0 for transport errors.
type ErrGenerationFailed struct {
	*BaseError
	Model      string
	Attempts   int
	StatusCode int
}

func NewGenerationFailed(model string, attempts int, err error) *ErrGenerationFailed {
	return &ErrGenerationFailed{
		BaseError: NewBaseError(ErrorTypeGeneration, fmt.Sprintf("LLM request failed after %d attempts", attempts), err),
		Model:     model,
		Attempts:  attempts,
	}
}

// ErrNoOutput is returned when the LLM returns no choices
var ErrNoOutput = NewBaseError(ErrorTypeGeneration, "no output from LLM", nil)

// Coref Errors

// ErrCorefFailed is returned when the coreference rewrite fails
type ErrCorefFailed struct {
	*BaseError
	Model string
}

func NewCorefFailed(model string, err error) *ErrCorefFailed {
	return &ErrCorefFailed{
		BaseError: NewBaseError(ErrorTypeCoref, "coreference resolution failed", err),
		Model:     model,
	}
}

// Render Errors

// ErrRenderFailed is returned when graph rendering fails
type ErrRenderFailed struct {
	*BaseError
	Format string
}

func NewRenderFailed(format string, err error) *ErrRenderFailed {
	return &ErrRenderFailed{
		BaseError: NewBaseError(ErrorTypeRender, fmt.Sprintf("failed to render graph as %s", format), err),
		Format:    format,
	}
}

// Graph Errors

// ErrGraphConnectionFailed is returned when Neo4j connection fails
type ErrGraphConnectionFailed struct {
	*BaseError
	URI string
}

func NewGraphConnectionFailed(uri string, err error) *ErrGraphConnectionFailed {
	return &ErrGraphConnectionFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("failed to connect to Neo4j: %s", uri), err),
		URI:       uri,
	}
}

// ErrGraphQueryFailed is returned when a graph query fails
type ErrGraphQueryFailed struct {
	*BaseError
	Query string
}

func NewGraphQueryFailed(query string, err error) *ErrGraphQueryFailed {
	return &ErrGraphQueryFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("query failed: %s", query), err),
		Query:     query,
	}
}

// Config Errors

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Helper functions

type typedError interface {
	errorType() ErrorType
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	if err == nil {
		return false
	}
	if typed, ok := err.(typedError); ok && typed.errorType() == errType {
		return true
	}
	// Check wrapped errors
	if wrapped, ok := err.(interface{ Unwrap() error }); ok {
		return IsErrorType(wrapped.Unwrap(), errType)
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	// Not-found and ambiguous answers will not change on retry
	if _, ok := err.(*ErrLookupNotFound); ok {
		return false
	}
	if _, ok := err.(*ErrLookupAmbiguous); ok {
		return false
	}
	if q, ok := err.(*ErrSPARQLQueryFailed); ok {
		return retryableStatus(q.StatusCode)
	}
	// Rejected requests (bad model, auth, invalid payload) fail the same way again
	if g, ok := err.(*ErrGenerationFailed); ok {
		return retryableStatus(g.StatusCode)
	}
	// Graph connection errors are retryable
	if IsErrorType(err, ErrorTypeGraph) {
		return true
	}
	return IsErrorType(err, ErrorTypeGeneration)
}

// retryableStatus treats transport failures, rate limits and server errors as transient
func retryableStatus(code int) bool {
	return code == 0 || code == 429 || code >= 500
}
