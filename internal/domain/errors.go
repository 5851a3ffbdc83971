package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeParse            = "PARSE_ERROR"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrInvalidContentType   = NewDomainError(ErrCodeValidation, "invalid content type")
	ErrInvalidIntentType    = NewDomainError(ErrCodeValidation, "invalid intent type")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrEmptyQuery           = NewDomainError(ErrCodeValidation, "query cannot be empty")
)

// Not found errors
var (
	ErrCharacterNotFound = NewDomainError(ErrCodeNotFound, "character not found")
	ErrSessionNotFound   = NewDomainError(ErrCodeNotFound, "chat session not found")
	ErrChunkNotFound     = NewDomainError(ErrCodeNotFound, "content chunk not found")
	ErrUnknownTool       = NewDomainError(ErrCodeNotFound, "unknown tool")
)

// Already exists errors
var (
	ErrCharacterAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "character already exists")
)

// Parse errors: a non-conforming LLM response is a typed error, never a
// silent condition. Callers decide whether to fall back.
var (
	ErrNoJSONInResponse  = NewDomainError(ErrCodeParse, "no JSON object found in model response")
	ErrMalformedAnalysis = NewDomainError(ErrCodeParse, "model analysis did not match expected shape")
	ErrMalformedRerank   = NewDomainError(ErrCodeParse, "model rerank response was not an index array")
	ErrMalformedToolArgs = NewDomainError(ErrCodeParse, "tool arguments did not match schema")
)

// Operation errors
var (
	ErrToolIterationLimit = NewDomainError(ErrCodeInvalidOperation, "tool call iteration limit exceeded")
	ErrNoLLMConfigured    = NewDomainError(ErrCodeInvalidOperation, "no language model configured")
)

// Errorf builds a one-off DomainError with a formatted message.
func Errorf(code, format string, args ...interface{}) *DomainError {
	return NewDomainError(code, fmt.Sprintf(format, args...))
}
