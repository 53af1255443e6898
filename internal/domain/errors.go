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
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeExtraction    = "EXTRACTION_ERROR"
	ErrCodeUnsupported   = "UNSUPPORTED_KIND"
	ErrCodeIndexBuild    = "INDEX_BUILD_ERROR"
	ErrCodeIndexNotFound = "INDEX_NOT_FOUND"
	ErrCodeIndexCorrupt  = "INDEX_CORRUPT"
	ErrCodeEmbedding     = "EMBEDDING_ERROR"
	ErrCodeLLMInvocation = "LLM_INVOCATION_ERROR"
	ErrCodeSessionBusy   = "SESSION_BUSY"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrMissingCompanyName = NewDomainError(ErrCodeValidation, "company name is required")
	ErrInvalidTopK        = NewDomainError(ErrCodeValidation, "top-k must be a positive integer")
	ErrInvalidJobStatus   = NewDomainError(ErrCodeValidation, "invalid report job status")
	ErrEmptyQuery         = NewDomainError(ErrCodeValidation, "query cannot be empty")
)

// Index errors. Index-level failures are fatal to a report request: without a
// readable index no retrieval is possible.
var (
	ErrIndexNotFound = NewDomainError(ErrCodeIndexNotFound, "vector index artifact not found")
	ErrIndexCorrupt  = NewDomainError(ErrCodeIndexCorrupt, "vector index artifact cannot be parsed")
	ErrIndexBuild    = NewDomainError(ErrCodeIndexBuild, "vector index build failed")
)

// Capability errors
var (
	ErrEmbedding     = NewDomainError(ErrCodeEmbedding, "embedding generation failed")
	ErrLLMInvocation = NewDomainError(ErrCodeLLMInvocation, "llm invocation failed")
)

// Extraction errors
var (
	ErrUnsupportedKind = NewDomainError(ErrCodeUnsupported, "unsupported document kind")
	ErrExtraction      = NewDomainError(ErrCodeExtraction, "document text extraction failed")
)

// Session errors
var (
	ErrSessionBusy     = NewDomainError(ErrCodeSessionBusy, "session has a query in flight")
	ErrSessionNotFound = NewDomainError(ErrCodeNotFound, "chat session not found")
)

// Report job errors
var (
	ErrReportJobNotFound = NewDomainError(ErrCodeNotFound, "report job not found")
	ErrArtifactNotFound  = NewDomainError(ErrCodeNotFound, "report artifact not found")
)
