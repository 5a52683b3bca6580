// Package errors provides structured error types for listenvault.
// All errors include a category, code, message, and retryable flag so that
// callers can distinguish "no data yet" from catalog corruption from
// transient storage failures without string matching.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by system component.
type ErrorCategory string

const (
	ErrCategoryCatalog  ErrorCategory = "CATALOG"
	ErrCategoryStorage  ErrorCategory = "STORAGE"
	ErrCategoryScan     ErrorCategory = "SCAN"
	ErrCategoryIngest   ErrorCategory = "INGEST"
	ErrCategoryInternal ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Catalog codes
	CodeCatalogEmpty           = "CATALOG_EMPTY"
	CodeMalformedPartitionName = "MALFORMED_PARTITION_NAME"
	CodeDirectoryNotFound      = "DIRECTORY_NOT_FOUND"

	// Storage / scan codes
	CodePartitionReadFailed = "PARTITION_READ_FAILED"
	CodePartitionNotFound   = "PARTITION_NOT_FOUND"

	// Ingest codes
	CodePartitionWriteFailed = "PARTITION_WRITE_FAILED"
	CodeInvalidListen        = "INVALID_LISTEN"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// VaultError is the structured error type used throughout the system.
type VaultError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *VaultError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *VaultError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *VaultError) Is(target error) bool {
	var t *VaultError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new VaultError.
func New(category ErrorCategory, code, message string) *VaultError {
	return &VaultError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(code),
	}
}

// Wrap creates a new VaultError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *VaultError {
	return &VaultError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(code),
	}
}

// WithDetails returns a copy of the error with additional details.
// The offending partition path or file name travels here as structured
// data rather than interpolated into the message.
func (e *VaultError) WithDetails(details map[string]interface{}) *VaultError {
	cp := *e
	cp.Details = details
	return &cp
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var ve *VaultError
	if errors.As(err, &ve) {
		return ve.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a VaultError.
func GetCategory(err error) ErrorCategory {
	var ve *VaultError
	if errors.As(err, &ve) {
		return ve.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a VaultError.
func GetCode(err error) string {
	var ve *VaultError
	if errors.As(err, &ve) {
		return ve.Code
	}
	return ""
}

// isRetryable determines if an error code is retryable. Scan-level read and
// write failures are retryable from the outside: the core never retries them
// itself, but a caller re-running the whole operation may succeed. Catalog
// corruption and malformed input never are.
func isRetryable(code string) bool {
	switch code {
	case CodePartitionReadFailed, CodePartitionWriteFailed:
		return true
	default:
		return false
	}
}

// Convenience constructors for common errors.

func NewCatalogError(code, message string) *VaultError {
	return New(ErrCategoryCatalog, code, message)
}

func NewStorageError(code, message string, cause error) *VaultError {
	return Wrap(ErrCategoryStorage, code, message, cause)
}

func NewScanError(code, message string, cause error) *VaultError {
	return Wrap(ErrCategoryScan, code, message, cause)
}

func NewIngestError(code, message string, cause error) *VaultError {
	return Wrap(ErrCategoryIngest, code, message, cause)
}

func NewInternalError(message string, cause error) *VaultError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
