package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	// ErrorTypeConfig is a fatal configuration problem, such as an
	// always-externalized dependency missing from the manifest.
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeBuild is a failure confined to one unit of a batch
	// (a style file, an island, a document).
	ErrorTypeBuild ErrorType = "build"
	// ErrorTypeIO covers filesystem failures.
	ErrorTypeIO ErrorType = "io"
	// ErrorTypeNetwork covers best-effort loopback calls (health probe, reload trigger).
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeNotFound is an unmatched route or a missing asset.
	ErrorTypeNotFound ErrorType = "notfound"
	// ErrorTypeValidation is rejected user input (config values, names).
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeInternal   ErrorType = "internal"
)

// Error codes.
const (
	ErrCodeMissingDependency = "ERR_MISSING_DEPENDENCY"
	ErrCodeConfigInvalid     = "ERR_CONFIG_INVALID"
	ErrCodeStyleCompile      = "ERR_STYLE_COMPILE"
	ErrCodeStyleMapping      = "ERR_STYLE_MAPPING"
	ErrCodeIslandBundle      = "ERR_ISLAND_BUNDLE"
	ErrCodeIslandNotFound    = "ERR_ISLAND_NOT_FOUND"
	ErrCodeDocumentParse     = "ERR_DOCUMENT_PARSE"
	ErrCodeDocumentNotFound  = "ERR_DOCUMENT_NOT_FOUND"
	ErrCodePageRender        = "ERR_PAGE_RENDER"
	ErrCodePageNotFound      = "ERR_PAGE_NOT_FOUND"
	ErrCodeFileNotFound      = "ERR_FILE_NOT_FOUND"
	ErrCodeWriteFailed       = "ERR_WRITE_FAILED"
	ErrCodeHealthCheck       = "ERR_HEALTH_CHECK"
	ErrCodeReloadTrigger     = "ERR_RELOAD_TRIGGER"
	ErrCodeInvalidPath       = "ERR_INVALID_PATH"
	ErrCodeValidationFailed  = "ERR_VALIDATION_FAILED"
	ErrCodeInternalError     = "ERR_INTERNAL"
)

// SiteError is a structured error type with context.
type SiteError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Unit        string
	FilePath    string
	Recoverable bool
}

// Error implements the error interface.
func (e *SiteError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Unit != "" {
		parts = append(parts, "unit:"+e.Unit)
	}

	if e.FilePath != "" {
		parts = append(parts, e.FilePath)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *SiteError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *SiteError) Is(target error) bool {
	var t *SiteError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *SiteError) WithContext(key string, value interface{}) *SiteError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithFile adds file location information.
func (e *SiteError) WithFile(filePath string) *SiteError {
	e.FilePath = filePath

	return e
}

// WithUnit names the batch unit (island, style file, document) the error belongs to.
func (e *SiteError) WithUnit(unit string) *SiteError {
	e.Unit = unit

	return e
}

// Error creation functions

// NewConfigError creates a fatal configuration error.
func NewConfigError(code, message string) *SiteError {
	return &SiteError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewBuildError creates a recoverable per-unit build error.
func NewBuildError(code, message string, cause error) *SiteError {
	return &SiteError{
		Type:        ErrorTypeBuild,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *SiteError {
	return &SiteError{
		Type:        ErrorTypeIO,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewNetworkError creates a best-effort networking error. These are
// retried or swallowed, never escalated.
func NewNetworkError(code, message string, cause error) *SiteError {
	return &SiteError{
		Type:        ErrorTypeNetwork,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewNotFoundError creates a not-found error.
func NewNotFoundError(code, message string) *SiteError {
	return &SiteError{
		Type:        ErrorTypeNotFound,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *SiteError {
	return &SiteError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *SiteError {
	return &SiteError{
		Type:        ErrorTypeInternal,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// Error recovery and handling utilities

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var se *SiteError
	if errors.As(err, &se) {
		return se.Recoverable
	}

	return false
}

// IsFatal reports whether err must abort the whole process.
func IsFatal(err error) bool {
	var se *SiteError
	if errors.As(err, &se) {
		return se.Type == ErrorTypeConfig
	}

	return false
}

// IsNotFound reports whether err is a not-found condition.
func IsNotFound(err error) bool {
	var se *SiteError
	if errors.As(err, &se) {
		return se.Type == ErrorTypeNotFound
	}

	return false
}

// IsBuildError checks if an error is a per-unit build failure.
func IsBuildError(err error) bool {
	var se *SiteError
	if errors.As(err, &se) {
		return se.Type == ErrorTypeBuild
	}

	return false
}

// Common error constructors

// ErrMissingDependency reports an externalized dependency with no manifest entry.
func ErrMissingDependency(name, manifest string) *SiteError {
	return NewConfigError(
		ErrCodeMissingDependency,
		fmt.Sprintf("missing dependency %q in %s", name, manifest),
	).WithContext("dependency", name)
}

// ErrIslandNotFound reports a request for an island absent from the registry.
func ErrIslandNotFound(name string) *SiteError {
	return NewNotFoundError(ErrCodeIslandNotFound, "island not found in registry: "+name).
		WithUnit(name)
}

// ErrIslandBundle reports a failed island compile.
func ErrIslandBundle(name string, cause error) *SiteError {
	return NewBuildError(ErrCodeIslandBundle, "failed to bundle island", cause).WithUnit(name)
}

// ErrDocumentNotFound reports an unknown document slug.
func ErrDocumentNotFound(slug string) *SiteError {
	return NewNotFoundError(ErrCodeDocumentNotFound, "document not found: "+slug).WithUnit(slug)
}

// ErrPageNotFound reports an unknown page name.
func ErrPageNotFound(name string) *SiteError {
	return NewNotFoundError(ErrCodePageNotFound, "page not found: "+name).WithUnit(name)
}

// ErrInvalidPath reports a rejected path.
func ErrInvalidPath(path string) *SiteError {
	return NewValidationError(ErrCodeInvalidPath, "invalid path: "+path)
}
