package errors

import (
	"errors"
)

// Wrap wraps an error with additional context, creating a SiteError if the input is not already one
func Wrap(err error, errType ErrorType, code, message string) *SiteError {
	if err == nil {
		return nil
	}

	// If it's already a SiteError, preserve its location but take the new classification
	var se *SiteError
	if errors.As(err, &se) {
		return &SiteError{
			Type:        errType,
			Code:        code,
			Message:     message,
			Cause:       se,
			Context:     se.Context,
			Unit:        se.Unit,
			FilePath:    se.FilePath,
			Recoverable: recoverableType(errType),
		}
	}

	return &SiteError{
		Type:        errType,
		Code:        code,
		Message:     message,
		Cause:       err,
		Recoverable: recoverableType(errType),
	}
}

func recoverableType(t ErrorType) bool {
	switch t {
	case ErrorTypeBuild, ErrorTypeNetwork, ErrorTypeNotFound, ErrorTypeValidation:
		return true
	default:
		return false
	}
}

// WrapBuild wraps an error as a build error for a single unit
func WrapBuild(err error, code, message, unit string) *SiteError {
	se := Wrap(err, ErrorTypeBuild, code, message)
	if se != nil {
		se.Unit = unit
	}
	return se
}

// WrapIO wraps an error as an I/O error
func WrapIO(err error, code, message string) *SiteError {
	return Wrap(err, ErrorTypeIO, code, message)
}

// WrapConfig wraps an error as a configuration error
func WrapConfig(err error, code, message string) *SiteError {
	return Wrap(err, ErrorTypeConfig, code, message)
}

// WrapNetwork wraps an error as a best-effort network error
func WrapNetwork(err error, code, message string) *SiteError {
	return Wrap(err, ErrorTypeNetwork, code, message)
}

// WrapValidation wraps an error as a validation error
func WrapValidation(err error, code, message string) *SiteError {
	return Wrap(err, ErrorTypeValidation, code, message)
}

// ExtractContext extracts context information from an error
func ExtractContext(err error) map[string]interface{} {
	var se *SiteError
	if errors.As(err, &se) {
		return se.Context
	}
	return nil
}

// GetErrorType returns the error type, or internal for foreign errors
func GetErrorType(err error) ErrorType {
	var se *SiteError
	if errors.As(err, &se) {
		return se.Type
	}
	return ErrorTypeInternal
}

// As forwards to the standard library so callers need a single errors import.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Is forwards to the standard library.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
