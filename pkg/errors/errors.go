package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrorCode represents a unique error code for categorizing errors
type ErrorCode string

const (
	// Connection errors (1xxx)
	ErrCodeConnectionFailed     ErrorCode = "DWH1001"
	ErrCodeConnectionTimeout    ErrorCode = "DWH1002"
	ErrCodeAuthenticationFailed ErrorCode = "DWH1003"
	ErrCodeNotConnected         ErrorCode = "DWH1004"

	// Configuration errors (2xxx)
	ErrCodeConfigNotFound ErrorCode = "DWH2001"
	ErrCodeConfigInvalid  ErrorCode = "DWH2002"
	ErrCodeConfigMissing  ErrorCode = "DWH2003"
	ErrCodeCredentials    ErrorCode = "DWH2004"

	// Statement errors (4xxx)
	ErrCodeSQLSyntax           ErrorCode = "DWH4001"
	ErrCodeSQLPermission       ErrorCode = "DWH4002"
	ErrCodeSQLTimeout          ErrorCode = "DWH4003"
	ErrCodeSQLTransaction      ErrorCode = "DWH4004"
	ErrCodeSQLObjectNotFound   ErrorCode = "DWH4005"
	ErrCodeSQLExecution        ErrorCode = "DWH4006"
	ErrCodeBulkLoadFailed      ErrorCode = "DWH4007"
	ErrCodeNoResults           ErrorCode = "DWH4008"
	ErrCodeConstraintViolation ErrorCode = "DWH4009"

	// Storage errors (5xxx)
	ErrCodeStorageUnavailable ErrorCode = "DWH5001"
	ErrCodeObjectNotFound     ErrorCode = "DWH5002"
	ErrCodeMalformedRecord    ErrorCode = "DWH5003"

	// System errors (9xxx)
	ErrCodeInternal  ErrorCode = "DWH9001"
	ErrCodeCancelled ErrorCode = "DWH9002"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "CRITICAL"
	SeverityError    ErrorSeverity = "ERROR"
	SeverityWarning  ErrorSeverity = "WARNING"
)

// AppError represents a structured application error with context
type AppError struct {
	Code        ErrorCode
	Message     string
	Severity    ErrorSeverity
	Context     map[string]interface{}
	Cause       error
	Timestamp   time.Time
	Suggestions []string
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s: %s", e.Code, e.Severity, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\nCaused by: %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}

	return b.String()
}

// Unwrap returns the cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Severity:  SeverityError,
		Context:   make(map[string]interface{}),
		Timestamp: time.Now(),
	}
}

// Wrap wraps an existing error with AppError. Context of a wrapped AppError is inherited.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	appErr := New(code, message)
	appErr.Cause = err

	var ae *AppError
	if errors.As(err, &ae) {
		for k, v := range ae.Context {
			appErr.Context[k] = v
		}
	}

	return appErr
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity sets the error severity
func (e *AppError) WithSeverity(severity ErrorSeverity) *AppError {
	e.Severity = severity
	return e
}

// WithSuggestions adds recovery suggestions
func (e *AppError) WithSuggestions(suggestions ...string) *AppError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// ContextKeys returns the context keys in sorted order.
func (e *AppError) ContextKeys() []string {
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Common error constructors

// ConnectionError creates a connection-related error
func ConnectionError(message string, cause error) *AppError {
	return Wrap(cause, ErrCodeConnectionFailed, message).
		WithSuggestions(
			"Check your network connection",
			"Verify the cluster endpoint and port are reachable",
			"Check security group and firewall settings",
		)
}

// ConfigError creates an error for a missing or invalid configuration value
func ConfigError(message string, field string) *AppError {
	return New(ErrCodeConfigInvalid, message).
		WithContext("field", field).
		WithSuggestions(
			fmt.Sprintf("Check the '%s' configuration value", field),
			"Run 'songplaydw config init' to write a template",
		)
}

// MissingConfig creates an error for a required configuration key that is absent
func MissingConfig(field string) *AppError {
	err := ConfigError(fmt.Sprintf("Missing required configuration value %s", field), field)
	err.Code = ErrCodeConfigMissing
	return err
}

// SQLError creates a statement execution error. The code defaults to ErrCodeSQLExecution;
// callers that can classify the driver error set a more specific one.
func SQLError(message string, query string, cause error) *AppError {
	return Wrap(cause, ErrCodeSQLExecution, message).
		WithContext("query", truncateString(query, 200))
}

// StorageError creates an object-storage error
func StorageError(message string, location string, cause error) *AppError {
	err := Wrap(cause, ErrCodeStorageUnavailable, message)
	if err == nil {
		err = New(ErrCodeStorageUnavailable, message)
	}
	return err.WithContext("location", location)
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// As is errors.As, re-exported so callers importing this package under the name
// errors keep access to it.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Is is errors.Is, re-exported for the same reason as As.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
