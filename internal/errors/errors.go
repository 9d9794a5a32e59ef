// Package errors provides standardized error codes for tabvana.
//
// Error codes follow the format {domain}.{error} where:
//   - domain: The subsystem that generated the error (storage, remote, auth, bridge)
//   - error: The specific error type within that domain
//
// These codes are stable and can be used by the popup for programmatic
// error handling. Human-readable messages are provided alongside codes.
package errors

import (
	"errors"
	"fmt"
)

// Error codes by domain.
// These are stable identifiers that display clients can rely on.
const (
	// Storage domain - on-device key-value store errors
	CodeStorageNotFound    = "storage.not_found"    // Record not found
	CodeStorageOpenFailed  = "storage.open_failed"  // Local database open failed
	CodeStorageQueryFailed = "storage.query_failed" // Local read failed
	CodeStorageSaveFailed  = "storage.save_failed"  // Local write failed

	// Remote domain - cloud backend errors
	CodeRemoteUnavailable = "remote.unavailable"  // Remote backend not configured or unreachable
	CodeRemoteQueryFailed = "remote.query_failed" // Remote read failed
	CodeRemoteSaveFailed  = "remote.save_failed"  // Remote write failed

	// Auth domain - identity and bridge authentication
	CodeAuthRequired = "auth.required" // Identity required but absent
	CodeAuthInvalid  = "auth.invalid"  // Invalid bridge token

	// Validation domain - caller input problems
	CodeValidationFailed = "validation.failed"

	// Migration domain - local to cloud migration
	CodeMigrationFailed = "migration.failed"

	// Bridge domain - WebSocket bridge errors
	CodeBridgeUpgradeFailed  = "bridge.upgrade_failed"  // WebSocket upgrade failed
	CodeBridgeInvalidMessage = "bridge.invalid_message" // Malformed or invalid message
	CodeBridgeHandlerMissing = "bridge.handler_missing" // No handler for message type
	CodeBridgeRateLimited    = "bridge.rate_limited"    // Too many requests per second

	// General domain - catch-all errors
	CodeUnknown  = "error.unknown"  // Unknown error
	CodeInternal = "error.internal" // Internal error
)

// CodedError wraps an error with a stable error code.
// This allows errors to carry both a code for programmatic handling
// and a message for human consumption.
type CodedError struct {
	Code    string // Stable error code (e.g., "storage.not_found")
	Message string // Human-readable error message
	Cause   error  // Underlying error (may be nil)
}

// Error implements the error interface.
func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CodedError) Unwrap() error {
	return e.Cause
}

// New creates a new CodedError with the given code and message.
func New(code, message string) *CodedError {
	return &CodedError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new CodedError wrapping an existing error.
func Wrap(code, message string, cause error) *CodedError {
	return &CodedError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// GetCode extracts the error code from an error.
// Falls back to CodeUnknown for errors that carry no code.
func GetCode(err error) string {
	if err == nil {
		return ""
	}

	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}

	return CodeUnknown
}

// GetMessage extracts a human-readable message from an error.
// If the error is a CodedError, returns its message.
// Otherwise, returns the error's Error() string.
func GetMessage(err error) string {
	if err == nil {
		return ""
	}

	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Message
	}

	return err.Error()
}

// ToCodeAndMessage extracts both code and message from an error.
// This is the primary function for converting errors to client responses.
func ToCodeAndMessage(err error) (code, message string) {
	if err == nil {
		return "", ""
	}

	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code, coded.Message
	}

	return CodeUnknown, err.Error()
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code string) bool {
	return GetCode(err) == code
}

// Common error constructors for frequently used error types.

// NotFound creates a "storage.not_found" error.
func NotFound(resource string) *CodedError {
	return New(CodeStorageNotFound, fmt.Sprintf("%s not found", resource))
}

// LocalReadFailed creates a "storage.query_failed" error.
func LocalReadFailed(what string, cause error) *CodedError {
	return Wrap(CodeStorageQueryFailed, fmt.Sprintf("failed to read local %s", what), cause)
}

// LocalWriteFailed creates a "storage.save_failed" error.
func LocalWriteFailed(what string, cause error) *CodedError {
	return Wrap(CodeStorageSaveFailed, fmt.Sprintf("failed to write local %s", what), cause)
}

// RemoteReadFailed creates a "remote.query_failed" error.
func RemoteReadFailed(what string, cause error) *CodedError {
	return Wrap(CodeRemoteQueryFailed, fmt.Sprintf("failed to load %s from the cloud", what), cause)
}

// RemoteWriteFailed creates a "remote.save_failed" error.
func RemoteWriteFailed(what string, cause error) *CodedError {
	return Wrap(CodeRemoteSaveFailed, fmt.Sprintf("failed to update %s in the cloud", what), cause)
}

// RemoteUnavailable creates a "remote.unavailable" error.
func RemoteUnavailable() *CodedError {
	return New(CodeRemoteUnavailable, "cloud storage is not configured")
}

// IdentityRequired creates an "auth.required" error.
// The operation needs a signed-in identity but none is cached.
func IdentityRequired(operation string) *CodedError {
	return New(CodeAuthRequired, fmt.Sprintf("%s requires a signed-in user", operation))
}

// ValidationFailed creates a "validation.failed" error.
func ValidationFailed(message string) *CodedError {
	msg := "validation failed"
	if message != "" {
		msg = fmt.Sprintf("%s: %s", msg, message)
	}
	return New(CodeValidationFailed, msg)
}

// MigrationFailed creates a "migration.failed" error.
func MigrationFailed(group string, cause error) *CodedError {
	return Wrap(CodeMigrationFailed, fmt.Sprintf("failed to migrate group %q", group), cause)
}

// InvalidMessage creates a "bridge.invalid_message" error.
func InvalidMessage(reason string) *CodedError {
	return New(CodeBridgeInvalidMessage, reason)
}

// Internal creates an "error.internal" error.
func Internal(message string, cause error) *CodedError {
	return Wrap(CodeInternal, message, cause)
}
