// Package errors provides the standardized error type shared by the intake components.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Submission outcome errors
const (
	ErrCodeFormClosed       ErrorCode = "FORM_CLOSED"
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeSystemError      ErrorCode = "SYSTEM_ERROR"
)

// Mail relay errors
const (
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeMailTimeout            ErrorCode = "MAIL_TIMEOUT"
	ErrCodeMailAuthFailed         ErrorCode = "MAIL_AUTH_FAILED"
	ErrCodeMailConnectionFailed   ErrorCode = "MAIL_CONNECTION_FAILED"
)

// Boundary and infrastructure errors
const (
	ErrCodeInvalidConfiguration ErrorCode = "INVALID_CONFIGURATION"
	ErrCodeInputParsingFailed   ErrorCode = "INPUT_PARSING_FAILED"
	ErrCodePayloadTooLarge      ErrorCode = "PAYLOAD_TOO_LARGE"
	ErrCodeInternal             ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata returns the error with an extra metadata entry.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// Reason is the operator-facing "CODE: details" string used in logs and alerts.
func (e *StandardError) Reason() string {
	if e.Details == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Details)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewFormClosedError reports a submission received at or after the cutoff.
func NewFormClosedError(cutoff time.Time) *StandardError {
	return &StandardError{
		Code:      ErrCodeFormClosed,
		Message:   "Form is closed",
		Details:   fmt.Sprintf("cutoff: %s", cutoff.Format(time.RFC3339)),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationFailedError wraps the joined field messages of a rejected submission.
func NewValidationFailedError(messages []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Submission validation failed",
		Details:   strings.Join(messages, ", "),
		Retryable: false,
		Metadata:  map[string]interface{}{"errorCount": len(messages)},
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a generic mail delivery error.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("type: %s, error: %s", notificationType, errString(err)),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewMailTimeoutError reports a relay call that exceeded its bounded wait.
func NewMailTimeoutError(notificationType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeMailTimeout,
		Message:   "Mail relay timeout",
		Details:   fmt.Sprintf("type: %s, error: %s", notificationType, errString(err)),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewMailAuthFailedError reports rejected relay credentials.
func NewMailAuthFailedError(notificationType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeMailAuthFailed,
		Message:   "Mail relay authentication failed",
		Details:   fmt.Sprintf("type: %s, error: %s", notificationType, errString(err)),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewMailConnectionFailedError reports a relay that could not be reached.
func NewMailConnectionFailedError(notificationType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeMailConnectionFailed,
		Message:   "Mail relay connection failed",
		Details:   fmt.Sprintf("type: %s, error: %s", notificationType, errString(err)),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewSystemError wraps an unexpected fault caught at an orchestration boundary.
func NewSystemError(details string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSystemError,
		Message:   "Unexpected system error",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewPanicError converts a recovered panic value into a SystemError.
func NewPanicError(recovered interface{}, stack []byte) *StandardError {
	err := NewSystemError(fmt.Sprintf("panic: %v", recovered), nil)
	if len(stack) > 0 {
		err.WithMetadata("stack", string(stack))
	}
	return err
}

// NewInvalidConfigurationError reports a missing or malformed setting.
func NewInvalidConfigurationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidConfiguration,
		Message:   "Invalid configuration",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInputParsingError reports a request body that could not be decoded.
func NewInputParsingError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInputParsingFailed,
		Message:   "Failed to parse request",
		Details:   errString(err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewPayloadTooLargeError reports a request body over the configured limit.
func NewPayloadTooLargeError(limit int64) *StandardError {
	return &StandardError{
		Code:      ErrCodePayloadTooLarge,
		Message:   "Request body too large",
		Details:   fmt.Sprintf("limit: %d bytes", limit),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Helpers
// ==========================

// GetErrorCode extracts the code from a StandardError anywhere in the chain.
func GetErrorCode(err error) ErrorCode {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ErrCodeInternal
}

// IsRetryable reports whether the error is marked retryable.
func IsRetryable(err error) bool {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return false
}

// IsMailError reports whether the code belongs to the mail relay family.
func IsMailError(code ErrorCode) bool {
	switch code {
	case ErrCodeNotificationSendFailed, ErrCodeMailTimeout, ErrCodeMailAuthFailed, ErrCodeMailConnectionFailed:
		return true
	}
	return false
}

// IsRequestError reports whether the code describes a request the caller must
// change, as opposed to a fault on our side.
func IsRequestError(code ErrorCode) bool {
	switch code {
	case ErrCodeFormClosed, ErrCodeValidationFailed, ErrCodeInputParsingFailed, ErrCodePayloadTooLarge:
		return true
	}
	return false
}

func errString(err error) string {
	if err == nil {
		return "unknown"
	}
	return err.Error()
}
