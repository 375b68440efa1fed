// Package errors defines the structured application error taxonomy shared by
// the reconciliation and dispatch services. Classification happens once at
// the boundary that observes a failure; callers branch on error codes via the
// Is* helpers instead of re-parsing messages.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeInvalidCredentials indicates a wrong password or unknown
	// principal after all repair attempts were exhausted.
	ErrCodeInvalidCredentials ErrorCode = "invalid_credentials"
	// ErrCodeAccountBanned indicates a banned staff profile; the session is
	// force-cleared when this is raised.
	ErrCodeAccountBanned ErrorCode = "account_banned"
	// ErrCodeConfiguration indicates a repair path needed a privileged
	// credential that is not configured in this deployment.
	ErrCodeConfiguration ErrorCode = "configuration"
	// ErrCodeProvisioning indicates profile auto-creation failed after the
	// credential itself verified successfully.
	ErrCodeProvisioning ErrorCode = "provisioning"
	// ErrCodeAuthProvider indicates a transient or unclassified identity
	// provider failure that survived the retry budget.
	ErrCodeAuthProvider ErrorCode = "auth_provider"
	// ErrCodeDeliveryTimeout indicates the mail relay call exceeded its
	// client-side deadline.
	ErrCodeDeliveryTimeout ErrorCode = "delivery_timeout"
	// ErrCodeDeliveryTransport indicates the mail relay reported a failure.
	ErrCodeDeliveryTransport ErrorCode = "delivery_transport"

	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeConflict indicates a conflict with existing data.
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "internal"
)

// AppError is a structured application error with a code, message, optional
// cause, and optional remediation text for operator self-service. It supports
// errors.Is and errors.As through Unwrap.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	// Remediation carries actionable next steps (including literal ids or
	// emails when manual repair is required). Optional.
	Remediation string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithRemediation returns a copy of the error carrying remediation text.
func (e *AppError) WithRemediation(format string, args ...any) *AppError {
	clone := *e
	clone.Remediation = fmt.Sprintf(format, args...)
	return &clone
}

// New creates an AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf creates an AppError with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsInvalidCredentials checks for the invalid_credentials code.
func IsInvalidCredentials(err error) bool { return isCode(err, ErrCodeInvalidCredentials) }

// IsAccountBanned checks for the account_banned code.
func IsAccountBanned(err error) bool { return isCode(err, ErrCodeAccountBanned) }

// IsConfiguration checks for the configuration code.
func IsConfiguration(err error) bool { return isCode(err, ErrCodeConfiguration) }

// IsProvisioning checks for the provisioning code.
func IsProvisioning(err error) bool { return isCode(err, ErrCodeProvisioning) }

// IsAuthProvider checks for the auth_provider code.
func IsAuthProvider(err error) bool { return isCode(err, ErrCodeAuthProvider) }

// IsDeliveryTimeout checks for the delivery_timeout code.
func IsDeliveryTimeout(err error) bool { return isCode(err, ErrCodeDeliveryTimeout) }

// IsDeliveryTransport checks for the delivery_transport code.
func IsDeliveryTransport(err error) bool { return isCode(err, ErrCodeDeliveryTransport) }

// IsNotFound checks for the not_found code.
func IsNotFound(err error) bool { return isCode(err, ErrCodeNotFound) }

// IsConflict checks for the conflict code.
func IsConflict(err error) bool { return isCode(err, ErrCodeConflict) }

// IsValidation checks for the validation code.
func IsValidation(err error) bool { return isCode(err, ErrCodeValidation) }

// GetCode returns the ErrorCode from an error, or empty string if the error
// is not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetRemediation returns the remediation text from an error, if any.
func GetRemediation(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Remediation
	}
	return ""
}
