package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes returned in API responses and matched on by handlers.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeAlreadyInMode    = "ALREADY_IN_MODE"
	CodeDuplicateRequest = "DUPLICATE_REQUEST"
	CodeNotAuthorized    = "NOT_AUTHORIZED"
	CodeAlreadyResolved  = "ALREADY_RESOLVED"
	CodeNotFound         = "NOT_FOUND"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeStorageConflict  = "STORAGE_CONFLICT"
	CodeInternal         = "INTERNAL_ERROR"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

// NewAlreadyInModeError reports a no-op switch request: the account already
// holds the requested view mode.
func NewAlreadyInModeError(mode ViewMode) *AppError {
	return &AppError{
		Code:    CodeAlreadyInMode,
		Message: fmt.Sprintf("account is already in %s mode", mode),
	}
}

// NewDuplicateRequestError reports an attempt to open a second pending
// mode-switch request for the same account.
func NewDuplicateRequestError() *AppError {
	return &AppError{
		Code:    CodeDuplicateRequest,
		Message: "a pending mode-switch request already exists for this account",
	}
}

func NewNotAuthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeNotAuthorized,
		Message: message,
	}
}

// NewAlreadyResolvedError reports a resolution attempt on a request that has
// already reached a terminal status.
func NewAlreadyResolvedError(status ModeRequestStatus) *AppError {
	return &AppError{
		Code:    CodeAlreadyResolved,
		Message: fmt.Sprintf("mode-switch request is already %s", status),
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

// NewStorageConflictError wraps a serialization or lock failure that is safe
// to retry.
func NewStorageConflictError(err error) *AppError {
	return &AppError{
		Code:    CodeStorageConflict,
		Message: "storage conflict",
		Err:     err,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// IsTransient reports whether the error is a retryable storage conflict.
func IsTransient(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == CodeStorageConflict
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}
