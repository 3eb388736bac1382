package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel kinds. Callers match with errors.Is; the HTTP layer maps them
// to status codes in utils.ErrorResponse.
var (
	ErrValidation         = errors.New("validation failed")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyClaimed     = errors.New("work item already claimed")
	ErrInvalidTransition  = errors.New("status transition not allowed")
	ErrExternalDependency = errors.New("external dependency failure")

	ErrEmptyAuthHeader   = errors.New("authorization header is missing")
	ErrInvalidAuthHeader = errors.New("malformed authorization header")
	ErrInvalidToken      = errors.New("invalid token")
	ErrTokenExpired      = errors.New("token expired")
	ErrActorNotInContext = errors.New("actor not found in request context")
)

// StatusOf returns the HTTP status a kind maps to.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrEmptyAuthHeader),
		errors.Is(err, ErrInvalidAuthHeader),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrActorNotInContext):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyClaimed):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrExternalDependency):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AppError attaches a caller-facing message to a sentinel kind.
type AppError struct {
	Kind    error
	Message string
}

func (e *AppError) Error() string { return e.Message }
func (e *AppError) Unwrap() error { return e.Kind }

func newAppError(kind error, format string, args ...interface{}) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NewValidationError(format string, args ...interface{}) *AppError {
	return newAppError(ErrValidation, format, args...)
}

func NewForbiddenError(format string, args ...interface{}) *AppError {
	return newAppError(ErrForbidden, format, args...)
}

func NewNotFoundError(format string, args ...interface{}) *AppError {
	return newAppError(ErrNotFound, format, args...)
}

func NewAlreadyClaimedError(format string, args ...interface{}) *AppError {
	return newAppError(ErrAlreadyClaimed, format, args...)
}

func NewInvalidTransitionError(format string, args ...interface{}) *AppError {
	return newAppError(ErrInvalidTransition, format, args...)
}

func NewExternalDependencyError(format string, args ...interface{}) *AppError {
	return newAppError(ErrExternalDependency, format, args...)
}
