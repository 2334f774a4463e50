// Package kberrors provides sentinel and custom error types for the embedding and vector services.
package kberrors

import (
	"errors"
	"net/http"
)

// ErrValidation represents a validation error.
// Use when client input fails validation (e.g. vector dimension mismatch).
var ErrValidation = &ValidationError{}

// ValidationError is a sentinel error for validation failures.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a new ValidationError with a custom message.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Field != "" {
		return "validation failed for field: " + e.Field
	}

	return "validation error"
}

// Is implements the error interface for error comparison.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)

	return ok
}

// Kind classifies backend failures by the operation that produced them.
type Kind string

// Backend failure kinds.
const (
	KindInference           Kind = "inference"
	KindUpstream            Kind = "upstream"
	KindSearch              Kind = "search"
	KindStore               Kind = "store"
	KindDelete              Kind = "delete"
	KindStartupProvisioning Kind = "startup_provisioning"
)

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrInference           = &Error{Kind: KindInference}
	ErrUpstream            = &Error{Kind: KindUpstream}
	ErrSearch              = &Error{Kind: KindSearch}
	ErrStore               = &Error{Kind: KindStore}
	ErrDelete              = &Error{Kind: KindDelete}
	ErrStartupProvisioning = &Error{Kind: KindStartupProvisioning}
)

// Error is a backend failure: model inference, the embedding service call, or an index engine operation.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func newError(kind Kind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// NewInferenceError wraps an embedding provider failure.
func NewInferenceError(detail string, err error) *Error {
	return newError(KindInference, detail, err)
}

// NewUpstreamError wraps a failed or timed out call to the embedding service.
func NewUpstreamError(detail string, err error) *Error {
	return newError(KindUpstream, detail, err)
}

// NewSearchError wraps an index engine search failure.
func NewSearchError(detail string, err error) *Error {
	return newError(KindSearch, detail, err)
}

// NewStoreError wraps an index engine upsert failure.
func NewStoreError(detail string, err error) *Error {
	return newError(KindStore, detail, err)
}

// NewDeleteError wraps an index engine delete failure.
func NewDeleteError(detail string, err error) *Error {
	return newError(KindDelete, detail, err)
}

// NewStartupProvisioningError wraps a failure to check or create the collection at startup.
func NewStartupProvisioningError(detail string, err error) *Error {
	return newError(KindStartupProvisioning, detail, err)
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = string(e.Kind) + " failed"
	}

	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)

	return ok && t.Kind == e.Kind
}

// HTTPStatus maps an error to the status code handlers respond with.
// Validation failures are client errors; an unreachable embedding service is a bad gateway;
// everything else is an internal server error.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
