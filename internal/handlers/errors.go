package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shorturl/internal/shortener"
)

// Result codes shared with API clients.
const (
	codeSuccess           = "00"
	codeURLNotFound       = "02"
	codeURLAlreadyExists  = "03"
	codeCodeTooLong       = "08"
	codeCodeAlreadyExists = "09"
	codeURLExpired        = "10"
	codeInvalidRequest    = "98"
	codeInternal          = "99"
)

// Outcome labels recorded for every request.
const (
	OutcomeSuccess        = "success"
	OutcomeInvalidRequest = "invalid_request"
	OutcomeURLExists      = "url_exists"
	OutcomeCodeTooLong    = "code_too_long"
	OutcomeCodeExists     = "code_exists"
	OutcomeNotFound       = "not_found"
	OutcomeExpired        = "expired"
	OutcomeError          = "error"
)

// APIError is the error body returned by every endpoint.
type APIError struct {
	status int

	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewAPIError creates an error response with the given HTTP status and result code.
func NewAPIError(status int, code, message string) *APIError {
	return &APIError{status: status, Code: code, Message: message}
}

func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

type errorKind struct {
	target  error
	status  int
	code    string
	message string
	outcome string
}

var errorKinds = []errorKind{
	{shortener.ErrInvalidRequest, http.StatusBadRequest, codeInvalidRequest, "Invalid request", OutcomeInvalidRequest},
	{shortener.ErrURLAlreadyExists, http.StatusBadRequest, codeURLAlreadyExists, "URL already exists", OutcomeURLExists},
	{shortener.ErrCodeExceedsMaxLength, http.StatusBadRequest, codeCodeTooLong, "Short code exceeds maximum length", OutcomeCodeTooLong},
	{shortener.ErrCodeAlreadyExists, http.StatusBadRequest, codeCodeAlreadyExists, "Short code already exists", OutcomeCodeExists},
	{shortener.ErrURLNotFound, http.StatusNotFound, codeURLNotFound, "URL not found", OutcomeNotFound},
	{shortener.ErrURLExpired, http.StatusBadRequest, codeURLExpired, "URL expired", OutcomeExpired},
}

var internalKind = errorKind{
	status:  http.StatusInternalServerError,
	code:    codeInternal,
	message: "Internal server error",
	outcome: OutcomeError,
}

// classify finds the kind of a service error. Unknown errors are internal.
func classify(err error) errorKind {
	for _, kind := range errorKinds {
		if errors.Is(err, kind.target) {
			return kind
		}
	}

	return internalKind
}

// toAPIError renders a service error. Only invalid request errors carry
// their detail; internal errors never leak it.
func toAPIError(kind errorKind, err error) *APIError {
	message := kind.message
	if kind.target == shortener.ErrInvalidRequest {
		message += strings.TrimPrefix(err.Error(), shortener.ErrInvalidRequest.Error())
	}

	return NewAPIError(kind.status, kind.code, message)
}

// newEnvelopeError replaces huma.NewError so framework errors such as body
// validation failures use the same body as service errors.
func newEnvelopeError(status int, msg string, errs ...error) huma.StatusError {
	if status >= http.StatusInternalServerError {
		return NewAPIError(status, codeInternal, internalKind.message)
	}

	if status == http.StatusUnprocessableEntity {
		status = http.StatusBadRequest
	}

	details := make([]string, 0, len(errs)+1)
	if msg != "" {
		details = append(details, msg)
	}

	for _, err := range errs {
		if err != nil {
			details = append(details, err.Error())
		}
	}

	message := "Invalid request"
	if len(details) > 0 {
		message += ": " + strings.Join(details, "; ")
	}

	return NewAPIError(status, codeInvalidRequest, message)
}
