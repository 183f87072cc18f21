// Package http provides the JSON API server and its handlers.
//
// This file implements the Builder Pattern for JSON responses and the
// mapping from domain errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"financeflow/internal/core"
	"financeflow/internal/lifecycle"
	"financeflow/internal/log"
	"financeflow/internal/middleware/trace"
	"financeflow/internal/validator"
)

// Error codes returned in the error envelope.
const (
	CodeUnauthenticated = "unauthenticated"
	CodeInvalidToken    = "invalid_token"
	CodeValidation      = "validation_failed"
	CodeNotFound        = "not_found"
	CodeBadRequest      = "bad_request"
	CodeTooLarge        = "payload_too_large"
	CodeRateLimited     = "rate_limited"
	CodeUnavailable     = "unavailable"
	CodeInternal        = "internal_error"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body. A nil body is encoded
// as JSON null.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	payload, err := json.Marshal(b.body)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":"internal_error","message":"response encoding failed"}}`))
		return
	}
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(payload)
	_, _ = w.Write([]byte("\n"))
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error     errorDetail `json:"error"`
	RequestID string      `json:"requestId,omitempty"`
}

// ErrorResponse creates the standard error envelope for r.
func ErrorResponse(r *http.Request, status int, code, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(status).
		Body(errorEnvelope{
			Error:     errorDetail{Code: code, Message: message},
			RequestID: trace.RequestID(r),
		})
}

// classifyError maps an error to a status, an error code and the log
// error type. Unknown errors are internal.
func classifyError(err error) (status int, code, errorType string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, core.ErrUnauthenticated):
		return http.StatusUnauthorized, CodeUnauthenticated, log.ErrorTypeAuth
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, CodeTooLarge, log.ErrorTypeValidation
	case errors.Is(err, validator.ErrValidation),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidMonth),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrDescriptionLong),
		errors.Is(err, core.ErrEmptyReason),
		errors.Is(err, lifecycle.ErrUnknownAction):
		return http.StatusUnprocessableEntity, CodeValidation, log.ErrorTypeValidation
	case errors.Is(err, core.ErrEntryNotFound),
		errors.Is(err, core.ErrTaskNotFound),
		errors.Is(err, core.ErrNoSummary):
		return http.StatusNotFound, CodeNotFound, log.ErrorTypeNotFound
	case errors.Is(err, errMalformedBody):
		return http.StatusBadRequest, CodeBadRequest, log.ErrorTypeValidation
	default:
		return http.StatusInternalServerError, CodeInternal, log.ErrorTypeInternal
	}
}

// writeError answers with the envelope for err. Internal errors are logged
// with their cause and reported with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status, code, errorType := classifyError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.FromContext(r.Context()).LogError(r.Context(), "Request failed", err, operation, errorType,
			log.FieldPath, r.URL.Path)
		message = "internal error"
	}
	ErrorResponse(r, status, code, message).Write(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewJSONResponse().Status(status).Body(v).Write(w)
}
