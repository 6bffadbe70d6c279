// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing JSON responses
// and maps ledger errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"costledger/internal/core"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body. A nil body writes
// headers only.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Error sets an {"error": msg} body.
func (b *JSONResponseBuilder) Error(msg string) *JSONResponseBuilder {
	return b.Body(errorBody{Error: msg})
}

// Write sends the response.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	payload, err := json.Marshal(b.body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to encode response"}` + "\n"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(payload, '\n'))
}

type errorBody struct {
	Error string `json:"error"`
}

// Convenience constructors for common responses.

// OK returns a 200 response carrying v.
func OK(v any) *JSONResponseBuilder {
	return NewJSONResponse().Body(v)
}

// Created returns a 201 response carrying v.
func Created(v any) *JSONResponseBuilder {
	return NewJSONResponse().Status(http.StatusCreated).Body(v)
}

// NoContent returns a 204 response.
func NoContent() *JSONResponseBuilder {
	return NewJSONResponse().Status(http.StatusNoContent)
}

// BadRequestError returns a 400 error response.
func BadRequestError(msg string) *JSONResponseBuilder {
	return NewJSONResponse().Status(http.StatusBadRequest).Error(msg)
}

// NotFoundError returns a 404 error response.
func NotFoundError(msg string) *JSONResponseBuilder {
	return NewJSONResponse().Status(http.StatusNotFound).Error(msg)
}

// TooManyRequestsError returns a 429 error response.
func TooManyRequestsError() *JSONResponseBuilder {
	return NewJSONResponse().Status(http.StatusTooManyRequests).Error("rate limit exceeded, try again later")
}

// ServiceUnavailableError returns a 503 error response.
func ServiceUnavailableError(msg string) *JSONResponseBuilder {
	return NewJSONResponse().Status(http.StatusServiceUnavailable).Error(msg)
}

// ErrorResponse maps a ledger error to its response. Validation problems
// are the caller's fault and their message is returned; anything else is a
// 500 with a generic message.
func ErrorResponse(err error) *JSONResponseBuilder {
	var sve *core.SettingsValidationError
	switch {
	case errors.As(err, &sve):
		return NewJSONResponse().Status(http.StatusUnprocessableEntity).Error(sve.Error())
	case core.IsValidation(err):
		return BadRequestError(err.Error())
	default:
		return NewJSONResponse().Status(http.StatusInternalServerError).Error("internal server error")
	}
}
