// Package core provides core types and errors shared by the relay components.
package core

import (
	"fmt"
	"net/http"
)

// ErrorKind represents the category of a relay failure
type ErrorKind string

const (
	// ErrorKindUnsupportedFormat indicates an upload with an unknown extension (400)
	ErrorKindUnsupportedFormat ErrorKind = "unsupported_format"
	// ErrorKindEmptyInput indicates neither message nor file text was provided (400)
	ErrorKindEmptyInput ErrorKind = "empty_input"
	// ErrorKindUpstream indicates a non-200 reply from the upstream API (passthrough)
	ErrorKindUpstream ErrorKind = "upstream_error"
	// ErrorKindUpstreamUnreachable indicates a transport failure or timeout (500)
	ErrorKindUpstreamUnreachable ErrorKind = "upstream_unreachable"
	// ErrorKindExtraction indicates a corrupt or unreadable upload (500)
	ErrorKindExtraction ErrorKind = "extraction_failed"
	// ErrorKindInternal indicates any other fault (500)
	ErrorKindInternal ErrorKind = "internal_error"
)

// RelayError is the error type returned by every relay component.
// Message is shown to the caller verbatim.
type RelayError struct {
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code"`
	// Original error for debugging (not exposed to clients)
	Err error `json:"-"`
}

// Error implements the error interface
func (e *RelayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap implements the error unwrapping interface
func (e *RelayError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *RelayError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	switch e.Kind {
	case ErrorKindUnsupportedFormat, ErrorKindEmptyInput:
		return http.StatusBadRequest
	case ErrorKindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ToJSON converts the error to the client failure body
func (e *RelayError) ToJSON() FailureResponse {
	return FailureResponse{Success: false, Error: e.Message}
}

// NewUnsupportedFormatError creates the 400 returned for unknown upload extensions
func NewUnsupportedFormatError(filename string) *RelayError {
	return &RelayError{
		Kind:       ErrorKindUnsupportedFormat,
		Message:    fmt.Sprintf("Formato não suportado para o arquivo %s. Use PDF, DOCX, TXT ou arquivos de código.", filename),
		StatusCode: http.StatusBadRequest,
	}
}

// NewEmptyInputError creates the 400 returned when there is nothing to send
func NewEmptyInputError() *RelayError {
	return &RelayError{
		Kind:       ErrorKindEmptyInput,
		Message:    "Mensagem e/ou conteúdo do arquivo ausentes.",
		StatusCode: http.StatusBadRequest,
	}
}

// NewUpstreamError passes a non-200 upstream status through with its raw body
func NewUpstreamError(statusCode int, body []byte) *RelayError {
	return &RelayError{
		Kind:       ErrorKindUpstream,
		Message:    fmt.Sprintf("Erro Dify (%d): %s", statusCode, body),
		StatusCode: statusCode,
	}
}

// NewInternalError creates a generic 500 carrying the cause's message
func NewInternalError(kind ErrorKind, err error) *RelayError {
	msg := "erro desconhecido"
	if err != nil {
		msg = err.Error()
	}
	return &RelayError{
		Kind:       kind,
		Message:    "Erro interno no servidor: " + msg,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}
