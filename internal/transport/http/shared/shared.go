// Package shared maps domain errors onto HTTP responses in one place so
// every handler renders failures identically.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "hirelane/pkg/domain-errors"
)

// ErrorResponse is the wire shape for all error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusByCode is the single source of truth for code -> status mapping.
var statusByCode = map[dErrors.Code]int{
	dErrors.CodeInvalidInput:          http.StatusBadRequest,
	dErrors.CodeValidation:            http.StatusBadRequest,
	dErrors.CodeBadRequest:            http.StatusBadRequest,
	dErrors.CodeInvalidDocumentType:   http.StatusBadRequest,
	dErrors.CodeUnauthorized:          http.StatusUnauthorized,
	dErrors.CodeForbidden:             http.StatusForbidden,
	dErrors.CodeNotFound:              http.StatusNotFound,
	dErrors.CodeReferenceNotFound:     http.StatusNotFound,
	dErrors.CodeDocumentNotFound:      http.StatusNotFound,
	dErrors.CodeConflict:              http.StatusConflict,
	dErrors.CodeDuplicateSubmission:   http.StatusConflict,
	dErrors.CodeFinalized:             http.StatusUnprocessableEntity,
	dErrors.CodeInvalidTransition:     http.StatusUnprocessableEntity,
	dErrors.CodeNotSchedulable:        http.StatusUnprocessableEntity,
	dErrors.CodeNotCompleted:          http.StatusUnprocessableEntity,
	dErrors.CodeInvalidState:          http.StatusUnprocessableEntity,
	dErrors.CodeInvariantViolation:    http.StatusUnprocessableEntity,
	dErrors.CodeTimeout:               http.StatusGatewayTimeout,
	dErrors.CodeDownstreamUnavailable: http.StatusServiceUnavailable,
}

// WriteError renders err as JSON. Non-domain errors become opaque 500s so
// internals never leak to callers.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	message := "internal server error"
	var dErr *dErrors.Error
	if code != dErrors.CodeInternal && errors.As(err, &dErr) {
		message = dErr.Message()
	}

	WriteJSON(w, status, ErrorResponse{Error: string(code), Message: message})
}

// WriteJSON renders v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}
