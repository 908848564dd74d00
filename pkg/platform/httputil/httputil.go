// Package httputil centralizes JSON response and error translation so every
// handler produces the same envelope.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "salegate/pkg/domain-errors"
)

// errorBody is the uniform JSON error envelope.
type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// statusOf maps domain error codes to HTTP statuses.
func statusOf(code dErrors.Code) int {
	switch code {
	case dErrors.CodeUnauthorized:
		return http.StatusForbidden
	case dErrors.CodeValidation, dErrors.CodeBadRequest, dErrors.CodeInvalidAmount, dErrors.CodePastTimestamp:
		return http.StatusBadRequest
	case dErrors.CodeInvalidWindow, dErrors.CodeCapExceeded, dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeNotFound, dErrors.CodeUnknownOrExpiredLock:
		return http.StatusNotFound
	case dErrors.CodeTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteError translates a domain error into the JSON error envelope.
// Internal errors never leak their message to the client.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := errorBody{Error: wireCode(code)}
	if code != dErrors.CodeInternal {
		var de *dErrors.DomainError
		if errors.As(err, &de) {
			body.Description = de.Message
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusOf(code))
	_ = json.NewEncoder(w).Encode(body)
}

// wireCode keeps the externally visible code stable even if internal code
// names change.
func wireCode(code dErrors.Code) string {
	if code == dErrors.CodeInternal {
		return "internal_error"
	}
	return string(code)
}

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON decodes a request body into T, writing a bad_request envelope on
// failure. The bool result tells the handler whether to proceed.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, requestID string) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if logger != nil {
			logger.WarnContext(r.Context(), "malformed request body",
				"request_id", requestID,
				"error", err,
			)
		}
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed JSON body"))
		var zero T
		return zero, false
	}
	return req, true
}
