// Package response renders JSON bodies for the compile service
package response

import (
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/wpkernel/wpkgen/internal/compiler/errors"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error   string           `json:"error"`
	Message string           `json:"message"`
	Code    string           `json:"code,omitempty"`
	Details errors.ErrorList `json:"details,omitempty"`
}

// JSON writes v with status
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// RenderError renders err. Compiler diagnostics become 422 responses that
// carry every diagnostic; anything else uses status.
func RenderError(w http.ResponseWriter, status int, err error) {
	if details := errors.Diagnostics(err); len(details) > 0 {
		JSON(w, http.StatusUnprocessableEntity, &ErrorResponse{
			Error:   "invalid_plan",
			Message: err.Error(),
			Code:    string(details[0].Code),
			Details: details,
		})
		return
	}

	JSON(w, status, &ErrorResponse{
		Error:   errorCodeFromStatus(status),
		Message: err.Error(),
	})
}

func errorCodeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusRequestEntityTooLarge:
		return "payload_too_large"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusServiceUnavailable:
		return "service_unavailable"
	default:
		if status >= 500 {
			return "internal_server_error"
		}
		return "error"
	}
}
