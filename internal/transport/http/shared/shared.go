// Package shared holds the JSON envelope helpers used by every handler.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "dhruva/pkg/domain-errors"
)

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a coded domain error into its HTTP response.
// Unclassified errors become 500 with a generic message.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	WriteJSON(w, dErrors.ToHTTPStatus(code), ErrorResponse{
		Message: dErrors.MessageOf(err),
		Code:    string(code),
	})
}
