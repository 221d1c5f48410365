// Package httpx writes the JSON bodies every handler in the CRM
// returns: a payload on success, an ErrorResponse on failure.
package httpx

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the error envelope all endpoints share. Error holds
// a stable snake_case code the dashboard switches on ("forbidden",
// "client_not_found", "validation_failed"); Details carries the
// field violation map when there is one.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// JSON marshals payload before touching the status line so an encode
// failure can still become a clean 500 instead of a truncated body.
func JSON(w http.ResponseWriter, status int, payload any) {
	body := []byte("null")
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// JSONError writes the shared error envelope. details may be nil.
func JSONError(w http.ResponseWriter, status int, msg string, details any) {
	JSON(w, status, ErrorResponse{Error: msg, Details: details})
}
