package handlers

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the JSON body of every failed request.
type ErrorBody struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
	// Advice is the generated payload when only the write-back failed.
	Advice any `json:"advice,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, body ErrorBody) error {
	return WriteJSON(w, statusCode, body)
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}
