package api

import (
	"encoding/json"
	"net/http"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// errorBody is the failure envelope shared by all endpoints.
type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError writes a client error response
func writeError(w http.ResponseWriter, code int, kind, message string) {
	writeJSON(w, code, errorBody{Success: false, Error: kind, Message: message})
}

// writeServerError writes a 500 response
func writeServerError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, "Internal server error", message)
}

// writeNotFound writes the 404 fallback response
func writeNotFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "Not found", "The requested endpoint does not exist")
}
