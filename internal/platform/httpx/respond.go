// Package httpx provides JSON response helpers for the mobile API envelope.
package httpx

import (
	"encoding/json"
	"net/http"
)

// Envelope is the flat success/data wrapper returned by every mobile endpoint.
type Envelope struct {
	Status     int    `json:"status,omitempty"`
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	Data       any    `json:"data,omitempty"`
	TotalCount *int   `json:"total_count,omitempty"`
	PageLength *int   `json:"page_length,omitempty"`
	Start      *int   `json:"start,omitempty"`
	Pagination any    `json:"pagination,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// OK sends a success envelope with data.
func OK(w http.ResponseWriter, message string, data any) {
	JSON(w, http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

// Fail sends a failure envelope with the given HTTP status.
func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{Success: false, Message: message})
}

// DecodeJSON decodes a JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(target)
}

// IntPtr returns a pointer to v, for optional envelope fields.
func IntPtr(v int) *int {
	return &v
}
