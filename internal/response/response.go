// Package response writes the JSON bodies of the notes API. Every body is a
// JSON object that carries the request ID.
package response

import (
	"encoding/json"
	"net/http"
)

// Body is a JSON object response.
type Body map[string]interface{}

// WriteJSON writes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// Write writes body with the request ID added under "requestId".
func Write(w http.ResponseWriter, status int, requestID string, body Body) error {
	if body == nil {
		body = Body{}
	}
	body["requestId"] = requestID
	return WriteJSON(w, status, body)
}

// WriteMessage writes {requestId, message}.
func WriteMessage(w http.ResponseWriter, status int, requestID, message string) error {
	return Write(w, status, requestID, Body{"message": message})
}

// WriteError writes {requestId, message, error}. The error field is omitted
// when detail is empty.
func WriteError(w http.ResponseWriter, status int, requestID, message, detail string) error {
	body := Body{"message": message}
	if detail != "" {
		body["error"] = detail
	}
	return Write(w, status, requestID, body)
}
