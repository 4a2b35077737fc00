package cluster

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// DecodeJSON reads a JSON request body into v. An empty body leaves v at its
// zero value; malformed JSON is a ValidationError.
func DecodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return Invalid("decode", fmt.Errorf("bad json: %w", err))
}

// WriteJSON writes v with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteStatus writes a {"status": msg} body with 200 OK.
func WriteStatus(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusOK, StatusResponse{Status: msg})
}

// WriteError maps err to an HTTP status and writes {"error": ...}.
func WriteError(w http.ResponseWriter, err error) {
	WriteJSON(w, StatusFor(err), ErrorResponse{Error: err.Error()})
}

// StatusFor classifies err: validation failures are 400, everything else
// (including ErrSourceUnavailable) is 500.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsValidation(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
