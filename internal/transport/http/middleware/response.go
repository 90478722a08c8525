package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// Failure codes carried in the envelope "code" field.
const (
	CodeFailure         = "-1"
	CodeUnauthenticated = "401"
)

// writeJSONError writes the failure envelope with the correct Content-Type.
func writeJSONError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"code": code, "msg": msg})
}

func writeUnauthenticated(w http.ResponseWriter, msg string) {
	writeJSONError(w, http.StatusUnauthorized, CodeUnauthenticated, msg)
}

func retryAfter(w http.ResponseWriter, seconds int) {
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
}
