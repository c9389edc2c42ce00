// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"

	"github.com/lumeotv/portald/internal/log"
	"github.com/lumeotv/portald/internal/session"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Str(log.FieldPath, r.URL.Path).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// writeResult maps an operation result to an HTTP status. Results stay in
// the body unchanged so clients can rely on the success flag.
func writeResult(w http.ResponseWriter, r *http.Request, res session.Result) {
	status := http.StatusOK
	if !res.Success {
		switch res.Error {
		case "invalid credentials", "user not authenticated":
			status = http.StatusUnauthorized
		case "not found":
			status = http.StatusNotFound
		default:
			status = http.StatusBadGateway
		}
	}
	writeJSON(w, r, status, res)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
