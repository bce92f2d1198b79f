// Package apihttp implements the HTTP surface described in §6: job
// ingestion, status/results polling, and health, behind API-key auth and
// per-tier rate limiting. Grounded on the teacher's internal/api/http
// package: its router.go/respond.go/recovery middleware shapes are kept,
// generalized from the teacher's memory/vault routes to this platform's
// job-ingestion routes.
package apihttp

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// ErrorBody is the standard error envelope for non-2xx responses.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a machine-readable code plus human-readable details.
type ErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// writeJSON writes data as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("apihttp: failed to encode JSON response")
	}
}

// writeError writes a {error:{code,message,details,request_id}} envelope
// matching §6's 429 body shape, reused for all error responses.
func writeError(w http.ResponseWriter, status int, code, message, requestID string, details map[string]interface{}) {
	writeJSON(w, status, ErrorBody{Error: ErrorDetail{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: requestID,
	}})
}
