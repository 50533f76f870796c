// Package response provides helpers for writing consistent JSON HTTP responses.
//
// Every handler in this application sends JSON back to the client. Rather
// than repeating the same three lines (set header, set status, encode JSON)
// in every handler, we centralise them here.
//
// Error responses always share one envelope, so API consumers can rely on
// a single shape:
//
//	{ "status": "error", "messages": ["Not a valid age", "Not a valid email"] }
package response

import (
	"encoding/json"
	"net/http"

	"github.com/aanand-mishra/school-records/internal/types"
)

// Response is the standard envelope for outcomes and errors. List and
// lookup endpoints return the entities themselves instead.
type Response struct {
	Status   string   `json:"status"`             // "ok" or "error"
	Error    string   `json:"error,omitempty"`    // unexpected failure detail
	Messages []string `json:"messages,omitempty"` // outcome messages, in order
}

// Status string constants. Use these instead of raw string literals so a
// typo is caught by the compiler rather than silently sending "eroor".
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// WriteJSON writes a JSON-encoded response with the given HTTP status code.
//
// IMPORTANT ORDER: Header() → WriteHeader() → body writes.
// Once WriteHeader is called (or the first Write), headers are locked.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// GeneralError wraps any Go error into the standard Response shape. Use
// it for failures that never reached the registry: decode errors, bad
// paths, a failed refresh.
func GeneralError(err error) Response {
	return Response{Status: StatusError, Error: err.Error()}
}

// Outcome converts a types.Result into the envelope, keeping every message.
func Outcome(res types.Result) Response {
	status := StatusOK
	if !res.OK {
		status = StatusError
	}
	return Response{Status: status, Messages: res.Messages}
}

// StatusFor picks the HTTP status for res. A successful result gets
// okStatus; failures map by kind.
func StatusFor(res types.Result, okStatus int) int {
	if res.OK {
		return okStatus
	}
	switch res.Kind {
	case types.ErrValidation:
		return http.StatusBadRequest
	case types.ErrConflict:
		return http.StatusConflict
	case types.ErrNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// WriteResult writes res with the status StatusFor picks.
func WriteResult(w http.ResponseWriter, okStatus int, res types.Result) error {
	return WriteJSON(w, StatusFor(res, okStatus), Outcome(res))
}
