package apiresp

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// Error codes shared by every handler.
const (
	CodeInvalidRequest   = "invalid_request"
	CodeUnauthorized     = "unauthorized"
	CodeForbidden        = "forbidden"
	CodeNotFound         = "not_found"
	CodeLimitExceeded    = "limit_exceeded"
	CodeAlreadySubmitted = "already_submitted"
	CodeDeadlineExpired  = "deadline_expired"
	CodeUnconfiguredAuth = "unconfigured_auth"
	CodeInvalidState     = "invalid_state"
	CodeUpstreamAuth     = "upstream_auth"
	CodeRateLimited      = "rate_limited"
	CodeInternal         = "internal_error"
)

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Meta struct {
	RequestID string `json:"request_id,omitempty"`
}

type Envelope struct {
	OK    bool          `json:"ok"`
	Data  interface{}   `json:"data,omitempty"`
	Error *ErrorPayload `json:"error,omitempty"`
	Meta  Meta          `json:"meta"`
}

func WriteOK(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	write(w, r, status, Envelope{OK: true, Data: data})
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	WriteErrorCode(w, r, status, "", msg)
}

// WriteErrorCode writes a failure envelope. An empty code is derived from
// the status.
func WriteErrorCode(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	if code == "" {
		code = codeFromStatus(status)
	}
	write(w, r, status, Envelope{Error: &ErrorPayload{Code: code, Message: msg}})
}

func write(w http.ResponseWriter, r *http.Request, status int, res Envelope) {
	res.Meta = Meta{RequestID: middleware.GetReqID(r.Context())}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(res)
}

func codeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeInvalidRequest
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return "conflict"
	case http.StatusTooManyRequests:
		return CodeRateLimited
	case http.StatusBadGateway:
		return CodeUpstreamAuth
	case http.StatusInternalServerError:
		return CodeInternal
	default:
		if status >= 200 && status < 300 {
			return ""
		}
		return "error"
	}
}
