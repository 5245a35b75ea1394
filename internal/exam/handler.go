package exam

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"quizrunner/internal/app/apiresp"
	"quizrunner/internal/auth"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc examService
}

type examService interface {
	StartAttempt(ctx context.Context, userID int64) (*StartedAttempt, error)
	SubmitAttempt(ctx context.Context, attemptID, userID int64, answers []Answer) (*SubmitResult, error)
	Status(ctx context.Context, userID int64) (*Status, error)
	Config() QuizConfig
	QuestionSummary() QuestionSummary
}

type response struct {
	OK    bool
	Data  interface{}
	Code  string
	Error string
}

type startAttemptRequest struct {
	UserID int64 `json:"userId"`
}

type submitAttemptRequest struct {
	UserID  int64    `json:"userId"`
	Answers []Answer `json:"answers"`
}

func NewHandler(svc examService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req startAttemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, response{Error: "invalid request body"})
		return
	}

	userID, ok := resolveUserID(w, r, req.UserID)
	if !ok {
		return
	}

	started, err := h.svc.StartAttempt(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, response{OK: true, Data: started})
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	attemptID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || attemptID <= 0 {
		writeJSON(w, r, http.StatusBadRequest, response{Error: "invalid attempt id"})
		return
	}

	var req submitAttemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, response{Error: "invalid request body"})
		return
	}

	userID, ok := resolveUserID(w, r, req.UserID)
	if !ok {
		return
	}
	if req.Answers == nil {
		req.Answers = []Answer{}
	}

	result, err := h.svc.SubmitAttempt(r.Context(), attemptID, userID, req.Answers)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, response{OK: true, Data: result})
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		writeJSON(w, r, http.StatusBadRequest, response{Error: "invalid user id"})
		return
	}
	if _, ok := resolveUserID(w, r, userID); !ok {
		return
	}

	status, err := h.svc.Status(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, response{OK: true, Data: status})
}

func (h *Handler) Config(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: h.svc.Config()})
}

func (h *Handler) Sample(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: h.svc.QuestionSummary()})
}

// resolveUserID reconciles the user id in the request with the bearer
// principal, when one is present. Without a principal the id is trusted.
func resolveUserID(w http.ResponseWriter, r *http.Request, requested int64) (int64, bool) {
	user, authenticated := auth.CurrentUser(r.Context())
	if authenticated {
		if requested == 0 {
			return user.ID, true
		}
		if requested != user.ID {
			writeJSON(w, r, http.StatusForbidden, response{Code: apiresp.CodeForbidden, Error: "forbidden"})
			return 0, false
		}
		return requested, true
	}
	if requested <= 0 {
		writeJSON(w, r, http.StatusBadRequest, response{Error: "userId is required"})
		return 0, false
	}
	return requested, true
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrAttemptNotFound):
		writeJSON(w, r, http.StatusNotFound, response{Code: apiresp.CodeNotFound, Error: err.Error()})
	case errors.Is(err, ErrAttemptLimitExceeded):
		writeJSON(w, r, http.StatusForbidden, response{Code: apiresp.CodeLimitExceeded, Error: err.Error()})
	case errors.Is(err, ErrAlreadySubmitted):
		writeJSON(w, r, http.StatusConflict, response{Code: apiresp.CodeAlreadySubmitted, Error: err.Error()})
	case errors.Is(err, ErrDeadlineExpired):
		writeJSON(w, r, http.StatusConflict, response{Code: apiresp.CodeDeadlineExpired, Error: err.Error()})
	default:
		writeJSON(w, r, http.StatusInternalServerError, response{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, payload response) {
	if payload.OK {
		apiresp.WriteOK(w, r, code, payload.Data)
		return
	}
	apiresp.WriteErrorCode(w, r, code, payload.Code, payload.Error)
}
