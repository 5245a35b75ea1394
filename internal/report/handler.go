package report

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"quizrunner/internal/app/apiresp"
	"quizrunner/internal/auth"
)

type reportBuilder interface {
	Build(ctx context.Context) (*Report, error)
}

type Handler struct {
	svc        reportBuilder
	privileged func(username string) bool
}

// NewHandler serves the results workbook to users for whom privileged
// returns true.
func NewHandler(svc reportBuilder, privileged func(username string) bool) *Handler {
	return &Handler{svc: svc, privileged: privileged}
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteErrorCode(w, r, http.StatusUnauthorized, apiresp.CodeUnauthorized, "unauthorized")
		return
	}
	if h.privileged == nil || !h.privileged(user.Username) {
		apiresp.WriteErrorCode(w, r, http.StatusForbidden, apiresp.CodeForbidden, "forbidden")
		return
	}

	rep, err := h.svc.Build(r.Context())
	if err != nil {
		log.Printf("build report: %v", err)
		apiresp.WriteErrorCode(w, r, http.StatusInternalServerError, apiresp.CodeInternal, "internal error")
		return
	}
	data, err := RenderXLSX(rep)
	if err != nil {
		log.Printf("render report: %v", err)
		apiresp.WriteErrorCode(w, r, http.StatusInternalServerError, apiresp.CodeInternal, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="quiz_results.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
