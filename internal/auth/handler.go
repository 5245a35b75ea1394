package auth

import (
	"context"
	"errors"
	"html/template"
	"log"
	"net/http"
	"strings"

	"quizrunner/internal/app/apiresp"
)

// CallbackPath is where GitHub sends the user back after consent.
const CallbackPath = "/api/auth/github/callback"

type IdentityProvider interface {
	Configured() bool
	AuthCodeURL(state, redirectURI string) string
	ExchangeCode(ctx context.Context, code, redirectURI string) (string, error)
}

// AttemptStanding reports how many attempts a user has left and whether the
// attempt limit applies to them.
type AttemptStanding interface {
	Standing(ctx context.Context, userID int64) (attemptsLeft int, privileged bool, err error)
}

type userStore interface {
	EnsureUser(ctx context.Context, username string) (*User, error)
}

type HandlerConfig struct {
	Users    userStore
	Provider IdentityProvider
	States   StateStore
	Ledger   AttemptStanding
	// Tokens is optional. When set the callback payload carries a bearer token.
	Tokens *TokenIssuer
	// RedirectURL overrides the callback URL derived from the request.
	RedirectURL string
}

type Handler struct {
	users       userStore
	provider    IdentityProvider
	states      StateStore
	ledger      AttemptStanding
	tokens      *TokenIssuer
	redirectURL string
}

type CallbackPayload struct {
	UserID       int64  `json:"userId"`
	Username     string `json:"username"`
	AttemptsLeft int    `json:"attemptsLeft"`
	IsLector     bool   `json:"isLector"`
	Token        string `json:"token,omitempty"`
}

var callbackPage = template.Must(template.New("callback").Parse(`<!doctype html>
<html><body><script>
  (function() {
    const payload = {{.}};
    if (window.opener) {
      window.opener.postMessage({ type: "github-auth", payload: payload }, "*");
      window.close();
    } else {
      document.body.innerText = "Sign-in complete, you can close this window.";
    }
  })();
</script></body></html>
`))

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		users:       cfg.Users,
		provider:    cfg.Provider,
		states:      cfg.States,
		ledger:      cfg.Ledger,
		tokens:      cfg.Tokens,
		redirectURL: strings.TrimSpace(cfg.RedirectURL),
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.provider.Configured() {
		apiresp.WriteErrorCode(w, r, http.StatusInternalServerError, apiresp.CodeUnconfiguredAuth, "github oauth not configured")
		return
	}

	state, err := h.states.Issue(r.Context())
	if err != nil {
		log.Printf("issue oauth state: %v", err)
		apiresp.WriteErrorCode(w, r, http.StatusInternalServerError, apiresp.CodeInternal, "internal error")
		return
	}

	url := h.provider.AuthCodeURL(state, h.callbackURL(r))
	apiresp.WriteOK(w, r, http.StatusOK, map[string]string{"url": url})
}

func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code := strings.TrimSpace(q.Get("code"))
	state := strings.TrimSpace(q.Get("state"))

	if err := h.states.Consume(r.Context(), state); err != nil {
		if errors.Is(err, ErrInvalidState) {
			apiresp.WriteErrorCode(w, r, http.StatusBadRequest, apiresp.CodeInvalidState, "invalid or expired state")
			return
		}
		log.Printf("consume oauth state: %v", err)
		apiresp.WriteErrorCode(w, r, http.StatusInternalServerError, apiresp.CodeInternal, "internal error")
		return
	}
	if code == "" {
		apiresp.WriteErrorCode(w, r, http.StatusBadRequest, apiresp.CodeInvalidRequest, "missing code")
		return
	}

	username, err := h.provider.ExchangeCode(r.Context(), code, h.callbackURL(r))
	if err != nil {
		switch {
		case errors.Is(err, ErrUnconfigured):
			apiresp.WriteErrorCode(w, r, http.StatusInternalServerError, apiresp.CodeUnconfiguredAuth, "github oauth not configured")
		case errors.Is(err, ErrUpstreamAuth):
			log.Printf("github exchange: %v", err)
			apiresp.WriteErrorCode(w, r, http.StatusBadGateway, apiresp.CodeUpstreamAuth, "github authentication failed")
		default:
			log.Printf("github exchange: %v", err)
			apiresp.WriteErrorCode(w, r, http.StatusInternalServerError, apiresp.CodeInternal, "internal error")
		}
		return
	}

	user, err := h.users.EnsureUser(r.Context(), username)
	if err != nil {
		log.Printf("ensure user %q: %v", username, err)
		apiresp.WriteErrorCode(w, r, http.StatusInternalServerError, apiresp.CodeInternal, "internal error")
		return
	}

	left, privileged, err := h.ledger.Standing(r.Context(), user.ID)
	if err != nil {
		log.Printf("attempt standing for user %d: %v", user.ID, err)
		apiresp.WriteErrorCode(w, r, http.StatusInternalServerError, apiresp.CodeInternal, "internal error")
		return
	}

	payload := CallbackPayload{
		UserID:       user.ID,
		Username:     user.Username,
		AttemptsLeft: left,
		IsLector:     privileged,
	}
	if h.tokens != nil {
		if payload.Token, err = h.tokens.Issue(user); err != nil {
			log.Printf("issue token for user %d: %v", user.ID, err)
			apiresp.WriteErrorCode(w, r, http.StatusInternalServerError, apiresp.CodeInternal, "internal error")
			return
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := callbackPage.Execute(w, payload); err != nil {
		log.Printf("render callback page: %v", err)
	}
}

func (h *Handler) callbackURL(r *http.Request) string {
	if h.redirectURL != "" {
		return h.redirectURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")); proto != "" {
		scheme = strings.ToLower(strings.Split(proto, ",")[0])
	}
	return scheme + "://" + r.Host + CallbackPath
}
