package app

import (
	"database/sql"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"quizrunner/internal/app/apiresp"
	"quizrunner/internal/app/observability"
	"quizrunner/internal/auth"
	internaldb "quizrunner/internal/db"
	"quizrunner/internal/exam"
	"quizrunner/internal/question"
	"quizrunner/internal/report"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Dependencies are the long-lived objects the router wires into handlers.
// States and Provider default to an in-memory store and the GitHub provider
// built from Config.
type Dependencies struct {
	DB       *sql.DB
	Driver   internaldb.Driver
	Bank     *question.Bank
	States   auth.StateStore
	Provider auth.IdentityProvider
	Now      func() time.Time
}

func NewRouter(cfg Config, deps Dependencies) http.Handler {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.States == nil {
		deps.States = auth.NewMemoryStateStore(auth.DefaultStateTTL, deps.Now)
	}
	if deps.Provider == nil {
		deps.Provider = auth.NewGitHubProvider(auth.GitHubConfig{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
		})
	}

	collector := observability.NewCollector(deps.DB)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(collector.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	policy := exam.Policy{
		AttemptLimit:    cfg.AttemptLimit,
		AttemptDuration: time.Duration(cfg.AttemptMinutes) * time.Minute,
		PrivilegedUser:  cfg.Lector,
	}
	examSvc := exam.NewService(deps.DB, deps.Bank, exam.ServiceConfig{
		Driver: deps.Driver,
		Policy: policy,
		Now:    deps.Now,
	})
	examHandler := exam.NewHandler(examSvc)

	var tokens *auth.TokenIssuer
	if cfg.AuthTokenSecret != "" {
		tokens = auth.NewTokenIssuer(cfg.AuthTokenSecret, auth.DefaultTokenTTL, deps.Now)
	}
	authHandler := auth.NewHandler(auth.HandlerConfig{
		Users:       auth.NewService(deps.DB, deps.Now),
		Provider:    deps.Provider,
		States:      deps.States,
		Ledger:      examSvc,
		Tokens:      tokens,
		RedirectURL: cfg.GitHubRedirectURL,
	})

	reportHandler := report.NewHandler(report.NewService(deps.DB, deps.Bank), examSvc.Policy().IsPrivileged)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Method(http.MethodGet, "/metrics", collector.MetricsHandler())

	limiter := NewIPRateLimiter(cfg.AuthRateLimitPerMin, time.Minute)

	r.Route("/api", func(api chi.Router) {
		api.Group(func(login chi.Router) {
			login.Use(RateLimitMiddleware(limiter))
			login.Get("/auth/github/login", authHandler.Login)
			login.Get("/auth/github/callback", authHandler.Callback)
		})

		api.Get("/config", examHandler.Config)
		api.Get("/questions/sample", examHandler.Sample)

		api.Group(func(secure chi.Router) {
			if tokens != nil {
				secure.Use(tokens.RequireToken)
				secure.Get("/reports/results.xlsx", reportHandler.Download)
			}
			secure.Post("/attempts/start", examHandler.Start)
			secure.Post("/attempts/{id}/submit", examHandler.Submit)
			secure.Get("/attempts/status/{userID}", examHandler.Status)
		})
	})

	staticDir := cfg.StaticDir
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		index := filepath.Join(staticDir, "index.html")
		if _, err := os.Stat(index); err != nil {
			apiresp.WriteErrorCode(w, r, http.StatusInternalServerError, apiresp.CodeInternal, "Frontend not built")
			return
		}
		http.ServeFile(w, r, index)
	})
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))

	return r
}
