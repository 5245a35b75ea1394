package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

var (
	ErrUnconfigured = errors.New("github oauth is not configured")
	ErrUpstreamAuth = errors.New("github authentication failed")
)

const (
	defaultGitHubUserURL   = "https://api.github.com/user"
	defaultUpstreamTimeout = 15 * time.Second
)

type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	// Endpoint and UserURL default to github.com; tests point them at a
	// local server.
	Endpoint oauth2.Endpoint
	UserURL  string
	Timeout  time.Duration
}

// GitHubProvider resolves an authorization code to a GitHub login.
type GitHubProvider struct {
	oauth   oauth2.Config
	userURL string
	client  *http.Client
	timeout time.Duration
}

func NewGitHubProvider(cfg GitHubConfig) *GitHubProvider {
	if cfg.Endpoint.TokenURL == "" {
		cfg.Endpoint = github.Endpoint
	}
	if strings.TrimSpace(cfg.UserURL) == "" {
		cfg.UserURL = defaultGitHubUserURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultUpstreamTimeout
	}
	return &GitHubProvider{
		oauth: oauth2.Config{
			ClientID:     strings.TrimSpace(cfg.ClientID),
			ClientSecret: strings.TrimSpace(cfg.ClientSecret),
			Endpoint:     cfg.Endpoint,
			Scopes:       []string{"read:user"},
		},
		userURL: cfg.UserURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		timeout: cfg.Timeout,
	}
}

func (p *GitHubProvider) Configured() bool {
	return p.oauth.ClientID != "" && p.oauth.ClientSecret != ""
}

func (p *GitHubProvider) AuthCodeURL(state, redirectURI string) string {
	return p.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("redirect_uri", redirectURI))
}

// ExchangeCode trades the code for an access token and reads the login of
// the token owner.
func (p *GitHubProvider) ExchangeCode(ctx context.Context, code, redirectURI string) (string, error) {
	if !p.Configured() {
		return "", ErrUnconfigured
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)

	tok, err := p.oauth.Exchange(ctx, code, oauth2.SetAuthURLParam("redirect_uri", redirectURI))
	if err != nil {
		return "", fmt.Errorf("%w: exchange code: %v", ErrUpstreamAuth, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userURL, nil)
	if err != nil {
		return "", fmt.Errorf("build user request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := p.oauth.Client(ctx, tok).Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: fetch user: %v", ErrUpstreamAuth, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: user api status %d: %s", ErrUpstreamAuth, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var ghUser struct {
		Login string `json:"login"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ghUser); err != nil {
		return "", fmt.Errorf("%w: decode user: %v", ErrUpstreamAuth, err)
	}
	login := strings.TrimSpace(ghUser.Login)
	if login == "" {
		return "", fmt.Errorf("%w: github login missing", ErrUpstreamAuth)
	}
	return login, nil
}
