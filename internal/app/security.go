package app

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"quizrunner/internal/app/apiresp"

	"github.com/go-chi/chi/v5"
)

type loginWindow struct {
	hits int
	ends time.Time
}

// IPRateLimiter throttles the OAuth endpoints with a fixed window per client
// host and route.
type IPRateLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	now     func() time.Time
	windows map[string]loginWindow
}

func NewIPRateLimiter(max int, window time.Duration) *IPRateLimiter {
	if max <= 0 {
		max = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &IPRateLimiter{
		max:     max,
		window:  window,
		now:     time.Now,
		windows: make(map[string]loginWindow),
	}
}

// Allow counts a hit against key. When the window is exhausted it returns
// false and the time left until the window closes.
func (l *IPRateLimiter) Allow(key string) (bool, time.Duration) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.After(w.ends) {
		l.sweepLocked(now)
		w = loginWindow{ends: now.Add(l.window)}
	}
	if w.hits >= l.max {
		return false, w.ends.Sub(now)
	}
	w.hits++
	l.windows[key] = w
	return true, 0
}

func (l *IPRateLimiter) sweepLocked(now time.Time) {
	for k, w := range l.windows {
		if now.After(w.ends) {
			delete(l.windows, k)
		}
	}
}

func RateLimitMiddleware(l *IPRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, retry := l.Allow(clientHost(r) + "|" + routeKey(r))
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
				apiresp.WriteErrorCode(w, r, http.StatusTooManyRequests, apiresp.CodeRateLimited, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientHost drops the port so reconnects from one client share a window.
// RealIP has already replaced RemoteAddr when a proxy header is present.
func clientHost(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func routeKey(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}
