package observability

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"quizrunner/internal/auth"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records per-request metrics and writes one JSON log line per
// request. Each collector owns its registry.
type Collector struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func NewCollector(db *sql.DB) *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	c := &Collector{
		registry: reg,
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quizrunner_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quizrunner_http_request_duration_seconds",
				Help:    "Time spent serving HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	reg.MustRegister(collectors.NewGoCollector())
	if db != nil {
		reg.MustRegister(collectors.NewDBStatsCollector(db, "quizrunner"))
	}
	return c
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		path := normalizedPath(r.URL.Path)

		c.requests.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		c.latency.WithLabelValues(r.Method, path).Observe(elapsed.Seconds())

		userID := int64(0)
		if u, ok := auth.CurrentUser(r.Context()); ok {
			userID = u.ID
		}

		entry := map[string]any{
			"request_id": middleware.GetReqID(r.Context()),
			"user_id":    userID,
			"attempt_id": extractAttemptID(path, r.URL.Path),
			"method":     r.Method,
			"path":       path,
			"status":     rec.status,
			"latency_ms": float64(elapsed.Microseconds()) / 1000.0,
			"remote_ip":  strings.TrimSpace(r.RemoteAddr),
		}
		b, _ := json.Marshal(entry)
		log.Printf("%s", string(b))
	})
}

// MetricsHandler serves the Prometheus exposition for this collector.
func (c *Collector) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// normalizedPath replaces numeric path segments so metric labels stay
// bounded.
func normalizedPath(path string) string {
	if path == "" {
		return "/"
	}
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p == "" {
			continue
		}
		if _, err := strconv.ParseInt(p, 10, 64); err == nil {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}

// extractAttemptID reads the id following an "attempts" segment of the raw
// path when the normalized path shows one was there.
func extractAttemptID(normalized, raw string) int64 {
	norm := strings.Split(strings.Trim(normalized, "/"), "/")
	parts := strings.Split(strings.Trim(raw, "/"), "/")
	if len(norm) != len(parts) {
		return 0
	}
	for i := 0; i < len(parts)-1; i++ {
		if parts[i] == "attempts" && norm[i+1] == "{id}" {
			id, _ := strconv.ParseInt(parts[i+1], 10, 64)
			return id
		}
	}
	return 0
}
