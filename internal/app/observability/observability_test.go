package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNormalizedPath(t *testing.T) {
	got := normalizedPath("/api/attempts/123/submit")
	want := "/api/attempts/{id}/submit"
	if got != want {
		t.Fatalf("normalizedPath mismatch got=%s want=%s", got, want)
	}
	if got := normalizedPath("/api/attempts/status/7"); got != "/api/attempts/status/{id}" {
		t.Fatalf("unexpected status path %s", got)
	}
}

func TestExtractAttemptID(t *testing.T) {
	raw := "/api/attempts/456/submit"
	if id := extractAttemptID(normalizedPath(raw), raw); id != 456 {
		t.Fatalf("expected 456, got %d", id)
	}
	raw = "/api/attempts/status/9"
	if id := extractAttemptID(normalizedPath(raw), raw); id != 0 {
		t.Fatalf("expected 0 for status path, got %d", id)
	}
}

func TestCollectorExposesRequestMetrics(t *testing.T) {
	c := NewCollector(nil)
	h := c.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/attempts/12/submit", nil))

	rec := httptest.NewRecorder()
	c.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	want := `quizrunner_http_requests_total{method="POST",path="/api/attempts/{id}/submit",status="409"} 1`
	if !strings.Contains(body, want) {
		t.Fatalf("metrics output missing %q:\n%s", want, body)
	}
	if !strings.Contains(body, "quizrunner_http_request_duration_seconds_bucket") {
		t.Fatalf("expected latency histogram in output")
	}
}
