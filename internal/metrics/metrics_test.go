package metrics

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// value reads the current value of a counter or gauge.
func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		t.Fatal(err)
	}
	if out.Counter != nil {
		return out.Counter.GetValue()
	}
	return out.Gauge.GetValue()
}

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		// Known exact routes.
		{"/healthz", "/healthz"},
		{"/readyz", "/readyz"},
		{"/metrics", "/metrics"},
		{"/", "/"},
		{"/api/v1/uniforms", "/api/v1/uniforms"},
		{"/api/v1/uniforms.bin", "/api/v1/uniforms.bin"},
		{"/api/v1/display", "/api/v1/display"},
		{"/api/v1/stream/uniforms", "/api/v1/stream/uniforms"},
		{"/api/v1/control", "/api/v1/control"},
		{"/api/v1/inputs/mass", "/api/v1/inputs/mass"},
		{"/api/v1/inputs/camera", "/api/v1/inputs/camera"},

		// Parameterized text routes collapse to one label.
		{"/api/v1/inputs/text/SpacetimeParamsM", "/api/v1/inputs/text/{tag}"},
		{"/api/v1/inputs/text/Skybox", "/api/v1/inputs/text/{tag}"},

		// Unknown/bot paths collapse to "other".
		{"/api/v1/inputs/text/", "other"},
		{"/wp-admin", "other"},
		{"/robots.txt", "other"},
		{"/.env", "other"},
		{"/api/v2/uniforms", "other"},
		{"/favicon.ico", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := normalizeRoute(tt.path)
			if got != tt.want {
				t.Errorf("normalizeRoute(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

// TestMetricsCardinality verifies that 100 unique field tags produce
// exactly 1 distinct path label, not 100.
func TestMetricsCardinality(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		label := normalizeRoute(fmt.Sprintf("/api/v1/inputs/text/field%d", i))
		seen[label] = true
	}
	if len(seen) != 1 {
		t.Errorf("expected 1 unique label for parameterized paths, got %d: %v", len(seen), seen)
	}
}

func TestMiddleware_CountsRequests(t *testing.T) {
	before := value(t, httpRequestsTotal.WithLabelValues("/api/v1/display", "GET", "418"))

	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/v1/display", nil))

	after := value(t, httpRequestsTotal.WithLabelValues("/api/v1/display", "GET", "418"))
	if after != before+1 {
		t.Errorf("request counter = %v, want %v", after, before+1)
	}
}

func TestMiddleware_Flush(t *testing.T) {
	rec := httptest.NewRecorder()
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("wrapped writer does not implement http.Flusher")
		}
		w.Write([]byte("data"))
		f.Flush()
	}))
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/stream/uniforms", nil))

	if !rec.Flushed {
		t.Error("flush did not reach the recorder")
	}
}

func TestFrameMetrics(t *testing.T) {
	before := value(t, framesTotal)
	IncFrames()
	if got := value(t, framesTotal); got != before+1 {
		t.Errorf("frames = %v, want %v", got, before+1)
	}

	SetMass(5e30)
	if got := value(t, massKilograms); got != 5e30 {
		t.Errorf("mass gauge = %v, want 5e30", got)
	}

	parseBefore := value(t, massParseFailuresTotal)
	AddMassParseFailures(2)
	if got := value(t, massParseFailuresTotal); got != parseBefore+2 {
		t.Errorf("parse failures = %v, want %v", got, parseBefore+2)
	}

	// Observations must not panic for any stage label.
	for _, stage := range []string{"window", "camera", "spacetime", "export", "display"} {
		ObserveStageDuration(stage, time.Microsecond)
	}
	ObserveFrameDuration(time.Millisecond)
}
