package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/star/horizon/internal/camera"
	"github.com/star/horizon/internal/httputil"
	"github.com/star/horizon/internal/state"
	"github.com/star/horizon/internal/uniform"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

func testSnapshot(frame uint64) uniform.Snapshot {
	eye := mgl32.Vec3{0, 10, 40}
	cf := state.NewCameraFrame(eye, camera.Axes(eye, mgl32.Vec3{}))
	return uniform.Build(frame, cf, state.DefaultSpacetimeParams(), time.Second, uniform.DefaultMaterial())
}

func testStore() *uniform.Store {
	store := uniform.NewStore()
	store.Publish(testSnapshot(1))
	return store
}

func testConfig() Config {
	return Config{
		MaxConcurrentPerIP: 10,
		KeepaliveInterval:  30 * time.Second,
	}
}

// readEvents runs the handler until timeout and returns the decoded data messages.
func readEvents(t *testing.T, h *Handler, query string, timeout time.Duration) (*httptest.ResponseRecorder, []map[string]any) {
	t.Helper()
	req := httptest.NewRequest("GET", "/api/v1/stream/uniforms"+query, nil)
	req.RemoteAddr = "127.0.0.1:12345"
	ctx, cancel := context.WithTimeout(req.Context(), timeout)
	defer cancel()
	req = req.WithContext(ctx)

	w := httptest.NewRecorder()
	h.HandleUniforms(w, req)

	var msgs []map[string]any
	scanner := bufio.NewScanner(strings.NewReader(w.Body.String()))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var msg map[string]any
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg); err != nil {
			t.Errorf("invalid JSON in SSE data line: %v", err)
			continue
		}
		msgs = append(msgs, msg)
	}
	return w, msgs
}

// TestMetadataMessageJSON verifies the metadata message format.
func TestMetadataMessageJSON(t *testing.T) {
	h := NewHandler(testStore(), testConfig(), httputil.IPResolver{}, testLogger())
	data, err := json.Marshal(h.metadata("abc"))
	if err != nil {
		t.Fatal(err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatal(err)
	}
	if parsed["type"] != "metadata" {
		t.Errorf("type = %v, want metadata", parsed["type"])
	}
	if parsed["stream_id"] != "abc" {
		t.Errorf("stream_id = %v, want abc", parsed["stream_id"])
	}
	if parsed["frame"].(float64) != 1 {
		t.Errorf("frame = %v, want 1", parsed["frame"])
	}
	if parsed["mass_kg"].(float64) != 1e34 {
		t.Errorf("mass_kg = %v, want 1e34", parsed["mass_kg"])
	}
}

// TestMetadataBeforeFirstFrame verifies metadata is still valid JSON with no snapshot.
func TestMetadataBeforeFirstFrame(t *testing.T) {
	h := NewHandler(uniform.NewStore(), testConfig(), httputil.IPResolver{}, testLogger())
	meta := h.metadata("abc")
	if meta.Frame != 0 || meta.Mass != nil || meta.AgeSeconds != -1 {
		t.Errorf("metadata = %+v, want empty", meta)
	}
	if _, err := json.Marshal(meta); err != nil {
		t.Fatal(err)
	}
}

// TestSSEMessageFormat verifies the SSE wire format: "data: {json}\n\n".
func TestSSEMessageFormat(t *testing.T) {
	handler := NewHandler(testStore(), Config{
		MaxConcurrentPerIP: 10,
		KeepaliveInterval:  5 * time.Second,
	}, httputil.IPResolver{}, testLogger())

	w, msgs := readEvents(t, handler, "?interval=20", 300*time.Millisecond)
	resp := w.Result()

	if resp.Header.Get("Content-Type") != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", resp.Header.Get("Content-Type"))
	}
	if resp.Header.Get("Cache-Control") != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", resp.Header.Get("Cache-Control"))
	}

	if len(msgs) < 2 {
		t.Fatalf("got %d messages, want metadata + uniforms", len(msgs))
	}
	if msgs[0]["type"] != "metadata" {
		t.Errorf("first message type = %v, want metadata", msgs[0]["type"])
	}
	if msgs[1]["type"] != "uniforms" {
		t.Errorf("second message type = %v, want uniforms", msgs[1]["type"])
	}
	u, ok := msgs[1]["uniforms"].(map[string]any)
	if !ok {
		t.Fatalf("uniforms payload = %v", msgs[1]["uniforms"])
	}
	if u["frame"].(float64) != 1 {
		t.Errorf("uniforms frame = %v, want 1", u["frame"])
	}
	if _, ok := u["camera_right"]; !ok {
		t.Error("uniforms missing camera_right")
	}

	for _, line := range strings.Split(w.Body.String(), "\n") {
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "data: ") && !strings.HasPrefix(line, "retry: ") && line != ":" {
			t.Errorf("unexpected SSE line: %q", line)
		}
	}
}

// TestSSECoalescesUnchangedFrames verifies a frame is sent only once.
func TestSSECoalescesUnchangedFrames(t *testing.T) {
	handler := NewHandler(testStore(), testConfig(), httputil.IPResolver{}, testLogger())
	_, msgs := readEvents(t, handler, "?interval=16", 200*time.Millisecond)

	var uniforms int
	for _, m := range msgs {
		if m["type"] == "uniforms" {
			uniforms++
		}
	}
	if uniforms != 1 {
		t.Errorf("sent %d uniforms messages for one frame, want 1", uniforms)
	}
}

// TestSSEFollowsNewFrames verifies frames published mid-stream are delivered.
func TestSSEFollowsNewFrames(t *testing.T) {
	store := testStore()
	handler := NewHandler(store, testConfig(), httputil.IPResolver{}, testLogger())

	go func() {
		for f := uint64(2); f <= 4; f++ {
			time.Sleep(60 * time.Millisecond)
			store.Publish(testSnapshot(f))
		}
	}()
	_, msgs := readEvents(t, handler, "?interval=16", 500*time.Millisecond)

	var last float64
	for _, m := range msgs {
		if m["type"] != "uniforms" {
			continue
		}
		f := m["uniforms"].(map[string]any)["frame"].(float64)
		if f <= last {
			t.Errorf("frame %v after %v, want strictly increasing", f, last)
		}
		last = f
	}
	if last != 4 {
		t.Errorf("last frame = %v, want 4", last)
	}
}

// TestRateLimiting verifies per-IP concurrent stream limits.
func TestRateLimiting(t *testing.T) {
	limiter := newStreamLimiter(3)

	for i := 0; i < 3; i++ {
		if !limiter.acquire("10.0.0.1") {
			t.Fatalf("acquire %d should succeed", i+1)
		}
	}

	if limiter.acquire("10.0.0.1") {
		t.Error("acquire beyond limit should fail")
	}
	if !limiter.acquire("10.0.0.2") {
		t.Error("different IP should not be rate limited")
	}

	limiter.release("10.0.0.1")
	if !limiter.acquire("10.0.0.1") {
		t.Error("acquire after release should succeed")
	}

	if c := limiter.count("10.0.0.1"); c != 3 {
		t.Errorf("count = %d, want 3", c)
	}
	if c := limiter.count("10.0.0.2"); c != 1 {
		t.Errorf("count = %d, want 1", c)
	}

	// Releasing an unknown IP must not drive the total negative.
	limiter.release("10.9.9.9")
	if limiter.total != 4 {
		t.Errorf("total = %d, want 4", limiter.total)
	}
}

// TestRateLimitingConcurrent verifies rate limiter thread safety.
func TestRateLimitingConcurrent(t *testing.T) {
	limiter := newStreamLimiter(100)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.acquire("10.0.0.1") {
				defer limiter.release("10.0.0.1")
				time.Sleep(10 * time.Millisecond)
			}
		}()
	}
	wg.Wait()

	if c := limiter.count("10.0.0.1"); c != 0 {
		t.Errorf("count after all released = %d, want 0", c)
	}
}

// TestRateLimitHTTPResponse verifies 429 response when limit exceeded.
func TestRateLimitHTTPResponse(t *testing.T) {
	handler := NewHandler(testStore(), Config{
		MaxConcurrentPerIP: 1,
		KeepaliveInterval:  30 * time.Second,
	}, httputil.IPResolver{}, testLogger())

	ready := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		req := httptest.NewRequest("GET", "/api/v1/stream/uniforms", nil)
		req.RemoteAddr = "10.0.0.1:12345"
		ctx, cancel := context.WithCancel(req.Context())
		req = req.WithContext(ctx)
		w := httptest.NewRecorder()

		go func() {
			time.Sleep(50 * time.Millisecond)
			close(ready)
			time.Sleep(200 * time.Millisecond)
			cancel()
		}()

		handler.HandleUniforms(w, req)
	}()

	<-ready

	req := httptest.NewRequest("GET", "/api/v1/stream/uniforms", nil)
	req.RemoteAddr = "10.0.0.1:54321"
	w := httptest.NewRecorder()
	handler.HandleUniforms(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}

	<-done
}

// TestInvalidQueryParams verifies error responses for bad interval values.
func TestInvalidQueryParams(t *testing.T) {
	handler := NewHandler(testStore(), testConfig(), httputil.IPResolver{}, testLogger())

	tests := []struct {
		name  string
		query string
	}{
		{"interval too small", "?interval=1"},
		{"interval too large", "?interval=60000"},
		{"interval non-numeric", "?interval=abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/stream/uniforms"+tt.query, nil)
			req.RemoteAddr = "127.0.0.1:12345"
			w := httptest.NewRecorder()
			handler.HandleUniforms(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

// TestKeepalive verifies a keep-alive comment is sent when no frames arrive.
func TestKeepalive(t *testing.T) {
	handler := NewHandler(uniform.NewStore(), Config{
		MaxConcurrentPerIP: 10,
		KeepaliveInterval:  30 * time.Millisecond,
	}, httputil.IPResolver{}, testLogger())

	w, _ := readEvents(t, handler, "", 150*time.Millisecond)
	if !strings.Contains(w.Body.String(), "\n:\n\n") {
		t.Errorf("no keepalive comment in body %q", w.Body.String())
	}
}
