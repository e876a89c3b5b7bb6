// Package stream implements Server-Sent Events (SSE) streaming of the
// per-frame uniform snapshot. Clients connect via GET /api/v1/stream/uniforms
// and receive the latest snapshot each time the frame loop exports a new one.
//
// SSE message format:
//
//	data: {"type":"uniforms","uniforms":{"frame":42,"camera_position":[0,10,40],...}}\n\n
//
// First message is always metadata:
//
//	data: {"type":"metadata","stream_id":"...","frame":41,"mass_kg":1e34}\n\n
//
// Keep-alive comments (:\n\n) are sent every KeepaliveInterval to prevent timeout.
// Frames exported faster than the poll interval are coalesced; a client only
// ever sees the newest one.
package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/star/horizon/internal/httputil"
	"github.com/star/horizon/internal/metrics"
	"github.com/star/horizon/internal/uniform"
)

// Config holds streaming configuration loaded from environment variables.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP (default: 10).
	KeepaliveInterval  time.Duration // Keep-alive ping interval (default: 30s).
}

// Poll interval bounds for the interval query parameter, in milliseconds.
const (
	defaultIntervalMs = 100
	minIntervalMs     = 16
	maxIntervalMs     = 5000
)

// Handler manages SSE streaming connections.
type Handler struct {
	store    *uniform.Store
	config   Config
	limiter  *streamLimiter
	resolver httputil.IPResolver
	logger   *slog.Logger
}

// NewHandler creates a new streaming handler.
func NewHandler(store *uniform.Store, config Config, resolver httputil.IPResolver, logger *slog.Logger) *Handler {
	return &Handler{
		store:    store,
		config:   config,
		limiter:  newStreamLimiter(config.MaxConcurrentPerIP),
		resolver: resolver,
		logger:   logger,
	}
}

// HandleUniforms serves the SSE uniform stream.
// GET /api/v1/stream/uniforms?interval=100
func (h *Handler) HandleUniforms(w http.ResponseWriter, r *http.Request) {
	interval := defaultIntervalMs
	if v := r.URL.Query().Get("interval"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < minIntervalMs || n > maxIntervalMs {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("invalid interval parameter, must be %d-%d", minIntervalMs, maxIntervalMs))
			return
		}
		interval = n
	}

	// Rate limiting: enforce concurrent stream limit per IP.
	ip := h.resolver.Resolve(r)
	if !h.limiter.acquire(ip) {
		metrics.IncStreamErrors("rate_limit")
		h.logger.Warn("stream rate limit exceeded",
			"remote_ip", ip,
			"current_count", h.limiter.count(ip),
		)
		w.Header().Set("Retry-After", "30")
		writeError(w, http.StatusTooManyRequests, "too many concurrent streams")
		return
	}

	id := uuid.NewString()
	metrics.IncStreamConnections(metrics.TransportSSE, "connect")
	metrics.IncStreamsActive(metrics.TransportSSE)

	startTime := time.Now()
	h.logger.Info("stream connected",
		"stream_id", id,
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
		"interval_ms", interval,
	)

	c := &client{id: id, ip: ip, logger: h.logger}

	defer func() {
		h.limiter.release(ip)
		metrics.IncStreamConnections(metrics.TransportSSE, "disconnect")
		metrics.DecStreamsActive(metrics.TransportSSE)
		h.logger.Info("stream disconnected",
			"stream_id", id,
			"remote_ip", ip,
			"messages", c.messagesSent,
			"bytes", c.bytesSent,
			"duration_seconds", int(time.Since(startTime).Seconds()),
		)
	}()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Long-lived stream: clear the server's WriteTimeout, then extend the
	// deadline per write.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}
	c.w, c.flusher, c.rc = w, flusher, rc

	// Jittered retry interval (3-7s) spreads reconnects after a restart.
	retryMs := 3000 + rand.Intn(4000)
	fmt.Fprintf(w, "retry: %d\n\n", retryMs)
	flusher.Flush()

	if err := c.sendJSON(h.metadata(id)); err != nil {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("stream send error (metadata)", "stream_id", id, "error", err)
		return
	}

	ticker := time.NewTicker(time.Duration(interval) * time.Millisecond)
	defer ticker.Stop()

	keepaliveTicker := time.NewTicker(h.config.KeepaliveInterval)
	defer keepaliveTicker.Stop()

	var lastFrame uint64
	ctx := r.Context()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			snap := h.store.Get()
			if snap == nil || snap.Frame == lastFrame {
				continue
			}
			data, err := json.Marshal(uniformsMessage{Type: "uniforms", Uniforms: snap})
			if err != nil {
				metrics.IncStreamErrors("marshal_error")
				h.logger.Warn("stream marshal error", "stream_id", id, "frame", snap.Frame, "error", err)
				continue
			}
			if err := c.sendRaw(data); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream send error", "stream_id", id, "error", err)
				return
			}
			lastFrame = snap.Frame

			// Reset keepalive since we just sent data.
			keepaliveTicker.Reset(h.config.KeepaliveInterval)

		case <-keepaliveTicker.C:
			if err := c.sendKeepalive(); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream keepalive error", "stream_id", id, "error", err)
				return
			}
		}
	}
}

func (h *Handler) metadata(id string) metadataMessage {
	meta := metadataMessage{
		Type:       "metadata",
		StreamID:   id,
		AgeSeconds: h.store.AgeSeconds(),
	}
	if snap := h.store.Get(); snap != nil {
		meta.Frame = snap.Frame
		// JSON has no Inf or NaN; those masses go out as null.
		if mass := snap.Constants.Mass; !math.IsInf(mass, 0) && !math.IsNaN(mass) {
			meta.Mass = &mass
		}
	}
	return meta
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// SSE message payload types.

type metadataMessage struct {
	Type       string   `json:"type"`
	StreamID   string   `json:"stream_id"`
	Frame      uint64   `json:"frame"`
	Mass       *float64 `json:"mass_kg"`
	AgeSeconds float64  `json:"snapshot_age_seconds"`
}

type uniformsMessage struct {
	Type     string            `json:"type"`
	Uniforms *uniform.Snapshot `json:"uniforms"`
}
