package api

import (
	"bufio"
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/star/horizon/internal/auth"
	"github.com/star/horizon/internal/control"
	"github.com/star/horizon/internal/display"
	"github.com/star/horizon/internal/health"
	"github.com/star/horizon/internal/httputil"
	"github.com/star/horizon/internal/input"
	"github.com/star/horizon/internal/metrics"
	"github.com/star/horizon/internal/stream"
	"github.com/star/horizon/internal/uniform"
)

// Deps are the components the HTTP surface reads from and writes to.
type Deps struct {
	Uniforms *uniform.Store
	Display  *display.Board
	Inputs   *input.Board
	Stream   *stream.Handler
	Control  *control.Handler
	Resolver httputil.IPResolver
	MassTag  string // text field tag written by POST /api/v1/inputs/mass
	Static   fs.FS  // status page; nil disables "/"
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(addr string, logger *slog.Logger, authCfg auth.Config, deps Deps) *Server {
	if deps.MassTag == "" {
		deps.MassTag = input.MassFieldTag
	}
	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(func() bool { return deps.Uniforms.Get() != nil }))
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/v1/uniforms", uniformsHandler(deps.Uniforms))
	mux.HandleFunc("GET /api/v1/uniforms.bin", uniformsBinHandler(deps.Uniforms))
	mux.HandleFunc("GET /api/v1/display", displayHandler(deps.Display))

	if deps.Stream != nil {
		mux.HandleFunc("GET /api/v1/stream/uniforms", deps.Stream.HandleUniforms)
	}
	if deps.Control != nil {
		mux.Handle("GET /api/v1/control", deps.Control)
	}

	mux.HandleFunc("POST /api/v1/inputs/mass", massInputHandler(logger, deps.Inputs, deps.MassTag))
	mux.HandleFunc("POST /api/v1/inputs/camera", cameraInputHandler(logger, deps.Inputs))
	mux.HandleFunc("DELETE /api/v1/inputs/camera", clearCameraHandler(logger, deps.Inputs))
	mux.HandleFunc("POST /api/v1/inputs/window", windowInputHandler(logger, deps.Inputs))
	mux.HandleFunc("PUT /api/v1/inputs/text/{tag}", textInputHandler(logger, deps.Inputs))

	if deps.Static != nil {
		mux.Handle("GET /{$}", http.FileServerFS(deps.Static))
	}

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(authCfg)(handler)
	handler = loggingMiddleware(logger, deps.Resolver)(handler)
	handler = metrics.Middleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// quietPath returns true for probe and high-frequency paths that should not log at INFO.
func quietPath(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics" || path == "/api/v1/uniforms"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := sr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack not supported")
	}
	return h.Hijack()
}

func loggingMiddleware(logger *slog.Logger, resolver httputil.IPResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if quietPath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", resolver.Resolve(r),
			)
		})
	}
}
