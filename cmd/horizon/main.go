package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/star/horizon/internal/api"
	"github.com/star/horizon/internal/auth"
	"github.com/star/horizon/internal/config"
	"github.com/star/horizon/internal/control"
	"github.com/star/horizon/internal/display"
	"github.com/star/horizon/internal/frame"
	"github.com/star/horizon/internal/httputil"
	"github.com/star/horizon/internal/input"
	"github.com/star/horizon/internal/state"
	"github.com/star/horizon/internal/stream"
	"github.com/star/horizon/internal/uniform"
	"github.com/star/horizon/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: loadLogLevel(),
	}))

	addr := os.Getenv("HORIZON_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	scene, err := loadScene(logger)
	if err != nil {
		logger.Error("invalid scene configuration", "error", err)
		os.Exit(1)
	}

	policy, err := frame.ParseParsePolicy(os.Getenv("HORIZON_MASS_PARSE_POLICY"))
	if err != nil {
		logger.Error("invalid HORIZON_MASS_PARSE_POLICY", "error", err)
		os.Exit(1)
	}

	resolver := httputil.IPResolver{TrustProxy: loadTrustProxy(logger)}

	// Inputs start where the UI would: the scene camera and the mass field
	// holding the initial mass.
	inputs := input.NewBoard()
	inputs.SetCamera(scene.Camera.EyeVec(), scene.Camera.TargetVec())
	inputs.SetText(scene.MassTag, strconv.FormatFloat(state.DefaultMass, 'f', -1, 64))

	uniforms := uniform.NewStore()
	text := display.NewBoard()

	pipeline := frame.NewPipeline(frame.Config{
		Material:    scene.Material,
		ParsePolicy: policy,
		MassTag:     scene.MassTag,
	}, uniforms, text, logger)
	loop := frame.NewLoop(pipeline, inputs, state.NewRecords(), scene.FrameRate, logger)

	streamCfg := loadStreamConfig(logger)
	streamHandler := stream.NewHandler(uniforms, streamCfg, resolver, logger)
	controlHandler := control.NewHandler(inputs, uniforms, control.DefaultConfig(), resolver, logger)

	srv := api.NewServer(addr, logger, authCfg, api.Deps{
		Uniforms: uniforms,
		Display:  text,
		Inputs:   inputs,
		Stream:   streamHandler,
		Control:  controlHandler,
		Resolver: resolver,
		MassTag:  scene.MassTag,
		Static:   web.Content,
	})

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A frame error means a collaborator is missing; nothing useful can run.
	go func() {
		if err := loop.Start(ctx); err != nil {
			logger.Error("frame loop failed", "error", err)
			os.Exit(1)
		}
	}()

	go func() {
		logger.Info("starting server",
			"addr", addr,
			"auth_enabled", authCfg.Enabled,
			"frame_rate", scene.FrameRate,
			"mass_parse_policy", policy.String(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func loadLogLevel() slog.Level {
	switch strings.ToLower(os.Getenv("HORIZON_LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	enabledStr := os.Getenv("HORIZON_AUTH_ENABLED")
	if enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return cfg, errors.New("HORIZON_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("HORIZON_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("HORIZON_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

// loadScene reads HORIZON_CONFIG when set, then applies HORIZON_FRAME_RATE.
func loadScene(logger *slog.Logger) (*config.Config, error) {
	cfg := config.Default()
	if path := os.Getenv("HORIZON_CONFIG"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if v := os.Getenv("HORIZON_FRAME_RATE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			logger.Warn("invalid HORIZON_FRAME_RATE value, using default", "value", v, "default", cfg.FrameRate)
		} else {
			cfg.FrameRate = n
		}
	}

	logger.Info("scene config",
		"frame_rate", cfg.FrameRate,
		"mass_tag", cfg.MassTag,
		"eye", cfg.Camera.Eye,
		"target", cfg.Camera.Target,
		"field_of_view", cfg.Material.FieldOfView,
	)

	return cfg, nil
}

func loadStreamConfig(logger *slog.Logger) stream.Config {
	cfg := stream.Config{
		MaxConcurrentPerIP: 10,
		KeepaliveInterval:  30 * time.Second,
	}

	if v := os.Getenv("HORIZON_STREAM_MAX_CONCURRENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid HORIZON_STREAM_MAX_CONCURRENT value, using default", "value", v, "default", 10)
		} else {
			cfg.MaxConcurrentPerIP = n
		}
	}

	if v := os.Getenv("HORIZON_STREAM_KEEPALIVE_INTERVAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid HORIZON_STREAM_KEEPALIVE_INTERVAL value, using default", "value", v, "default", 30)
		} else {
			cfg.KeepaliveInterval = time.Duration(n) * time.Second
		}
	}

	logger.Info("stream config",
		"max_concurrent_per_ip", cfg.MaxConcurrentPerIP,
		"keepalive_interval_seconds", cfg.KeepaliveInterval.Seconds(),
	)

	return cfg
}

func loadTrustProxy(logger *slog.Logger) bool {
	v := os.Getenv("HORIZON_TRUST_PROXY")
	if v == "" {
		return false
	}
	trust, err := strconv.ParseBool(v)
	if err != nil {
		logger.Warn("invalid HORIZON_TRUST_PROXY value, defaulting to false", "value", v)
		return false
	}
	return trust
}
