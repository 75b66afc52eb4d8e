package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/smolkov/gridchat-server/internal/auth"
	"github.com/smolkov/gridchat-server/internal/callengine"
	"github.com/smolkov/gridchat-server/internal/callengine/livekit"
	"github.com/smolkov/gridchat-server/internal/config"
	"github.com/smolkov/gridchat-server/internal/core"
	"github.com/smolkov/gridchat-server/internal/metrics"
	"github.com/smolkov/gridchat-server/internal/service/calls"
	"github.com/smolkov/gridchat-server/internal/store"
	"github.com/smolkov/gridchat-server/internal/store/sqlite"
	transporthttp "github.com/smolkov/gridchat-server/internal/transport/http"
)

// App wires together storage, auth, the hub, and the HTTP transport.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWT.Secret),
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		TTL:      cfg.JWT.TTL,
	}
	authService := auth.NewService(st, jwtConfig)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	var callService core.CallService
	if cfg.LiveKit.Enabled {
		if cfg.LiveKit.APIKey == "" || cfg.LiveKit.APISecret == "" || cfg.LiveKit.WSURL == "" {
			return nil, fmt.Errorf("livekit enabled but api_key, api_secret, or ws_url missing")
		}
		var engine callengine.Engine = livekit.New(cfg.LiveKit.APIKey, cfg.LiveKit.APISecret, cfg.LiveKit.WSURL)
		callService = calls.New(st, engine)
		logger.Info().Str("ws_url", cfg.LiveKit.WSURL).Msg("media calls enabled")
	}

	hub := core.NewHub(st, transporthttp.NewVerifier(authService), callService, m, logger)
	server := transporthttp.NewServer(hub, st, authService, cfg, registry, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go a.hub.Run(ctx)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
