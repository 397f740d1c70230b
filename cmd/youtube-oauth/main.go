// Command youtube-oauth serves the YouTube sign-in flow and the YouTube
// playlist API behind a session cookie.
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	oauth "github.com/giantswarm/youtube-oauth"
	"github.com/giantswarm/youtube-oauth/instrumentation"
	"github.com/giantswarm/youtube-oauth/providers/google"
	"github.com/giantswarm/youtube-oauth/quota"
	"github.com/giantswarm/youtube-oauth/security"
	"github.com/giantswarm/youtube-oauth/server"
	"github.com/giantswarm/youtube-oauth/storage"
	"github.com/giantswarm/youtube-oauth/storage/memory"
	"github.com/giantswarm/youtube-oauth/storage/valkey"
	"github.com/giantswarm/youtube-oauth/youtube"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const shutdownTimeout = 30 * time.Second

// store is what every storage backend provides
type store interface {
	storage.AuthStateStore
	storage.TokenStore
	storage.QuotaStore
	SetEncryptor(enc *security.Encryptor)
	SetInstrumentation(inst *instrumentation.Instrumentation)
}

func main() {
	if err := run(); err != nil {
		slog.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env file is fine; the environment may be set directly
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := oauth.LoadConfigFromEnv()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	inst, err := newInstrumentation(cfg.Metrics)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := inst.Shutdown(ctx); err != nil {
			logger.Warn("Failed to shut down instrumentation", "error", err)
		}
	}()

	st, closeStore, err := newStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	encryptor, err := security.NewEncryptor(cfg.Security.EncryptionKey)
	if err != nil {
		return err
	}
	st.SetEncryptor(encryptor)
	st.SetInstrumentation(inst)
	if encryptor.IsEnabled() {
		logger.Info("Token encryption at rest enabled")
	}

	auditor := security.NewAuditor(logger, cfg.Security.EnableAuditLogging)

	gateway, err := google.NewGateway(&google.Config{
		ClientID:        cfg.Google.ClientID,
		ClientSecret:    cfg.Google.ClientSecret,
		RedirectURL:     cfg.Google.RedirectURL,
		Scopes:          cfg.Google.Scopes,
		Instrumentation: inst,
	})
	if err != nil {
		return err
	}

	limiter, err := quota.New(st, quota.Config{
		DailyLimit:      cfg.Quota.DailyLimit,
		Timezone:        cfg.Quota.Timezone,
		Logger:          logger,
		Auditor:         auditor,
		Instrumentation: inst,
	})
	if err != nil {
		return err
	}
	if err := limiter.RegisterUsageGauge(); err != nil {
		return fmt.Errorf("failed to register quota gauge: %w", err)
	}

	srv, err := server.New(gateway, st, st, &server.Config{SessionTTL: cfg.Session.TTL}, logger)
	if err != nil {
		return err
	}
	srv.SetAuditor(auditor)
	srv.SetInstrumentation(inst)

	tokens, err := server.NewTokenService(st, cfg.Session.TTL, logger)
	if err != nil {
		return err
	}

	client := youtube.NewHTTPClient(&youtube.ClientConfig{
		Logger:          logger,
		Instrumentation: inst,
	})
	yt, err := youtube.NewService(tokens, limiter, client, logger)
	if err != nil {
		return err
	}

	handler, err := oauth.NewHandler(srv, tokens, yt, limiter, cfg, logger)
	if err != nil {
		return err
	}
	defer handler.Close()

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.Routes(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	servers := []*http.Server{httpServer}
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		servers = append(servers, &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           metricsMux,
			ReadHeaderTimeout: 5 * time.Second,
		})
	}

	errCh := make(chan error, len(servers))
	for _, s := range servers {
		go func(s *http.Server) {
			logger.Info("Listening", "addr", s.Addr)
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("server on %s failed: %w", s.Addr, err)
			}
		}(s)
	}

	logger.Info("youtube-oauth started",
		"version", version,
		"base_url", cfg.BaseURL,
		"storage", cfg.Storage.Backend,
		"metrics", cfg.Metrics.Enabled)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("Shutting down", "signal", sig.String())
	case err := <-errCh:
		logger.Error("Server error", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, s := range servers {
		if err := s.Shutdown(ctx); err != nil {
			logger.Error("Server forced to shutdown", "addr", s.Addr, "error", err)
		}
	}

	logger.Info("Server stopped")
	return nil
}

func newLogger(cfg oauth.LoggingConfig) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.Level, err)
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts)), nil
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts)), nil
}

func newInstrumentation(cfg oauth.MetricsConfig) (*instrumentation.Instrumentation, error) {
	exporter := instrumentation.MetricsExporterNone
	if cfg.Enabled {
		exporter = instrumentation.MetricsExporterPrometheus
	}
	inst, err := instrumentation.New(instrumentation.Config{
		ServiceName:     instrumentation.DefaultServiceName,
		ServiceVersion:  version,
		Enabled:         cfg.Enabled,
		MetricsExporter: exporter,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize instrumentation: %w", err)
	}
	return inst, nil
}

func newStore(cfg *oauth.Config, logger *slog.Logger) (store, func(), error) {
	switch cfg.Storage.Backend {
	case oauth.StorageBackendValkey:
		var tlsConfig *tls.Config
		if cfg.Storage.ValkeyTLS {
			tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		st, err := valkey.New(valkey.Config{
			Address:   cfg.Storage.ValkeyAddr,
			Password:  cfg.Storage.ValkeyPassword,
			DB:        cfg.Storage.ValkeyDB,
			KeyPrefix: cfg.Storage.ValkeyKeyPrefix,
			TLS:       tlsConfig,
			Logger:    logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to valkey: %w", err)
		}
		logger.Info("Using valkey storage", "addr", cfg.Storage.ValkeyAddr)
		return st, st.Close, nil
	default:
		st := memory.New()
		st.SetLogger(logger)
		logger.Warn("Using in-memory storage; sessions and quota are lost on restart")
		return st, st.Stop, nil
	}
}
