package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/distro-app/gateway/internal/config"
	"github.com/distro-app/gateway/internal/domain"
	"github.com/distro-app/gateway/internal/guard"
	"github.com/distro-app/gateway/internal/handler"
	"github.com/distro-app/gateway/internal/identity"
	"github.com/distro-app/gateway/internal/infra/cache"
	"github.com/distro-app/gateway/internal/infra/client"
	"github.com/distro-app/gateway/internal/infra/observability"
	"github.com/distro-app/gateway/internal/infra/resilience"
	"github.com/distro-app/gateway/internal/service"
	"github.com/distro-app/gateway/internal/session"
	"github.com/distro-app/gateway/internal/tenant"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("base_domain", cfg.BaseDomain),
		zap.String("backend_api_url", cfg.BackendAPIURL),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("access_ttl", cfg.AccessTTL),
		zap.Duration("refresh_ttl", cfg.RefreshTTL),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "distro-gateway")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("distro-backend")
	bulkhead := resilience.NewBulkhead(cfg.MaxConcurrency)

	// --- Upstream client ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	api := client.NewClient(httpClient, cfg.BackendAPIURL, cb, resilienceCfg, metrics, logger)

	// --- Sessions and identity ---
	store := session.NewMemory(time.Minute)
	manager := identity.NewManager(api, store, bulkhead, metrics, logger, cfg.AccessTTL, cfg.RefreshTTL)
	issuer := identity.NewTokenIssuer(cfg.SessionSecret, cfg.RefreshTTL)

	// --- Services ---
	directorySvc := service.NewDirectory(
		api,
		cache.New[*domain.DashboardSummary](cfg.CacheTTL),
		cache.New[[]domain.Utility](cfg.CacheTTL),
		metrics,
		logger,
		cfg.CacheTTL,
	)
	invitationsSvc := service.NewInvitations(api, manager, logger)

	// --- Router ---
	router := handler.NewRouter(handler.Deps{
		Resolver:    tenant.NewResolver(cfg.BaseDomain),
		Manager:     manager,
		Issuer:      issuer,
		Guard:       guard.New(manager, metrics, logger),
		Directory:   directorySvc,
		Invitations: invitationsSvc,
		API:         api,
		Metrics:     metrics,
		Logger:      logger,
		SessionTTL:  cfg.RefreshTTL,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
