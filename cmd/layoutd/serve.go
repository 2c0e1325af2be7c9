// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/harborlane/layoutd/internal/adminapi"
	"github.com/harborlane/layoutd/internal/audit"
	"github.com/harborlane/layoutd/internal/cache"
	"github.com/harborlane/layoutd/internal/config"
	"github.com/harborlane/layoutd/internal/contextstore"
	"github.com/harborlane/layoutd/internal/coordinator"
	"github.com/harborlane/layoutd/internal/health"
	"github.com/harborlane/layoutd/internal/log"
	"github.com/harborlane/layoutd/internal/netutil"
	"github.com/harborlane/layoutd/internal/control/middleware"
	"github.com/harborlane/layoutd/internal/ratelimit"
	"github.com/harborlane/layoutd/internal/telemetry"
	"github.com/harborlane/layoutd/internal/templatestore"
	"github.com/harborlane/layoutd/internal/upstream"
	"github.com/harborlane/layoutd/internal/version"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the composition server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

// server bundles the long-lived collaborators that need an orderly shutdown.
type server struct {
	cfg      config.Config
	holder   *config.Holder
	tracer   *telemetry.Provider
	templates *templatestore.Store
	auditDB  *audit.Store
	cacheBackend cache.Cache
}

func runServe(ctx context.Context) error {
	cfg, err := config.NewLoader(configPath, version.Version).Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log.Configure(log.Config{Level: cfg.LogLevel, Service: cfg.LogService, Version: version.Version})
	logger := log.WithComponent("main")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	srv, err := buildServer(ctx, cfg)
	if err != nil {
		return err
	}
	defer srv.shutdown(logger)

	holder := srv.holder
	if err := holder.StartWatcher(ctx); err != nil {
		logger.Warn().Err(err).Msg("config file watcher failed to start")
	}

	fetcher := buildFetcher(cfg)
	coord := buildCoordinator(cfg, srv, fetcher)

	mainRouter := buildMainRouter(cfg, coord)
	adminRouter, err := buildAdminRouter(cfg, holder, srv)
	if err != nil {
		return fmt.Errorf("build admin router: %w", err)
	}

	mainSrv := &http.Server{Addr: cfg.ListenAddr, Handler: mainRouter, ReadHeaderTimeout: 10 * time.Second}
	adminSrv := &http.Server{Addr: cfg.AdminListenAddr, Handler: adminRouter, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 2)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("composition server listening")
		errCh <- runListener(mainSrv, cfg.TLSCert, cfg.TLSKey)
	}()
	go func() {
		logger.Info().Str("addr", cfg.AdminListenAddr).Msg("admin server listening")
		errCh <- adminSrv.ListenAndServe()
	}()

	if srv.auditDB != nil && cfg.AuditRetention > 0 {
		go runAuditPruner(ctx, srv.auditDB, cfg.AuditRetention)
	}

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server exited unexpectedly")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_ = mainSrv.Shutdown(shutdownCtx)
	_ = adminSrv.Shutdown(shutdownCtx)

	return nil
}

func runListener(srv *http.Server, tlsCert, tlsKey string) error {
	if tlsCert != "" && tlsKey != "" {
		return srv.ListenAndServeTLS(tlsCert, tlsKey)
	}
	return srv.ListenAndServe()
}

func buildServer(ctx context.Context, cfg config.Config) (*server, error) {
	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.TracingEnabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: version.Version,
		Environment:    "production",
		SamplingRate:   1.0,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	templates, err := templatestore.Open(cfg.TemplateStoreDir, cfg.TemplateStoreBadger)
	if err != nil {
		return nil, fmt.Errorf("open template store: %w", err)
	}

	cacheBackend, err := buildCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}

	var auditDB *audit.Store
	if cfg.AuditEnabled {
		auditDB, err = audit.Open(cfg.AuditDBPath)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
	}

	holder := config.NewHolder(cfg, config.NewLoader(configPath, version.Version))

	return &server{
		cfg:          cfg,
		holder:       holder,
		tracer:       provider,
		templates:    templates,
		auditDB:      auditDB,
		cacheBackend: cacheBackend,
	}, nil
}

func buildCache(cfg config.Config) (cache.Cache, error) {
	if cfg.RedisAddr == "" {
		return cache.NewMemoryCache(time.Minute), nil
	}
	return cache.NewRedisCache(cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, log.WithComponent("cache"))
}

func buildFetcher(cfg config.Config) *upstream.Fetcher {
	limiter := ratelimit.New(ratelimit.Config{
		PerHostRate:     rate.Limit(cfg.OutboundRatePerHost),
		PerHostBurst:    cfg.OutboundBurstPerHost,
		CleanupInterval: 5 * time.Minute,
	})

	fetcher := upstream.NewFetcher(&http.Client{}, limiter, cfg.ForwardedHeaderOrg)
	if cfg.OutboundAllowlistEnabled {
		fetcher.WithOutboundPolicy(&netutil.OutboundPolicy{
			Enabled: true,
			Allow: netutil.OutboundAllowlist{
				Hosts:   cfg.OutboundAllowedHosts,
				CIDRs:   cfg.OutboundAllowedCIDRs,
				Ports:   cfg.OutboundAllowedPorts,
				Schemes: cfg.OutboundAllowedSchemes,
			},
		})
	}
	return fetcher
}

func buildCoordinator(cfg config.Config, srv *server, fetcher *upstream.Fetcher) *coordinator.Coordinator {
	contexts := contextstore.New(srv.cacheBackend)
	coord := coordinator.New(srv.templates, contexts, fetcher, coordinator.Config{
		PipeName:        cfg.PipeInstanceName,
		InlineTimeoutMs: int(cfg.InlineTimeout.Milliseconds()),
		AsyncTimeoutMs:  int(cfg.AsyncTimeout.Milliseconds()),
	})
	if srv.auditDB != nil {
		coord.Recorder = srv.auditDB
	}
	return coord
}

func buildMainRouter(cfg config.Config, coord *coordinator.Coordinator) http.Handler {
	trustedProxies, err := middleware.ParseCIDRs(cfg.TrustedProxyCIDRs)
	if err != nil {
		trustedProxies = nil
	}

	r := middleware.NewRouter(middleware.StackConfig{
		EnableCORS:            len(cfg.AllowedOrigins) > 0,
		AllowedOrigins:        cfg.AllowedOrigins,
		CORSAllowCredentials:  cfg.AllowCredentials,
		EnableSecurityHeaders: true,
		CSP:                   cfg.ContentSecurityPol,
		TrustedProxies:        trustedProxies,
		EnableMetrics:         true,
		TracingService:        tracingServiceName(cfg),
		EnableLogging:         true,
		EnableRateLimit:       cfg.RateLimitEnabled,
		RateLimitEnabled:      cfg.RateLimitEnabled,
		RateLimitGlobalRPS:    cfg.RateLimitRPS,
		RateLimitBurst:        cfg.RateLimitBurst,
		RateLimitWhitelist:    cfg.RateLimitWhitelist,
	})
	r.Get("/*", coord.Handle)
	return r
}

func buildAdminRouter(cfg config.Config, holder *config.Holder, srv *server) (http.Handler, error) {
	admin, err := adminapi.New(holder)
	if err != nil {
		return nil, err
	}

	manager := health.NewManager(version.Version)
	manager.RegisterChecker(health.NewFuncChecker("template_dir", func(ctx context.Context) health.CheckResult {
		info, err := os.Stat(cfg.TemplateDir)
		if err != nil {
			return health.CheckResult{Status: health.StatusUnhealthy, Error: err.Error()}
		}
		if !info.IsDir() {
			return health.CheckResult{Status: health.StatusUnhealthy, Error: "expected directory, got file"}
		}
		return health.CheckResult{Status: health.StatusHealthy, Message: "directory exists"}
	}))
	manager.RegisterChecker(health.NewFuncChecker("cache", func(ctx context.Context) health.CheckResult {
		stats := srv.cacheBackend.Stats()
		return health.CheckResult{Status: health.StatusHealthy, Message: fmt.Sprintf("entries=%d hits=%d misses=%d", stats.CurrentSize, stats.Hits, stats.Misses)}
	}))

	r := chi.NewRouter()
	mux := http.NewServeMux()
	admin.Routes(mux)
	r.Get("/livez", manager.ServeHealth)
	r.Get("/readyz", manager.ServeReady)
	r.Mount("/debug/", mux)
	return r, nil
}

func runAuditPruner(ctx context.Context, store *audit.Store, retention time.Duration) {
	logger := log.WithComponent("audit-pruner")
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.Prune(ctx, time.Now(), retention)
			if err != nil {
				logger.Warn().Err(err).Msg("audit prune failed")
				continue
			}
			if n > 0 {
				logger.Info().Int64("rows_pruned", n).Msg("pruned audit log")
			}
		}
	}
}

func (s *server) shutdown(logger zerolog.Logger) {
	s.holder.Stop()
	if err := s.templates.Close(); err != nil {
		logger.Warn().Err(err).Msg("template store close failed")
	}
	if s.auditDB != nil {
		if err := s.auditDB.Close(); err != nil {
			logger.Warn().Err(err).Msg("audit log close failed")
		}
	}
	if closer, ok := s.cacheBackend.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Warn().Err(err).Msg("cache backend close failed")
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.tracer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("tracer shutdown failed")
	}
}

func tracingServiceName(cfg config.Config) string {
	if !cfg.TracingEnabled {
		return ""
	}
	return cfg.LogService
}
