package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/b0vik/subgencluster-api-server/config"
	"github.com/b0vik/subgencluster-api-server/internal/adapters/blobstore"
	"github.com/b0vik/subgencluster-api-server/internal/core"
	"github.com/b0vik/subgencluster-api-server/internal/data"
	"github.com/b0vik/subgencluster-api-server/internal/observability/statsd"
	"github.com/b0vik/subgencluster-api-server/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Jobs    *service.JobService
	Auth    *service.AuthService
	Sweeper *service.SweeperService

	// Cache backs the HTTP rate limiter and the API-key lookup cache.
	Cache core.CacheRepository

	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink   *statsd.Client
	MetricsConfig config.MetricsConfig
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	DB          *sql.DB
	Redis       redis.UniversalClient
	JobRepo     *data.JobRepo
	AccountRepo *data.AccountRepo
	CacheRepo   *data.RedisCacheRepo
}

// buildObservability configures the metrics sink.
func buildObservability(logger *slog.Logger, cfg config.MetricsConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.StatsdAddress,
			Prefix:  cfg.Prefix,
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	return ObservabilityContainer{
		MetricsSink:   metricsSink,
		MetricsConfig: cfg,
	}
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(db *sql.DB, redisClient redis.UniversalClient, logger *slog.Logger) *serviceRepositories {
	repoCfg := data.RepoConfig{Logger: logger}

	return &serviceRepositories{
		DB:          db,
		Redis:       redisClient,
		JobRepo:     data.NewJobRepo(db, repoCfg),
		AccountRepo: data.NewAccountRepo(db, repoCfg),
		CacheRepo:   data.NewRedisCacheRepo(redisClient),
	}
}

// NewServices creates all application services with their dependencies.
func NewServices(deps ServiceDeps) (ServiceContainer, error) {
	if deps.Config == nil {
		return ServiceContainer{}, errors.New("app config is required")
	}
	if deps.DB == nil {
		return ServiceContainer{}, errors.New("database connection is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	repos := buildRepositories(deps.DB, deps.RedisClient, logger)
	observability := buildObservability(logger, deps.Config.Metrics)

	payloads, err := blobstore.NewFilesystemStore(deps.Config.Broker.PayloadDir, logger)
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create payload store: %w", err)
	}

	jobs, err := service.NewJobService(service.JobServiceOptions{
		Repo:     repos.JobRepo,
		Payloads: payloads,
		Logger:   logger,
		Metrics:  observability.MetricsSink,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create job service: %w", err)
	}

	auth, err := service.NewAuthService(service.AuthServiceOptions{
		Accounts: repos.AccountRepo,
		Cache:    repos.CacheRepo,
		CacheTTL: deps.Config.Broker.APIKeyCacheTTL,
		Logger:   logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create auth service: %w", err)
	}

	container := ServiceContainer{
		Jobs:          jobs,
		Auth:          auth,
		Cache:         repos.CacheRepo,
		Observability: observability,
	}

	if deps.Config.IsSweeperEnabled() {
		sweeper, sweeperErr := service.NewSweeperService(service.SweeperServiceOptions{
			Repo:    repos.JobRepo,
			Config:  deps.Config.Sweeper,
			Logger:  logger,
			Metrics: observability.MetricsSink,
		})
		if sweeperErr != nil {
			return ServiceContainer{}, fmt.Errorf("create sweeper service: %w", sweeperErr)
		}
		container.Sweeper = sweeper
	}

	return container, nil
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

const (
	// shutdownWaitTimeout is the maximum time to wait for services to stop gracefully.
	shutdownWaitTimeout = 15 * time.Second
)

// serviceStartupDeps groups dependencies for service startup.
type serviceStartupDeps struct {
	ctx             context.Context
	cfg             *ServiceOrchestrationConfig
	logger          *slog.Logger
	enabledServices map[config.ServiceMode]bool
	errCh           chan error
}

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	mode config.ServiceMode
	name string
	done <-chan struct{}
}

// startupResult holds the handles produced by service startup.
type startupResult struct {
	HTTPServer *http.Server
	Background []backgroundServiceHandle
}

// startHTTPServerIfEnabled starts the HTTP server if enabled.
func startHTTPServerIfEnabled(deps *serviceStartupDeps) *http.Server {
	if deps == nil || deps.cfg == nil || !deps.enabledServices[config.ServiceModeHTTP] {
		return nil
	}
	return StartHTTPServer(&HTTPServerConfig{
		Config:   deps.cfg.Config,
		Services: deps.cfg.Services,
		Logger:   deps.logger,
	})
}

func launchBackground(ctx context.Context, deps *serviceStartupDeps, descriptor backgroundService) <-chan struct{} {
	if deps == nil || !deps.enabledServices[descriptor.mode] {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := descriptor.start(ctx); err != nil {
			errMsg := fmt.Errorf("%s failed: %w", descriptor.name, err)
			select {
			case deps.errCh <- errMsg:
			case <-ctx.Done():
			default:
				deps.logger.WarnContext(ctx, "dropping background service error", "service", descriptor.name, "error", errMsg)
			}
		}
	}()

	deps.logger.InfoContext(ctx, "background service started", "service", descriptor.name, "mode", descriptor.mode)

	return done
}

func startBackgroundServices(deps *serviceStartupDeps, services []backgroundService) []backgroundServiceHandle {
	if deps == nil {
		return nil
	}
	handles := make([]backgroundServiceHandle, 0, len(services))

	for _, svc := range services {
		done := launchBackground(deps.ctx, deps, svc)
		if done == nil {
			continue
		}

		handles = append(handles, backgroundServiceHandle{
			mode: svc.mode,
			name: svc.name,
			done: done,
		})
	}

	return handles
}

func newSweeperBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeSweeper,
		name: "stuck-job sweeper",
		start: func(ctx context.Context) error {
			if deps == nil || deps.cfg.Services.Sweeper == nil {
				return errors.New("sweeper service is not configured")
			}
			return deps.cfg.Services.Sweeper.Run(ctx)
		},
	}
}

func startServices(deps *serviceStartupDeps) startupResult {
	server := startHTTPServerIfEnabled(deps)

	backgrounds := startBackgroundServices(deps, []backgroundService{
		newSweeperBackgroundService(deps),
	})

	return startupResult{
		HTTPServer: server,
		Background: backgrounds,
	}
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// This function blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	ctx := context.Background()
	serviceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}

	// Determine which services are enabled
	enabledServices, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}
	errCh := make(chan error, errorChannelBufferSize(enabledServices))

	// Start all enabled services
	result := startServices(&serviceStartupDeps{
		ctx:             serviceCtx,
		cfg:             cfg,
		logger:          logger,
		enabledServices: enabledServices,
		errCh:           errCh,
	})

	// Wait for shutdown signal or error
	return waitForShutdown(shutdownConfig{
		cancel:      cancel,
		errCh:       errCh,
		httpServer:  result.HTTPServer,
		httpConfig:  cfg.Config.HTTP,
		logger:      logger,
		backgrounds: result.Background,
		metricsSink: cfg.Services.Observability.MetricsSink,
	})
}

func errorChannelCapacity(enabled map[config.ServiceMode]bool) int {
	modes := []config.ServiceMode{
		config.ServiceModeHTTP,
		config.ServiceModeSweeper,
	}

	count := 0
	for _, mode := range modes {
		if enabled[mode] {
			count++
		}
	}
	return count
}

func errorChannelBufferSize(enabled map[config.ServiceMode]bool) int {
	size := errorChannelCapacity(enabled) + 1
	if size < 1 {
		return 1
	}
	return size
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	cancel      context.CancelFunc
	errCh       <-chan error
	httpServer  *http.Server
	httpConfig  config.HTTPConfig
	logger      *slog.Logger
	backgrounds []backgroundServiceHandle
	metricsSink *statsd.Client
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		cfg.cancel() // Cancel service context before waiting
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel() // Cancel service context before waiting
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop stops the HTTP server and background services in parallel.
func gracefulStop(cfg shutdownConfig) error {
	var g errgroup.Group

	if cfg.httpServer != nil {
		g.Go(func() error {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWaitTimeout)
			defer cancel()

			return ShutdownHTTPServer(ShutdownConfig{
				Context: shutdownCtx,
				Server:  cfg.httpServer,
				HTTP:    cfg.httpConfig,
				Logger:  cfg.logger,
			})
		})
	}

	for _, svc := range cfg.backgrounds {
		g.Go(func() error {
			waitForService(svc.done, svc.name, cfg.logger)
			return nil
		})
	}

	err := g.Wait()

	if cfg.metricsSink != nil {
		if closeErr := cfg.metricsSink.Close(); closeErr != nil {
			cfg.logger.Warn("close metrics sink", "error", closeErr)
		}
	}

	return err
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
