package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asakaida/filmrate/internal/handlers"
	cacheinval "github.com/asakaida/filmrate/internal/infrastructure/cache"
	"github.com/asakaida/filmrate/internal/infrastructure/config"
	"github.com/asakaida/filmrate/internal/infrastructure/database"
	"github.com/asakaida/filmrate/internal/infrastructure/events"
	"github.com/asakaida/filmrate/internal/infrastructure/logging"
	"github.com/asakaida/filmrate/internal/infrastructure/metrics"
	"github.com/asakaida/filmrate/internal/repositories"
	"github.com/asakaida/filmrate/internal/repositories/cached"
	"github.com/asakaida/filmrate/internal/repositories/memory"
	"github.com/asakaida/filmrate/internal/repositories/postgres"
	"github.com/asakaida/filmrate/internal/services"
	"github.com/asakaida/filmrate/internal/services/aggregation"
	"github.com/asakaida/filmrate/internal/services/relations"
	"github.com/asakaida/filmrate/pkg/cache"
	"github.com/asakaida/filmrate/pkg/cache/memorycache"
	"github.com/asakaida/filmrate/pkg/cache/rediscache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const (
	defaultEnv          = "dev"
	shutdownTimeout     = 30 * time.Second
	healthCheckInterval = 15 * time.Second
)

func main() {
	// Get environment from ENV variable or use default
	env := os.Getenv("ENV")
	if env == "" {
		env = defaultEnv
	}

	// Initialize configuration
	if err := config.InitConfig(env); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize config: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log, os.Stdout)
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped with error")
	}
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx := context.Background()

	// Storage
	var (
		store repositories.Store
		pg    *database.Postgres
	)
	switch cfg.Store.Backend {
	case config.StorePostgres:
		var err error
		pg, err = database.NewPostgres(ctx, &cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pg.Close()

		migrationsPath, err := database.MigrationsPath()
		if err != nil {
			return err
		}
		if err := pg.RunMigrations(migrationsPath); err != nil {
			return err
		}
		logger.Info().
			Str("user", cfg.Database.User).
			Str("host", cfg.Database.Host).
			Int("port", cfg.Database.Port).
			Str("database", cfg.Database.Database).
			Msg("connected to database")
		store = postgres.NewPostgresStore(pg.DB)
	default:
		logger.Info().Msg("using in-memory store")
		store = memory.NewStore()
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector()
	exporter := metrics.NewPrometheusExporter(registry, collector)
	recorder := &metrics.Recorder{Collector: collector, Exporter: exporter}

	// Record cache
	if cfg.Cache.Enabled {
		recordCache, err := newCache(ctx, &cfg.Cache)
		if err != nil {
			return err
		}
		defer recordCache.Close()

		collector.SetCache(recordCache)
		cachedStore := cached.NewStore(store, recordCache, logger)
		cachedStore.SetObserver(recorder)

		// Instances sharing PostgreSQL evict each other's in-process entries
		if pg != nil && cfg.Cache.Backend == config.CacheMemory {
			invalidator := cacheinval.NewInvalidator(pg.DB, cfg.Database.ConnectionString(), cachedStore, logger)
			if err := invalidator.Start(); err != nil {
				return err
			}
			defer invalidator.Stop()
			cachedStore.SetBroadcaster(invalidator)
		}
		store = cachedStore
		logger.Info().Str("backend", cfg.Cache.Backend).Dur("ttl", cfg.Cache.TTL()).Msg("record cache enabled")
	}

	// Feed event publishing
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.NATSEnabled {
		natsPublisher, err := events.NewNATSPublisher(events.NATSConfig{
			URL:           cfg.Events.NATSURL,
			SubjectPrefix: cfg.Events.SubjectPrefix,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		publisher = natsPublisher
	}
	defer publisher.Close()

	// Services
	engine := relations.NewEngine(store, publisher, logger)
	engine.SetObserver(recorder)
	aggregator := aggregation.NewAggregator(store)

	handler := handlers.NewFilmRateHandler(
		services.NewPersonService(store, engine),
		services.NewFilmService(store, engine),
		services.NewTagService(store, engine),
		services.NewReviewService(store, engine, aggregator),
		aggregator,
		cfg.Query.PopularDefaultLimit,
	)

	// gRPC server
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logging.UnaryServerInterceptor(logger),
			metrics.UnaryServerInterceptor(collector, exporter),
		),
	)
	handlers.RegisterFilmRateServer(grpcServer, handler)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(handlers.ServiceName, healthpb.HealthCheckResponse_SERVING)

	// Register reflection service (for grpcurl, etc.)
	reflection.Register(grpcServer)

	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler:           exporter.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrors := make(chan error, 2)
	go func() {
		logger.Info().Str("addr", listener.Addr().String()).Msg("gRPC server listening")
		if err := grpcServer.Serve(listener); err != nil {
			serverErrors <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()
	go func() {
		logger.Info().Str("addr", metricsServer.Addr).Msg("metrics server listening")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("metrics server error: %w", err)
		}
	}()

	monitorCtx, stopMonitor := context.WithCancel(ctx)
	defer stopMonitor()
	go monitor(monitorCtx, pg, healthServer, exporter, logger)

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		grpcServer.Stop()
		return err
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("initiating graceful shutdown")
	}

	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		logger.Info().Msg("gRPC server stopped gracefully")
	case <-shutdownCtx.Done():
		logger.Warn().Msg("shutdown timeout exceeded, forcing stop")
		grpcServer.Stop()
	}

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error stopping metrics server")
	}

	logger.Info().Msg("shutdown complete")
	return nil
}

func newCache(ctx context.Context, cfg *config.CacheConfig) (cache.Cache, error) {
	if cfg.Backend == config.CacheRedis {
		c, err := rediscache.New(ctx, &rediscache.Config{
			Addr:       cfg.RedisAddr,
			Password:   cfg.RedisPassword,
			DB:         cfg.RedisDB,
			DefaultTTL: cfg.TTL(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return c, nil
	}
	return memorycache.New(&memorycache.Config{
		MaxSizeBytes: cfg.MaxMemoryBytes,
		DefaultTTL:   cfg.TTL(),
	}), nil
}

// monitor refreshes gauges and reports database health until ctx is done
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func monitor(ctx context.Context, pg *database.Postgres, healthServer *health.Server, exporter *metrics.PrometheusExporter, logger zerolog.Logger) {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		exporter.Update()
		if pg == nil {
			continue
		}

		state := healthpb.HealthCheckResponse_SERVING
		if err := pg.HealthCheck(ctx); err != nil {
			logger.Error().Err(err).Msg("database health check failed")
			state = healthpb.HealthCheckResponse_NOT_SERVING
		}
		healthServer.SetServingStatus(handlers.ServiceName, state)
	}
}
