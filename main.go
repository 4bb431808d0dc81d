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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	v1 "github.com/tim7en/pm-app-sub001/api/v1"
	"github.com/tim7en/pm-app-sub001/config"
	"github.com/tim7en/pm-app-sub001/database"
	"github.com/tim7en/pm-app-sub001/lifecycle"
	"github.com/tim7en/pm-app-sub001/logger"
	"github.com/tim7en/pm-app-sub001/repositories"
	"github.com/tim7en/pm-app-sub001/retention"
	"github.com/tim7en/pm-app-sub001/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	envErr := config.LoadEnv()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	if envErr != nil {
		log.Warn().Err(envErr).Msg("no .env file loaded, using process environment")
	}

	// Connect to database
	conn, err := database.Open(database.Options{
		Driver:          cfg.DBDriver,
		URL:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	}, log)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Error().Err(err).Msg("closing database")
		}
	}()

	if err := conn.Migrate(); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	registry, err := loadRegistry(cfg.CascadeConfig)
	if err != nil {
		return err
	}
	log.Info().
		Str("source", registrySource(cfg.CascadeConfig)).
		Int("entity_types", len(registry.Types())).
		Int("max_depth", registry.MaxDepth()).
		Msg("cascade registry loaded")

	adapters, err := repositories.NewAdapters(conn.DB)
	if err != nil {
		return fmt.Errorf("creating adapters: %w", err)
	}

	metricsRegistry := prometheus.NewRegistry()
	metricsRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	operator, err := lifecycle.NewOperator(registry, adapters,
		lifecycle.WithLogger(log),
		lifecycle.WithMetrics(lifecycle.NewMetrics(metricsRegistry)),
		lifecycle.WithCascadeConcurrency(cfg.CascadeConcurrency),
		lifecycle.WithConflictRetries(cfg.ConflictRetries, 10*time.Millisecond),
	)
	if err != nil {
		return fmt.Errorf("creating lifecycle operator: %w", err)
	}

	sweeper, err := retention.NewSweeper(registry, adapters, &retention.Config{
		RetentionDays: cfg.RetentionDays,
		BatchSize:     cfg.RetentionBatchSize,
		MaxBatches:    cfg.RetentionMaxBatches,
		Schedule:      cfg.RetentionSchedule,
		ArchiveDir:    cfg.RetentionArchiveDir,
	},
		retention.WithLogger(log),
		retention.WithMetrics(retention.NewMetrics(metricsRegistry)),
	)
	if err != nil {
		return fmt.Errorf("creating retention sweeper: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := retention.NewScheduler(sweeper)
	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("starting retention scheduler: %w", err)
	}
	defer scheduler.Stop()

	router := newRouter(cfg, log, conn, scheduler, services.NewEntityService(operator, sweeper), metricsRegistry)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serving http: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

func newRouter(cfg *config.Config, log zerolog.Logger, conn *database.DBConnection, scheduler *retention.Scheduler, entities *services.EntityService, metrics *prometheus.Registry) *gin.Engine {
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	// CORS configuration
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.CORSOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	} else {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	}
	router.Use(cors.New(corsConfig))

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics, promhttp.HandlerOpts{})))

	v1.RegisterRoutes(router.Group("/api/v1"),
		v1.NewHealthHandler(conn, scheduler),
		v1.NewEntityHandler(entities),
		cfg.JWTSecret,
	)
	return router
}

// requestLogger writes one structured entry per request
func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	log = log.With().Str("component", "http").Logger()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := log.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

func loadRegistry(path string) (*lifecycle.Registry, error) {
	if path == "" {
		return lifecycle.DefaultRegistry(), nil
	}
	registry, err := lifecycle.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("loading cascade config %s: %w", path, err)
	}
	return registry, nil
}

func registrySource(path string) string {
	if path == "" {
		return "builtin"
	}
	return path
}
