package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/openlearnhq/learning-paths/api/routes"
	"github.com/openlearnhq/learning-paths/internal/credentials"
	"github.com/openlearnhq/learning-paths/internal/enrollments"
	"github.com/openlearnhq/learning-paths/internal/groupsync"
	"github.com/openlearnhq/learning-paths/internal/hostlms"
	"github.com/openlearnhq/learning-paths/internal/milestones"
	"github.com/openlearnhq/learning-paths/internal/paths"
	"github.com/openlearnhq/learning-paths/pkg/config"
	"github.com/openlearnhq/learning-paths/pkg/db"
	"github.com/openlearnhq/learning-paths/pkg/dispatch"
	"github.com/openlearnhq/learning-paths/pkg/logger"
	"github.com/openlearnhq/learning-paths/pkg/metrics"
	"github.com/openlearnhq/learning-paths/pkg/migrate"
	"github.com/openlearnhq/learning-paths/pkg/outbox"
	"github.com/openlearnhq/learning-paths/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	}

	hostClient, err := newHostClient(cfg, redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create host lms client", err)
		os.Exit(1)
	}

	mode, err := dispatch.ParseMode(cfg.Dispatch.Mode)
	if err != nil {
		logg.Error(context.Background(), "failed to parse dispatch mode", err)
		os.Exit(1)
	}

	enrollmentMetrics := metrics.NewEnrollmentMetrics(prometheus.DefaultRegisterer)
	eventService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	var revoker enrollments.CredentialRevoker
	if cfg.Credentials.BaseURL != "" {
		credentialsClient, err := credentials.NewClient(cfg.Credentials, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create credentials client", err)
			os.Exit(1)
		}
		revoker = credentialsClient
	}

	pathsService, err := paths.NewService(paths.Deps{
		DB:     dbClient,
		Host:   hostClient,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create paths service", err)
		os.Exit(1)
	}

	enrollmentsService, err := enrollments.NewService(enrollments.Deps{
		DB:           dbClient,
		StateMachine: enrollments.NewStateMachine(logg, enrollmentMetrics),
		Host:         hostClient,
		Events:       eventService,
		Revoker:      revoker,
		Mode:         mode,
		Logger:       logg,
		Metrics:      enrollmentMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create enrollments service", err)
		os.Exit(1)
	}

	groupsyncService, err := groupsync.NewService(groupsync.Deps{
		DB:      dbClient,
		Host:    hostClient,
		Logger:  logg,
		Metrics: enrollmentMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create group sync service", err)
		os.Exit(1)
	}

	milestonesService, err := milestones.NewService(milestones.Deps{
		Host:   hostClient,
		DB:     dbClient,
		Events: eventService,
		Mode:   mode,
		Config: cfg.Milestones,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create milestones service", err)
		os.Exit(1)
	}

	addr := ":" + cfg.App.Port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			pathsService,
			enrollmentsService,
			groupsyncService,
			milestonesService,
		),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}
}

// newHostClient wires the REST client, wrapped in the grade cache when redis
// is available.
func newHostClient(cfg *config.Config, redisClient *redis.Client, logg *logger.Logger) (hostlms.Client, error) {
	restClient, err := hostlms.NewRESTClient(cfg.HostLMS, logg)
	if err != nil {
		return nil, err
	}
	if redisClient == nil {
		return restClient, nil
	}
	return hostlms.NewCachedClient(restClient, redisClient, cfg.Redis.GradeTTL, logg), nil
}
