package controllers

import (
	"net/http"

	"github.com/openlearnhq/learning-paths/api/responses"
	"github.com/openlearnhq/learning-paths/pkg/config"
	"github.com/openlearnhq/learning-paths/pkg/db"
	pkgerrors "github.com/openlearnhq/learning-paths/pkg/errors"
	"github.com/openlearnhq/learning-paths/pkg/logger"
	"github.com/openlearnhq/learning-paths/pkg/redis"
)

const envHeader = "X-LearnPaths-Env"

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the backing services. Redis is optional; a nil client is
// skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		ctx := r.Context()

		if dbP != nil {
			if err := dbP.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unreachable"))
				return
			}
		}
		if redisClient != nil {
			if err := redisClient.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unreachable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
