package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/contentforge/contentforge-backend/api/responses"
	"github.com/contentforge/contentforge-backend/pkg/bigquery"
	"github.com/contentforge/contentforge-backend/pkg/config"
	"github.com/contentforge/contentforge-backend/pkg/db"
	pkgerrors "github.com/contentforge/contentforge-backend/pkg/errors"
	"github.com/contentforge/contentforge-backend/pkg/logger"
	"github.com/contentforge/contentforge-backend/pkg/redis"
	"github.com/contentforge/contentforge-backend/pkg/storage/gcs"
)

const readyCheckTimeout = 5 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ContentForge-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the hard dependencies. Optional clients that were never
// wired are skipped rather than failing readiness.
func HealthReady(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	gcsP gcs.Pinger,
	bigqueryP bigquery.Pinger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ContentForge-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		defer cancel()

		checks := map[string]string{}
		failed := false

		check := func(name string, ping func(context.Context) error) {
			if ping == nil {
				checks[name] = "skipped"
				return
			}
			if err := ping(ctx); err != nil {
				checks[name] = "down"
				failed = true
				if logg != nil {
					logg.Error(ctx, "readiness check failed: "+name, err)
				}
				return
			}
			checks[name] = "up"
		}

		if dbP != nil {
			check("db", dbP.Ping)
		} else {
			checks["db"] = "skipped"
		}
		if redisP != nil {
			check("redis", redisP.Ping)
		} else {
			checks["redis"] = "skipped"
		}
		if gcsP != nil {
			check("gcs", gcsP.Ping)
		} else {
			checks["gcs"] = "skipped"
		}
		if bigqueryP != nil {
			check("bigquery", bigqueryP.Ping)
		} else {
			checks["bigquery"] = "skipped"
		}

		if failed {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
