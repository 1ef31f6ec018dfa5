package router

import (
	"database/sql"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/grading-api/internal/config"
	"github.com/iliyamo/grading-api/internal/handler"
	"github.com/iliyamo/grading-api/internal/mailer"
	"github.com/iliyamo/grading-api/internal/metrics"
	"github.com/iliyamo/grading-api/internal/middleware"
	"github.com/iliyamo/grading-api/internal/repository"
	"github.com/iliyamo/grading-api/internal/service"
)

// Options carries everything New needs.  Redis and Registry are optional:
// without Redis the login rate limit is per process, without a Registry
// no metrics are collected and /metrics is not served.
type Options struct {
	DB        *sql.DB
	Notifier  mailer.Notifier
	Auth      service.AuthConfig
	RateLimit config.RateLimitConfig
	Redis     *redis.Client
	Registry  *prometheus.Registry
	Log       *slog.Logger
}

// New wires repositories, services, middleware and handlers into an Echo
// instance ready to Start.
func New(opts Options) *echo.Echo {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	var rec metrics.Recorder = metrics.Nop{}
	var gatherer prometheus.Gatherer
	if opts.Registry != nil {
		rec = metrics.NewCollector(opts.Registry)
		gatherer = opts.Registry
	}

	users := repository.NewUserRepo(opts.DB)
	tokens := repository.NewTokenRepo(opts.DB)
	members := repository.NewMembershipRepo(opts.DB)
	collections := repository.NewCollectionRepo(opts.DB)
	records := repository.NewRecordRepo(opts.DB)
	rates := repository.NewRecordRateRepo(opts.DB)

	authSvc := service.NewAuthService(users, tokens, members, opts.Notifier, opts.Auth, rec, log)
	bearer := middleware.BearerAuth(authSvc)
	guard := middleware.NewGuard(records, rates, rec, log)
	limiter := middleware.NewTokenBucket(opts.RateLimit, opts.Redis, log)

	e := echo.New()
	Configure(e, log, rec)
	RegisterRoutes(e, gatherer)
	RegisterAuth(e, handler.NewAuthHandler(authSvc, users), bearer, limiter)
	RegisterUsers(e, bearer, guard,
		handler.NewUserHandler(users, tokens, rates),
		handler.NewUserCollectionHandler(collections, members))
	RegisterCollections(e, bearer, guard,
		handler.NewCollectionHandler(collections, records),
		handler.NewRecordHandler(records),
		handler.NewRecordRateHandler(rates))
	return e
}
