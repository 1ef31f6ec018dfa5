package router // package router defines how HTTP routes are registered for the API

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/iliyamo/grading-api/internal/handler"
	"github.com/iliyamo/grading-api/internal/metrics"
	"github.com/iliyamo/grading-api/internal/middleware"
)

// Configure installs the pieces every route shares: validation, the error
// renderer, request ids, panic recovery, request logs and metrics.
func Configure(e *echo.Echo, log *slog.Logger, rec metrics.Recorder) {
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(log)

	e.Use(middleware.RequestID())
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.RequestMetrics(rec))
}

// RegisterRoutes registers the routes that need no authentication: the
// status check and, when gatherer is non-nil, the Prometheus scrape
// endpoint.
func RegisterRoutes(e *echo.Echo, gatherer prometheus.Gatherer) {
	e.GET("/", handler.Status)
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler(gatherer)))
	}
}

// RegisterAuth registers the two step login.  Both endpoints are public
// and rate limited; /profile requires a bearer token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, auth, limiter echo.MiddlewareFunc) {
	e.POST("/login", a.Login, limiter)
	e.POST("/authenticate", a.Authenticate, limiter)
	e.GET("/profile", a.Profile, auth)
}
