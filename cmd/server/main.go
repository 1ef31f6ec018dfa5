package main // Entry point package for the API server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/iliyamo/grading-api/internal/config"
	"github.com/iliyamo/grading-api/internal/database"
	"github.com/iliyamo/grading-api/internal/logging"
	"github.com/iliyamo/grading-api/internal/mailer"
	"github.com/iliyamo/grading-api/internal/router"
	"github.com/iliyamo/grading-api/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.Any("err", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logging.SetupDefault(os.Stdout, cfg.LogLevelValue())

	db, err := database.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	err = database.Migrate(ctx, db, cfg.DBDriver)
	cancel()
	if err != nil {
		return err
	}

	var reg *prometheus.Registry
	if cfg.MetricsEnabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	} else {
		log.Info("redis not configured, login rate limit is per process")
	}

	e := router.New(router.Options{
		DB:       db,
		Notifier: selectNotifier(cfg, log),
		Auth: service.AuthConfig{
			Secret:        cfg.JWTSecret,
			EmailTokenTTL: cfg.EmailTokenTTL,
			APITokenTTL:   cfg.APITokenTTL,
		},
		RateLimit: config.LoadRateLimitConfig(),
		Redis:     rdb,
		Registry:  reg,
		Log:       log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Info("API server starting", slog.String("addr", server.Addr), slog.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}
	log.Info("shutting down API server")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()
	return server.Shutdown(shutdownCtx)
}

// selectNotifier picks the queue when a broker is configured, SendGrid
// when a key is present and the console otherwise.
func selectNotifier(cfg config.Config, log *slog.Logger) mailer.Notifier {
	switch {
	case cfg.RabbitMQURL != "":
		log.Info("login tokens are published to RabbitMQ", slog.String("queue", cfg.EmailTokenQueue))
		return &service.QueueNotifier{URL: cfg.RabbitMQURL, Queue: cfg.EmailTokenQueue, TTL: cfg.EmailTokenTTL, Log: log}
	case cfg.SendGridAPIKey != "":
		return mailer.NewSendGridNotifier(cfg.SendGridAPIKey, cfg.EmailFrom)
	default:
		log.Warn("no email provider configured, login tokens are written to the log")
		return mailer.NewConsoleNotifier(log)
	}
}
