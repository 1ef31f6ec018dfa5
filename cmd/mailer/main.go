// Command mailer consumes login tokens published by the API and delivers
// them by email.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/iliyamo/grading-api/internal/config"
	"github.com/iliyamo/grading-api/internal/logging"
	"github.com/iliyamo/grading-api/internal/mailer"
	"github.com/iliyamo/grading-api/internal/queue"
)

func main() {
	cfg, err := config.LoadMailer()
	if err != nil {
		slog.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}
	log := logging.SetupDefault(os.Stdout, cfg.LogLevelValue())

	var n mailer.Notifier = mailer.NewConsoleNotifier(log)
	if cfg.SendGridAPIKey != "" {
		n = mailer.NewSendGridNotifier(cfg.SendGridAPIKey, cfg.EmailFrom)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := &queue.Consumer{URL: cfg.RabbitMQURL, Queue: cfg.EmailTokenQueue, Notifier: n, Log: log}
	log.Info("email consumer starting", slog.String("queue", cfg.EmailTokenQueue))
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("email consumer stopped", slog.Any("err", err))
		os.Exit(1)
	}
}
