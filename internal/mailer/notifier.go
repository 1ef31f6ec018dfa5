// Package mailer delivers login tokens to users.  The API process picks one
// Notifier at startup: the RabbitMQ queue when a broker is configured,
// SendGrid when an API key is present, otherwise the console.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
)

// Notifier sends an emailed login token to its recipient.
type Notifier interface {
	SendEmailToken(ctx context.Context, email, token string) error
}

// ConsoleNotifier writes the token to the log instead of sending mail.  It
// is meant for local development.
type ConsoleNotifier struct {
	log *slog.Logger
}

// NewConsoleNotifier returns a ConsoleNotifier writing to log, or to the
// default logger when log is nil.
func NewConsoleNotifier(log *slog.Logger) *ConsoleNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &ConsoleNotifier{log: log}
}

func (n *ConsoleNotifier) SendEmailToken(ctx context.Context, email, token string) error {
	n.log.WarnContext(ctx, "email delivery not configured, printing login token",
		slog.String("email", email), slog.String("token", token))
	return nil
}

func subject() string { return "Your login token" }

func plainBody(token string) string {
	return fmt.Sprintf("Your login token is %s. It expires in a few minutes and can be used once.", token)
}
