package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/grading-api/internal/queue"
)

// QueueNotifier publishes login tokens to RabbitMQ for cmd/mailer to
// deliver.  It satisfies mailer.Notifier.
type QueueNotifier struct {
	URL   string
	Queue string
	TTL   time.Duration // copied into the event so stale messages are dropped
	Log   *slog.Logger
}

// SendEmailToken publishes a LoginTokenEvent to the durable token queue.
// Each call dials its own connection; login traffic is low and a broken
// connection never outlives one request.  Errors are logged and returned.
func (p *QueueNotifier) SendEmailToken(ctx context.Context, email, token string) error {
	log := p.Log
	if log == nil {
		log = slog.Default()
	}
	name := p.Queue
	if name == "" {
		name = queue.EmailTokenQueue
	}

	conn, err := amqp.Dial(p.URL)
	if err != nil {
		log.ErrorContext(ctx, "rabbitmq: dial failed", slog.Any("err", err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.ErrorContext(ctx, "rabbitmq: channel open failed", slog.Any("err", err))
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable so pending logins survive a broker restart.
	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		log.ErrorContext(ctx, "rabbitmq: queue declare failed", slog.Any("err", err))
		return err
	}

	now := time.Now().UTC()
	ev := queue.LoginTokenEvent{
		Email:    email,
		Token:    token,
		IssuedAt: now.Format(time.RFC3339),
	}
	if p.TTL > 0 {
		ev.ExpiresAt = now.Add(p.TTL).Format(time.RFC3339)
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    now,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", name, false, false, pub); err != nil {
		log.ErrorContext(ctx, "rabbitmq: publish failed", slog.Any("err", err))
		return err
	}
	return nil
}
