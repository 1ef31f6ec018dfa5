package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/grading-api/internal/mailer"
)

// Consumer reads LoginTokenEvents from the broker and hands them to a
// Notifier.
type Consumer struct {
	URL      string
	Queue    string
	Notifier mailer.Notifier
	Log      *slog.Logger
}

// Run connects to RabbitMQ, declares the queue (durable) and consumes until
// ctx is cancelled.  Broken connections are retried with exponential
// backoff capped at 30 seconds.
func (c *Consumer) Run(ctx context.Context) error {
	if c.Queue == "" {
		c.Queue = EmailTokenQueue
	}
	if c.Log == nil {
		c.Log = slog.Default()
	}

	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.Warn("email-consumer: dial failed", slog.Any("err", err), slog.Duration("retry_in", backoff))
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Log.Warn("email-consumer: consume loop ended, reconnecting", slog.Any("err", err))
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		c.Log.Warn("email-consumer: set QoS failed", slog.Any("err", err))
	}
	if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := c.handle(ctx, d.Body); err != nil {
			c.Log.Error("email-consumer: delivery failed",
				slog.String("message_id", d.MessageId), slog.Any("err", err))
			// One retry for transient provider errors, then drop.
			_ = d.Nack(false, !d.Redelivered && !errors.Is(err, errMalformed))
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

var errMalformed = errors.New("malformed event")

func (c *Consumer) handle(ctx context.Context, body []byte) error {
	var ev LoginTokenEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	if ev.Email == "" || ev.Token == "" {
		return fmt.Errorf("%w: missing email or token", errMalformed)
	}
	if ev.ExpiresAt != "" {
		if exp, err := time.Parse(time.RFC3339, ev.ExpiresAt); err == nil && time.Now().After(exp) {
			c.Log.Info("email-consumer: dropping expired login token", slog.String("email", ev.Email))
			return nil
		}
	}
	return c.Notifier.SendEmailToken(ctx, ev.Email, ev.Token)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
