package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends reservation events. Handlers treat publish errors as
// non-fatal: the request has already been committed.
type Publisher interface {
	Publish(ctx context.Context, ev ReservationEvent) error
}

// NoopPublisher drops every event. It is used when EVENTS_ENABLED=false.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, ReservationEvent) error { return nil }

// RabbitPublisher opens a connection per event and publishes it as a
// persistent JSON message on QueueName.
type RabbitPublisher struct {
	URL string
}

func NewRabbitPublisher(url string) *RabbitPublisher { return &RabbitPublisher{URL: url} }

// Publish delivers ev. Errors are returned wrapped, never logged; the
// caller decides how loud a lost event is.
func (p *RabbitPublisher) Publish(ctx context.Context, ev ReservationEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Type, err)
	}
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := declare(ch); err != nil {
		return fmt.Errorf("declare %s: %w", QueueName, err)
	}
	err = ch.PublishWithContext(ctx, "", QueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// declare makes sure the durable queue exists. Publisher and consumer
// both call it so either may start first.
func declare(ch *amqp.Channel) error {
	_, err := ch.QueueDeclare(QueueName, true, false, false, false, nil)
	return err
}
