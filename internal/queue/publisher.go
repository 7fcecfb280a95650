package queue

import (
	"context"
	"time"

	"blog_app/internal/observability"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitPublisher publishes events as persistent JSON messages on the
// default exchange, routed to a single durable queue.
type RabbitPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewRabbitPublisher(conn *amqp.Connection, queueName string) (*RabbitPublisher, error) {
	ch, err := CreateChannel(conn)
	if err != nil {
		return nil, err
	}
	defer ch.Close()

	if _, err := DeclareQueue(ch, queueName); err != nil {
		return nil, err
	}

	return &RabbitPublisher{conn: conn, queueName: queueName}, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, event Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	body, err := event.Marshal()
	if err != nil {
		return err
	}

	ch, err := CreateChannel(p.conn)
	if err != nil {
		return err
	}
	defer ch.Close()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := ch.PublishWithContext(
		ctx,
		"",          // exchange
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
			Type:         string(event.Type),
			Body:         body,
		},
	); err != nil {
		return err
	}

	observability.GlobalMetrics.QueueMessagesPublished.WithLabelValues(p.queueName).Inc()
	return nil
}
