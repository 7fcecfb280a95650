package worker

import (
	"context"
	"fmt"
	"time"

	"blog_app/internal/db"
	"blog_app/internal/observability"
	"blog_app/internal/queue"
	"blog_app/internal/utils"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const (
	maxRetries       = 3
	retryCountHeader = "x-retry-count"
)

// republisher is the part of *amqp.Channel used to requeue a failed message.
type republisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

func republishWithRetry(ch republisher, msg *amqp.Delivery, retryCount int32) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Copy headers with incremented retry count
	headers := amqp.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[retryCountHeader] = retryCount

	return ch.PublishWithContext(
		ctx,
		"",             // exchange
		msg.RoutingKey, // routing key (queue name)
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			ContentType:  msg.ContentType,
			DeliveryMode: amqp.Persistent,
			Type:         msg.Type,
			Body:         msg.Body,
			Headers:      headers,
		},
	)
}

func retryCountOf(headers amqp.Table) int32 {
	switch v := headers[retryCountHeader].(type) {
	case int32:
		return v
	case int64:
		return int32(v)
	case int:
		return int32(v)
	default:
		return 0
	}
}

// StartWorker consumes events from queueName until ctx is cancelled or the
// delivery channel closes. Each event is written to event_log.
func StartWorker(ctx context.Context, conn *amqp.Connection, pool utils.Beginner, dialect db.Dialect, queueName string, id int) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("worker %d failed to open channel: %w", id, err)
	}
	defer ch.Close()

	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("worker %d failed to set QoS: %w", id, err)
	}

	msgs, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("worker %d failed to start consuming messages: %w", id, err)
	}

	logrus.Infof("Worker %d started", id)

	for {
		select {
		case <-ctx.Done():
			logrus.Infof("Worker %d stopping", id)
			return nil
		case msg, ok := <-msgs:
			if !ok {
				logrus.Warnf("Worker %d delivery channel closed", id)
				return nil
			}
			handleDelivery(ctx, ch, pool, dialect, &msg, id)
		}
	}
}

// handleDelivery records one message and settles it: ack on success,
// republish with a bumped retry count on failure, and drop once maxRetries
// is reached or the payload is unusable.
func handleDelivery(ctx context.Context, ch republisher, pool utils.Beginner, dialect db.Dialect, msg *amqp.Delivery, id int) {
	// Track message consumption
	observability.GlobalMetrics.QueueMessagesConsumed.WithLabelValues(msg.RoutingKey).Inc()

	event, err := queue.UnmarshalEvent(msg.Body)
	if err != nil {
		logrus.WithError(err).Errorf("Worker %d received invalid payload", id)
		observability.GlobalMetrics.EventsFailedTotal.WithLabelValues("unknown", "invalid_payload").Inc()
		nack(msg)
		return
	}

	retryCount := retryCountOf(msg.Headers)
	eventType := string(event.Type)

	logrus.Infof("Worker %d processing event=%s for user=%d (retry: %d)", id, event.Type, event.UserID, retryCount)

	if err := recordEvent(ctx, pool, dialect, event, id); err != nil {
		logrus.WithError(err).Error("Failed to record event")
		observability.GlobalMetrics.EventsProcessedTotal.WithLabelValues(eventType, "failed").Inc()

		if retryCount >= maxRetries {
			observability.GlobalMetrics.EventsFailedTotal.WithLabelValues(eventType, "max_retries").Inc()
			nack(msg)
			return
		}

		logrus.Infof("Worker %d: event failed, requeuing (retry %d/%d)", id, retryCount+1, maxRetries)

		if err := republishWithRetry(ch, msg, retryCount+1); err != nil {
			logrus.WithError(err).Error("Failed to republish message")
			observability.GlobalMetrics.EventsFailedTotal.WithLabelValues(eventType, "republish_error").Inc()
			nack(msg)
			return
		}

		// Track republishing
		observability.GlobalMetrics.QueueMessagesPublished.WithLabelValues(msg.RoutingKey).Inc()
		ack(msg)
		return
	}

	observability.GlobalMetrics.EventsProcessedTotal.WithLabelValues(eventType, "success").Inc()
	ack(msg)
}

func ack(msg *amqp.Delivery) {
	if err := msg.Ack(false); err != nil {
		logrus.WithError(err).Warn("Failed to ack message")
	}
}

func nack(msg *amqp.Delivery) {
	if err := msg.Nack(false, false); err != nil {
		logrus.WithError(err).Warn("Failed to nack message")
	}
}
