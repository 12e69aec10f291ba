package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/advocate-booking/internal/queue"
)

// AMQPNotifier publishes notification events to the durable notifications
// queue on RabbitMQ.  It dials per publish, which keeps it free of
// connection state at the low message rates involved.
type AMQPNotifier struct {
	URL string
}

// NewAMQPNotifier returns a publisher for url.
func NewAMQPNotifier(url string) *AMQPNotifier { return &AMQPNotifier{URL: url} }

// Publish sends ev as a persistent JSON message.
func (n *AMQPNotifier) Publish(ctx context.Context, ev queue.NotificationEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	conn, err := amqp.Dial(n.URL)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue.NotificationsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	return ch.PublishWithContext(ctx, "", queue.NotificationsQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}
