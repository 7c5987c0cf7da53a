// README: AMQP notifier publishing trip events to a topic exchange.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPNotifier publishes trip events to a RabbitMQ topic exchange with
// routing keys of the form "trip.assigned" and "trip.status.<to>".
type AMQPNotifier struct {
	ch       *amqp.Channel
	exchange string
}

func NewAMQPNotifier(ch *amqp.Channel, exchange string) (*AMQPNotifier, error) {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPNotifier{ch: ch, exchange: exchange}, nil
}

func (n *AMQPNotifier) NotifyAssignment(ctx context.Context, a Assignment) error {
	return n.publish(ctx, "trip.assigned", a)
}

func (n *AMQPNotifier) NotifyStatusChange(ctx context.Context, s StatusChange) error {
	return n.publish(ctx, fmt.Sprintf("trip.status.%s", s.To), s)
}

func (n *AMQPNotifier) publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return n.ch.PublishWithContext(ctx, n.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}
