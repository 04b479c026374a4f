package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wb-go/wbf/rabbitmq"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/nurtech/notify-hub/internal/config"
)

// ErrQueueUnavailable reports that the work item could not be handed
// to the broker. The caller decides whether the admission fails; the
// record itself stays pending.
var ErrQueueUnavailable = errors.New("notification queue unavailable")

// Message is the work item crossing the queue. It carries only the
// record id; the dispatcher re-reads the authoritative record so
// status changes made after enqueue are always honored.
type Message struct {
	ID int64 `json:"id"`
}

// NotificationQueue is the durable FIFO hand-off between the admission
// path and the dispatcher. Items survive broker restarts; a message
// that cannot be processed dead-letters into the DLQ.
type NotificationQueue struct {
	Publisher  *rabbitmq.Publisher
	Consumer   *rabbitmq.Consumer
	routingKey string
}

// NewNotificationQueue declares the exchange, the main durable queue
// and the DLQ, and wires a publisher and a consumer on the channel.
func NewNotificationQueue(ch *rabbitmq.Channel, cfg *config.Config) (*NotificationQueue, error) {
	exchange := rabbitmq.NewExchange(cfg.RabbitMQ.Exchange, "direct")
	if err := exchange.BindToChannel(ch); err != nil {
		return nil, fmt.Errorf("failed to bind to exchange: %w", err)
	}

	qm := rabbitmq.NewQueueManager(ch)

	_, err := qm.DeclareQueue(cfg.RabbitMQ.DLQ, rabbitmq.QueueConfig{Durable: true})
	if err != nil {
		return nil, fmt.Errorf("failed to declare DLQ queue: %w", err)
	}

	mainArgs := map[string]interface{}{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": cfg.RabbitMQ.DLQ,
	}

	mainQ, err := qm.DeclareQueue(cfg.RabbitMQ.Queue, rabbitmq.QueueConfig{
		Durable: true,
		Args:    mainArgs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to declare main queue: %w", err)
	}

	if err := ch.QueueBind(mainQ.Name, cfg.RabbitMQ.RoutingKey, exchange.Name(), false, nil); err != nil {
		return nil, fmt.Errorf("failed to bind the exchange to the main queue: %w", err)
	}

	pub := rabbitmq.NewPublisher(ch, exchange.Name())
	cons := rabbitmq.NewConsumer(ch, rabbitmq.NewConsumerConfig(mainQ.Name))

	return &NotificationQueue{
		Publisher:  pub,
		Consumer:   cons,
		routingKey: cfg.RabbitMQ.RoutingKey,
	}, nil
}

// Publish enqueues a record id, retrying per the strategy before
// giving up with ErrQueueUnavailable.
func (q *NotificationQueue) Publish(msg Message, strategy retry.Strategy) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := q.Publisher.PublishWithRetry(body, q.routingKey, "application/json", strategy); err != nil {
		return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}

	return nil
}

// Consume decodes incoming messages onto out until ctx is cancelled.
// Malformed payloads are logged and dropped rather than re-queued.
func (q *NotificationQueue) Consume(ctx context.Context, out chan<- Message, strategy retry.Strategy) error {
	msgChan := make(chan []byte)

	go func() {
		for m := range msgChan {
			var msg Message
			if err := json.Unmarshal(m, &msg); err != nil {
				zlog.Logger.Error().Err(err).Msg("failed to unmarshal message")
				continue
			}

			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	return q.Consumer.ConsumeWithRetry(msgChan, strategy)
}
