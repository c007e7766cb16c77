package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

// Handler processes one message body taken from a broker queue
type Handler func(ctx context.Context, body []byte) error

func declare(ch *amqp.Channel, name string) (amqp.Queue, error) {
	return ch.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
}

func dial(url, name string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if _, err := declare(ch, name); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("failed to declare queue %s: %w", name, err)
	}
	return conn, ch, nil
}

// Publisher writes JSON messages to a durable queue. It is safe for concurrent use.
type Publisher struct {
	mu    sync.Mutex
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func DialPublisher(url, queue string) (*Publisher, error) {
	conn, ch, err := dial(url, queue)
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn, ch: ch, queue: queue}, nil
}

func (p *Publisher) Publish(ctx context.Context, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.Publish(
		"",
		p.queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ch.Close()
	return p.conn.Close()
}

// Consumer reads a durable queue and hands every message to a Handler
type Consumer struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
	log   zerolog.Logger
}

func DialConsumer(url, queue string, log zerolog.Logger) (*Consumer, error) {
	conn, ch, err := dial(url, queue)
	if err != nil {
		return nil, err
	}
	return &Consumer{conn: conn, ch: ch, queue: queue, log: log}, nil
}

// Run consumes until ctx is cancelled or the broker closes the delivery channel
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	msgs, err := c.ch.Consume(
		c.queue,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			HandleDelivery(ctx, d, handle, c.log)
		}
	}
}

func (c *Consumer) Close() error {
	c.ch.Close()
	return c.conn.Close()
}

// HandleDelivery acks before handling, so a message is processed at most once.
// Handler failures are logged and the message is dropped.
func HandleDelivery(ctx context.Context, d amqp.Delivery, handle Handler, log zerolog.Logger) {
	if err := d.Ack(false); err != nil {
		log.Error().Err(err).Uint64("delivery_tag", d.DeliveryTag).Msg("failed to ack delivery")
		return
	}
	if err := handle(ctx, d.Body); err != nil {
		log.Warn().Err(err).Uint64("delivery_tag", d.DeliveryTag).Msg("dropping message after failed handling")
	}
}
