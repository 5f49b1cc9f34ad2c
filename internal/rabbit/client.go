// Package rabbit carries registration notifications over a durable RabbitMQ queue.
package rabbit

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"mttsite/internal/dto"
)

type Config struct {
	URL      string
	Exchange string
	Queue    string
}

type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	cfg     Config
	log     *zerolog.Logger
}

// Dial declares a durable direct exchange with one queue bound under the queue's name.
func Dial(cfg Config, log *zerolog.Logger) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open RabbitMQ channel: %w", err)
	}
	c := &Client{conn: conn, channel: ch, cfg: cfg, log: log}

	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		c.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		c.Close()
		return nil, fmt.Errorf("declare queue %s: %w", cfg.Queue, err)
	}
	if err := ch.QueueBind(cfg.Queue, cfg.Queue, cfg.Exchange, false, nil); err != nil {
		c.Close()
		return nil, fmt.Errorf("bind queue %s: %w", cfg.Queue, err)
	}

	log.Info().Str("exchange", cfg.Exchange).Str("queue", cfg.Queue).Msg("RabbitMQ initialized")
	return c, nil
}

func (c *Client) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.log.Info().Msg("RabbitMQ connection closed")
}

// Notify publishes a registration change as a persistent JSON message.
func (c *Client) Notify(ctx context.Context, msg dto.RegistrationMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	err = c.channel.PublishWithContext(ctx, c.cfg.Exchange, c.cfg.Queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
		Timestamp:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	c.log.Debug().Str("registration_id", msg.RegistrationID).Str("status", msg.Status).Msg("notification published")
	return nil
}

// Consume decodes each delivery and hands it to handler. Deliveries that fail
// to decode are dropped; handler errors requeue the message.
func (c *Client) Consume(handler func(dto.RegistrationMessage) error) error {
	msgs, err := c.channel.Consume(c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.cfg.Queue, err)
	}

	go func() {
		for d := range msgs {
			var msg dto.RegistrationMessage
			if err := json.Unmarshal(d.Body, &msg); err != nil {
				c.log.Error().Err(err).Str("body", string(d.Body)).Msg("failed to decode notification, dropping")
				_ = d.Nack(false, false)
				continue
			}
			if err := handler(msg); err != nil {
				c.log.Warn().Err(err).Str("registration_id", msg.RegistrationID).Msg("failed to process notification")
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}()

	c.log.Info().Str("queue", c.cfg.Queue).Msg("started consuming notifications")
	return nil
}
