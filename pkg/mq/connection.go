package mq

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "events"
)

// dialTimeout RabbitMQ 启动通常比应用慢，启动时按指数退避重试
const dialTimeout = 30 * time.Second

// NewConnection creates a new RabbitMQ connection, retrying with backoff until ctx is done or dialTimeout passes.
func NewConnection(ctx context.Context, url string) (*amqp091.Connection, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = dialTimeout

	var conn *amqp091.Connection
	err := backoff.Retry(func() error {
		c, err := amqp091.Dial(url)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

// DeclareExchange declares the events exchange.
func DeclareExchange(ch *amqp091.Channel) error {
	return ch.ExchangeDeclare(
		ExchangeName,
		"topic", // topic exchange 支持 routing key 模式匹配
		true,    // durable
		false,   // auto-deleted
		false,   // internal
		false,   // no-wait
		nil,
	)
}
