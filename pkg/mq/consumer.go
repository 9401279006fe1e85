package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"taskplanner/pkg/metrics"
	"taskplanner/pkg/trace"
	"taskplanner/pkg/util"
)

type MessageHandler func(ctx context.Context, data json.RawMessage) error

// RetryCounter 记录每条消息的失败次数，由 util.RetryCounter 实现
type RetryCounter interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// deadLetterFunc 把无法处理的消息转发到 DLQ
type deadLetterFunc func(ctx context.Context, routingKey string, body []byte, originalError, errorType string) error

type Consumer struct {
	channel    *amqp091.Channel
	queue      amqp091.Queue
	routingKey string
	handler    MessageHandler
	conn       *amqp091.Connection
	logger     *zap.Logger

	retries    RetryCounter
	maxRetries int64
	deadLetter deadLetterFunc
}

// NewConsumer creates a consumer for a specific routing key.
func NewConsumer(ctx context.Context, url, queueName, routingKey string, logger *zap.Logger) (*Consumer, error) {
	conn, err := NewConnection(ctx, url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	closeAll := func() {
		ch.Close()
		conn.Close()
	}

	if err := DeclareExchange(ch); err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, routingKey, ExchangeName, false, nil); err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	// 每次只取一条，处理完再取下一条
	if err := ch.Qos(1, 0, false); err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to set qos: %w", err)
	}

	logger.Info("Consumer initialized",
		zap.String("routing_key", routingKey),
		zap.String("queue", queueName),
		zap.String("exchange", ExchangeName),
	)

	return &Consumer{
		conn:       conn,
		channel:    ch,
		queue:      q,
		routingKey: routingKey,
		logger:     logger,
	}, nil
}

func (c *Consumer) SetHandler(h MessageHandler) {
	c.handler = h
}

// SetRetryPolicy 可重试错误最多重新入队 maxRetries 次，之后和不可重试错误一起进入 DLQ
func (c *Consumer) SetRetryPolicy(retries RetryCounter, maxRetries int64, dlq *Publisher) error {
	if _, err := DeclareDLQQueue(c.channel, c.routingKey); err != nil {
		return err
	}
	c.retries = retries
	c.maxRetries = maxRetries
	c.deadLetter = dlq.PublishToDLQ
	return nil
}

func (c *Consumer) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// StartConsuming blocks until ctx is done or the delivery channel closes.
func (c *Consumer) StartConsuming(ctx context.Context) error {
	if c.handler == nil {
		return fmt.Errorf("consumer handler not set")
	}

	deliveries, err := c.channel.Consume(
		c.queue.Name,
		"",
		false, // 手动ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Consumer started consuming messages",
		zap.String("routing_key", c.routingKey),
		zap.String("queue", c.queue.Name),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed for queue %s", c.queue.Name)
			}
			c.handleDelivery(ctx, msg)
		}
	}
}

// handleDelivery 保证每条消息都会被 ack 或 nack
func (c *Consumer) handleDelivery(ctx context.Context, msg amqp091.Delivery) {
	start := time.Now()
	traceID, _ := msg.Headers[trace.HeaderName].(string)
	ctx, traceID = trace.Ensure(ctx, traceID)
	log := c.logger.With(
		zap.String("routing_key", c.routingKey),
		zap.String("queue", c.queue.Name),
		zap.String("message_id", msg.MessageId),
		zap.String("trace_id", traceID),
	)
	defer func() {
		metrics.RecordMQConsumeLatency(c.routingKey, c.queue.Name, time.Since(start))
	}()

	log.Debug("Received message", zap.Int("message_size", len(msg.Body)))

	var err error
	func() {
		// Panic 恢复：handler panic 按普通错误处理
		defer func() {
			if r := recover(); r != nil {
				log.Error("Handler panic recovered", zap.Any("panic", r))
				err = fmt.Errorf("handler panic: %v", r)
			}
		}()
		err = c.handler(ctx, msg.Body)
	}()

	if err == nil {
		if c.retries != nil && msg.MessageId != "" {
			_ = c.retries.Reset(ctx, c.retryKey(msg))
		}
		if ackErr := msg.Ack(false); ackErr != nil {
			log.Error("Failed to ack message", zap.Error(ackErr))
			return
		}
		log.Debug("Message processed successfully")
		return
	}

	retryable, errorType := util.IsRetryableError(err)
	var attempt int64
	if retryable && c.retries != nil && msg.MessageId != "" {
		n, cntErr := c.retries.IncrementAndGet(ctx, c.retryKey(msg))
		if cntErr != nil {
			log.Warn("Retry counter unavailable", zap.Error(cntErr))
		}
		attempt = n
	}

	log.Error("Handler error",
		zap.Error(err),
		zap.String("error_type", errorType),
		zap.Bool("retryable", retryable),
		zap.Int64("attempt", attempt),
	)

	switch decide(retryable, attempt, c.maxRetries, c.deadLetter != nil) {
	case actionRequeue:
		if nackErr := msg.Nack(false, true); nackErr != nil {
			log.Error("Failed to nack message", zap.Error(nackErr))
		}
	case actionDeadLetter:
		if dlqErr := c.deadLetter(ctx, c.routingKey, msg.Body, err.Error(), errorType); dlqErr != nil {
			log.Error("Failed to publish to DLQ, requeueing", zap.Error(dlqErr))
			_ = msg.Nack(false, true)
			return
		}
		if c.retries != nil && msg.MessageId != "" {
			_ = c.retries.Reset(ctx, c.retryKey(msg))
		}
		if ackErr := msg.Ack(false); ackErr != nil {
			log.Error("Failed to ack dead-lettered message", zap.Error(ackErr))
		}
	default:
		if nackErr := msg.Nack(false, false); nackErr != nil {
			log.Error("Failed to nack message", zap.Error(nackErr))
		}
	}
}

func (c *Consumer) retryKey(msg amqp091.Delivery) string {
	return util.FormatRetryKey(c.queue.Name, msg.MessageId)
}

type action int

const (
	actionRequeue action = iota
	actionDeadLetter
	actionDrop
)

// decide 没有重试策略时可重试错误一律重新入队（和旧行为一致）
func decide(retryable bool, attempt, maxRetries int64, hasDLQ bool) action {
	if retryable && (maxRetries <= 0 || util.ShouldRetry(attempt, maxRetries, retryable)) {
		return actionRequeue
	}
	if hasDLQ {
		return actionDeadLetter
	}
	return actionDrop
}
