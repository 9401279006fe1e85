package outbox

import (
	"context"
	"time"

	"go.uber.org/zap"

	"taskplanner/pkg/logger"
	"taskplanner/pkg/trace"
)

type Store interface {
	GetPendingEvents(ctx context.Context, limit int) ([]Event, error)
	MarkAsSent(ctx context.Context, eventID int64) error
	MarkAsFailed(ctx context.Context, eventID int64, maxRetries int) error
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Dispatcher 负责从 outbox 中读取事件并发布到 MQ
type Dispatcher struct {
	store      Store
	publisher  Publisher
	logger     *zap.Logger
	maxRetries int
	interval   time.Duration
	batchSize  int
}

func NewDispatcher(store Store, publisher Publisher, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:      store,
		publisher:  publisher,
		logger:     logger,
		maxRetries: 5,
		interval:   1 * time.Second,
		batchSize:  100,
	}
}

func (d *Dispatcher) WithMaxRetries(maxRetries int) *Dispatcher {
	d.maxRetries = maxRetries
	return d
}

func (d *Dispatcher) WithInterval(interval time.Duration) *Dispatcher {
	d.interval = interval
	return d
}

func (d *Dispatcher) WithBatchSize(batchSize int) *Dispatcher {
	d.batchSize = batchSize
	return d
}

// Start 阻塞直到 ctx 结束
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("Starting Outbox Dispatcher",
		zap.Int("max_retries", d.maxRetries),
		zap.Duration("interval", d.interval),
		zap.Int("batch_size", d.batchSize),
	)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Outbox Dispatcher stopped")
			return
		case <-ticker.C:
			d.RunOnce(ctx)
		}
	}
}

// RunOnce 处理一批待发送事件，返回发布成功的数量
func (d *Dispatcher) RunOnce(ctx context.Context) int {
	events, err := d.store.GetPendingEvents(ctx, d.batchSize)
	if err != nil {
		d.logger.Error("Failed to get pending events", zap.Error(err))
		return 0
	}

	sent := 0
	for _, event := range events {
		evCtx := ctx
		if event.TraceID != "" {
			evCtx = trace.WithContext(ctx, event.TraceID)
		}
		log := logger.WithTrace(evCtx, d.logger).With(
			zap.Int64("event_id", event.ID),
			zap.String("routing_key", event.RoutingKey),
		)

		if err := d.publisher.Publish(evCtx, event.RoutingKey, event.Payload); err != nil {
			log.Error("Failed to publish outbox event", zap.Error(err))
			if err := d.store.MarkAsFailed(ctx, event.ID, d.maxRetries); err != nil {
				log.Error("Failed to mark event as failed", zap.Error(err))
			}
			continue
		}

		if err := d.store.MarkAsSent(ctx, event.ID); err != nil {
			// 下一轮会重复发送，消费端需要幂等
			log.Error("Failed to mark event as sent", zap.Error(err))
			continue
		}
		sent++
	}

	if len(events) > 0 {
		d.logger.Debug("Outbox batch processed", zap.Int("pending", len(events)), zap.Int("sent", sent))
	}
	return sent
}
