package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"taskplanner/pkg/trace"
)

const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Message 业务代码要发出的事件，和业务数据写在同一个事务里
type Message struct {
	RoutingKey string
	Payload    any
}

// Event outbox_events 表中的一行
type Event struct {
	ID          int64
	RoutingKey  string
	Payload     json.RawMessage
	TraceID     string
	Status      string
	RetryCount  int
	NextRetryAt *time.Time
	CreatedAt   time.Time
}

// Insert 必须在事务中调用；ctx 里的 trace id 一起落库，发布时恢复
func Insert(ctx context.Context, tx pgx.Tx, m Message) error {
	payload, err := json.Marshal(m.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode outbox payload: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO outbox_events (routing_key, payload, trace_id, status)
		VALUES ($1, $2, $3, $4)
	`, m.RoutingKey, payload, trace.FromContext(ctx), StatusPending)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetPendingEvents 按创建顺序取到期的待发送事件
func (r *Repository) GetPendingEvents(ctx context.Context, limit int) ([]Event, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, routing_key, payload, trace_id, status, retry_count, next_retry_at, created_at
		FROM outbox_events
		WHERE status = 'pending'
		AND (next_retry_at IS NULL OR next_retry_at <= NOW())
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending events: %w", err)
	}

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Event, error) {
		var e Event
		err := row.Scan(&e.ID, &e.RoutingKey, &e.Payload, &e.TraceID, &e.Status, &e.RetryCount, &e.NextRetryAt, &e.CreatedAt)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan pending events: %w", err)
	}
	return events, nil
}

func (r *Repository) MarkAsSent(ctx context.Context, eventID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE outbox_events
		SET status = 'sent', updated_at = NOW()
		WHERE id = $1
	`, eventID)
	if err != nil {
		return fmt.Errorf("failed to mark event as sent: %w", err)
	}
	return nil
}

// MarkAsFailed 增加重试次数；达到 maxRetries 后不再重试，否则线性退避 5s, 10s, 15s...
func (r *Repository) MarkAsFailed(ctx context.Context, eventID int64, maxRetries int) error {
	_, err := r.db.Exec(ctx, `
		UPDATE outbox_events
		SET retry_count = retry_count + 1,
		    status = CASE WHEN retry_count + 1 >= $2 THEN 'failed' ELSE 'pending' END,
		    next_retry_at = CASE WHEN retry_count + 1 >= $2 THEN NULL
		                         ELSE NOW() + (retry_count + 1) * INTERVAL '5 seconds' END,
		    updated_at = NOW()
		WHERE id = $1
	`, eventID, maxRetries)
	if err != nil {
		return fmt.Errorf("failed to mark event as failed: %w", err)
	}
	return nil
}
