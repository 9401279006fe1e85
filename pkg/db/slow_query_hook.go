package db

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"taskplanner/pkg/metrics"
)

const maxLoggedSQL = 200

type queryStartKey struct{}

type queryStart struct {
	at  time.Time
	sql string
}

// SlowQueryTracer 慢查询监控 Tracer，实现 pgx.QueryTracer
type SlowQueryTracer struct {
	logger        *zap.Logger
	slowThreshold time.Duration // 慢查询阈值，默认 100ms
}

var _ pgx.QueryTracer = (*SlowQueryTracer)(nil)

func NewSlowQueryTracer(logger *zap.Logger, slowThreshold time.Duration) *SlowQueryTracer {
	if slowThreshold <= 0 {
		slowThreshold = 100 * time.Millisecond
	}
	return &SlowQueryTracer{
		logger:        logger,
		slowThreshold: slowThreshold,
	}
}

func (t *SlowQueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{at: time.Now(), sql: data.SQL})
}

func (t *SlowQueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}
	t.observe(start.sql, time.Since(start.at), data.CommandTag.String(), data.Err)
}

func (t *SlowQueryTracer) observe(sql string, took time.Duration, commandTag string, err error) {
	if took <= t.slowThreshold {
		return
	}

	truncated := sql
	if len(truncated) > maxLoggedSQL {
		truncated = truncated[:maxLoggedSQL] + "..."
	}

	t.logger.Warn("slow-query",
		zap.String("sql", truncated),
		zap.Duration("took", took),
		zap.String("command_tag", commandTag),
		zap.Error(err),
	)
	metrics.IncrementSlowQuery(operationOf(sql), took)
}

// operationOf SQL 的第一个关键字，作为低基数的指标标签
func operationOf(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToLower(fields[0])
}
