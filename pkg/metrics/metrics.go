package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 排程生成计数
	ScheduleGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedule_generated_total",
			Help: "Total number of schedules generated",
		},
		[]string{"strategy", "path"}, // path: ai, local
	)

	// AI 路径回落到本地算法的次数
	ScheduleFallback = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedule_fallback_total",
			Help: "Total number of AI schedule fallbacks to the local scheduler",
		},
		[]string{"reason"},
	)

	// 每份排程包含的任务数
	ScheduleTasksScheduled = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "schedule_tasks_scheduled",
			Help:    "Number of tasks placed in a generated schedule",
			Buckets: prometheus.LinearBuckets(0, 2, 10),
		},
	)

	// LLM 调用延迟（毫秒）
	LLMCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_call_latency_ms",
			Help:    "LLM generateContent call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10), // 100ms to ~100s
		},
		[]string{"status"},
	)

	// MQ 消费延迟（毫秒）
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)

	// 慢查询计数
	DBSlowQuery = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_total",
			Help: "Total number of queries slower than the configured threshold",
		},
		[]string{"operation"},
	)

	// 数据库查询延迟（秒）
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation"},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)
)

// RecordSchedule 记录一次排程结果；reason 为空表示没有 fallback
func RecordSchedule(strategy, path, reason string, scheduled int) {
	ScheduleGenerated.WithLabelValues(strategy, path).Inc()
	ScheduleTasksScheduled.Observe(float64(scheduled))
	if reason != "" {
		ScheduleFallback.WithLabelValues(reason).Inc()
	}
}

// RecordLLMCallLatency 记录 LLM 调用延迟
func RecordLLMCallLatency(status string, duration time.Duration) {
	LLMCallLatency.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

// RecordMQConsumeLatency 记录 MQ 消费延迟
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

// RecordDBQueryDuration 记录数据库查询延迟
func RecordDBQueryDuration(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// IncrementSlowQuery 记录慢查询，operation 为 SQL 的第一个关键字
func IncrementSlowQuery(operation string, duration time.Duration) {
	DBSlowQuery.WithLabelValues(operation).Inc()
	RecordDBQueryDuration(operation, duration)
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
