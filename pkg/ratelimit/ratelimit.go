package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result 一次限流检查的结果
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter int // 距离下一个窗口的秒数
	Limit      int
}

// Limiter 按分钟的固定窗口计数，多个实例共享同一个 Redis
type Limiter struct {
	rdb   *redis.Client
	limit int
	now   func() time.Time
}

func NewLimiter(rdb *redis.Client, perMinute int) *Limiter {
	return &Limiter{rdb: rdb, limit: perMinute, now: time.Now}
}

// Allow 同一分钟内的请求共用一个计数器
func (l *Limiter) Allow(ctx context.Context, clientID string) (Result, error) {
	now := l.now().UTC()
	window := now.Format("200601021504")
	key := fmt.Sprintf("rl:%s:%s", clientID, window)

	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return Result{}, err
	}
	// 只在窗口第一次请求时设置过期，清理旧窗口
	if count == 1 {
		if err := l.rdb.Expire(ctx, key, 2*time.Minute).Err(); err != nil {
			return Result{}, err
		}
	}

	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	next := now.Truncate(time.Minute).Add(time.Minute)
	retryAfter := int(math.Ceil(next.Sub(now).Seconds()))

	return Result{
		Allowed:    count <= int64(l.limit),
		Remaining:  remaining,
		RetryAfter: retryAfter,
		Limit:      l.limit,
	}, nil
}
