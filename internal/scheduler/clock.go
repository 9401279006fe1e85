package scheduler

import "time"

// Clock 提供 "现在"，测试时注入固定时间
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock 永远返回同一个时间点
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }
