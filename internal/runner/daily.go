package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	mqcontracts "taskplanner/contracts/mq"
	"taskplanner/internal/scheduler"
	"taskplanner/pkg/logger"
	"taskplanner/pkg/trace"
)

const DefaultDailySpec = "0 7 * * *"

type UserLister interface {
	ListUsersWithUnfinished(ctx context.Context) ([]int, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// DailyRunner 每天按 cron 表达式为有未完成任务的用户发出 schedule.requested
type DailyRunner struct {
	users     UserLister
	publisher EventPublisher
	clock     scheduler.Clock
	loc       *time.Location
	schedule  cron.Schedule
	spec      string
	logger    *zap.Logger

	mu sync.Mutex
	c  *cron.Cron
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func NewDailyRunner(users UserLister, publisher EventPublisher, spec string, loc *time.Location, clock scheduler.Clock, logger *zap.Logger) (*DailyRunner, error) {
	if spec == "" {
		spec = DefaultDailySpec
	}
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse cron spec %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.Local
	}
	if clock == nil {
		clock = scheduler.SystemClock{}
	}
	return &DailyRunner{
		users:     users,
		publisher: publisher,
		clock:     clock,
		loc:       loc,
		schedule:  schedule,
		spec:      spec,
		logger:    logger,
	}, nil
}

// Next 下一次触发时间
func (r *DailyRunner) Next(from time.Time) time.Time {
	return r.schedule.Next(from.In(r.loc))
}

func (r *DailyRunner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.c != nil {
		return
	}

	r.c = cron.New(cron.WithParser(parser), cron.WithLocation(r.loc))
	r.c.Schedule(r.schedule, cron.FuncJob(func() {
		if _, err := r.RunOnce(ctx); err != nil {
			r.logger.Error("Daily schedule run failed", zap.Error(err))
		}
	}))
	r.c.Start()

	r.logger.Info("Daily schedule runner started",
		zap.String("spec", r.spec),
		zap.String("tz", r.loc.String()),
		zap.Time("next", r.Next(r.clock.Now())),
	)
}

// Stop 等待正在执行的任务结束
func (r *DailyRunner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.c == nil {
		return
	}
	<-r.c.Stop().Done()
	r.c = nil
}

// RunOnce 返回成功发出的请求数。request_id 按日期和用户生成，同一天重复执行会被消费端去重
func (r *DailyRunner) RunOnce(ctx context.Context) (int, error) {
	ctx = trace.WithContext(ctx, trace.GenerateTraceID())
	log := logger.WithTrace(ctx, r.logger)

	users, err := r.users.ListUsersWithUnfinished(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}

	day := r.clock.Now().In(r.loc).Format("2006-01-02")
	sent := 0
	for _, userID := range users {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		p := mqcontracts.ScheduleRequestedPayload{
			RequestID: fmt.Sprintf("daily-%s-%d", day, userID),
			UserID:    userID,
			Strategy:  string(scheduler.StrategyDeadline),
		}
		if err := r.publisher.Publish(ctx, mqcontracts.RoutingScheduleRequested, p); err != nil {
			log.Error("Failed to publish schedule request", zap.Int("user_id", userID), zap.Error(err))
			continue
		}
		sent++
	}

	log.Info("Daily schedule requests published",
		zap.String("day", day),
		zap.Int("users", len(users)),
		zap.Int("sent", sent),
	)
	return sent, nil
}
