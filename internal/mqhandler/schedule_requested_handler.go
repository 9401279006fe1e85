package mqhandler

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	mqcontracts "taskplanner/contracts/mq"
	"taskplanner/internal/service"
	"taskplanner/internal/store"
	"taskplanner/pkg/logger"
)

const scheduleRequestedHandlerName = "schedule.requested"

type ScheduleGenerator interface {
	Generate(ctx context.Context, userID int, p service.GenerateParams) (store.Draft, error)
}

type Deduper interface {
	AcquireOnce(ctx context.Context, handler, id string) bool
	Release(ctx context.Context, handler, id string)
}

type ScheduleRequestedHandler struct {
	schedules ScheduleGenerator
	deduper   Deduper
	logger    *zap.Logger
}

// NewScheduleRequestedHandler deduper 可以为 nil（不去重）
func NewScheduleRequestedHandler(schedules ScheduleGenerator, deduper Deduper, logger *zap.Logger) *ScheduleRequestedHandler {
	return &ScheduleRequestedHandler{
		schedules: schedules,
		deduper:   deduper,
		logger:    logger,
	}
}

// Handle 为请求中的用户生成草稿排程。同一个 request_id 只处理一次，失败时释放去重标记以便重试
func (h *ScheduleRequestedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	log := logger.WithTrace(ctx, h.logger)

	var p mqcontracts.ScheduleRequestedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Error("Failed to unmarshal schedule requested payload", zap.Error(err))
		return err
	}
	log = log.With(zap.String("request_id", p.RequestID), zap.Int("user_id", p.UserID))

	if p.UserID <= 0 {
		log.Warn("Schedule request without user, skipping")
		return nil
	}

	dedup := h.deduper != nil && p.RequestID != ""
	if dedup && !h.deduper.AcquireOnce(ctx, scheduleRequestedHandlerName, p.RequestID) {
		log.Debug("Schedule request already handled, skipping")
		return nil
	}

	params := service.GenerateParams{Strategy: p.Strategy, Preset: p.Preset}
	if p.BudgetMinutes > 0 {
		budget := p.BudgetMinutes
		params.BudgetMinutes = &budget
	}

	draft, err := h.schedules.Generate(ctx, p.UserID, params)
	if errors.Is(err, service.ErrInvalidMood) {
		// 异步请求不带情绪评估，重试也不会成功
		log.Warn("Schedule request needs a mood assessment, skipping", zap.String("strategy", p.Strategy))
		return nil
	}
	if errors.Is(err, service.ErrInvalidBudget) {
		log.Warn("Schedule request budget too large, skipping", zap.Int("budget_minutes", p.BudgetMinutes))
		return nil
	}
	if err != nil {
		if dedup {
			h.deduper.Release(ctx, scheduleRequestedHandlerName, p.RequestID)
		}
		log.Error("Failed to generate requested schedule", zap.Error(err))
		return err
	}

	log.Info("Requested schedule generated",
		zap.String("strategy", draft.Strategy),
		zap.String("path", draft.Path),
		zap.Int("tasks", len(draft.Tasks)),
	)
	return nil
}
