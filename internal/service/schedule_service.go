package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	mqcontracts "taskplanner/contracts/mq"
	"taskplanner/internal/model"
	"taskplanner/internal/repository"
	"taskplanner/internal/scheduler"
	"taskplanner/internal/store"
	"taskplanner/pkg/logger"
	"taskplanner/pkg/metrics"
	"taskplanner/pkg/outbox"
)

// DefaultBudgetMinutes 请求没有给出预算时使用
const DefaultBudgetMinutes = 240

var (
	ErrInvalidMood   = errors.New("invalid mood assessment")
	ErrInvalidBudget = errors.New("invalid time budget")
)

type TaskRepository interface {
	ListUnfinished(ctx context.Context, userID int) ([]model.Task, error)
	MarkScheduled(ctx context.Context, userID int, entries []repository.ScheduleEntry, events ...outbox.Message) (int, error)
}

type ProfileRepository interface {
	Get(ctx context.Context, userID int) (model.UserProfile, error)
}

type DraftStore interface {
	Put(ctx context.Context, d store.Draft) error
	Get(ctx context.Context, userID int) (store.Draft, error)
	Delete(ctx context.Context, userID int) error
}

type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type Engine interface {
	Generate(ctx context.Context, strategy scheduler.Strategy, req scheduler.Request) scheduler.Result
}

// GenerateParams BudgetMinutes 为 nil 时使用默认预算；<= 0 合法，得到空排程；超过一天返回 ErrInvalidBudget
type GenerateParams struct {
	Strategy      string
	BudgetMinutes *int
	Mood          model.MoodAssessment
	Preset        string
}

type SaveResult struct {
	Updated int
	TaskIDs []string
}

type ScheduleService struct {
	tasks         TaskRepository
	profiles      ProfileRepository
	drafts        DraftStore
	publisher     EventPublisher
	engine        Engine
	clock         scheduler.Clock
	defaultBudget int
	logger        *zap.Logger
}

// NewScheduleService publisher 可以为 nil（不发事件）
func NewScheduleService(
	tasks TaskRepository,
	profiles ProfileRepository,
	drafts DraftStore,
	publisher EventPublisher,
	engine Engine,
	clock scheduler.Clock,
	defaultBudget int,
	logger *zap.Logger,
) *ScheduleService {
	if clock == nil {
		clock = scheduler.SystemClock{}
	}
	if defaultBudget <= 0 {
		defaultBudget = DefaultBudgetMinutes
	}
	return &ScheduleService{
		tasks:         tasks,
		profiles:      profiles,
		drafts:        drafts,
		publisher:     publisher,
		engine:        engine,
		clock:         clock,
		defaultBudget: defaultBudget,
		logger:        logger,
	}
}

// Generate 生成排程并保存为草稿
func (s *ScheduleService) Generate(ctx context.Context, userID int, p GenerateParams) (store.Draft, error) {
	log := logger.WithTrace(ctx, s.logger).With(zap.Int("user_id", userID))

	strategy := scheduler.ParseStrategy(p.Strategy)
	if strategy == scheduler.StrategyEnergy {
		if err := p.Mood.Validate(); err != nil {
			return store.Draft{}, fmt.Errorf("%w: %v", ErrInvalidMood, err)
		}
	}

	budget := s.defaultBudget
	if p.BudgetMinutes != nil {
		budget = *p.BudgetMinutes
	}
	if budget > model.MaxBudgetMinutes {
		return store.Draft{}, fmt.Errorf("%w: %d minutes exceeds %d", ErrInvalidBudget, budget, model.MaxBudgetMinutes)
	}

	tasks, err := s.tasks.ListUnfinished(ctx, userID)
	if err != nil {
		return store.Draft{}, fmt.Errorf("load tasks: %w", err)
	}

	req := scheduler.Request{
		Tasks:         tasks,
		Mood:          p.Mood,
		BudgetMinutes: budget,
		Preset:        scheduler.ParsePreset(p.Preset),
	}
	// 画像只有 energy 策略会用到
	if strategy == scheduler.StrategyEnergy {
		profile, err := s.profiles.Get(ctx, userID)
		if err != nil {
			return store.Draft{}, fmt.Errorf("load profile: %w", err)
		}
		req.Profile = profile
	}

	res := s.engine.Generate(ctx, strategy, req)
	metrics.RecordSchedule(string(res.Strategy), string(res.Path), res.FallbackReason, len(res.Tasks))

	draft := store.Draft{
		UserID:         userID,
		Strategy:       string(res.Strategy),
		Path:           string(res.Path),
		FallbackReason: res.FallbackReason,
		BudgetMinutes:  res.BudgetMinutes,
		TotalMinutes:   res.TotalMinutes,
		Tasks:          res.Tasks,
		GeneratedAt:    res.GeneratedAt,
	}

	// 草稿和事件失败不影响本次结果
	if err := s.drafts.Put(ctx, draft); err != nil {
		log.Error("Failed to store draft schedule", zap.Error(err))
	}
	s.publish(ctx, log, mqcontracts.RoutingScheduleGenerated, generatedPayload(draft))

	log.Info("Draft schedule ready",
		zap.String("strategy", draft.Strategy),
		zap.String("path", draft.Path),
		zap.Int("tasks", len(draft.Tasks)),
	)
	return draft, nil
}

// Latest 返回最近一次生成的草稿，没有时返回 store.ErrNoDraft
func (s *ScheduleService) Latest(ctx context.Context, userID int) (store.Draft, error) {
	return s.drafts.Get(ctx, userID)
}

// Save 把草稿写回任务表并删除草稿
func (s *ScheduleService) Save(ctx context.Context, userID int) (SaveResult, error) {
	log := logger.WithTrace(ctx, s.logger).With(zap.Int("user_id", userID))

	draft, err := s.drafts.Get(ctx, userID)
	if err != nil {
		return SaveResult{}, err
	}

	entries := make([]repository.ScheduleEntry, 0, len(draft.Tasks))
	ids := make([]string, 0, len(draft.Tasks))
	for _, t := range draft.Tasks {
		entries = append(entries, repository.ScheduleEntry{TaskID: t.ID, ScheduledTime: t.ScheduledTime})
		ids = append(ids, t.ID)
	}

	// schedule.saved 和任务更新同一事务写入 outbox，由 worker 发布
	saved := outbox.Message{
		RoutingKey: mqcontracts.RoutingScheduleSaved,
		Payload: mqcontracts.ScheduleSavedPayload{
			UserID:  userID,
			TaskIDs: ids,
			SavedAt: s.clock.Now(),
		},
	}
	updated, err := s.tasks.MarkScheduled(ctx, userID, entries, saved)
	if err != nil {
		return SaveResult{}, fmt.Errorf("save schedule: %w", err)
	}
	if updated < len(entries) {
		log.Warn("Some drafted tasks were not updated",
			zap.Int("drafted", len(entries)),
			zap.Int("updated", updated),
		)
	}

	if err := s.drafts.Delete(ctx, userID); err != nil {
		log.Error("Failed to delete saved draft", zap.Error(err))
	}

	log.Info("Schedule saved", zap.Int("updated", updated))
	return SaveResult{Updated: updated, TaskIDs: ids}, nil
}

func (s *ScheduleService) publish(ctx context.Context, log *zap.Logger, routingKey string, payload any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, routingKey, payload); err != nil {
		log.Error("Failed to publish event",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
	}
}

func generatedPayload(d store.Draft) mqcontracts.ScheduleGeneratedPayload {
	items := make([]mqcontracts.ScheduledTaskItem, len(d.Tasks))
	for i, t := range d.Tasks {
		items[i] = mqcontracts.ScheduledTaskItem{
			TaskID:        t.ID,
			Name:          t.Name,
			ScheduledTime: t.ScheduledTime,
			Minutes:       t.Minutes(),
		}
	}
	return mqcontracts.ScheduleGeneratedPayload{
		UserID:         d.UserID,
		Strategy:       d.Strategy,
		Path:           d.Path,
		FallbackReason: d.FallbackReason,
		BudgetMinutes:  d.BudgetMinutes,
		TotalMinutes:   d.TotalMinutes,
		Tasks:          items,
		GeneratedAt:    d.GeneratedAt,
	}
}
