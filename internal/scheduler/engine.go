package scheduler

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"taskplanner/internal/model"
)

type Strategy string

const (
	StrategyDeadline Strategy = "deadline"
	StrategyEnergy   Strategy = "energy"
	StrategyPreset   Strategy = "preset"
	StrategyPriority Strategy = "priority"
)

// ParseStrategy "mood" 是 energy 的别名；无法识别时按 deadline
func ParseStrategy(s string) Strategy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "energy", "mood":
		return StrategyEnergy
	case "preset":
		return StrategyPreset
	case "priority":
		return StrategyPriority
	default:
		return StrategyDeadline
	}
}

// Path 结果是由 LLM 还是本地算法产生的
type Path string

const (
	PathAI    Path = "ai"
	PathLocal Path = "local"
)

type Request struct {
	Tasks         []model.Task
	Profile       model.UserProfile
	Mood          model.MoodAssessment
	BudgetMinutes int
	Preset        MoodPreset
}

type Result struct {
	Tasks          []model.Task
	Strategy       Strategy
	Path           Path
	FallbackReason string
	BudgetMinutes  int
	TotalMinutes   int
	GeneratedAt    time.Time
}

type Options struct {
	TimeLayout string
	Location   *time.Location
	LLMTimeout time.Duration
}

// Engine 排程的唯一入口
type Engine struct {
	clock    Clock
	builder  *Builder
	deadline *DeadlineScheduler
	energy   *AIScheduler
	preset   *PresetScheduler
	priority *PriorityScheduler
	logger   *zap.Logger
}

// NewEngine gen 为 nil 时 energy 策略只走本地算法
func NewEngine(gen Generator, clock Clock, opts Options, logger *zap.Logger) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	builder := NewBuilder(opts.TimeLayout, opts.Location)
	local := NewLocalEnergyScheduler(builder)
	return &Engine{
		clock:    clock,
		builder:  builder,
		deadline: NewDeadlineScheduler(builder),
		energy:   NewAIScheduler(gen, local, builder, opts.LLMTimeout, logger),
		preset:   NewPresetScheduler(builder),
		priority: NewPriorityScheduler(builder),
		logger:   logger,
	}
}

// Generate 从不失败，最坏情况返回空排程
func (e *Engine) Generate(ctx context.Context, strategy Strategy, req Request) Result {
	strategy = ParseStrategy(string(strategy))
	now := e.clock.Now()
	res := Result{
		Tasks:         []model.Task{},
		Strategy:      strategy,
		Path:          PathLocal,
		BudgetMinutes: req.BudgetMinutes,
		GeneratedAt:   now,
	}

	req.Tasks = eligible(req.Tasks)
	if req.BudgetMinutes <= 0 || len(req.Tasks) == 0 {
		e.logger.Debug("Nothing to schedule",
			zap.String("strategy", string(strategy)),
			zap.Int("budget_minutes", req.BudgetMinutes),
			zap.Int("tasks", len(req.Tasks)),
		)
		return res
	}

	switch strategy {
	case StrategyEnergy:
		res.Tasks, res.Path, res.FallbackReason = e.energy.Schedule(ctx, req, now)
	case StrategyPreset:
		res.Tasks = e.preset.Schedule(req.Tasks, req.Preset, req.BudgetMinutes, now)
	case StrategyPriority:
		res.Tasks = e.priority.Schedule(req.Tasks, req.BudgetMinutes, now)
	default:
		res.Tasks = e.deadline.Schedule(req.Tasks, req.BudgetMinutes, now)
	}
	res.TotalMinutes = totalMinutes(res.Tasks)

	e.logger.Info("Schedule generated",
		zap.String("strategy", string(res.Strategy)),
		zap.String("path", string(res.Path)),
		zap.Int("candidates", len(req.Tasks)),
		zap.Int("scheduled", len(res.Tasks)),
		zap.Int("total_minutes", res.TotalMinutes),
		zap.Int("budget_minutes", req.BudgetMinutes),
	)
	return res
}
