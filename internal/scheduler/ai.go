package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"taskplanner/internal/model"
)

// DefaultLLMTimeout LLM 调用的默认超时，超时视为失败并走本地 fallback
const DefaultLLMTimeout = 15 * time.Second

var errGeneratorDisabled = errors.New("llm generator not configured")

// Generator 生成式文本服务：输入提示词，返回文本
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// AIScheduler 把打分和排序交给 LLM，任何失败都回落到 LocalEnergyScheduler
type AIScheduler struct {
	gen     Generator
	local   *LocalEnergyScheduler
	builder *Builder
	timeout time.Duration
	logger  *zap.Logger
}

func NewAIScheduler(gen Generator, local *LocalEnergyScheduler, builder *Builder, timeout time.Duration, logger *zap.Logger) *AIScheduler {
	if timeout <= 0 {
		timeout = DefaultLLMTimeout
	}
	return &AIScheduler{
		gen:     gen,
		local:   local,
		builder: builder,
		timeout: timeout,
		logger:  logger,
	}
}

// Schedule 从不返回错误；第三个返回值是 fallback 原因（走 AI 路径时为空）
func (s *AIScheduler) Schedule(ctx context.Context, req Request, now time.Time) ([]model.Task, Path, string) {
	tasks, err := s.generate(ctx, req, now)
	if err == nil {
		return tasks, PathAI, ""
	}

	reason := fallbackReason(err)
	s.logger.Warn("AI schedule unavailable, using local fallback",
		zap.String("reason", reason),
		zap.Error(err),
	)
	return s.local.Schedule(req, now), PathLocal, reason
}

type generateResult struct {
	text string
	err  error
}

func (s *AIScheduler) generate(ctx context.Context, req Request, now time.Time) ([]model.Task, error) {
	if s.gen == nil {
		return nil, errGeneratorDisabled
	}

	candidates := eligible(req.Tasks)
	start := s.builder.FormatTime(now)
	prompt := BuildPrompt(req, candidates, start, s.builder.Location().String())
	s.logger.Debug("Requesting AI schedule",
		zap.Int("candidates", len(candidates)),
		zap.Int("budget_minutes", req.BudgetMinutes),
		zap.String("prompt", prompt),
	)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// 不依赖 Generator 自己尊重 ctx：超时后直接返回，goroutine 写入带缓冲的 channel 后退出
	ch := make(chan generateResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- generateResult{err: fmt.Errorf("generator panic: %v", r)}
			}
		}()
		text, err := s.gen.Generate(callCtx, prompt)
		ch <- generateResult{text: text, err: err}
	}()

	var res generateResult
	select {
	case res = <-ch:
	case <-callCtx.Done():
		return nil, fmt.Errorf("generate: %w", callCtx.Err())
	}
	if res.err != nil {
		return nil, fmt.Errorf("generate: %w", res.err)
	}

	raw, err := ExtractJSONArray(res.text)
	if err != nil {
		return nil, err
	}
	return DecodeSchedule(raw, candidates, req.BudgetMinutes, start)
}
