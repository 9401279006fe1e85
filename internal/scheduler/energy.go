package scheduler

import (
	"cmp"
	"math"
	"slices"
	"time"

	"taskplanner/internal/model"
)

type EnergyLevel string

const (
	EnergyLow    EnergyLevel = "low"
	EnergyMedium EnergyLevel = "medium"
	EnergyHigh   EnergyLevel = "high"
)

// highStressThreshold 压力 > 7 时偏向短任务（quick wins）
const highStressThreshold = 7

// EnergyScore 0.4*(10-exhaustion) + 0.4*motivation + 0.2*focus，压力不参与
func EnergyScore(m model.MoodAssessment) float64 {
	return 0.4*float64(10-m.Exhaustion) + 0.4*float64(m.Motivation) + 0.2*float64(m.Focus)
}

func DeriveEnergy(m model.MoodAssessment) EnergyLevel {
	score := EnergyScore(m)
	switch {
	case score >= 7:
		return EnergyHigh
	case score >= 4:
		return EnergyMedium
	default:
		return EnergyLow
	}
}

// Weights 各评分因子的权重。高压覆盖后总和不一定为 1。
type Weights struct {
	Deadline   float64
	Priority   float64
	Difficulty float64
	Duration   float64
}

// ComputeWeights 先按能量等级选一组权重，再在高压时覆盖 duration/difficulty。
// 每次返回新值。
func ComputeWeights(level EnergyLevel, stress int) Weights {
	w := Weights{Deadline: 0.3, Priority: 0.3, Difficulty: 0.2, Duration: 0.2}
	switch level {
	case EnergyHigh:
		w = Weights{Deadline: 0.2, Priority: 0.3, Difficulty: 0.4, Duration: 0.1}
	case EnergyLow:
		w = Weights{Deadline: 0.3, Priority: 0.3, Difficulty: 0.1, Duration: 0.3}
	}
	if stress > highStressThreshold {
		w.Duration = 0.4
		w.Difficulty = 0.1
	}
	return w
}

// DaysUntil 向上取整的剩余天数，最少为 1（当天和已过期同等紧急）
func DaysUntil(deadline model.Date, now time.Time, loc *time.Location) int {
	diff := deadline.Midnight(loc).Sub(now)
	days := int(math.Ceil(diff.Hours() / 24))
	return max(1, days)
}

// Score 单个任务的加权得分，越高越优先。
// 没有截止日期视作无限远，截止日期分量为 0。
func Score(task model.Task, level EnergyLevel, w Weights, now time.Time, loc *time.Location) float64 {
	deadlineValue := 0.0
	if task.HasDeadline() {
		deadlineValue = 1 / float64(DaysUntil(task.Deadline, now, loc))
	}

	priorityValue := float64(task.Priority.Value())

	difficultyValue := float64(task.Difficulty.Value())
	if level == EnergyLow {
		difficultyValue = 4 - difficultyValue
	}

	durationValue := 30 / float64(task.Minutes())
	if level == EnergyLow {
		durationValue = 100 / float64(task.Minutes())
	}

	return deadlineValue*w.Deadline +
		priorityValue*w.Priority +
		difficultyValue*w.Difficulty +
		durationValue*w.Duration
}

type scoredTask struct {
	task  model.Task
	score float64
}

// RankByEnergy 按得分降序稳定排序
func RankByEnergy(tasks []model.Task, mood model.MoodAssessment, now time.Time, loc *time.Location) []model.Task {
	level := DeriveEnergy(mood)
	w := ComputeWeights(level, mood.Stress)

	scored := make([]scoredTask, len(tasks))
	for i, t := range tasks {
		scored[i] = scoredTask{task: t, score: Score(t, level, w, now, loc)}
	}
	slices.SortStableFunc(scored, func(a, b scoredTask) int {
		return cmp.Compare(b.score, a.score)
	})

	ranked := make([]model.Task, len(scored))
	for i, s := range scored {
		ranked[i] = s.task
	}
	return ranked
}

// LocalEnergyScheduler 本地确定性实现，也是 AI 路径的 fallback
type LocalEnergyScheduler struct {
	builder *Builder
}

func NewLocalEnergyScheduler(builder *Builder) *LocalEnergyScheduler {
	return &LocalEnergyScheduler{builder: builder}
}

func (s *LocalEnergyScheduler) Schedule(req Request, now time.Time) []model.Task {
	ranked := RankByEnergy(eligible(req.Tasks), req.Mood, now, s.builder.Location())
	return s.builder.Build(ranked, req.BudgetMinutes, now)
}
