package scheduler

import (
	"slices"
	"strings"
	"time"

	"taskplanner/internal/model"
)

// MoodPreset 快速模式：不填量表，只选一个心情
type MoodPreset string

const (
	PresetEnergetic MoodPreset = "energetic"
	PresetNeutral   MoodPreset = "neutral"
	PresetTired     MoodPreset = "tired"
)

// ParsePreset 无法识别时按 neutral
func ParsePreset(s string) MoodPreset {
	switch p := MoodPreset(strings.ToLower(strings.TrimSpace(s))); p {
	case PresetEnergetic, PresetTired:
		return p
	default:
		return PresetNeutral
	}
}

// presetRank 排名越小越靠前
var presetRank = map[MoodPreset]map[model.Level]int{
	PresetEnergetic: {model.LevelHigh: 1, model.LevelMedium: 2, model.LevelLow: 3},
	PresetNeutral:   {model.LevelMedium: 1, model.LevelHigh: 2, model.LevelLow: 3},
	PresetTired:     {model.LevelLow: 1, model.LevelMedium: 2, model.LevelHigh: 3},
}

type PresetScheduler struct {
	builder *Builder
}

func NewPresetScheduler(builder *Builder) *PresetScheduler {
	return &PresetScheduler{builder: builder}
}

func (s *PresetScheduler) Schedule(tasks []model.Task, preset MoodPreset, budgetMinutes int, now time.Time) []model.Task {
	return s.builder.Build(SortByPreset(eligible(tasks), preset), budgetMinutes, now)
}

func SortByPreset(tasks []model.Task, preset MoodPreset) []model.Task {
	rank := presetRank[ParsePreset(string(preset))]
	sorted := slices.Clone(tasks)
	slices.SortStableFunc(sorted, func(a, b model.Task) int {
		return rankOf(rank, a.Difficulty) - rankOf(rank, b.Difficulty)
	})
	return sorted
}

func rankOf(rank map[model.Level]int, l model.Level) int {
	if r, ok := rank[l]; ok {
		return r
	}
	return 2
}

// PriorityScheduler 优先级降序，同优先级按截止日期升序
type PriorityScheduler struct {
	builder *Builder
}

func NewPriorityScheduler(builder *Builder) *PriorityScheduler {
	return &PriorityScheduler{builder: builder}
}

func (s *PriorityScheduler) Schedule(tasks []model.Task, budgetMinutes int, now time.Time) []model.Task {
	return s.builder.Build(SortByPriority(eligible(tasks)), budgetMinutes, now)
}

func SortByPriority(tasks []model.Task) []model.Task {
	sorted := slices.Clone(tasks)
	slices.SortStableFunc(sorted, func(a, b model.Task) int {
		if d := b.Priority.Value() - a.Priority.Value(); d != 0 {
			return d
		}
		return compareDeadline(a, b)
	})
	return sorted
}
