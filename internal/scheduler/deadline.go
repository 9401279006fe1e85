package scheduler

import (
	"slices"
	"time"

	"taskplanner/internal/model"
)

// DeadlineScheduler 截止日期升序 + 贪心装箱
type DeadlineScheduler struct {
	builder *Builder
}

func NewDeadlineScheduler(builder *Builder) *DeadlineScheduler {
	return &DeadlineScheduler{builder: builder}
}

func (s *DeadlineScheduler) Schedule(tasks []model.Task, budgetMinutes int, now time.Time) []model.Task {
	return s.builder.Build(SortByDeadline(eligible(tasks)), budgetMinutes, now)
}

// SortByDeadline 稳定排序，没有截止日期的排在最后；同一天保持输入顺序
func SortByDeadline(tasks []model.Task) []model.Task {
	sorted := slices.Clone(tasks)
	slices.SortStableFunc(sorted, compareDeadline)
	return sorted
}

func compareDeadline(a, b model.Task) int {
	switch {
	case !a.HasDeadline() && !b.HasDeadline():
		return 0
	case !a.HasDeadline():
		return 1
	case !b.HasDeadline():
		return -1
	case a.Deadline.Before(b.Deadline):
		return -1
	case b.Deadline.Before(a.Deadline):
		return 1
	default:
		return 0
	}
}
