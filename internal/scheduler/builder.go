package scheduler

import (
	"time"

	"taskplanner/internal/model"
)

// DefaultTimeLayout 与前端展示一致："HH:MM AM/PM"
const DefaultTimeLayout = "03:04 PM"

// Builder 把已排好序的任务按时间预算打上开始时间
type Builder struct {
	layout string
	loc    *time.Location
}

func NewBuilder(layout string, loc *time.Location) *Builder {
	if layout == "" {
		layout = DefaultTimeLayout
	}
	if loc == nil {
		loc = time.Local
	}
	return &Builder{layout: layout, loc: loc}
}

func (b *Builder) Location() *time.Location { return b.loc }

func (b *Builder) FormatTime(t time.Time) string {
	return t.In(b.loc).Format(b.layout)
}

// Build 单遍贪心装箱：放得下就接受并推进游标，放不下就跳过继续看下一个。
// 不回溯，不保证最优。预算超过 model.MaxBudgetMinutes 时按上限算。返回的是副本，不修改入参。
func (b *Builder) Build(ordered []model.Task, budgetMinutes int, start time.Time) []model.Task {
	scheduled := []model.Task{}
	remaining := min(budgetMinutes, model.MaxBudgetMinutes)
	cursor := start

	for _, task := range ordered {
		if remaining <= 0 {
			break
		}
		d := task.Minutes()
		if d > remaining {
			continue
		}
		task.Scheduled = true
		task.ScheduledTime = b.FormatTime(cursor)
		scheduled = append(scheduled, task)

		remaining -= d
		cursor = cursor.Add(time.Duration(d) * time.Minute)
	}
	return scheduled
}

// eligible 防御性过滤：只保留 unfinished
func eligible(tasks []model.Task) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Eligible() {
			out = append(out, t)
		}
	}
	return out
}

func totalMinutes(tasks []model.Task) int {
	total := 0
	for _, t := range tasks {
		total += t.Minutes()
	}
	return total
}
