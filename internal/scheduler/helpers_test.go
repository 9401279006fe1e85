package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"taskplanner/internal/model"
)

var ist = time.FixedZone("IST", 5*3600+30*60)

// 2026-10-14 09:00 IST
var testNow = time.Date(2026, time.October, 14, 9, 0, 0, 0, ist)

func newTestBuilder() *Builder {
	return NewBuilder(DefaultTimeLayout, ist)
}

// mkTask deadlineDays < 0 表示没有截止日期
func mkTask(id string, minutes, deadlineDays int, difficulty, priority model.Level) model.Task {
	t := model.Task{
		ID:         id,
		Name:       "task " + id,
		Duration:   minutes,
		Difficulty: difficulty,
		Priority:   priority,
		Status:     model.StatusUnfinished,
		Type:       "casual",
	}
	if deadlineDays >= 0 {
		t.Deadline = model.DateOf(testNow.AddDate(0, 0, deadlineDays))
	}
	return t
}

func ids(tasks []model.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

type stubGenerator struct {
	text    string
	err     error
	block   chan struct{}
	panics  bool
	calls   atomic.Int32
	prompts []string
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls.Add(1)
	g.prompts = append(g.prompts, prompt)
	if g.panics {
		panic("boom")
	}
	if g.block != nil {
		<-g.block
	}
	return g.text, g.err
}
