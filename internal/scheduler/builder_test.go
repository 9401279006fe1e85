package scheduler

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskplanner/internal/model"
)

func TestBuildSkipsOversizedAndKeepsGoing(t *testing.T) {
	b := newTestBuilder()
	tasks := []model.Task{
		mkTask("a", 30, 1, model.LevelLow, model.LevelLow),
		mkTask("b", 45, 1, model.LevelLow, model.LevelLow),
		mkTask("c", 20, 1, model.LevelLow, model.LevelLow),
	}

	got := b.Build(tasks, 60, testNow)

	require.Equal(t, []string{"a", "c"}, ids(got))
	assert.Equal(t, "09:00 AM", got[0].ScheduledTime)
	assert.Equal(t, "09:30 AM", got[1].ScheduledTime)
	for _, task := range got {
		assert.True(t, task.Scheduled)
	}
	assert.False(t, tasks[0].Scheduled, "input must not be mutated")
}

func TestBuildCursorNeverRunsBackwards(t *testing.T) {
	b := newTestBuilder()
	huge := mkTask("a", math.MaxInt/2, 1, model.LevelLow, model.LevelLow)
	tasks := []model.Task{huge, mkTask("b", 30, 1, model.LevelLow, model.LevelLow)}

	got := b.Build(tasks, math.MaxInt/2+100, testNow)

	require.Equal(t, []string{"a"}, ids(got))
	assert.Equal(t, "09:00 AM", got[0].ScheduledTime)

	got = b.Build([]model.Task{mkTask("b", 30, 1, model.LevelLow, model.LevelLow), mkTask("c", 30, 1, model.LevelLow, model.LevelLow)}, math.MaxInt, testNow)
	require.Equal(t, []string{"b", "c"}, ids(got))
	assert.Equal(t, "09:30 AM", got[1].ScheduledTime)
}

func TestBuildStopsWhenBudgetExhausted(t *testing.T) {
	b := newTestBuilder()
	tasks := []model.Task{
		mkTask("a", 30, 1, model.LevelLow, model.LevelLow),
		mkTask("b", 10, 1, model.LevelLow, model.LevelLow),
	}
	got := b.Build(tasks, 30, testNow)
	assert.Equal(t, []string{"a"}, ids(got))
}

func TestBuildNonPositiveBudget(t *testing.T) {
	b := newTestBuilder()
	tasks := []model.Task{mkTask("a", 10, 1, model.LevelLow, model.LevelLow)}

	assert.Empty(t, b.Build(tasks, 0, testNow))
	assert.Empty(t, b.Build(tasks, -30, testNow))
	assert.NotNil(t, b.Build(nil, 60, testNow))
}

func TestBuildDefaultsBadDuration(t *testing.T) {
	b := newTestBuilder()
	tasks := []model.Task{
		mkTask("a", 0, 1, model.LevelLow, model.LevelLow),
		mkTask("b", 10, 1, model.LevelLow, model.LevelLow),
	}
	got := b.Build(tasks, 40, testNow)
	require.Equal(t, []string{"a", "b"}, ids(got))
	assert.Equal(t, "09:30 AM", got[1].ScheduledTime)
}

func TestBuildInvariants(t *testing.T) {
	b := newTestBuilder()
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 200; round++ {
		n := rng.Intn(8) + 1
		tasks := make([]model.Task, n)
		for i := range tasks {
			tasks[i] = mkTask(string(rune('a'+i)), rng.Intn(120)+1, rng.Intn(10), model.LevelMedium, model.LevelMedium)
		}
		budget := rng.Intn(240)

		got := b.Build(tasks, budget, testNow)

		total := 0
		for _, task := range got {
			assert.True(t, task.Scheduled)
			assert.NotEmpty(t, task.ScheduledTime)
			total += task.Minutes()
		}
		assert.LessOrEqual(t, total, budget)

		// 结果必须是输入的子序列
		pos := 0
		for _, task := range got {
			for pos < len(tasks) && tasks[pos].ID != task.ID {
				pos++
			}
			require.Less(t, pos, len(tasks), "result is not a subsequence of the input")
			pos++
		}
	}
}

func TestFormatTimeUsesLocation(t *testing.T) {
	b := NewBuilder("15:04", ist)
	assert.Equal(t, "09:00", b.FormatTime(testNow.UTC()))
}
