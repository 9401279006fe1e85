package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskplanner/internal/model"
)

func TestDeriveEnergy(t *testing.T) {
	tests := []struct {
		name string
		mood model.MoodAssessment
		want EnergyLevel
	}{
		{"rested and motivated", model.MoodAssessment{Exhaustion: 1, Motivation: 10, Focus: 10}, EnergyHigh},
		{"exactly seven", model.MoodAssessment{Exhaustion: 5, Motivation: 10, Focus: 5}, EnergyHigh},
		{"middling", model.MoodAssessment{Exhaustion: 5, Motivation: 5, Focus: 5}, EnergyMedium},
		{"exactly four", model.MoodAssessment{Exhaustion: 10, Motivation: 5, Focus: 10}, EnergyMedium},
		{"drained", model.MoodAssessment{Exhaustion: 10, Motivation: 1, Focus: 1}, EnergyLow},
		{"stress is ignored", model.MoodAssessment{Exhaustion: 1, Motivation: 10, Focus: 10, Stress: 10}, EnergyHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveEnergy(tt.mood))
		})
	}
}

func TestComputeWeights(t *testing.T) {
	tests := []struct {
		level  EnergyLevel
		stress int
		want   Weights
	}{
		{EnergyMedium, 5, Weights{Deadline: 0.3, Priority: 0.3, Difficulty: 0.2, Duration: 0.2}},
		{EnergyHigh, 5, Weights{Deadline: 0.2, Priority: 0.3, Difficulty: 0.4, Duration: 0.1}},
		{EnergyLow, 5, Weights{Deadline: 0.3, Priority: 0.3, Difficulty: 0.1, Duration: 0.3}},
		{EnergyHigh, 7, Weights{Deadline: 0.2, Priority: 0.3, Difficulty: 0.4, Duration: 0.1}},
		{EnergyHigh, 8, Weights{Deadline: 0.2, Priority: 0.3, Difficulty: 0.1, Duration: 0.4}},
		{EnergyLow, 9, Weights{Deadline: 0.3, Priority: 0.3, Difficulty: 0.1, Duration: 0.4}},
		{EnergyMedium, 10, Weights{Deadline: 0.3, Priority: 0.3, Difficulty: 0.1, Duration: 0.4}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ComputeWeights(tt.level, tt.stress), "level=%s stress=%d", tt.level, tt.stress)
	}

	// 每次返回独立的值
	w := ComputeWeights(EnergyMedium, 5)
	w.Deadline = 99
	assert.Equal(t, 0.3, ComputeWeights(EnergyMedium, 5).Deadline)
}

func TestDaysUntil(t *testing.T) {
	tests := []struct {
		name     string
		deadline model.Date
		want     int
	}{
		{"today", model.DateOf(testNow), 1},
		{"overdue", model.DateOf(testNow.AddDate(0, 0, -3)), 1},
		{"tomorrow", model.DateOf(testNow.AddDate(0, 0, 1)), 1},
		{"in two days", model.DateOf(testNow.AddDate(0, 0, 2)), 2},
		{"in a week", model.DateOf(testNow.AddDate(0, 0, 7)), 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysUntil(tt.deadline, testNow, ist))
		})
	}
}

func TestScoreExactValue(t *testing.T) {
	task := mkTask("x", 30, 2, model.LevelMedium, model.LevelHigh)
	w := ComputeWeights(EnergyMedium, 5)

	// 0.5*0.3 + 3*0.3 + 2*0.2 + (30/30)*0.2
	assert.InDelta(t, 1.65, Score(task, EnergyMedium, w, testNow, ist), 1e-9)

	noDeadline := mkTask("y", 30, -1, model.LevelMedium, model.LevelHigh)
	assert.InDelta(t, 1.5, Score(noDeadline, EnergyMedium, w, testNow, ist), 1e-9)
}

func TestScoreHighEnergyPrefersHardTasks(t *testing.T) {
	hard := mkTask("hard", 60, 3, model.LevelHigh, model.LevelMedium)
	easy := mkTask("easy", 60, 3, model.LevelLow, model.LevelMedium)

	for _, stress := range []int{1, 5, 9} {
		w := ComputeWeights(EnergyHigh, stress)
		assert.GreaterOrEqual(t,
			Score(hard, EnergyHigh, w, testNow, ist),
			Score(easy, EnergyHigh, w, testNow, ist),
			"stress=%d", stress)
	}
}

func TestScoreLowEnergyHighStressPrefersShortTasks(t *testing.T) {
	short := mkTask("short", 10, 3, model.LevelMedium, model.LevelMedium)
	long := mkTask("long", 120, 3, model.LevelMedium, model.LevelMedium)
	w := ComputeWeights(EnergyLow, 9)

	assert.Greater(t,
		Score(short, EnergyLow, w, testNow, ist),
		Score(long, EnergyLow, w, testNow, ist))
}

func TestScoreLowEnergyReversesDifficulty(t *testing.T) {
	hard := mkTask("hard", 30, 3, model.LevelHigh, model.LevelMedium)
	easy := mkTask("easy", 30, 3, model.LevelLow, model.LevelMedium)
	w := ComputeWeights(EnergyLow, 5)

	assert.Greater(t,
		Score(easy, EnergyLow, w, testNow, ist),
		Score(hard, EnergyLow, w, testNow, ist))
}

func TestRankByEnergyStableOnTies(t *testing.T) {
	tasks := []model.Task{
		mkTask("first", 30, 3, model.LevelMedium, model.LevelMedium),
		mkTask("second", 30, 3, model.LevelMedium, model.LevelMedium),
		mkTask("urgent", 30, 0, model.LevelMedium, model.LevelHigh),
	}
	mood := model.MoodAssessment{Exhaustion: 5, Motivation: 5, Focus: 5, Stress: 5}

	got := RankByEnergy(tasks, mood, testNow, ist)
	assert.Equal(t, []string{"urgent", "first", "second"}, ids(got))
}

func TestLocalEnergySchedulerPacksRankedTasks(t *testing.T) {
	s := NewLocalEnergyScheduler(newTestBuilder())
	req := Request{
		Tasks: []model.Task{
			mkTask("long-hard", 90, 1, model.LevelHigh, model.LevelHigh),
			mkTask("quick-easy", 15, 4, model.LevelLow, model.LevelLow),
			mkTask("medium", 30, 2, model.LevelMedium, model.LevelMedium),
		},
		Mood:          model.MoodAssessment{Exhaustion: 9, Motivation: 2, Focus: 2, Stress: 9},
		BudgetMinutes: 60,
	}

	got := s.Schedule(req, testNow)

	require.Equal(t, []string{"quick-easy", "medium"}, ids(got))
	assert.Equal(t, "09:00 AM", got[0].ScheduledTime)
	assert.Equal(t, "09:15 AM", got[1].ScheduledTime)
}
