package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskplanner/internal/model"
)

func newTestEngine(gen Generator) *Engine {
	return NewEngine(gen, FixedClock{T: testNow}, Options{Location: ist}, nil)
}

func engineRequest() Request {
	return Request{
		Tasks: []model.Task{
			mkTask("report", 60, 5, model.LevelHigh, model.LevelLow),
			mkTask("email", 15, 1, model.LevelLow, model.LevelHigh),
			mkTask("review", 30, 2, model.LevelMedium, model.LevelMedium),
			mkTask("later", 20, -1, model.LevelLow, model.LevelMedium),
		},
		Mood:          model.MoodAssessment{Exhaustion: 4, Motivation: 6, Focus: 6, Stress: 5},
		BudgetMinutes: 90,
	}
}

func TestParseStrategy(t *testing.T) {
	assert.Equal(t, StrategyEnergy, ParseStrategy("Mood"))
	assert.Equal(t, StrategyEnergy, ParseStrategy(" energy "))
	assert.Equal(t, StrategyPreset, ParseStrategy("preset"))
	assert.Equal(t, StrategyPriority, ParseStrategy("PRIORITY"))
	assert.Equal(t, StrategyDeadline, ParseStrategy("fastest"))
	assert.Equal(t, StrategyDeadline, ParseStrategy(""))
}

func TestEngineDeadlineStrategy(t *testing.T) {
	e := newTestEngine(nil)

	res := e.Generate(context.Background(), StrategyDeadline, engineRequest())

	assert.Equal(t, StrategyDeadline, res.Strategy)
	assert.Equal(t, PathLocal, res.Path)
	assert.Equal(t, []string{"email", "review", "later"}, ids(res.Tasks))
	assert.Equal(t, 65, res.TotalMinutes)
	assert.Equal(t, 90, res.BudgetMinutes)
	assert.Equal(t, testNow, res.GeneratedAt)
}

func TestEngineIsDeterministic(t *testing.T) {
	e := newTestEngine(nil)
	for _, s := range []Strategy{StrategyDeadline, StrategyEnergy, StrategyPreset, StrategyPriority} {
		first := e.Generate(context.Background(), s, engineRequest())
		second := e.Generate(context.Background(), s, engineRequest())
		assert.Equal(t, first, second, "strategy=%s", s)
	}
}

func TestEngineUnknownStrategyFallsBackToDeadline(t *testing.T) {
	e := newTestEngine(nil)

	res := e.Generate(context.Background(), Strategy("random"), engineRequest())
	want := e.Generate(context.Background(), StrategyDeadline, engineRequest())

	assert.Equal(t, StrategyDeadline, res.Strategy)
	assert.Equal(t, want.Tasks, res.Tasks)
}

func TestEngineShortCircuitsWithoutCallingGenerator(t *testing.T) {
	gen := &stubGenerator{text: `[]`}
	e := newTestEngine(gen)

	req := engineRequest()
	req.BudgetMinutes = 0
	res := e.Generate(context.Background(), StrategyEnergy, req)
	assert.NotNil(t, res.Tasks)
	assert.Empty(t, res.Tasks)

	req = engineRequest()
	for i := range req.Tasks {
		req.Tasks[i].Status = model.StatusFinished
	}
	res = e.Generate(context.Background(), StrategyEnergy, req)
	assert.Empty(t, res.Tasks)
	assert.Equal(t, PathLocal, res.Path)

	assert.Equal(t, int32(0), gen.calls.Load())
}

func TestEngineFiltersFinishedTasks(t *testing.T) {
	e := newTestEngine(nil)
	req := engineRequest()
	req.Tasks[1].Status = model.StatusFinished

	for _, s := range []Strategy{StrategyDeadline, StrategyEnergy, StrategyPreset, StrategyPriority} {
		res := e.Generate(context.Background(), s, req)
		assert.NotContains(t, ids(res.Tasks), "email", "strategy=%s", s)
	}
}

func TestEnginePresetStrategy(t *testing.T) {
	e := newTestEngine(nil)
	req := engineRequest()
	req.BudgetMinutes = 200

	req.Preset = PresetTired
	res := e.Generate(context.Background(), StrategyPreset, req)
	assert.Equal(t, []string{"email", "later", "review", "report"}, ids(res.Tasks))

	req.Preset = PresetEnergetic
	res = e.Generate(context.Background(), StrategyPreset, req)
	assert.Equal(t, []string{"report", "review", "email", "later"}, ids(res.Tasks))

	req.Preset = "sleepy"
	res = e.Generate(context.Background(), StrategyPreset, req)
	assert.Equal(t, []string{"review", "report", "email", "later"}, ids(res.Tasks))
}

func TestEnginePriorityStrategy(t *testing.T) {
	e := newTestEngine(nil)
	req := engineRequest()
	req.BudgetMinutes = 200

	res := e.Generate(context.Background(), StrategyPriority, req)
	assert.Equal(t, []string{"email", "review", "later", "report"}, ids(res.Tasks))
}

func TestEngineEnergyFallbackMatchesLocal(t *testing.T) {
	failing := newTestEngine(&stubGenerator{err: errors.New("quota exceeded")})
	local := newTestEngine(nil)

	got := failing.Generate(context.Background(), StrategyEnergy, engineRequest())
	want := local.Generate(context.Background(), StrategyEnergy, engineRequest())

	assert.Equal(t, want.Tasks, got.Tasks)
	assert.Equal(t, PathLocal, got.Path)
	assert.Equal(t, "llm_error", got.FallbackReason)
	assert.Equal(t, "disabled", want.FallbackReason)
	assert.LessOrEqual(t, got.TotalMinutes, got.BudgetMinutes)
}

func TestEngineEnergyUsesAIResponse(t *testing.T) {
	gen := &stubGenerator{text: `[{"id":"review","scheduledTime":"09:00 AM"},{"id":"email","scheduledTime":"09:35 AM"}]`}
	e := newTestEngine(gen)

	res := e.Generate(context.Background(), Strategy("mood"), engineRequest())

	require.Equal(t, PathAI, res.Path)
	assert.Equal(t, StrategyEnergy, res.Strategy)
	assert.Equal(t, []string{"review", "email"}, ids(res.Tasks))
	assert.Equal(t, 45, res.TotalMinutes)
}
