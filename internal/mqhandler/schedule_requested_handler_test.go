package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mqcontracts "taskplanner/contracts/mq"
	"taskplanner/internal/service"
	"taskplanner/internal/store"
	"taskplanner/pkg/util"
)

type fakeGenerator struct {
	calls  int
	params []service.GenerateParams
	err    error
}

func (f *fakeGenerator) Generate(_ context.Context, userID int, p service.GenerateParams) (store.Draft, error) {
	f.calls++
	f.params = append(f.params, p)
	return store.Draft{UserID: userID, Strategy: p.Strategy}, f.err
}

func newDeduper(t *testing.T) *util.Deduper {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return util.NewDeduper(rdb, time.Hour, zap.NewNop())
}

func payload(t *testing.T, p mqcontracts.ScheduleRequestedPayload) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(p)
	require.NoError(t, err)
	return b
}

func TestScheduleRequestedHandlerGenerates(t *testing.T) {
	gen := &fakeGenerator{}
	h := NewScheduleRequestedHandler(gen, newDeduper(t), zap.NewNop())

	err := h.Handle(context.Background(), payload(t, mqcontracts.ScheduleRequestedPayload{
		RequestID: "req-1", UserID: 3, Strategy: "priority", BudgetMinutes: 120,
	}))
	require.NoError(t, err)

	require.Equal(t, 1, gen.calls)
	assert.Equal(t, "priority", gen.params[0].Strategy)
	require.NotNil(t, gen.params[0].BudgetMinutes)
	assert.Equal(t, 120, *gen.params[0].BudgetMinutes)
}

func TestScheduleRequestedHandlerDefaultBudget(t *testing.T) {
	gen := &fakeGenerator{}
	h := NewScheduleRequestedHandler(gen, nil, zap.NewNop())

	require.NoError(t, h.Handle(context.Background(), payload(t, mqcontracts.ScheduleRequestedPayload{UserID: 3})))
	assert.Nil(t, gen.params[0].BudgetMinutes)
}

func TestScheduleRequestedHandlerDeduplicates(t *testing.T) {
	gen := &fakeGenerator{}
	h := NewScheduleRequestedHandler(gen, newDeduper(t), zap.NewNop())
	raw := payload(t, mqcontracts.ScheduleRequestedPayload{RequestID: "req-1", UserID: 3})

	require.NoError(t, h.Handle(context.Background(), raw))
	require.NoError(t, h.Handle(context.Background(), raw))

	assert.Equal(t, 1, gen.calls)
}

func TestScheduleRequestedHandlerReleasesOnFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("db down")}
	h := NewScheduleRequestedHandler(gen, newDeduper(t), zap.NewNop())
	raw := payload(t, mqcontracts.ScheduleRequestedPayload{RequestID: "req-1", UserID: 3})

	assert.Error(t, h.Handle(context.Background(), raw))

	gen.err = nil
	require.NoError(t, h.Handle(context.Background(), raw))
	assert.Equal(t, 2, gen.calls)
}

func TestScheduleRequestedHandlerSkips(t *testing.T) {
	tests := []struct {
		name  string
		raw   json.RawMessage
		err   error
		calls int
	}{
		{"missing user", json.RawMessage(`{"request_id":"r"}`), nil, 0},
		{"energy without mood", json.RawMessage(`{"request_id":"r","user_id":1,"strategy":"energy"}`), service.ErrInvalidMood, 1},
		{"budget too large", json.RawMessage(`{"request_id":"r","user_id":1,"budget_minutes":99999}`), service.ErrInvalidBudget, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{err: tt.err}
			h := NewScheduleRequestedHandler(gen, nil, zap.NewNop())

			assert.NoError(t, h.Handle(context.Background(), tt.raw))
			assert.Equal(t, tt.calls, gen.calls)
		})
	}
}

func TestScheduleRequestedHandlerBadPayload(t *testing.T) {
	h := NewScheduleRequestedHandler(&fakeGenerator{}, nil, zap.NewNop())

	err := h.Handle(context.Background(), json.RawMessage(`{"user_id":"three"}`))
	var typeErr *json.UnmarshalTypeError
	assert.ErrorAs(t, err, &typeErr)
}
