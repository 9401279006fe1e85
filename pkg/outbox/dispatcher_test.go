package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskplanner/pkg/trace"
)

type memStore struct {
	events  []Event
	listErr error
	sent    []int64
	failed  []int64
}

func (m *memStore) GetPendingEvents(_ context.Context, limit int) ([]Event, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	if len(m.events) > limit {
		return m.events[:limit], nil
	}
	return m.events, nil
}

func (m *memStore) MarkAsSent(_ context.Context, id int64) error {
	m.sent = append(m.sent, id)
	return nil
}

func (m *memStore) MarkAsFailed(_ context.Context, id int64, _ int) error {
	m.failed = append(m.failed, id)
	return nil
}

type capturePublisher struct {
	keys     []string
	bodies   []string
	traceIDs []string
	failKey  string
}

func (p *capturePublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	if routingKey == p.failKey {
		return errors.New("channel closed")
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	p.keys = append(p.keys, routingKey)
	p.bodies = append(p.bodies, string(b))
	p.traceIDs = append(p.traceIDs, trace.FromContext(ctx))
	return nil
}

func TestDispatcherRunOnce(t *testing.T) {
	store := &memStore{events: []Event{
		{ID: 1, RoutingKey: "schedule.saved", Payload: json.RawMessage(`{"user_id":7}`), TraceID: "trace-1"},
		{ID: 2, RoutingKey: "broken", Payload: json.RawMessage(`{}`)},
		{ID: 3, RoutingKey: "schedule.saved", Payload: json.RawMessage(`{"user_id":8}`)},
	}}
	pub := &capturePublisher{failKey: "broken"}
	d := NewDispatcher(store, pub, zap.NewNop())

	sent := d.RunOnce(context.Background())

	assert.Equal(t, 2, sent)
	assert.Equal(t, []int64{1, 3}, store.sent)
	assert.Equal(t, []int64{2}, store.failed)
	require.Len(t, pub.bodies, 2)
	assert.JSONEq(t, `{"user_id":7}`, pub.bodies[0])
	assert.Equal(t, "trace-1", pub.traceIDs[0])
	assert.Empty(t, pub.traceIDs[1])
}

func TestDispatcherRespectsBatchSize(t *testing.T) {
	store := &memStore{events: []Event{
		{ID: 1, RoutingKey: "a", Payload: json.RawMessage(`1`)},
		{ID: 2, RoutingKey: "b", Payload: json.RawMessage(`2`)},
	}}
	d := NewDispatcher(store, &capturePublisher{}, zap.NewNop()).WithBatchSize(1)

	assert.Equal(t, 1, d.RunOnce(context.Background()))
	assert.Equal(t, []int64{1}, store.sent)
}

func TestDispatcherListError(t *testing.T) {
	store := &memStore{listErr: errors.New("db down")}
	d := NewDispatcher(store, &capturePublisher{}, zap.NewNop())

	assert.Equal(t, 0, d.RunOnce(context.Background()))
}

func TestDispatcherStartStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	d := NewDispatcher(&memStore{}, &capturePublisher{}, zap.NewNop())

	done := make(chan struct{})
	go func() {
		d.Start(ctx)
		close(done)
	}()
	cancel()
	<-done
}
