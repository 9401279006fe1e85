package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"taskplanner/internal/model"
)

const DefaultDraftTTL = 24 * time.Hour

var ErrNoDraft = errors.New("no draft schedule")

// Draft 生成后、保存前的排程
type Draft struct {
	UserID         int          `json:"user_id"`
	Strategy       string       `json:"strategy"`
	Path           string       `json:"path"`
	FallbackReason string       `json:"fallback_reason,omitempty"`
	BudgetMinutes  int          `json:"budget_minutes"`
	TotalMinutes   int          `json:"total_minutes"`
	Tasks          []model.Task `json:"tasks"`
	GeneratedAt    time.Time    `json:"generated_at"`
}

// DraftStore 每个用户只保留最近一次生成的排程
type DraftStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDraftStore(rdb *redis.Client, ttl time.Duration) *DraftStore {
	if ttl <= 0 {
		ttl = DefaultDraftTTL
	}
	return &DraftStore{rdb: rdb, ttl: ttl}
}

func draftKey(userID int) string {
	return fmt.Sprintf("schedule:draft:%d", userID)
}

func (s *DraftStore) Put(ctx context.Context, d Draft) error {
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := s.rdb.Set(ctx, draftKey(d.UserID), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("store draft: %w", err)
	}
	return nil
}

func (s *DraftStore) Get(ctx context.Context, userID int) (Draft, error) {
	b, err := s.rdb.Get(ctx, draftKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Draft{}, ErrNoDraft
	}
	if err != nil {
		return Draft{}, fmt.Errorf("load draft: %w", err)
	}

	var d Draft
	if err := json.Unmarshal(b, &d); err != nil {
		return Draft{}, fmt.Errorf("decode draft: %w", err)
	}
	return d, nil
}

func (s *DraftStore) Delete(ctx context.Context, userID int) error {
	if err := s.rdb.Del(ctx, draftKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}
