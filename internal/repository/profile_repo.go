package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"taskplanner/internal/model"
)

type ProfileRepository struct {
	db *pgxpool.Pool
}

func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Get 用户还没有填写画像时返回空画像
func (r *ProfileRepository) Get(ctx context.Context, userID int) (model.UserProfile, error) {
	query := `
        SELECT age, gender, occupation, peak_hours, preferred_task_types, sleep_routine,
               strengths, stress_handling, prioritization_style, work_style
        FROM user_profiles
        WHERE user_id = $1
    `
	var p model.UserProfile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&p.Age,
		&p.Gender,
		&p.Occupation,
		&p.PeakHours,
		&p.PreferredTaskTypes,
		&p.SleepRoutine,
		&p.Strengths,
		&p.StressHandling,
		&p.PrioritizationStyle,
		&p.WorkStyle,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.UserProfile{}, nil
	}
	if err != nil {
		return model.UserProfile{}, fmt.Errorf("load profile: %w", err)
	}
	return p, nil
}
