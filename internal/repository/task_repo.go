package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"taskplanner/internal/model"
	"taskplanner/pkg/outbox"
)

// statusKey 与 migrations/001_init.sql 里 idx_tasks_user_status 的表达式一致，改动时两边一起改
const statusKey = "lower(trim(status))"

type TaskRepository struct {
	db *pgxpool.Pool
}

func NewTaskRepository(db *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{db: db}
}

// ScheduleEntry 一条要写回的排程结果
type ScheduleEntry struct {
	TaskID        string
	ScheduledTime string
}

type taskRow struct {
	ID                int64
	Name              string
	Description       string
	Deadline          *time.Time
	EstimatedDuration string
	Difficulty        string
	Priority          string
	Status            string
	Type              string
	Scheduled         bool
	ScheduledTime     string
}

// record 转成宽松的 TaskRecord，再走统一的 Normalize
func (r taskRow) record() model.TaskRecord {
	deadline := ""
	if r.Deadline != nil {
		deadline = r.Deadline.Format(time.DateOnly)
	}
	return model.TaskRecord{
		ID:                model.FlexString(strconv.FormatInt(r.ID, 10)),
		Name:              r.Name,
		Description:       r.Description,
		Deadline:          deadline,
		EstimatedDuration: model.FlexString(r.EstimatedDuration),
		Difficulty:        r.Difficulty,
		Priority:          r.Priority,
		Status:            r.Status,
		Type:              r.Type,
		Scheduled:         r.Scheduled,
		ScheduledTime:     r.ScheduledTime,
	}
}

// ListUnfinished returns the user's unfinished tasks in insertion order.
func (r *TaskRepository) ListUnfinished(ctx context.Context, userID int) ([]model.Task, error) {
	query := `
        SELECT id, task_name, task_description, task_deadline, estimated_duration,
               difficulty_level, priority_level, status, task_type, scheduled, scheduled_time
        FROM tasks
        WHERE user_id = $1 AND ` + statusKey + ` = 'unfinished'
        ORDER BY id
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query unfinished tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		var row taskRow
		if err := rows.Scan(
			&row.ID,
			&row.Name,
			&row.Description,
			&row.Deadline,
			&row.EstimatedDuration,
			&row.Difficulty,
			&row.Priority,
			&row.Status,
			&row.Type,
			&row.Scheduled,
			&row.ScheduledTime,
		); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, row.record().Normalize())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

// MarkScheduled 在一个事务里写回排程时间并写入 outbox 事件，只更新属于该用户的任务，返回更新的行数
func (r *TaskRepository) MarkScheduled(ctx context.Context, userID int, entries []ScheduleEntry, events ...outbox.Message) (int, error) {
	ids, err := parseTaskIDs(entries)
	if err != nil {
		return 0, err
	}

	updated := 0
	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if len(entries) > 0 {
			batch := &pgx.Batch{}
			for i, e := range entries {
				batch.Queue(`
                    UPDATE tasks
                    SET scheduled = TRUE, scheduled_time = $1, updated_at = NOW()
                    WHERE id = $2 AND user_id = $3
                `, e.ScheduledTime, ids[i], userID)
			}

			results := tx.SendBatch(ctx, batch)
			for range entries {
				tag, err := results.Exec()
				if err != nil {
					results.Close()
					return err
				}
				updated += int(tag.RowsAffected())
			}
			if err := results.Close(); err != nil {
				return err
			}
		}

		for _, m := range events {
			if err := outbox.Insert(ctx, tx, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("mark tasks scheduled: %w", err)
	}
	return updated, nil
}

// ListUsersWithUnfinished 每日任务的用户列表
func (r *TaskRepository) ListUsersWithUnfinished(ctx context.Context) ([]int, error) {
	query := `
        SELECT DISTINCT user_id
        FROM tasks
        WHERE ` + statusKey + ` = 'unfinished'
        ORDER BY user_id
    `
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	userIDs, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, fmt.Errorf("collect users: %w", err)
	}
	return userIDs, nil
}

func parseTaskIDs(entries []ScheduleEntry) ([]int64, error) {
	ids := make([]int64, len(entries))
	for i, e := range entries {
		id, err := strconv.ParseInt(e.TaskID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid task id %q: %w", e.TaskID, err)
		}
		ids[i] = id
	}
	return ids, nil
}
