package mq

import "time"

// Routing keys on the "events" exchange
const (
	RoutingScheduleRequested = "schedule.requested"
	RoutingScheduleGenerated = "schedule.generated"
	RoutingScheduleSaved     = "schedule.saved"
)

// ScheduleRequestedPayload 请求为某个用户异步生成排程（每日任务或其他服务触发）
type ScheduleRequestedPayload struct {
	RequestID     string `json:"request_id"`
	UserID        int    `json:"user_id"`
	Strategy      string `json:"strategy"`
	BudgetMinutes int    `json:"budget_minutes,omitempty"`
	Preset        string `json:"preset,omitempty"`
}

type ScheduledTaskItem struct {
	TaskID        string `json:"task_id"`
	Name          string `json:"task_name"`
	ScheduledTime string `json:"scheduledTime"`
	Minutes       int    `json:"estimated_duration"`
}

// ScheduleGeneratedPayload 新的草稿排程已经生成
type ScheduleGeneratedPayload struct {
	UserID         int                 `json:"user_id"`
	Strategy       string              `json:"strategy"`
	Path           string              `json:"path"`
	FallbackReason string              `json:"fallback_reason,omitempty"`
	BudgetMinutes  int                 `json:"budget_minutes"`
	TotalMinutes   int                 `json:"total_minutes"`
	Tasks          []ScheduledTaskItem `json:"tasks"`
	GeneratedAt    time.Time           `json:"generated_at"`
}

// ScheduleSavedPayload 草稿排程已经写回任务表
type ScheduleSavedPayload struct {
	UserID  int       `json:"user_id"`
	TaskIDs []string  `json:"task_ids"`
	SavedAt time.Time `json:"saved_at"`
}
