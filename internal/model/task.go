package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DefaultDurationMinutes 时长缺失或格式错误时的默认值
const DefaultDurationMinutes = 30

// 单个任务时长和排程预算的上限都是一天
const (
	MaxDurationMinutes = 24 * 60
	MaxBudgetMinutes   = 24 * 60
)

// Task 归一化之后的任务，排程引擎只处理这个类型
type Task struct {
	ID          string
	Name        string
	Description string
	Deadline    Date // 零值 = 没有截止日期
	Duration    int  // 分钟，始终 > 0
	Difficulty  Level
	Priority    Level
	Status      Status
	Type        string // casual / official，原样透传

	Scheduled     bool
	ScheduledTime string
}

// Minutes 排程使用的时长，非法值回落到默认值，超过一天按一天算
func (t Task) Minutes() int {
	if t.Duration <= 0 {
		return DefaultDurationMinutes
	}
	return min(t.Duration, MaxDurationMinutes)
}

func (t Task) HasDeadline() bool {
	return !t.Deadline.IsZero()
}

// Eligible 只有 unfinished 的任务可以被排程
func (t Task) Eligible() bool {
	return t.Status == StatusUnfinished
}

// TaskRecord 存储 / 传输层的宽松结构（字段都是字符串，来自表单、数据库或 LLM 输出）
type TaskRecord struct {
	ID                FlexString `json:"id"`
	Name              string     `json:"task_name"`
	Deadline          string     `json:"task_deadline"`
	EstimatedDuration FlexString `json:"estimated_duration"`
	Description       string     `json:"task_description"`
	Difficulty        string     `json:"difficulty_level"`
	Priority          string     `json:"priority_level"`
	Status            string     `json:"status"`
	Type              string     `json:"task_type"`
	Scheduled         bool       `json:"scheduled"`
	ScheduledTime     string     `json:"scheduledTime,omitempty"`
}

// Normalize 在数据模型边界做一次性归一化
func (r TaskRecord) Normalize() Task {
	deadline, err := ParseDate(r.Deadline)
	if err != nil {
		deadline = Date{}
	}
	return Task{
		ID:            strings.TrimSpace(string(r.ID)),
		Name:          r.Name,
		Description:   r.Description,
		Deadline:      deadline,
		Duration:      ParseDuration(string(r.EstimatedDuration)),
		Difficulty:    ParseLevel(r.Difficulty),
		Priority:      ParseLevel(r.Priority),
		Status:        ParseStatus(r.Status),
		Type:          strings.ToLower(strings.TrimSpace(r.Type)),
		Scheduled:     r.Scheduled,
		ScheduledTime: strings.TrimSpace(r.ScheduledTime),
	}
}

func (t Task) Record() TaskRecord {
	return TaskRecord{
		ID:                FlexString(t.ID),
		Name:              t.Name,
		Deadline:          t.Deadline.String(),
		EstimatedDuration: FlexString(strconv.Itoa(t.Duration)),
		Description:       t.Description,
		Difficulty:        t.Difficulty.String(),
		Priority:          t.Priority.String(),
		Status:            string(t.Status),
		Type:              t.Type,
		Scheduled:         t.Scheduled,
		ScheduledTime:     t.ScheduledTime,
	}
}

func (t Task) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Record())
}

func (t *Task) UnmarshalJSON(b []byte) error {
	var r TaskRecord
	if err := json.Unmarshal(b, &r); err != nil {
		return err
	}
	*t = r.Normalize()
	return nil
}

// ParseDuration 取前导整数（"45 minutes" -> 45），取不到或 <= 0 时返回 30，上限 MaxDurationMinutes
func ParseDuration(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return DefaultDurationMinutes
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n <= 0 {
		return DefaultDurationMinutes
	}
	return min(n, MaxDurationMinutes)
}

// FlexString 接受 JSON 字符串、数字或 null（LLM 经常把 "30" 写成 30，把 "17" 写成 17）
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("flex string: expected string or number, got %s", b)
		}
		*f = FlexString(n.String())
		return nil
	}
}
