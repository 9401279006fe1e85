package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"taskplanner/internal/model"
)

var (
	ErrEmptyResponse = errors.New("empty llm response")
	ErrNoJSONArray   = errors.New("no json array in llm response")
	ErrUnknownTask   = errors.New("llm response references unknown task")
	ErrDuplicateTask = errors.New("llm response lists a task twice")
	ErrOverBudget    = errors.New("llm schedule exceeds time budget")
	ErrInvalidShape  = errors.New("llm schedule has unexpected shape")
)

// maxScanBytes 每个 '[' 都会尝试一次解码，只扫描前 1 MiB
const maxScanBytes = 1 << 20

// ExtractJSONArray 找到文本中第一个能完整解析的 JSON 数组（容忍前后的说明文字和 ``` 代码块）
func ExtractJSONArray(text string) (json.RawMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyResponse
	}
	if len(text) > maxScanBytes {
		text = text[:maxScanBytes]
	}
	for i := 0; i < len(text); i++ {
		j := strings.IndexByte(text[i:], '[')
		if j < 0 {
			break
		}
		i += j
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err == nil {
			return raw, nil
		}
	}
	return nil, ErrNoJSONArray
}

// DecodeSchedule 严格校验 LLM 返回的排程：
//   - 每个元素必须是任务对象
//   - 没有 id 的元素视为休息时段，跳过
//   - id 必须来自候选任务，且只能出现一次
//   - 时长以存储的任务为准，总和不能超过预算
//
// 除 scheduledTime 外的字段都取自存储的任务，不信任模型改写。
func DecodeSchedule(raw json.RawMessage, candidates []model.Task, budgetMinutes int, fallbackTime string) ([]model.Task, error) {
	var records []model.TaskRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}

	byID := make(map[string]model.Task, len(candidates))
	for _, t := range candidates {
		byID[t.ID] = t
	}

	seen := make(map[string]bool, len(records))
	scheduled := make([]model.Task, 0, len(records))
	used := 0
	for _, r := range records {
		id := strings.TrimSpace(string(r.ID))
		if id == "" {
			continue
		}
		task, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTask, id)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTask, id)
		}
		seen[id] = true

		used += task.Minutes()
		if used > budgetMinutes {
			return nil, fmt.Errorf("%w: %d > %d minutes", ErrOverBudget, used, budgetMinutes)
		}

		task.Scheduled = true
		task.ScheduledTime = strings.TrimSpace(r.ScheduledTime)
		if task.ScheduledTime == "" {
			task.ScheduledTime = fallbackTime
		}
		scheduled = append(scheduled, task)
	}
	return scheduled, nil
}

// fallbackReason 把失败原因归类，用于日志和指标
func fallbackReason(err error) string {
	switch {
	case errors.Is(err, errGeneratorDisabled):
		return "disabled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrEmptyResponse), errors.Is(err, ErrNoJSONArray):
		return "no_json"
	case errors.Is(err, ErrUnknownTask), errors.Is(err, ErrDuplicateTask):
		return "invalid_tasks"
	case errors.Is(err, ErrOverBudget):
		return "over_budget"
	case errors.Is(err, ErrInvalidShape):
		return "invalid_shape"
	default:
		return "llm_error"
	}
}
