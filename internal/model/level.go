package model

import "strings"

// Level 难度 / 优先级的统一枚举
type Level int

const (
	LevelLow Level = iota + 1
	LevelMedium
	LevelHigh
)

// ParseLevel 统一归一化入口：小写 + 去空格，无法识别的值一律按 medium 处理
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return LevelLow
	case "high":
		return LevelHigh
	default:
		return LevelMedium
	}
}

func (l Level) String() string {
	switch l {
	case LevelLow:
		return "low"
	case LevelHigh:
		return "high"
	default:
		return "medium"
	}
}

// Value 评分用的数值：low=1, medium=2, high=3
func (l Level) Value() int {
	switch l {
	case LevelLow, LevelMedium, LevelHigh:
		return int(l)
	default:
		return int(LevelMedium)
	}
}

type Status string

const (
	StatusUnfinished Status = "unfinished"
	StatusFinished   Status = "finished"
)

// ParseStatus 大小写不敏感；其他值原样保留（小写），不参与排程
func ParseStatus(s string) Status {
	return Status(strings.ToLower(strings.TrimSpace(s)))
}
