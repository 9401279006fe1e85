package model

import "fmt"

// UserProfile 个性化排程用的用户画像，所有字段可选
type UserProfile struct {
	Age                 string   `json:"age,omitempty"`
	Gender              string   `json:"gender,omitempty"`
	Occupation          string   `json:"occupation,omitempty"`
	PeakHours           []string `json:"peak_hours,omitempty"`
	PreferredTaskTypes  []string `json:"preferred_task_types,omitempty"`
	SleepRoutine        string   `json:"sleep_routine,omitempty"`
	Strengths           []string `json:"strengths,omitempty"`
	StressHandling      string   `json:"stress_handling,omitempty"`
	PrioritizationStyle string   `json:"prioritization_style,omitempty"`
	WorkStyle           string   `json:"work_style,omitempty"`
}

const (
	MoodScaleMin = 1
	MoodScaleMax = 10
)

// MoodAssessment 单次请求的心情评估，不落库
type MoodAssessment struct {
	Exhaustion     int    `json:"exhaustion"`
	Motivation     int    `json:"motivation"`
	Focus          int    `json:"focus"`
	Stress         int    `json:"stress"`
	CurrentFeeling string `json:"current_feeling,omitempty"`
}

// Validate 四个量表都必须在 1..10
func (m MoodAssessment) Validate() error {
	scales := []struct {
		name  string
		value int
	}{
		{"exhaustion", m.Exhaustion},
		{"motivation", m.Motivation},
		{"focus", m.Focus},
		{"stress", m.Stress},
	}
	for _, s := range scales {
		if s.value < MoodScaleMin || s.value > MoodScaleMax {
			return fmt.Errorf("%s must be between %d and %d, got %d", s.name, MoodScaleMin, MoodScaleMax, s.value)
		}
	}
	return nil
}
