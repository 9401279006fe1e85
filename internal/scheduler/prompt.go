package scheduler

import (
	"fmt"
	"strings"

	"taskplanner/internal/model"
)

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}

func joinOrUnknown(items []string) string {
	return orUnknown(strings.Join(items, ", "))
}

// BuildPrompt 生成发送给 LLM 的提示词。start 是已格式化的开始时间，zone 是时区名。
func BuildPrompt(req Request, tasks []model.Task, start, zone string) string {
	p := req.Profile
	m := req.Mood
	var b strings.Builder

	b.WriteString("I need to create a personalized task schedule based on the following information.\n\n")

	b.WriteString("USER PROFILE:\n")
	fmt.Fprintf(&b, "Age: %s\n", orUnknown(p.Age))
	fmt.Fprintf(&b, "Gender: %s\n", orUnknown(p.Gender))
	fmt.Fprintf(&b, "Occupation: %s\n", orUnknown(p.Occupation))
	fmt.Fprintf(&b, "Peak productivity hours: %s\n", joinOrUnknown(p.PeakHours))
	fmt.Fprintf(&b, "Preferred task types: %s\n", joinOrUnknown(p.PreferredTaskTypes))
	fmt.Fprintf(&b, "Sleep routine: %s\n", orUnknown(p.SleepRoutine))
	fmt.Fprintf(&b, "Strengths: %s\n", joinOrUnknown(p.Strengths))
	fmt.Fprintf(&b, "Work style: %s\n", orUnknown(p.WorkStyle))
	fmt.Fprintf(&b, "Task prioritization style: %s\n", orUnknown(p.PrioritizationStyle))
	fmt.Fprintf(&b, "Stress handling: %s\n\n", orUnknown(p.StressHandling))

	b.WriteString("CURRENT MOOD ASSESSMENT:\n")
	fmt.Fprintf(&b, "Exhaustion level (1-10): %d\n", m.Exhaustion)
	fmt.Fprintf(&b, "Motivation level (1-10): %d\n", m.Motivation)
	fmt.Fprintf(&b, "Focus level (1-10): %d\n", m.Focus)
	fmt.Fprintf(&b, "Stress level (1-10): %d\n", m.Stress)
	feeling := m.CurrentFeeling
	if strings.TrimSpace(feeling) == "" {
		feeling = "No description provided"
	}
	fmt.Fprintf(&b, "Current feeling: %s\n", feeling)
	fmt.Fprintf(&b, "Derived energy level: %s\n\n", DeriveEnergy(m))

	b.WriteString("AVAILABLE TASKS:\n")
	for _, t := range tasks {
		deadline := t.Deadline.String()
		if deadline == "" {
			deadline = "none"
		}
		fmt.Fprintf(&b, "- ID: %s\n", t.ID)
		fmt.Fprintf(&b, "  Task: %s\n", t.Name)
		fmt.Fprintf(&b, "  Description: %s\n", t.Description)
		fmt.Fprintf(&b, "  Deadline: %s\n", deadline)
		fmt.Fprintf(&b, "  Estimated Duration: %d minutes\n", t.Minutes())
		fmt.Fprintf(&b, "  Difficulty Level: %s\n", t.Difficulty)
		fmt.Fprintf(&b, "  Priority Level: %s\n", t.Priority)
		fmt.Fprintf(&b, "  Type: %s\n", orUnknown(t.Type))
	}

	b.WriteString("\nCONSTRAINTS:\n")
	fmt.Fprintf(&b, "- Total productivity duration available: %d minutes\n", req.BudgetMinutes)
	b.WriteString("- The sum of the estimated durations of the included tasks must not exceed this limit\n")
	fmt.Fprintf(&b, "- The schedule starts at %s (%s)\n\n", start, zone)

	b.WriteString("Based on all this information, create an optimal schedule that:\n")
	b.WriteString("1. Takes into account the user's current mood and energy levels\n")
	b.WriteString("2. Prioritizes tasks appropriately based on deadlines, difficulty, and the user's current state\n")
	b.WriteString("3. Considers the user's preferences and work style\n")
	b.WriteString("4. Maximizes productivity within the given time constraint\n")
	b.WriteString("5. Leaves short rest breaks between tasks; breaks shift start times but are not listed as tasks\n\n")

	b.WriteString("Return ONLY a JSON array, one object per scheduled task, in execution order:\n")
	b.WriteString(`[
  {
    "id": "task id exactly as given above",
    "task_name": "Task Name",
    "task_deadline": "YYYY-MM-DD",
    "estimated_duration": "duration in minutes",
    "difficulty_level": "low/medium/high",
    "priority_level": "low/medium/high",
    "status": "unfinished",
    "scheduled": true,
    "scheduledTime": "HH:MM AM/PM"
  }
]
`)
	fmt.Fprintf(&b, "Only include tasks that fit within the %d minute time limit.\n", req.BudgetMinutes)
	return b.String()
}
