package models

import "time"

// DailyTask is one task assigned to a user for a single UTC calendar day.
type DailyTask struct {
	ID          string     `db:"id" json:"id"`
	TaskID      string     `db:"task_id" json:"taskId"`
	Day         string     `db:"day" json:"date"` // YYYY-MM-DD
	Content     string     `db:"content" json:"content"`
	PillarTitle string     `db:"pillar_title" json:"pillarTitle"`
	Completed   bool       `db:"completed" json:"completed"`
	CompletedAt *time.Time `db:"completed_at" json:"completedAt"`
}

// DayCompletion aggregates a day's daily tasks.
type DayCompletion struct {
	Date      string `json:"date"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}
