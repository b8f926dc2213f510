package models

import "time"

type Plan struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"-"`
	Goal      string    `db:"goal" json:"goal"`
	IsActive  bool      `db:"is_active" json:"isActive"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

type Pillar struct {
	ID       string `db:"id" json:"id"`
	PlanID   string `db:"plan_id" json:"planId"`
	Position int    `db:"position" json:"position"`
	Title    string `db:"title" json:"title"`
}

type Task struct {
	ID          string `db:"id" json:"id"`
	PillarID    string `db:"pillar_id" json:"pillarId"`
	PillarTitle string `db:"pillar_title" json:"-"`
	Order       int    `db:"position" json:"order"`
	Content     string `db:"content" json:"content"`
}

// PillarTasks groups a pillar with its ordered tasks.
type PillarTasks struct {
	PillarID    string `json:"pillarId"`
	PillarTitle string `json:"pillarTitle"`
	Tasks       []Task `json:"tasks"`
}
