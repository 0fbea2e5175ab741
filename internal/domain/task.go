package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskSourceCompetitiveScan tags tasks created from scan alerts.
const TaskSourceCompetitiveScan = "competitive_scan"

// TaskStatusOpen is the status of a newly created task.
const TaskStatusOpen = "open"

// Task categories.
const (
	TaskCategorySEO        = "seo"
	TaskCategoryContent    = "content"
	TaskCategoryTechnical  = "technical"
	TaskCategoryReputation = "reputation"
)

// Task priorities.
const (
	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
	TaskPriorityUrgent = "urgent"
)

// TaskSuggestion is the part of an alert needed to create a work-queue task.
type TaskSuggestion struct {
	Title        string         `json:"title"`
	Category     string         `json:"category"`
	Priority     string         `json:"priority"`
	ContentBrief map[string]any `json:"content_brief,omitempty"`
}

// ClientTask is a work-queue task linked to the scan that produced it.
type ClientTask struct {
	ID           uuid.UUID      `db:"id"            json:"id"`
	ClientID     string         `db:"client_id"     json:"client_id"`
	ScanID       *uuid.UUID     `db:"scan_id"       json:"scan_id,omitempty"`
	Title        string         `db:"title"         json:"title"`
	Category     string         `db:"category"      json:"category"`
	Priority     string         `db:"priority"      json:"priority"`
	Source       string         `db:"source"        json:"source"`
	ContentBrief map[string]any `db:"-"             json:"content_brief,omitempty"`
	Status       string         `db:"status"        json:"status"`
	CreatedAt    time.Time      `db:"created_at"    json:"created_at"`
}
