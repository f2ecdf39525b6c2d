package model

import "time"

// Task statuses. "pending" is the default for new tasks.
const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
)

// Task priorities. "medium" is the default for new tasks.
const (
	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
)

// Task is a single scheduled item, optionally attached to a project.
//
// Date is the calendar day the task belongs to (ISO "2006-01-02");
// StartTime/EndTime are optional "15:04" clock strings. We keep all three
// as strings rather than time.Time — they are opaque UI values that only
// need equality filtering, and string storage avoids timezone drift
// between the browser and the server.
//
// Tags and Categories are free-form lists; the SQLite repository stores
// them as JSON text in a single column.
type Task struct {
	ID          string    `json:"id"          db:"id"`
	UserID      string    `json:"userId"      db:"user_id"`
	ProjectID   string    `json:"projectId"   db:"project_id"` // "" = no project
	Title       string    `json:"title"       db:"title"`
	Description string    `json:"description" db:"description"`
	Date        string    `json:"date"        db:"date"`
	StartTime   string    `json:"startTime"   db:"start_time"`
	EndTime     string    `json:"endTime"     db:"end_time"`
	Status      string    `json:"status"      db:"status"`
	Priority    string    `json:"priority"    db:"priority"`
	Tags        []string  `json:"tags"        db:"tags"`
	Categories  []string  `json:"categories"  db:"categories"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt"   db:"updated_at"`
}
