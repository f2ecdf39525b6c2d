package model

import "time"

// Project is a user-owned grouping of tasks.
//
// Name is a short machine-friendly label, Title the display heading, Color
// a hex string the UI uses for badges and the calendar. All three are
// required at creation; updates are partial (absent fields keep their
// current value).
type Project struct {
	ID        string    `json:"id"        db:"id"`
	UserID    string    `json:"userId"    db:"user_id"`
	Name      string    `json:"name"      db:"name"`
	Title     string    `json:"title"     db:"title"`
	Color     string    `json:"color"     db:"color"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
