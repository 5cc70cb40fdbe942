package notification

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Types
const (
	TypeTaskAssigned  = "task_assigned"
	TypeTaskCompleted = "task_completed"
	TypeTaskOverdue   = "task_overdue"
	TypeClassJoined   = "class_joined"
)

// Notification is an append-only side effect of a primary mutation; only
// is_read ever changes after creation.
type Notification struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	Type      string      `json:"type"`
	Title     string      `json:"title"`
	Message   string      `json:"message"`
	TaskID    null.String `json:"task_id"`
	ClassID   null.String `json:"class_id"`
	IsRead    bool        `json:"is_read"`
	CreatedAt time.Time   `json:"created_at"` // UTC
}

type QueryFilter struct {
	UnreadOnly bool `query:"unread_only"`
}
