package task

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
)

// Statuses. Any status may move to any other; there is no forward-only order.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

// Priorities
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

var (
	AllStatuses   = []string{StatusTodo, StatusInProgress, StatusCompleted}
	AllPriorities = []string{PriorityLow, PriorityMedium, PriorityHigh}
)

type Task struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description null.String `json:"description"`
	DueDate     null.Time   `json:"due_date"`
	Priority    string      `json:"priority"`
	Status      string      `json:"status"`
	CreatedBy   string      `json:"created_by"`
	AssigneeID  null.String `json:"assignee_id"`
	ClassID     null.String `json:"class_id"`
	CreatedAt   time.Time   `json:"created_at"` // UTC
	UpdatedAt   time.Time   `json:"updated_at"` // UTC
}

// IsOverdue reports whether the task's due date has passed (UTC calendar
// date) without the task being completed.
func (t Task) IsOverdue(now time.Time) bool {
	if !t.DueDate.Valid || t.Status == StatusCompleted {
		return false
	}
	y, m, d := now.UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return t.DueDate.Time.Before(today)
}

// NewTask contains information needed to create a new Task.
// Status and creator are server-assigned regardless of payload.
type NewTask struct {
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	Priority    string     `json:"priority" validate:"omitempty,taskpriority"`
	AssigneeID  string     `json:"assignee_id"`
	ClassID     string     `json:"class_id"`
}

func (nt *NewTask) Validate(validate *validator.Validate) error {
	nt.Title = core.CleanString(nt.Title)
	nt.Description = core.CleanString(nt.Description)
	nt.Priority = core.CleanString(nt.Priority, true /* lower */)
	return validate.Struct(nt)
}

// UpdateTask is a sparse partial update; only non-nil fields are applied.
type UpdateTask struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	Priority    *string    `json:"priority" validate:"omitempty,taskpriority"`
	Status      *string    `json:"status" validate:"omitempty,taskstatus"`
	AssigneeID  *string    `json:"assignee_id"`
	ClassID     *string    `json:"class_id"`
}

func (ut *UpdateTask) Validate(validate *validator.Validate) error {
	if ut.Title != nil {
		title := core.CleanString(*ut.Title)
		ut.Title = &title
	}
	if ut.Status != nil {
		status := core.CleanString(*ut.Status, true /* lower */)
		ut.Status = &status
	}
	if ut.Priority != nil {
		priority := core.CleanString(*ut.Priority, true /* lower */)
		ut.Priority = &priority
	}
	return validate.Struct(ut)
}

func (ut *UpdateTask) IsEmpty() bool {
	return len(ut.fieldsPresent()) == 0
}

// fieldsPresent names the fields carried by the payload, matching the field
// names the authorization policy speaks in.
func (ut *UpdateTask) fieldsPresent() []string {
	var fields []string
	if ut.Title != nil {
		fields = append(fields, "title")
	}
	if ut.Description != nil {
		fields = append(fields, "description")
	}
	if ut.DueDate != nil {
		fields = append(fields, "due_date")
	}
	if ut.Priority != nil {
		fields = append(fields, "priority")
	}
	if ut.Status != nil {
		fields = append(fields, "status")
	}
	if ut.AssigneeID != nil {
		fields = append(fields, "assignee_id")
	}
	if ut.ClassID != nil {
		fields = append(fields, "class_id")
	}
	return fields
}

// Stats summarizes the tasks visible to an actor.
type Stats struct {
	Total      int `json:"total"`
	Todo       int `json:"todo"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Overdue    int `json:"overdue"`
}

// QueryFilter scopes a task listing; fields are AND-ed.
type QueryFilter struct {
	Search     string `query:"search"`
	Status     string `query:"status"`
	Priority   string `query:"priority"`
	ClassID    string `query:"class_id"`
	CreatedBy  string `query:"-"`
	AssigneeID string `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
	qf.Priority = core.CleanString(qf.Priority, true /* lower */)
}
