package notification

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/class"
	"github.com/trezcool/darasa/core/task"
	"github.com/trezcool/darasa/core/user"
)

var ErrNotFound = core.NewNotFoundError("notification not found")

type (
	Repository interface {
		CreateNotification(ctx context.Context, n Notification, exec ...core.DBExecutor) (Notification, error)
		QueryNotifications(ctx context.Context, userID string, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Notification, error)
		CountUnread(ctx context.Context, userID string, exec ...core.DBExecutor) (int, error)
		// MarkRead flips is_read on the caller's notification only; the
		// user scoping is part of the statement, not a separate check.
		MarkRead(ctx context.Context, userID, id string, exec ...core.DBExecutor) error
		MarkAllRead(ctx context.Context, userID string, exec ...core.DBExecutor) error
		OverdueNotificationExists(ctx context.Context, taskID, userID string, exec ...core.DBExecutor) (bool, error)
	}

	// OverdueTaskLister is the slice of the task repository the overdue scan needs.
	OverdueTaskLister interface {
		QueryOverdueTasks(ctx context.Context, before time.Time, exec ...core.DBExecutor) ([]task.Task, error)
	}

	// UserGetter resolves recipients for the email copies of dispatches.
	UserGetter interface {
		GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error)
	}

	ServiceInterface interface {
		Query(ctx context.Context, actor user.User, filter *QueryFilter, ordering []core.DBOrdering) ([]Notification, error)
		UnreadCount(ctx context.Context, actor user.User) (int, error)
		MarkRead(ctx context.Context, actor user.User, id string) error
		MarkAllRead(ctx context.Context, actor user.User) error
		ScanOverdue(ctx context.Context) (int, error)

		// dispatchers; fire-and-forget, failures are logged and swallowed
		TaskAssigned(ctx context.Context, tsk task.Task)
		TaskCompleted(ctx context.Context, tsk task.Task)
		ClassJoined(ctx context.Context, cls class.Class, member user.User)
	}

	service struct {
		repo    Repository
		tasks   OverdueTaskLister
		users   UserGetter
		mailSvc core.EmailService
		logger  core.Logger
	}
)

var _ ServiceInterface = (*service)(nil)

var nowFunc = time.Now // mockable

func NewService(repo Repository, tasks OverdueTaskLister, users UserGetter, mailSvc core.EmailService, logger core.Logger) ServiceInterface {
	return &service{
		repo:    repo,
		tasks:   tasks,
		users:   users,
		mailSvc: mailSvc,
		logger:  logger,
	}
}

func (svc *service) Query(ctx context.Context, actor user.User, filter *QueryFilter, ordering []core.DBOrdering) ([]Notification, error) {
	if ordering == nil {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	return svc.repo.QueryNotifications(ctx, actor.ID, filter, ordering)
}

func (svc *service) UnreadCount(ctx context.Context, actor user.User) (int, error) {
	return svc.repo.CountUnread(ctx, actor.ID)
}

func (svc *service) MarkRead(ctx context.Context, actor user.User, id string) error {
	return svc.repo.MarkRead(ctx, actor.ID, id)
}

func (svc *service) MarkAllRead(ctx context.Context, actor user.User) error {
	return svc.repo.MarkAllRead(ctx, actor.ID)
}

// Dispatchers

func (svc *service) TaskAssigned(ctx context.Context, tsk task.Task) {
	svc.dispatch(ctx, Notification{
		UserID:  tsk.AssigneeID.String,
		Type:    TypeTaskAssigned,
		Title:   "New Task Assigned",
		Message: fmt.Sprintf("You have been assigned a new task: %s", tsk.Title),
		TaskID:  nullString(tsk.ID),
		ClassID: tsk.ClassID,
	})
}

func (svc *service) TaskCompleted(ctx context.Context, tsk task.Task) {
	svc.dispatch(ctx, Notification{
		UserID:  tsk.CreatedBy,
		Type:    TypeTaskCompleted,
		Title:   "Task Completed",
		Message: fmt.Sprintf("Task completed: %s", tsk.Title),
		TaskID:  nullString(tsk.ID),
		ClassID: tsk.ClassID,
	})
}

func (svc *service) ClassJoined(ctx context.Context, cls class.Class, member user.User) {
	svc.dispatch(ctx, Notification{
		UserID:  cls.TeacherID,
		Type:    TypeClassJoined,
		Title:   "New Class Member",
		Message: fmt.Sprintf("%s joined your class %s", member.Name, cls.Name),
		ClassID: nullString(cls.ID),
	})
}

// ScanOverdue dispatches a task_overdue notification to the creator of every
// incomplete task past its due date, at most once per (task, creator) pair.
// The check-then-act pair is not transactional: concurrent scans may
// occasionally duplicate, which is accepted.
func (svc *service) ScanOverdue(ctx context.Context) (int, error) {
	// the cutoff is the UTC calendar date, not the current instant: a task
	// due earlier today is not overdue until tomorrow.
	y, m, d := nowFunc().UTC().Date()
	cutoff := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	overdue, err := svc.tasks.QueryOverdueTasks(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	var dispatched int
	for _, tsk := range overdue {
		exists, err := svc.repo.OverdueNotificationExists(ctx, tsk.ID, tsk.CreatedBy)
		if err != nil {
			return dispatched, err
		}
		if exists {
			continue
		}
		if ok := svc.create(ctx, Notification{
			UserID:  tsk.CreatedBy,
			Type:    TypeTaskOverdue,
			Title:   "Task Overdue",
			Message: fmt.Sprintf("Task is overdue: %s", tsk.Title),
			TaskID:  nullString(tsk.ID),
			ClassID: tsk.ClassID,
		}); ok {
			dispatched++
		}
	}
	return dispatched, nil
}

// dispatch is the fire-and-forget entry point used by primary mutations.
func (svc *service) dispatch(ctx context.Context, n Notification) {
	svc.create(ctx, n)
}

// create inserts the record and sends the email copy; both are best-effort
// and must never fail the caller's primary operation.
func (svc *service) create(ctx context.Context, n Notification) bool {
	n.CreatedAt = time.Now().UTC()
	if _, err := svc.repo.CreateNotification(ctx, n); err != nil {
		svc.logger.Error(fmt.Sprintf("dispatching %s notification: %v", n.Type, err), err)
		return false
	}
	svc.email(ctx, n)
	return true
}

func (svc *service) email(ctx context.Context, n Notification) {
	recipient, err := svc.users.GetUser(ctx, user.GetFilter{ID: n.UserID})
	if err != nil {
		svc.logger.Error(fmt.Sprintf("resolving notification recipient: %v", err), err)
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: recipient.Name, Address: recipient.Email}},
		Subject: n.Title,
		BodyStr: n.Message,
	})
}

func nullString(s string) null.String {
	return null.NewString(s, s != "")
}
