package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/notification"
)

type notificationRow struct {
	ID        string      `db:"id"`
	UserID    string      `db:"user_id"`
	Type      string      `db:"type"`
	Title     string      `db:"title"`
	Message   string      `db:"message"`
	TaskID    null.String `db:"task_id"`
	ClassID   null.String `db:"class_id"`
	IsRead    bool        `db:"is_read"`
	CreatedAt time.Time   `db:"created_at"`
}

type notificationRepository struct {
	exec core.DBExecutor
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(exec core.DBExecutor) *notificationRepository {
	return &notificationRepository{exec: exec}
}

func (repo notificationRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo notificationRepository) toRow(n notification.Notification) notificationRow {
	return notificationRow{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		TaskID:    n.TaskID,
		ClassID:   n.ClassID,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt.UTC(),
	}
}

func (repo notificationRepository) fromRow(row notificationRow) notification.Notification {
	return notification.Notification{
		ID:        row.ID,
		UserID:    row.UserID,
		Type:      row.Type,
		Title:     row.Title,
		Message:   row.Message,
		TaskID:    row.TaskID,
		ClassID:   row.ClassID,
		IsRead:    row.IsRead,
		CreatedAt: row.CreatedAt,
	}
}

func (repo notificationRepository) CreateNotification(ctx context.Context, n notification.Notification, exec ...core.DBExecutor) (notification.Notification, error) {
	db := repo.getExec(exec)

	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	query := `
INSERT INTO notification (id, user_id, type, title, message, task_id, class_id, is_read, created_at)
VALUES (:id, :user_id, :type, :title, :message, :task_id, :class_id, :is_read, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, db, query, repo.toRow(n)); err != nil {
		return notification.Notification{}, errors.Wrap(err, "creating notification")
	}
	return n, nil
}

var notificationOrderings = map[string]string{
	"created_at": "created_at",
	"is_read":    "is_read",
}

func (repo notificationRepository) QueryNotifications(ctx context.Context, userID string, filter *notification.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]notification.Notification, error) {
	db := repo.getExec(exec)

	query := "SELECT * FROM notification WHERE user_id = ?"
	args := []interface{}{userID}
	if filter != nil && filter.UnreadOnly {
		query += " AND is_read = FALSE"
	}
	query += orderBy(ordering, notificationOrderings, "created_at DESC")

	var rows []notificationRow
	if err := sqlx.SelectContext(ctx, db, &rows, db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	notifs := make([]notification.Notification, 0, len(rows))
	for _, row := range rows {
		notifs = append(notifs, repo.fromRow(row))
	}
	return notifs, nil
}

func (repo notificationRepository) CountUnread(ctx context.Context, userID string, exec ...core.DBExecutor) (int, error) {
	db := repo.getExec(exec)

	var count int
	query := "SELECT COUNT(*) FROM notification WHERE user_id = ? AND is_read = FALSE"
	if err := sqlx.GetContext(ctx, db, &count, db.Rebind(query), userID); err != nil {
		return 0, errors.Wrap(err, "counting unread notifications")
	}
	return count, nil
}

func (repo notificationRepository) MarkRead(ctx context.Context, userID, id string, exec ...core.DBExecutor) error {
	db := repo.getExec(exec)

	query := "UPDATE notification SET is_read = TRUE WHERE id = ? AND user_id = ?"
	res, err := db.ExecContext(ctx, db.Rebind(query), id, userID)
	if err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notification.ErrNotFound
	}
	return nil
}

func (repo notificationRepository) MarkAllRead(ctx context.Context, userID string, exec ...core.DBExecutor) error {
	db := repo.getExec(exec)

	query := "UPDATE notification SET is_read = TRUE WHERE user_id = ? AND is_read = FALSE"
	if _, err := db.ExecContext(ctx, db.Rebind(query), userID); err != nil {
		return errors.Wrap(err, "marking notifications read")
	}
	return nil
}

func (repo notificationRepository) OverdueNotificationExists(ctx context.Context, taskID, userID string, exec ...core.DBExecutor) (bool, error) {
	db := repo.getExec(exec)

	var exists bool
	query := "SELECT EXISTS (SELECT 1 FROM notification WHERE type = ? AND task_id = ? AND user_id = ?)"
	if err := sqlx.GetContext(ctx, db, &exists, db.Rebind(query), notification.TypeTaskOverdue, taskID, userID); err != nil {
		return false, errors.Wrap(err, "checking overdue notification")
	}
	return exists, nil
}
