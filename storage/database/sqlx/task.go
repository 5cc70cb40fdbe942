package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/task"
)

type taskRow struct {
	ID          string      `db:"id"`
	Title       string      `db:"title"`
	Description null.String `db:"description"`
	DueDate     null.Time   `db:"due_date"`
	Priority    string      `db:"priority"`
	Status      string      `db:"status"`
	CreatedBy   string      `db:"created_by"`
	AssigneeID  null.String `db:"assignee_id"`
	ClassID     null.String `db:"class_id"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

type taskRepository struct {
	exec core.DBExecutor
}

var _ task.Repository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(exec core.DBExecutor) *taskRepository {
	return &taskRepository{exec: exec}
}

func (repo taskRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo taskRepository) toRow(tsk task.Task) taskRow {
	return taskRow{
		ID:          tsk.ID,
		Title:       tsk.Title,
		Description: tsk.Description,
		DueDate:     tsk.DueDate,
		Priority:    tsk.Priority,
		Status:      tsk.Status,
		CreatedBy:   tsk.CreatedBy,
		AssigneeID:  tsk.AssigneeID,
		ClassID:     tsk.ClassID,
		CreatedAt:   tsk.CreatedAt.UTC(),
		UpdatedAt:   tsk.UpdatedAt.UTC(),
	}
}

func (repo taskRepository) fromRow(row taskRow) task.Task {
	return task.Task{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		DueDate:     row.DueDate,
		Priority:    row.Priority,
		Status:      row.Status,
		CreatedBy:   row.CreatedBy,
		AssigneeID:  row.AssigneeID,
		ClassID:     row.ClassID,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

func (repo taskRepository) fromRows(rows []taskRow) []task.Task {
	tasks := make([]task.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, repo.fromRow(row))
	}
	return tasks
}

// trapNoRowsErr maps psql "no rows" err to task.ErrNotFound
func (repo taskRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return task.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo taskRepository) CreateTask(ctx context.Context, tsk task.Task, exec ...core.DBExecutor) (task.Task, error) {
	db := repo.getExec(exec)

	if tsk.ID == "" {
		tsk.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if tsk.CreatedAt.IsZero() {
		tsk.CreatedAt = now
	}
	if tsk.UpdatedAt.IsZero() {
		tsk.UpdatedAt = now
	}

	query := `
INSERT INTO task (id, title, description, due_date, priority, status, created_by, assignee_id, class_id, created_at, updated_at)
VALUES (:id, :title, :description, :due_date, :priority, :status, :created_by, :assignee_id, :class_id, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, db, query, repo.toRow(tsk)); err != nil {
		return task.Task{}, errors.Wrap(err, "creating task")
	}
	return tsk, nil
}

func (repo taskRepository) GetTask(ctx context.Context, id string, exec ...core.DBExecutor) (task.Task, error) {
	db := repo.getExec(exec)

	var row taskRow
	if err := sqlx.GetContext(ctx, db, &row, db.Rebind("SELECT * FROM task WHERE id = ?"), id); err != nil {
		return task.Task{}, repo.trapNoRowsErr(err, "getting task")
	}
	return repo.fromRow(row), nil
}

var taskOrderings = map[string]string{
	"title":      "title",
	"due_date":   "due_date",
	"priority":   "priority",
	"status":     "status",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

func (repo taskRepository) QueryTasks(ctx context.Context, filter *task.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]task.Task, error) {
	db := repo.getExec(exec)

	query := "SELECT * FROM task"
	var conds []string
	var args []interface{}
	if filter != nil {
		if filter.Search != "" {
			conds = append(conds, "title ILIKE ?")
			args = append(args, "%"+filter.Search+"%")
		}
		if filter.Status != "" {
			conds = append(conds, "status = ?")
			args = append(args, filter.Status)
		}
		if filter.Priority != "" {
			conds = append(conds, "priority = ?")
			args = append(args, filter.Priority)
		}
		if filter.ClassID != "" {
			conds = append(conds, "class_id = ?")
			args = append(args, filter.ClassID)
		}
		if filter.CreatedBy != "" {
			conds = append(conds, "created_by = ?")
			args = append(args, filter.CreatedBy)
		}
		if filter.AssigneeID != "" {
			conds = append(conds, "assignee_id = ?")
			args = append(args, filter.AssigneeID)
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderBy(ordering, taskOrderings, "created_at ASC")

	var rows []taskRow
	if err := sqlx.SelectContext(ctx, db, &rows, db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying tasks")
	}
	return repo.fromRows(rows), nil
}

func (repo taskRepository) UpdateTask(ctx context.Context, tsk task.Task, exec ...core.DBExecutor) (task.Task, error) {
	db := repo.getExec(exec)

	tsk.UpdatedAt = time.Now().UTC()
	query := `
UPDATE task
SET title = :title, description = :description, due_date = :due_date, priority = :priority,
    status = :status, assignee_id = :assignee_id, class_id = :class_id, updated_at = :updated_at
WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, db, query, repo.toRow(tsk))
	if err != nil {
		return task.Task{}, errors.Wrap(err, "updating task")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return task.Task{}, task.ErrNotFound
	}
	return tsk, nil
}

func (repo taskRepository) DeleteTask(ctx context.Context, id string, exec ...core.DBExecutor) error {
	db := repo.getExec(exec)

	if _, err := db.ExecContext(ctx, db.Rebind("DELETE FROM task WHERE id = ?"), id); err != nil {
		return errors.Wrap(err, "deleting task")
	}
	return nil
}

func (repo taskRepository) DetachTasksFromClass(ctx context.Context, classID string, exec ...core.DBExecutor) error {
	db := repo.getExec(exec)

	query := "UPDATE task SET class_id = NULL, updated_at = ? WHERE class_id = ?"
	if _, err := db.ExecContext(ctx, db.Rebind(query), time.Now().UTC(), classID); err != nil {
		return errors.Wrap(err, "detaching tasks")
	}
	return nil
}

func (repo taskRepository) QueryOverdueTasks(ctx context.Context, before time.Time, exec ...core.DBExecutor) ([]task.Task, error) {
	db := repo.getExec(exec)

	query := "SELECT * FROM task WHERE due_date < ? AND status <> ? ORDER BY due_date ASC"
	var rows []taskRow
	if err := sqlx.SelectContext(ctx, db, &rows, db.Rebind(query), before.UTC(), task.StatusCompleted); err != nil {
		return nil, errors.Wrap(err, "querying overdue tasks")
	}
	return repo.fromRows(rows), nil
}
