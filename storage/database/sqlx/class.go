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
	"github.com/trezcool/darasa/core/class"
	"github.com/trezcool/darasa/core/user"
)

type classRow struct {
	ID          string      `db:"id"`
	Name        string      `db:"name"`
	Description null.String `db:"description"`
	TeacherID   string      `db:"teacher_id"`
	InviteCode  string      `db:"invite_code"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

type classRepository struct {
	exec core.DBExecutor
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(exec core.DBExecutor) *classRepository {
	return &classRepository{exec: exec}
}

func (repo classRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo classRepository) toRow(cls class.Class) classRow {
	return classRow{
		ID:          cls.ID,
		Name:        cls.Name,
		Description: cls.Description,
		TeacherID:   cls.TeacherID,
		InviteCode:  cls.InviteCode,
		CreatedAt:   cls.CreatedAt.UTC(),
		UpdatedAt:   cls.UpdatedAt.UTC(),
	}
}

func (repo classRepository) fromRow(row classRow) class.Class {
	return class.Class{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		TeacherID:   row.TeacherID,
		InviteCode:  row.InviteCode,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to class.ErrNotFound
func (repo classRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return class.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo classRepository) CreateClass(ctx context.Context, cls class.Class, exec ...core.DBExecutor) (class.Class, error) {
	db := repo.getExec(exec)

	if cls.ID == "" {
		cls.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if cls.CreatedAt.IsZero() {
		cls.CreatedAt = now
	}
	if cls.UpdatedAt.IsZero() {
		cls.UpdatedAt = now
	}

	query := `
INSERT INTO class (id, name, description, teacher_id, invite_code, created_at, updated_at)
VALUES (:id, :name, :description, :teacher_id, :invite_code, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, db, query, repo.toRow(cls)); err != nil {
		return class.Class{}, errors.Wrap(err, "creating class")
	}
	return cls, nil
}

func (repo classRepository) GetClass(ctx context.Context, filter class.GetFilter, exec ...core.DBExecutor) (class.Class, error) {
	db := repo.getExec(exec)

	query := "SELECT * FROM class WHERE "
	var args []interface{}
	switch {
	case filter.ID != "":
		query += "id = ?"
		args = append(args, filter.ID)
	case filter.InviteCode != "":
		query += "invite_code = ?"
		args = append(args, filter.InviteCode)
	default:
		return class.Class{}, class.ErrNotFound
	}

	var row classRow
	if err := sqlx.GetContext(ctx, db, &row, db.Rebind(query), args...); err != nil {
		return class.Class{}, repo.trapNoRowsErr(err, "getting class")
	}
	return repo.fromRow(row), nil
}

// sortable class fields; columns are aliased for the class_member join.
var classOrderings = map[string]string{
	"name":       "c.name",
	"created_at": "c.created_at",
	"updated_at": "c.updated_at",
}

func (repo classRepository) QueryClasses(ctx context.Context, filter *class.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]class.Class, error) {
	db := repo.getExec(exec)

	query := "SELECT c.* FROM class c"
	var conds []string
	var args []interface{}
	if filter != nil {
		if filter.MemberID != "" {
			query += " INNER JOIN class_member cm ON cm.class_id = c.id"
			conds = append(conds, "cm.user_id = ?")
			args = append(args, filter.MemberID)
		}
		if filter.TeacherID != "" {
			conds = append(conds, "c.teacher_id = ?")
			args = append(args, filter.TeacherID)
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderBy(ordering, classOrderings, "c.created_at ASC")

	var rows []classRow
	if err := sqlx.SelectContext(ctx, db, &rows, db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	classes := make([]class.Class, 0, len(rows))
	for _, row := range rows {
		classes = append(classes, repo.fromRow(row))
	}
	return classes, nil
}

func (repo classRepository) UpdateClass(ctx context.Context, cls class.Class, exec ...core.DBExecutor) (class.Class, error) {
	db := repo.getExec(exec)

	cls.UpdatedAt = time.Now().UTC()
	query := `
UPDATE class
SET name = :name, description = :description, updated_at = :updated_at
WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, db, query, repo.toRow(cls))
	if err != nil {
		return class.Class{}, errors.Wrap(err, "updating class")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return class.Class{}, class.ErrNotFound
	}
	return cls, nil
}

func (repo classRepository) DeleteClass(ctx context.Context, id string, exec ...core.DBExecutor) error {
	db := repo.getExec(exec)

	// class_member rows cascade
	if _, err := db.ExecContext(ctx, db.Rebind("DELETE FROM class WHERE id = ?"), id); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return nil
}

func (repo classRepository) InviteCodeExists(ctx context.Context, code string, exec ...core.DBExecutor) (bool, error) {
	db := repo.getExec(exec)

	var exists bool
	query := "SELECT EXISTS (SELECT 1 FROM class WHERE invite_code = ?)"
	if err := sqlx.GetContext(ctx, db, &exists, db.Rebind(query), code); err != nil {
		return false, errors.Wrap(err, "checking invite code")
	}
	return exists, nil
}

func (repo classRepository) CreateMembership(ctx context.Context, classID, userID string, exec ...core.DBExecutor) error {
	db := repo.getExec(exec)

	query := "INSERT INTO class_member (class_id, user_id, joined_at) VALUES (?, ?, ?)"
	if _, err := db.ExecContext(ctx, db.Rebind(query), classID, userID, time.Now().UTC()); err != nil {
		return errors.Wrap(err, "creating membership")
	}
	return nil
}

func (repo classRepository) DeleteMembership(ctx context.Context, classID, userID string, exec ...core.DBExecutor) error {
	db := repo.getExec(exec)

	query := "DELETE FROM class_member WHERE class_id = ? AND user_id = ?"
	if _, err := db.ExecContext(ctx, db.Rebind(query), classID, userID); err != nil {
		return errors.Wrap(err, "deleting membership")
	}
	return nil
}

func (repo classRepository) IsMember(ctx context.Context, classID, userID string, exec ...core.DBExecutor) (bool, error) {
	db := repo.getExec(exec)

	var exists bool
	query := "SELECT EXISTS (SELECT 1 FROM class_member WHERE class_id = ? AND user_id = ?)"
	if err := sqlx.GetContext(ctx, db, &exists, db.Rebind(query), classID, userID); err != nil {
		return false, errors.Wrap(err, "checking membership")
	}
	return exists, nil
}

func (repo classRepository) QueryMembers(ctx context.Context, classID string, exec ...core.DBExecutor) ([]user.User, error) {
	db := repo.getExec(exec)

	query := `
SELECT u.* FROM "user" u
INNER JOIN class_member cm ON cm.user_id = u.id
WHERE cm.class_id = ?
ORDER BY cm.joined_at ASC`
	var rows []userRow
	if err := sqlx.SelectContext(ctx, db, &rows, db.Rebind(query), classID); err != nil {
		return nil, errors.Wrap(err, "querying members")
	}
	return userRepository{}.fromRows(rows), nil
}
