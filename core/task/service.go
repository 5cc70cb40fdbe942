package task

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/class"
	"github.com/trezcool/darasa/core/policy"
	"github.com/trezcool/darasa/core/user"
)

var ErrNotFound = core.NewNotFoundError("task not found")

type (
	Repository interface {
		CreateTask(ctx context.Context, tsk Task, exec ...core.DBExecutor) (Task, error)
		GetTask(ctx context.Context, id string, exec ...core.DBExecutor) (Task, error)
		QueryTasks(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Task, error)
		UpdateTask(ctx context.Context, tsk Task, exec ...core.DBExecutor) (Task, error)
		DeleteTask(ctx context.Context, id string, exec ...core.DBExecutor) error
		// DetachTasksFromClass unsets class_id on every task of the class.
		DetachTasksFromClass(ctx context.Context, classID string, exec ...core.DBExecutor) error
		// QueryOverdueTasks lists tasks with a due date before the given UTC
		// calendar date that are not completed.
		QueryOverdueTasks(ctx context.Context, before time.Time, exec ...core.DBExecutor) ([]Task, error)
	}

	// ClassGetter is the slice of the class repository the engine needs to
	// check class existence and ownership.
	ClassGetter interface {
		GetClass(ctx context.Context, filter class.GetFilter, exec ...core.DBExecutor) (class.Class, error)
	}

	// UserGetter checks assignee existence.
	UserGetter interface {
		GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error)
	}

	// Notifier dispatches task lifecycle notifications; implementations never
	// return errors to the caller.
	Notifier interface {
		TaskAssigned(ctx context.Context, tsk Task)
		TaskCompleted(ctx context.Context, tsk Task)
	}

	ServiceInterface interface {
		Create(ctx context.Context, actor user.User, nt NewTask) (Task, error)
		GetByID(ctx context.Context, actor user.User, id string) (Task, error)
		Query(ctx context.Context, actor user.User, filter *QueryFilter, ordering []core.DBOrdering) ([]Task, error)
		Update(ctx context.Context, actor user.User, id string, ut UpdateTask) (Task, error)
		Delete(ctx context.Context, actor user.User, id string) error
		Stats(ctx context.Context, actor user.User) (Stats, error)
	}

	service struct {
		repo     Repository
		classes  ClassGetter
		users    UserGetter
		notifier Notifier
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, classes ClassGetter, users UserGetter, notifier Notifier) ServiceInterface {
	return &service{
		repo:     repo,
		classes:  classes,
		users:    users,
		notifier: notifier,
	}
}

func (svc *service) Create(ctx context.Context, actor user.User, nt NewTask) (Task, error) {
	if d := policy.CanCreateTask(actor); !d.Allowed {
		return Task{}, core.NewForbiddenError(d.Reason)
	}
	if core.CleanString(nt.Title) == "" {
		return Task{}, core.NewValidationError(errors.New("title is required"))
	}

	if nt.ClassID != "" {
		cls, err := svc.classes.GetClass(ctx, class.GetFilter{ID: nt.ClassID})
		if err != nil {
			if core.IsNotFound(err) {
				return Task{}, core.NewValidationError(errors.New("class not found"))
			}
			return Task{}, err
		}
		if !actor.IsAdmin() && cls.TeacherID != actor.ID {
			return Task{}, core.NewValidationError(errors.New("you don't own this class"))
		}
	}

	// the assignee only needs to exist; it is not required to be a student
	// or a member of the class.
	if nt.AssigneeID != "" {
		if _, err := svc.users.GetUser(ctx, user.GetFilter{ID: nt.AssigneeID}); err != nil {
			if core.IsNotFound(err) {
				return Task{}, core.NewValidationError(errors.New("assignee not found"))
			}
			return Task{}, err
		}
	}

	priority := nt.Priority
	if priority == "" {
		priority = PriorityMedium
	}

	now := time.Now().UTC()
	tsk := Task{
		Title:       nt.Title,
		Description: null.NewString(nt.Description, nt.Description != ""),
		Priority:    priority,
		Status:      StatusTodo,
		CreatedBy:   actor.ID,
		AssigneeID:  null.NewString(nt.AssigneeID, nt.AssigneeID != ""),
		ClassID:     null.NewString(nt.ClassID, nt.ClassID != ""),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if nt.DueDate != nil {
		tsk.DueDate = null.TimeFrom(nt.DueDate.UTC())
	}

	tsk, err := svc.repo.CreateTask(ctx, tsk)
	if err != nil {
		return Task{}, err
	}

	if tsk.AssigneeID.Valid {
		svc.notifier.TaskAssigned(ctx, tsk)
	}
	return tsk, nil
}

func (svc *service) GetByID(ctx context.Context, actor user.User, id string) (Task, error) {
	tsk, err := svc.repo.GetTask(ctx, id)
	if err != nil {
		return Task{}, err
	}
	rel := policy.Relations{OwnerID: tsk.CreatedBy, AssigneeID: tsk.AssigneeID.String}
	if d := policy.CanReadTask(actor, rel); !d.Allowed {
		return Task{}, ErrNotFound
	}
	return tsk, nil
}

func (svc *service) Query(ctx context.Context, actor user.User, filter *QueryFilter, ordering []core.DBOrdering) ([]Task, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	switch policy.TaskListScope(actor) {
	case policy.ScopeAll:
	case policy.ScopeOwned:
		filter.CreatedBy = actor.ID
	case policy.ScopeAssigned:
		filter.AssigneeID = actor.ID
	default:
		return []Task{}, nil
	}
	return svc.repo.QueryTasks(ctx, filter, ordering)
}

func (svc *service) Update(ctx context.Context, actor user.User, id string, ut UpdateTask) (Task, error) {
	tsk, err := svc.repo.GetTask(ctx, id)
	if err != nil {
		return Task{}, err
	}

	rel := policy.Relations{OwnerID: tsk.CreatedBy, AssigneeID: tsk.AssigneeID.String}
	if d := policy.CanWriteTask(actor, rel); !d.Allowed {
		return Task{}, core.NewForbiddenError(d.Reason)
	}

	if restricted := policy.WritableTaskFields(actor); restricted != nil {
		if err = checkFields(ut.fieldsPresent(), restricted); err != nil {
			return Task{}, err
		}
		if ut.Status == nil {
			return Task{}, core.NewValidationError(errors.New("status is required"))
		}
	} else if ut.IsEmpty() {
		return Task{}, core.NewValidationError(errors.New("no fields to update"))
	}

	prevStatus := tsk.Status
	svc.apply(&tsk, ut)
	tsk.UpdatedAt = time.Now().UTC()

	tsk, err = svc.repo.UpdateTask(ctx, tsk)
	if err != nil {
		return Task{}, err
	}

	// completion is announced to the creator; teacher-driven edits do not
	// re-notify on any other field.
	if actor.IsStudent() && tsk.Status == StatusCompleted && prevStatus != StatusCompleted {
		svc.notifier.TaskCompleted(ctx, tsk)
	}
	return tsk, nil
}

func (svc *service) Delete(ctx context.Context, actor user.User, id string) error {
	tsk, err := svc.repo.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if d := policy.CanDeleteTask(actor, policy.Relations{OwnerID: tsk.CreatedBy}); !d.Allowed {
		return core.NewForbiddenError(d.Reason)
	}
	return svc.repo.DeleteTask(ctx, tsk.ID)
}

func (svc *service) Stats(ctx context.Context, actor user.User) (Stats, error) {
	tasks, err := svc.Query(ctx, actor, nil, nil)
	if err != nil {
		return Stats{}, err
	}

	now := time.Now()
	stats := Stats{Total: len(tasks)}
	for _, tsk := range tasks {
		switch tsk.Status {
		case StatusTodo:
			stats.Todo++
		case StatusInProgress:
			stats.InProgress++
		case StatusCompleted:
			stats.Completed++
		}
		if tsk.IsOverdue(now) {
			stats.Overdue++
		}
	}
	return stats, nil
}

func (svc *service) apply(tsk *Task, ut UpdateTask) {
	if ut.Title != nil && *ut.Title != "" {
		tsk.Title = *ut.Title
	}
	if ut.Description != nil {
		tsk.Description = null.NewString(*ut.Description, *ut.Description != "")
	}
	if ut.DueDate != nil {
		tsk.DueDate = null.TimeFrom(ut.DueDate.UTC())
	}
	if ut.Priority != nil {
		tsk.Priority = *ut.Priority
	}
	if ut.Status != nil {
		tsk.Status = *ut.Status
	}
	if ut.AssigneeID != nil {
		tsk.AssigneeID = null.NewString(*ut.AssigneeID, *ut.AssigneeID != "")
	}
	if ut.ClassID != nil {
		tsk.ClassID = null.NewString(*ut.ClassID, *ut.ClassID != "")
	}
}

// checkFields rejects any payload field outside the allowed set.
func checkFields(present, allowed []string) error {
	for _, f := range present {
		var ok bool
		for _, a := range allowed {
			if f == a {
				ok = true
				break
			}
		}
		if !ok {
			return core.NewValidationError(errors.Errorf("field %q may not be updated", f))
		}
	}
	return nil
}
