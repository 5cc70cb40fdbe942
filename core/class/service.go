package class

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/policy"
	"github.com/trezcool/darasa/core/user"
)

var (
	ErrNotFound          = core.NewNotFoundError("class not found")
	ErrInvalidInviteCode = core.NewNotFoundError("invalid invite code")
	ErrAlreadyMember     = core.NewConflictError("already a member of this class")
)

type (
	Repository interface {
		CreateClass(ctx context.Context, cls Class, exec ...core.DBExecutor) (Class, error)
		GetClass(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Class, error)
		QueryClasses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Class, error)
		UpdateClass(ctx context.Context, cls Class, exec ...core.DBExecutor) (Class, error)
		// DeleteClass removes the class; membership rows cascade in the store.
		DeleteClass(ctx context.Context, id string, exec ...core.DBExecutor) error
		InviteCodeExists(ctx context.Context, code string, exec ...core.DBExecutor) (bool, error)
		CreateMembership(ctx context.Context, classID, userID string, exec ...core.DBExecutor) error
		// DeleteMembership is a no-op when the membership does not exist.
		DeleteMembership(ctx context.Context, classID, userID string, exec ...core.DBExecutor) error
		IsMember(ctx context.Context, classID, userID string, exec ...core.DBExecutor) (bool, error)
		QueryMembers(ctx context.Context, classID string, exec ...core.DBExecutor) ([]user.User, error)
	}

	// TaskDetacher unlinks tasks from a class being deleted without deleting them.
	TaskDetacher interface {
		DetachTasksFromClass(ctx context.Context, classID string, exec ...core.DBExecutor) error
	}

	// Notifier dispatches membership notifications; implementations never
	// return errors to the caller.
	Notifier interface {
		ClassJoined(ctx context.Context, cls Class, member user.User)
	}

	ServiceInterface interface {
		Create(ctx context.Context, actor user.User, nc NewClass) (Class, error)
		GetByID(ctx context.Context, actor user.User, id string) (Class, error)
		Query(ctx context.Context, actor user.User, ordering []core.DBOrdering) ([]Class, error)
		Update(ctx context.Context, actor user.User, id string, uc UpdateClass) (Class, error)
		Delete(ctx context.Context, actor user.User, id string) error
		Join(ctx context.Context, actor user.User, inviteCode string) (Class, error)
		RemoveMember(ctx context.Context, actor user.User, classID, memberID string) error
		Members(ctx context.Context, actor user.User, classID string) ([]user.User, error)
	}

	service struct {
		repo     Repository
		tasks    TaskDetacher
		notifier Notifier
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, tasks TaskDetacher, notifier Notifier) ServiceInterface {
	return &service{
		repo:     repo,
		tasks:    tasks,
		notifier: notifier,
	}
}

func (svc *service) Create(ctx context.Context, actor user.User, nc NewClass) (Class, error) {
	if d := policy.CanCreateClass(actor); !d.Allowed {
		return Class{}, core.NewForbiddenError(d.Reason)
	}
	if core.CleanString(nc.Name) == "" {
		return Class{}, core.NewValidationError(errors.New("name is required"))
	}

	code, err := generateInviteCode()
	if err != nil {
		return Class{}, err
	}
	// regenerate exactly once on collision; the residual collision
	// probability after the retry is accepted.
	if exists, err := svc.repo.InviteCodeExists(ctx, code); err != nil {
		return Class{}, err
	} else if exists {
		if code, err = generateInviteCode(); err != nil {
			return Class{}, err
		}
	}

	now := time.Now().UTC()
	cls := Class{
		Name:        nc.Name,
		Description: null.NewString(nc.Description, nc.Description != ""),
		TeacherID:   actor.ID,
		InviteCode:  code,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateClass(ctx, cls)
}

// getVisible loads a class and enforces read access; denial is reported as
// not-found so actors cannot probe for existence.
func (svc *service) getVisible(ctx context.Context, actor user.User, id string) (Class, error) {
	cls, err := svc.repo.GetClass(ctx, GetFilter{ID: id})
	if err != nil {
		return Class{}, err
	}

	rel := policy.Relations{OwnerID: cls.TeacherID}
	if actor.IsStudent() {
		if rel.IsMember, err = svc.repo.IsMember(ctx, cls.ID, actor.ID); err != nil {
			return Class{}, err
		}
	}
	if d := policy.CanReadClass(actor, rel); !d.Allowed {
		return Class{}, ErrNotFound
	}
	return cls, nil
}

func (svc *service) GetByID(ctx context.Context, actor user.User, id string) (Class, error) {
	return svc.getVisible(ctx, actor, id)
}

func (svc *service) Query(ctx context.Context, actor user.User, ordering []core.DBOrdering) ([]Class, error) {
	var filter *QueryFilter
	switch policy.ClassListScope(actor) {
	case policy.ScopeAll:
		filter = nil
	case policy.ScopeOwned:
		filter = &QueryFilter{TeacherID: actor.ID}
	case policy.ScopeMember:
		filter = &QueryFilter{MemberID: actor.ID}
	default:
		return []Class{}, nil
	}
	return svc.repo.QueryClasses(ctx, filter, ordering)
}

func (svc *service) Update(ctx context.Context, actor user.User, id string, uc UpdateClass) (Class, error) {
	cls, err := svc.getVisible(ctx, actor, id)
	if err != nil {
		return Class{}, err
	}
	if d := policy.CanWriteClass(actor, policy.Relations{OwnerID: cls.TeacherID}); !d.Allowed {
		return Class{}, core.NewForbiddenError(d.Reason)
	}

	if uc.Name != "" {
		cls.Name = uc.Name
	}
	if uc.Description != nil {
		cls.Description = null.NewString(*uc.Description, *uc.Description != "")
	}
	cls.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateClass(ctx, cls)
}

// Delete removes a class; referencing tasks are detached (class unset), not deleted.
func (svc *service) Delete(ctx context.Context, actor user.User, id string) error {
	cls, err := svc.getVisible(ctx, actor, id)
	if err != nil {
		return err
	}
	if d := policy.CanWriteClass(actor, policy.Relations{OwnerID: cls.TeacherID}); !d.Allowed {
		return core.NewForbiddenError(d.Reason)
	}

	if err = svc.tasks.DetachTasksFromClass(ctx, cls.ID); err != nil {
		return errors.Wrap(err, "detaching tasks")
	}
	return svc.repo.DeleteClass(ctx, cls.ID)
}

func (svc *service) Join(ctx context.Context, actor user.User, inviteCode string) (Class, error) {
	cls, err := svc.repo.GetClass(ctx, GetFilter{InviteCode: core.CleanString(inviteCode, true /* lower */)})
	if err != nil {
		if core.IsNotFound(err) {
			return Class{}, ErrInvalidInviteCode
		}
		return Class{}, err
	}

	if cls.TeacherID == actor.ID {
		return Class{}, core.NewValidationError(errors.New("you are the teacher of this class"))
	}

	// checked before insert; concurrent duplicate joins are rare and the
	// membership table's uniqueness constraint backs this up.
	isMember, err := svc.repo.IsMember(ctx, cls.ID, actor.ID)
	if err != nil {
		return Class{}, err
	}
	if isMember {
		return Class{}, ErrAlreadyMember
	}

	if err = svc.repo.CreateMembership(ctx, cls.ID, actor.ID); err != nil {
		return Class{}, err
	}

	svc.notifier.ClassJoined(ctx, cls, actor)
	return cls, nil
}

// RemoveMember is idempotent: removing a non-member is a no-op success.
func (svc *service) RemoveMember(ctx context.Context, actor user.User, classID, memberID string) error {
	cls, err := svc.getVisible(ctx, actor, classID)
	if err != nil {
		return err
	}
	if d := policy.CanWriteClass(actor, policy.Relations{OwnerID: cls.TeacherID}); !d.Allowed {
		return core.NewForbiddenError(d.Reason)
	}
	return svc.repo.DeleteMembership(ctx, cls.ID, memberID)
}

func (svc *service) Members(ctx context.Context, actor user.User, classID string) ([]user.User, error) {
	cls, err := svc.getVisible(ctx, actor, classID)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryMembers(ctx, cls.ID)
}
