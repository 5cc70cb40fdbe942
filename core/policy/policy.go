// Package policy holds the pure authorization rules for classes and tasks.
// It is the only place that branches on user roles; services ask it for a
// Decision and translate denials into their own errors.
package policy

import (
	"github.com/trezcool/darasa/core/user"
)

// Decision is an explicit allow/deny with the reason for a denial.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// Scope qualifies which records of an entity a capability applies to.
type Scope int

const (
	ScopeNone Scope = iota
	ScopeOwned    // class.teacher_id / task.created_by == actor
	ScopeAssigned // task.assignee_id == actor
	ScopeMember   // actor in class members
	ScopeAll
)

// Relations captures how the actor relates to the target entity.
// Unused fields are ignored by the scopes that do not need them.
type Relations struct {
	OwnerID    string // class teacher or task creator
	AssigneeID string // task assignee, if any
	IsMember   bool   // class membership
}

type capabilities struct {
	classRead  Scope
	classWrite Scope
	taskRead   Scope
	taskWrite  Scope
	// taskFields lists the task fields writable under taskWrite;
	// nil means every field.
	taskFields []string
}

var roleCaps = map[string]capabilities{
	user.RoleAdmin: {
		classRead:  ScopeAll,
		classWrite: ScopeAll,
		taskRead:   ScopeAll,
		taskWrite:  ScopeAll,
	},
	user.RoleTeacher: {
		classRead:  ScopeOwned,
		classWrite: ScopeOwned,
		taskRead:   ScopeOwned,
		taskWrite:  ScopeOwned,
	},
	user.RoleStudent: {
		classRead:  ScopeMember,
		taskRead:   ScopeAssigned,
		taskWrite:  ScopeAssigned,
		taskFields: []string{"status"},
	},
}

func (s Scope) evaluate(actor user.User, rel Relations) bool {
	switch s {
	case ScopeAll:
		return true
	case ScopeOwned:
		return rel.OwnerID == actor.ID
	case ScopeAssigned:
		return rel.AssigneeID != "" && rel.AssigneeID == actor.ID
	case ScopeMember:
		return rel.IsMember
	}
	return false
}

// ClassListScope bounds which classes the actor may list.
func ClassListScope(actor user.User) Scope {
	return roleCaps[actor.Role].classRead
}

// TaskListScope bounds which tasks the actor may list.
func TaskListScope(actor user.User) Scope {
	return roleCaps[actor.Role].taskRead
}

// Classes

func CanCreateClass(actor user.User) Decision {
	if actor.IsTeacher() || actor.IsAdmin() {
		return allow()
	}
	return deny("only teachers can create classes")
}

func CanReadClass(actor user.User, rel Relations) Decision {
	if roleCaps[actor.Role].classRead.evaluate(actor, rel) {
		return allow()
	}
	return deny("no access to this class")
}

func CanWriteClass(actor user.User, rel Relations) Decision {
	if roleCaps[actor.Role].classWrite.evaluate(actor, rel) {
		return allow()
	}
	return deny("only the class teacher can modify it")
}

// Tasks

func CanCreateTask(actor user.User) Decision {
	if actor.IsTeacher() || actor.IsAdmin() {
		return allow()
	}
	return deny("only teachers can create tasks")
}

func CanReadTask(actor user.User, rel Relations) Decision {
	if roleCaps[actor.Role].taskRead.evaluate(actor, rel) {
		return allow()
	}
	return deny("no access to this task")
}

func CanWriteTask(actor user.User, rel Relations) Decision {
	if roleCaps[actor.Role].taskWrite.evaluate(actor, rel) {
		return allow()
	}
	return deny("no access to this task")
}

func CanDeleteTask(actor user.User, rel Relations) Decision {
	if actor.IsAdmin() || rel.OwnerID == actor.ID {
		return allow()
	}
	return deny("only the task creator can delete it")
}

// WritableTaskFields returns the task fields the actor may modify;
// nil means no field-level restriction.
func WritableTaskFields(actor user.User) []string {
	return roleCaps[actor.Role].taskFields
}
