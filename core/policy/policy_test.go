package policy

import (
	"testing"

	"github.com/trezcool/darasa/core/user"
)

var (
	admin   = user.User{ID: "a1", Role: user.RoleAdmin}
	teacher = user.User{ID: "t1", Role: user.RoleTeacher}
	student = user.User{ID: "s1", Role: user.RoleStudent}
)

func TestCanReadClass(t *testing.T) {
	tests := []struct {
		name  string
		actor user.User
		rel   Relations
		want  bool
	}{
		{name: "admin reads any class", actor: admin, rel: Relations{OwnerID: "t2"}, want: true},
		{name: "teacher reads owned class", actor: teacher, rel: Relations{OwnerID: "t1"}, want: true},
		{name: "teacher cannot read others' class", actor: teacher, rel: Relations{OwnerID: "t2"}},
		{name: "student reads member class", actor: student, rel: Relations{OwnerID: "t1", IsMember: true}, want: true},
		{name: "student cannot read non-member class", actor: student, rel: Relations{OwnerID: "t1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanReadClass(tt.actor, tt.rel); got.Allowed != tt.want {
				t.Errorf("CanReadClass() = %+v, want allowed=%v", got, tt.want)
			}
		})
	}
}

func TestCanWriteClass(t *testing.T) {
	tests := []struct {
		name  string
		actor user.User
		rel   Relations
		want  bool
	}{
		{name: "admin writes any class", actor: admin, rel: Relations{OwnerID: "t2"}, want: true},
		{name: "teacher writes owned class", actor: teacher, rel: Relations{OwnerID: "t1"}, want: true},
		{name: "teacher cannot write others' class", actor: teacher, rel: Relations{OwnerID: "t2"}},
		{name: "student cannot write even member class", actor: student, rel: Relations{OwnerID: "t1", IsMember: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanWriteClass(tt.actor, tt.rel); got.Allowed != tt.want {
				t.Errorf("CanWriteClass() = %+v, want allowed=%v", got, tt.want)
			}
		})
	}
}

func TestCanCreate(t *testing.T) {
	if got := CanCreateClass(student); got.Allowed {
		t.Errorf("CanCreateClass(student) = %+v, want deny", got)
	}
	if got := CanCreateClass(teacher); !got.Allowed {
		t.Errorf("CanCreateClass(teacher) = %+v, want allow", got)
	}
	if got := CanCreateTask(student); got.Allowed {
		t.Errorf("CanCreateTask(student) = %+v, want deny", got)
	}
	if got := CanCreateTask(admin); !got.Allowed {
		t.Errorf("CanCreateTask(admin) = %+v, want allow", got)
	}
}

func TestTaskDecisions(t *testing.T) {
	tests := []struct {
		name      string
		actor     user.User
		rel       Relations
		wantRead  bool
		wantWrite bool
		wantDel   bool
	}{
		{
			name:     "admin unrestricted",
			actor:    admin,
			rel:      Relations{OwnerID: "t2", AssigneeID: "s2"},
			wantRead: true, wantWrite: true, wantDel: true,
		},
		{
			name:     "teacher on own task",
			actor:    teacher,
			rel:      Relations{OwnerID: "t1", AssigneeID: "s1"},
			wantRead: true, wantWrite: true, wantDel: true,
		},
		{
			name:  "teacher on others' task",
			actor: teacher,
			rel:   Relations{OwnerID: "t2"},
		},
		{
			name:     "student on assigned task",
			actor:    student,
			rel:      Relations{OwnerID: "t1", AssigneeID: "s1"},
			wantRead: true, wantWrite: true,
		},
		{
			name:  "student on unassigned task",
			actor: student,
			rel:   Relations{OwnerID: "t1", AssigneeID: "s2"},
		},
		{
			name:  "student on task with no assignee",
			actor: student,
			rel:   Relations{OwnerID: "t1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanReadTask(tt.actor, tt.rel); got.Allowed != tt.wantRead {
				t.Errorf("CanReadTask() = %+v, want allowed=%v", got, tt.wantRead)
			}
			if got := CanWriteTask(tt.actor, tt.rel); got.Allowed != tt.wantWrite {
				t.Errorf("CanWriteTask() = %+v, want allowed=%v", got, tt.wantWrite)
			}
			if got := CanDeleteTask(tt.actor, tt.rel); got.Allowed != tt.wantDel {
				t.Errorf("CanDeleteTask() = %+v, want allowed=%v", got, tt.wantDel)
			}
		})
	}
}

func TestWritableTaskFields(t *testing.T) {
	if fields := WritableTaskFields(student); len(fields) != 1 || fields[0] != "status" {
		t.Errorf("WritableTaskFields(student) = %v, want [status]", fields)
	}
	if fields := WritableTaskFields(teacher); fields != nil {
		t.Errorf("WritableTaskFields(teacher) = %v, want nil", fields)
	}
	if fields := WritableTaskFields(admin); fields != nil {
		t.Errorf("WritableTaskFields(admin) = %v, want nil", fields)
	}
}
