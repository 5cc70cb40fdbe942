package class_test

import (
	"context"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/class"
	"github.com/trezcool/darasa/core/task"
	"github.com/trezcool/darasa/core/user"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
	testutil "github.com/trezcool/darasa/tests"
)

type notifierSpy struct {
	joined []struct {
		cls    class.Class
		member user.User
	}
}

func (s *notifierSpy) ClassJoined(_ context.Context, cls class.Class, member user.User) {
	s.joined = append(s.joined, struct {
		cls    class.Class
		member user.User
	}{cls, member})
}

type fixture struct {
	clsRepo  class.Repository
	tskRepo  task.Repository
	usrRepo  user.Repository
	notifier *notifierSpy
	svc      class.ServiceInterface
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db := inmemdb.Open()
	f := &fixture{
		clsRepo:  inmemdb.NewClassRepository(db),
		tskRepo:  inmemdb.NewTaskRepository(db),
		usrRepo:  inmemdb.NewUserRepository(db),
		notifier: &notifierSpy{},
	}
	f.svc = class.NewService(f.clsRepo, f.tskRepo, f.notifier)
	return f
}

func Test_service_Create(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	teacher := testutil.CreateUser(t, f.usrRepo, "Teacher", "teach", "teach@test.cd", "", user.RoleTeacher, true)
	student := testutil.CreateUser(t, f.usrRepo, "Student", "studious", "stud@test.cd", "", user.RoleStudent, true)

	t.Run("students cannot create classes", func(t *testing.T) {
		_, err := f.svc.Create(ctx, student, class.NewClass{Name: "Algebra"})
		if !core.IsForbidden(err) {
			t.Errorf("Create() error = %v, want forbidden", err)
		}
	})

	t.Run("a name is required", func(t *testing.T) {
		_, err := f.svc.Create(ctx, teacher, class.NewClass{Name: "  "})
		if _, ok := err.(*core.ValidationError); !ok {
			t.Errorf("Create() error = %v, want validation error", err)
		}
	})

	t.Run("teachers create classes with an invite code", func(t *testing.T) {
		cls, err := f.svc.Create(ctx, teacher, class.NewClass{Name: "Algebra", Description: "Linear algebra I"})
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		if cls.TeacherID != teacher.ID {
			t.Errorf("cls.TeacherID = %q, want %q", cls.TeacherID, teacher.ID)
		}
		if len(cls.InviteCode) != 8 {
			t.Errorf("len(cls.InviteCode) = %d, want 8", len(cls.InviteCode))
		}
		if !cls.Description.Valid || cls.Description.String != "Linear algebra I" {
			t.Errorf("cls.Description = %v, want set", cls.Description)
		}
	})
}

func Test_service_Join(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	teacher := testutil.CreateUser(t, f.usrRepo, "Teacher", "teach", "teach@test.cd", "", user.RoleTeacher, true)
	student := testutil.CreateUser(t, f.usrRepo, "Student", "studious", "stud@test.cd", "", user.RoleStudent, true)

	cls, err := f.svc.Create(ctx, teacher, class.NewClass{Name: "Algebra"})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	t.Run("unknown invite code", func(t *testing.T) {
		_, err := f.svc.Join(ctx, student, "deadbeef")
		if !core.IsNotFound(err) {
			t.Errorf("Join() error = %v, want not found", err)
		}
	})

	t.Run("the teacher cannot join their own class", func(t *testing.T) {
		_, err := f.svc.Join(ctx, teacher, cls.InviteCode)
		if _, ok := err.(*core.ValidationError); !ok {
			t.Errorf("Join() error = %v, want validation error", err)
		}
	})

	t.Run("a student joins once", func(t *testing.T) {
		joined, err := f.svc.Join(ctx, student, cls.InviteCode)
		if err != nil {
			t.Fatalf("Join() failed: %v", err)
		}
		if joined.ID != cls.ID {
			t.Errorf("Join() class = %q, want %q", joined.ID, cls.ID)
		}
		if len(f.notifier.joined) != 1 {
			t.Fatalf("len(notifier.joined) = %d, want 1", len(f.notifier.joined))
		}
		if got := f.notifier.joined[0].member.ID; got != student.ID {
			t.Errorf("notified member = %q, want %q", got, student.ID)
		}
	})

	t.Run("joining twice conflicts", func(t *testing.T) {
		_, err := f.svc.Join(ctx, student, cls.InviteCode)
		if !core.IsConflict(err) {
			t.Errorf("Join() error = %v, want conflict", err)
		}
		if len(f.notifier.joined) != 1 {
			t.Errorf("len(notifier.joined) = %d, want 1", len(f.notifier.joined))
		}
	})
}

func Test_service_Query_scopes(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	admin := testutil.CreateUser(t, f.usrRepo, "Admin", "caesar", "caesar@test.cd", "", user.RoleAdmin, true)
	teacher1 := testutil.CreateUser(t, f.usrRepo, "T1", "teach1", "t1@test.cd", "", user.RoleTeacher, true)
	teacher2 := testutil.CreateUser(t, f.usrRepo, "T2", "teach2", "t2@test.cd", "", user.RoleTeacher, true)
	student := testutil.CreateUser(t, f.usrRepo, "Student", "studious", "stud@test.cd", "", user.RoleStudent, true)

	cls1, _ := f.svc.Create(ctx, teacher1, class.NewClass{Name: "Algebra"})
	cls2, _ := f.svc.Create(ctx, teacher2, class.NewClass{Name: "Biology"})
	if _, err := f.svc.Join(ctx, student, cls1.InviteCode); err != nil {
		t.Fatalf("Join() failed: %v", err)
	}

	tests := []struct {
		name  string
		actor user.User
		want  []string
	}{
		{"admin sees all", admin, []string{cls1.ID, cls2.ID}},
		{"teacher sees their own", teacher1, []string{cls1.ID}},
		{"student sees memberships", student, []string{cls1.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classes, err := f.svc.Query(ctx, tt.actor, nil)
			if err != nil {
				t.Fatalf("Query() failed: %v", err)
			}
			if len(classes) != len(tt.want) {
				t.Fatalf("len(classes) = %d, want %d", len(classes), len(tt.want))
			}
			got := make(map[string]bool, len(classes))
			for _, cls := range classes {
				got[cls.ID] = true
			}
			for _, id := range tt.want {
				if !got[id] {
					t.Errorf("Query() missing class %q", id)
				}
			}
		})
	}
}

func Test_service_Delete_detachesTasks(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	teacher := testutil.CreateUser(t, f.usrRepo, "Teacher", "teach", "teach@test.cd", "", user.RoleTeacher, true)
	student := testutil.CreateUser(t, f.usrRepo, "Student", "studious", "stud@test.cd", "", user.RoleStudent, true)

	cls, err := f.svc.Create(ctx, teacher, class.NewClass{Name: "Algebra"})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if _, err = f.svc.Join(ctx, student, cls.InviteCode); err != nil {
		t.Fatalf("Join() failed: %v", err)
	}

	now := time.Now().UTC()
	ids := make([]string, 0, 3)
	for _, title := range []string{"hw1", "hw2", "hw3"} {
		tsk, err := f.tskRepo.CreateTask(ctx, task.Task{
			Title:     title,
			Priority:  task.PriorityMedium,
			Status:    task.StatusTodo,
			CreatedBy: teacher.ID,
			ClassID:   null.StringFrom(cls.ID),
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			t.Fatalf("CreateTask() failed: %v", err)
		}
		ids = append(ids, tsk.ID)
	}

	t.Run("students cannot delete", func(t *testing.T) {
		err := f.svc.Delete(ctx, student, cls.ID)
		if !core.IsForbidden(err) {
			t.Errorf("Delete() error = %v, want forbidden", err)
		}
	})

	t.Run("the teacher deletes; tasks survive detached", func(t *testing.T) {
		if err := f.svc.Delete(ctx, teacher, cls.ID); err != nil {
			t.Fatalf("Delete() failed: %v", err)
		}

		if _, err := f.clsRepo.GetClass(ctx, class.GetFilter{ID: cls.ID}); !core.IsNotFound(err) {
			t.Errorf("GetClass() error = %v, want not found", err)
		}
		isMember, err := f.clsRepo.IsMember(ctx, cls.ID, student.ID)
		if err != nil {
			t.Fatalf("IsMember() failed: %v", err)
		}
		if isMember {
			t.Error("membership survived class deletion")
		}
		for _, id := range ids {
			tsk, err := f.tskRepo.GetTask(ctx, id)
			if err != nil {
				t.Fatalf("GetTask() failed: %v", err)
			}
			if tsk.ClassID.Valid {
				t.Errorf("task %q still references the deleted class", id)
			}
		}
	})
}

func Test_service_RemoveMember(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	teacher := testutil.CreateUser(t, f.usrRepo, "Teacher", "teach", "teach@test.cd", "", user.RoleTeacher, true)
	student := testutil.CreateUser(t, f.usrRepo, "Student", "studious", "stud@test.cd", "", user.RoleStudent, true)

	cls, err := f.svc.Create(ctx, teacher, class.NewClass{Name: "Algebra"})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if _, err = f.svc.Join(ctx, student, cls.InviteCode); err != nil {
		t.Fatalf("Join() failed: %v", err)
	}

	t.Run("members cannot remove members", func(t *testing.T) {
		err := f.svc.RemoveMember(ctx, student, cls.ID, student.ID)
		if !core.IsForbidden(err) {
			t.Errorf("RemoveMember() error = %v, want forbidden", err)
		}
	})

	t.Run("the teacher removes a member", func(t *testing.T) {
		if err := f.svc.RemoveMember(ctx, teacher, cls.ID, student.ID); err != nil {
			t.Fatalf("RemoveMember() failed: %v", err)
		}
		isMember, err := f.clsRepo.IsMember(ctx, cls.ID, student.ID)
		if err != nil {
			t.Fatalf("IsMember() failed: %v", err)
		}
		if isMember {
			t.Error("membership survived removal")
		}
	})

	t.Run("removing a non-member is a no-op", func(t *testing.T) {
		if err := f.svc.RemoveMember(ctx, teacher, cls.ID, student.ID); err != nil {
			t.Errorf("RemoveMember() error = %v, want nil", err)
		}
	})
}

func Test_service_GetByID_hidesInvisibleClasses(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	teacher1 := testutil.CreateUser(t, f.usrRepo, "T1", "teach1", "t1@test.cd", "", user.RoleTeacher, true)
	teacher2 := testutil.CreateUser(t, f.usrRepo, "T2", "teach2", "t2@test.cd", "", user.RoleTeacher, true)
	student := testutil.CreateUser(t, f.usrRepo, "Student", "studious", "stud@test.cd", "", user.RoleStudent, true)

	cls, err := f.svc.Create(ctx, teacher1, class.NewClass{Name: "Algebra"})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	tests := []struct {
		name      string
		actor     user.User
		wantFound bool
	}{
		{"owner", teacher1, true},
		{"another teacher", teacher2, false},
		{"non-member student", student, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.GetByID(ctx, tt.actor, cls.ID)
			if tt.wantFound && err != nil {
				t.Errorf("GetByID() error = %v, want nil", err)
			}
			if !tt.wantFound && !core.IsNotFound(err) {
				t.Errorf("GetByID() error = %v, want not found", err)
			}
		})
	}
}
