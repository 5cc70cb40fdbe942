package testutil

import (
	"context"
	"log"
	"net/mail"
	"os"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/class"
	"github.com/trezcool/darasa/core/task"
	"github.com/trezcool/darasa/core/user"
)

func NewConfig() *core.Config {
	return &core.Config{
		AppName:                   "Darasa",
		Env:                       "TEST",
		TestMode:                  true,
		Build:                     "test",
		SecretKey:                 []byte("&%^q0[jyca=o@gr+kffeb2v7+#-br!packp0puzn06)x0a=+dh"),
		DefaultFromEmail:          mail.Address{Address: "noreply@test.local"},
		FrontendBaseURL:           "http://localhost:3000",
		JWTExpirationDelta:        time.Hour,
		JWTRefreshExpirationDelta: 4 * time.Hour,
		PasswordResetTimeoutDelta: time.Hour,
	}
}

// Logger is a core.Logger that only writes to stdout; Fatal does not exit.
type Logger struct {
	std *log.Logger
}

var _ core.Logger = (*Logger)(nil)

func NewLogger() *Logger {
	return &Logger{std: log.New(os.Stdout, "TEST : ", log.LstdFlags)}
}

func (l Logger) Enable(_ bool) {}

func (l Logger) print(msg string, args []interface{}) {
	l.std.Println(msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l Logger) Debug(msg string, args ...interface{}) { l.print(msg, args) }
func (l Logger) Info(msg string, args ...interface{})  { l.print(msg, args) }
func (l Logger) Warn(msg string, args ...interface{})  { l.print(msg, args) }
func (l Logger) Error(msg string, args ...interface{}) { l.print(msg, args) }
func (l Logger) Fatal(msg string, args ...interface{}) { l.print(msg, args) }

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd, role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateClass(
	t *testing.T,
	repo class.Repository,
	name, teacherID, inviteCode string,
) class.Class {
	t.Helper()

	tstamp := time.Now().UTC()
	cls := class.Class{
		Name:       name,
		TeacherID:  teacherID,
		InviteCode: inviteCode,
		CreatedAt:  tstamp,
		UpdatedAt:  tstamp,
	}
	cls, err := repo.CreateClass(context.Background(), cls)
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return cls
}

func CreateTask(
	t *testing.T,
	repo task.Repository,
	title, createdBy, status string,
	dueDate *time.Time,
) task.Task {
	t.Helper()

	tstamp := time.Now().UTC()
	tsk := task.Task{
		Title:     title,
		Priority:  task.PriorityMedium,
		Status:    status,
		CreatedBy: createdBy,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if dueDate != nil {
		tsk.DueDate = null.TimeFrom(dueDate.UTC())
	}
	tsk, err := repo.CreateTask(context.Background(), tsk)
	if err != nil {
		t.Fatalf("CreateTask() failed: %v", err)
	}
	return tsk
}
