package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/trezcool/darasa/core/notification"
	"github.com/trezcool/darasa/core/task"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
	testutil "github.com/trezcool/darasa/tests"
)

var (
	usrRepo   user.Repository
	tskRepo   task.Repository
	notifRepo notification.Repository
)

func setup(t *testing.T) *commandLine {
	t.Helper()

	db := inmemdb.Open()
	usrRepo = inmemdb.NewUserRepository(db)
	tskRepo = inmemdb.NewTaskRepository(db)
	notifRepo = inmemdb.NewNotificationRepository(db)

	conf := testutil.NewConfig()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	notifSvc := notification.NewService(notifRepo, tskRepo, usrRepo, mailSvc, testutil.NewLogger())

	return &commandLine{
		usrRepo:  usrRepo,
		notifSvc: notifSvc,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "assignment", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "User", "awe", "awe@test.cd", "mdr", user.RoleStudent, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshedUsr, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
				if err != nil {
					t.Fatalf("GetUser() failed, %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)

	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("s3cr3t-pwd"), nil }

	t.Run("creates a new admin", func(t *testing.T) {
		if err := cli.run([]string{"admin", "adduser", "-username", "boss", "-email", "boss@test.cd", "-role", "admin"}); err != nil {
			t.Fatalf("cli.run() unexpected error = %v", err)
		}
		usr, err := usrRepo.GetUser(context.Background(), user.GetFilter{Username: "boss"})
		if err != nil {
			t.Fatalf("GetUser() failed, %v", err)
		}
		if !usr.IsAdmin() {
			t.Errorf("usr.Role = %q, want %q", usr.Role, user.RoleAdmin)
		}
		if !usr.IsActive {
			t.Error("usr.IsActive = false, want true")
		}
	})

	t.Run("updates an existing user", func(t *testing.T) {
		testutil.CreateUser(t, usrRepo, "Old", "oldie", "oldie@test.cd", "mdr", user.RoleStudent, false)

		if err := cli.run([]string{"admin", "adduser", "-username", "oldie", "-email", "oldie@test.cd", "-role", "teacher"}); err != nil {
			t.Fatalf("cli.run() unexpected error = %v", err)
		}
		usr, err := usrRepo.GetUser(context.Background(), user.GetFilter{Username: "oldie"})
		if err != nil {
			t.Fatalf("GetUser() failed, %v", err)
		}
		if !usr.IsTeacher() {
			t.Errorf("usr.Role = %q, want %q", usr.Role, user.RoleTeacher)
		}
		if !usr.IsActive {
			t.Error("usr.IsActive = false, want true")
		}
	})

	t.Run("rejects unknown roles", func(t *testing.T) {
		err := cli.run([]string{"admin", "adduser", "-username", "meh", "-email", "meh@test.cd", "-role", "guru"})
		if err == nil || err.Error() != `unknown role "guru"` {
			t.Errorf("cli.run() error = %v, want unknown role", err)
		}
	})
}

func Test_commandLine_checkOverdue(t *testing.T) {
	cli := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teach", "teach@test.cd", "mdr", user.RoleTeacher, true)
	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	tsk := testutil.CreateTask(t, tskRepo, "Grade homework", teacher.ID, task.StatusTodo, &yesterday)

	if err := cli.run([]string{"admin", "checkoverdue"}); err != nil {
		t.Fatalf("cli.run() unexpected error = %v", err)
	}
	exists, err := notifRepo.OverdueNotificationExists(context.Background(), tsk.ID, teacher.ID)
	if err != nil {
		t.Fatalf("OverdueNotificationExists() failed, %v", err)
	}
	if !exists {
		t.Error("no overdue notification dispatched")
	}

	// a second run must not dispatch duplicates
	if err := cli.run([]string{"admin", "checkoverdue"}); err != nil {
		t.Fatalf("cli.run() unexpected error = %v", err)
	}
	notifs, err := notifRepo.QueryNotifications(context.Background(), teacher.ID, nil, nil)
	if err != nil {
		t.Fatalf("QueryNotifications() failed, %v", err)
	}
	if len(notifs) != 1 {
		t.Errorf("len(notifs) = %d, want 1", len(notifs))
	}
}
