package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core/notification"
	"github.com/trezcool/darasa/core/task"
	"github.com/trezcool/darasa/core/user"
	testutil "github.com/trezcool/darasa/tests"
)

func createNotification(t *testing.T, userID, typ, title string) notification.Notification {
	t.Helper()
	n, err := notifRepo.CreateNotification(context.Background(), notification.Notification{
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   title,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateNotification() failed: %v", err)
	}
	return n
}

func Test_notificationApi_queryAndRead(t *testing.T) {
	resetDB(t)

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", user.RoleTeacher, true)
	student := testutil.CreateUser(t, usrRepo, "Hero", "hero01", "hero@test.cd", "", user.RoleStudent, true)

	n1 := createNotification(t, teacher.ID, notification.TypeTaskCompleted, "Task Completed")
	n2 := createNotification(t, teacher.ID, notification.TypeClassJoined, "New Class Member")

	teacherToken := getToken(t, teacher)
	empty := marshalList(t, []interface{}{}...)

	tests := []httpTest{
		{name: "Auth required", method: http.MethodGet, path: "/v1/notifications", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "newest first", method: http.MethodGet, path: "/v1/notifications", token: teacherToken, wantData: marshalList(t, n2, n1)},
		{name: "scoped to the caller", method: http.MethodGet, path: "/v1/notifications", token: getToken(t, student), wantData: empty},
		{
			name: "unread count", method: http.MethodGet, path: "/v1/notifications/unread-count", token: teacherToken,
			wantData: marshalObj(t, echoapi.UnreadCountResponse{Count: 2}),
		},
		{
			name: "cannot read someone else's notification", method: http.MethodPut, path: "/v1/notifications/" + n1.ID + "/read",
			token: getToken(t, student), wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "notification not found"}),
		},
		{name: "mark one read", method: http.MethodPut, path: "/v1/notifications/" + n1.ID + "/read", token: teacherToken, wantCode: http.StatusNoContent},
		{
			name: "unread only", method: http.MethodGet, path: "/v1/notifications?unread_only=true", token: teacherToken,
			wantData: marshalList(t, n2),
		},
		{name: "mark all read", method: http.MethodPut, path: "/v1/notifications/read-all", token: teacherToken, wantCode: http.StatusNoContent},
		{
			name: "all read", method: http.MethodGet, path: "/v1/notifications/unread-count", token: teacherToken,
			wantData: marshalObj(t, echoapi.UnreadCountResponse{Count: 0}),
		},
	}
	for _, tt := range tests {
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusNoContent {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_notificationApi_checkOverdue(t *testing.T) {
	resetDB(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin1", "admin@test.cd", "", user.RoleAdmin, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", user.RoleTeacher, true)

	yesterday := time.Now().UTC().Add(-24 * time.Hour)
	testutil.CreateTask(t, tskRepo, "late", teacher.ID, task.StatusTodo, &yesterday)
	testutil.CreateTask(t, tskRepo, "done in time", teacher.ID, task.StatusCompleted, &yesterday)

	adminToken := getToken(t, admin)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "Admin required", token: getToken(t, teacher),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden),
		},
		{name: "overdue tasks flagged", token: adminToken, wantCode: http.StatusOK, wantData: marshalObj(t, echoapi.CheckOverdueResponse{Dispatched: 1})},
		{name: "rescan flags nothing", token: adminToken, wantCode: http.StatusOK, wantData: marshalObj(t, echoapi.CheckOverdueResponse{Dispatched: 0})},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/notifications/check-overdue"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("the creator got the notification", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/notifications", getToken(t, teacher))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v", rec.Code)
		}
		var notifs []notification.Notification
		if err := json.Unmarshal(rec.Body.Bytes(), &notifs); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if len(notifs) != 1 {
			t.Fatalf("failed! len(notifs) = %d; want 1", len(notifs))
		}
		if notifs[0].Type != notification.TypeTaskOverdue {
			t.Errorf("failed! type = %q; want %q", notifs[0].Type, notification.TypeTaskOverdue)
		}
	})
}
