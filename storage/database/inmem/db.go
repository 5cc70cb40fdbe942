// Package inmemdb provides in-memory repositories used by tests.
package inmemdb

import (
	"sync"

	"github.com/trezcool/darasa/core/class"
	"github.com/trezcool/darasa/core/notification"
	"github.com/trezcool/darasa/core/task"
	"github.com/trezcool/darasa/core/user"
)

type (
	DB struct {
		user         *userTable
		class        *classTable
		membership   *membershipTable
		task         *taskTable
		notification *notificationTable
	}

	userTable struct {
		mutex sync.RWMutex
		table map[string]*user.User
	}

	classTable struct {
		mutex sync.RWMutex
		table map[string]*class.Class
	}

	// memberships are keyed by classID then userID
	membershipTable struct {
		mutex sync.RWMutex
		table map[string]map[string]bool
	}

	taskTable struct {
		mutex sync.RWMutex
		table map[string]*task.Task
	}

	notificationTable struct {
		mutex sync.RWMutex
		table map[string]*notification.Notification
	}
)

func Open() *DB {
	return &DB{
		user:         &userTable{table: make(map[string]*user.User)},
		class:        &classTable{table: make(map[string]*class.Class)},
		membership:   &membershipTable{table: make(map[string]map[string]bool)},
		task:         &taskTable{table: make(map[string]*task.Task)},
		notification: &notificationTable{table: make(map[string]*notification.Notification)},
	}
}

// Reset empties all tables.
func (db *DB) Reset() {
	db.user.mutex.Lock()
	db.user.table = make(map[string]*user.User)
	db.user.mutex.Unlock()

	db.class.mutex.Lock()
	db.class.table = make(map[string]*class.Class)
	db.class.mutex.Unlock()

	db.membership.mutex.Lock()
	db.membership.table = make(map[string]map[string]bool)
	db.membership.mutex.Unlock()

	db.task.mutex.Lock()
	db.task.table = make(map[string]*task.Task)
	db.task.mutex.Unlock()

	db.notification.mutex.Lock()
	db.notification.table = make(map[string]*notification.Notification)
	db.notification.mutex.Unlock()
}
