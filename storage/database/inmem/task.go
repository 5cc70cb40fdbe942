package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/task"
)

type taskRepository struct {
	db *taskTable
}

var _ task.Repository = (*taskRepository)(nil)

func NewTaskRepository(db *DB) task.Repository {
	return &taskRepository{db: db.task}
}

func (repo *taskRepository) query() []task.Task {
	tasks := make([]task.Task, 0, len(repo.db.table))
	for _, t := range repo.db.table {
		tasks = append(tasks, *t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].CreatedAt.Before(tasks[j].CreatedAt) })
	return tasks
}

func (repo *taskRepository) CreateTask(_ context.Context, tsk task.Task, _ ...core.DBExecutor) (task.Task, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	tsk.ID = uuid.New().String()
	repo.db.table[tsk.ID] = &tsk
	return tsk, nil
}

func (repo *taskRepository) GetTask(_ context.Context, id string, _ ...core.DBExecutor) (task.Task, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if tsk, ok := repo.db.table[id]; ok {
		return *tsk, nil
	}
	return task.Task{}, task.ErrNotFound
}

func (repo *taskRepository) QueryTasks(_ context.Context, filter *task.QueryFilter, _ []core.DBOrdering, _ ...core.DBExecutor) ([]task.Task, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	tasks := repo.query()
	if filter == nil {
		return tasks, nil
	}

	matched := make([]task.Task, 0, len(tasks))
	for _, tsk := range tasks {
		if filter.Search != "" && !strings.Contains(strings.ToLower(tsk.Title), strings.ToLower(filter.Search)) {
			continue
		}
		if filter.Status != "" && tsk.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && tsk.Priority != filter.Priority {
			continue
		}
		if filter.ClassID != "" && tsk.ClassID.String != filter.ClassID {
			continue
		}
		if filter.CreatedBy != "" && tsk.CreatedBy != filter.CreatedBy {
			continue
		}
		if filter.AssigneeID != "" && tsk.AssigneeID.String != filter.AssigneeID {
			continue
		}
		matched = append(matched, tsk)
	}
	return matched, nil
}

func (repo *taskRepository) UpdateTask(_ context.Context, tsk task.Task, _ ...core.DBExecutor) (task.Task, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[tsk.ID]; !ok {
		return task.Task{}, task.ErrNotFound
	}
	repo.db.table[tsk.ID] = &tsk
	return tsk, nil
}

func (repo *taskRepository) DeleteTask(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.table, id)
	return nil
}

func (repo *taskRepository) DetachTasksFromClass(_ context.Context, classID string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, tsk := range repo.db.table {
		if tsk.ClassID.String == classID {
			tsk.ClassID = null.String{}
		}
	}
	return nil
}

func (repo *taskRepository) QueryOverdueTasks(_ context.Context, before time.Time, _ ...core.DBExecutor) ([]task.Task, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	// due_date is compared against the caller's cutoff verbatim, like the
	// SQL store does.
	var overdue []task.Task
	for _, tsk := range repo.query() {
		if tsk.DueDate.Valid && tsk.Status != task.StatusCompleted && tsk.DueDate.Time.Before(before) {
			overdue = append(overdue, tsk)
		}
	}
	return overdue, nil
}
