package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/class"
	"github.com/trezcool/darasa/core/user"
)

type classRepository struct {
	db      *classTable
	members *membershipTable
	users   *userTable
}

var _ class.Repository = (*classRepository)(nil)

func NewClassRepository(db *DB) class.Repository {
	return &classRepository{db: db.class, members: db.membership, users: db.user}
}

func (repo *classRepository) query() []class.Class {
	classes := make([]class.Class, 0, len(repo.db.table))
	for _, c := range repo.db.table {
		classes = append(classes, *c)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].CreatedAt.Before(classes[j].CreatedAt) })
	return classes
}

func (repo *classRepository) CreateClass(_ context.Context, cls class.Class, _ ...core.DBExecutor) (class.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cls.ID = uuid.New().String()
	repo.db.table[cls.ID] = &cls
	return cls, nil
}

func (repo *classRepository) GetClass(_ context.Context, filter class.GetFilter, _ ...core.DBExecutor) (class.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if cls, ok := repo.db.table[filter.ID]; ok {
			return *cls, nil
		}
		return class.Class{}, class.ErrNotFound
	}
	for _, cls := range repo.query() {
		if filter.InviteCode != "" && cls.InviteCode == filter.InviteCode {
			return cls, nil
		}
	}
	return class.Class{}, class.ErrNotFound
}

func (repo *classRepository) QueryClasses(_ context.Context, filter *class.QueryFilter, _ []core.DBOrdering, _ ...core.DBExecutor) ([]class.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	classes := repo.query()
	if filter == nil {
		return classes, nil
	}

	matched := make([]class.Class, 0, len(classes))
	for _, cls := range classes {
		if filter.TeacherID != "" && cls.TeacherID != filter.TeacherID {
			continue
		}
		if filter.MemberID != "" {
			repo.members.mutex.RLock()
			isMember := repo.members.table[cls.ID][filter.MemberID]
			repo.members.mutex.RUnlock()
			if !isMember {
				continue
			}
		}
		matched = append(matched, cls)
	}
	return matched, nil
}

func (repo *classRepository) UpdateClass(_ context.Context, cls class.Class, _ ...core.DBExecutor) (class.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[cls.ID]; !ok {
		return class.Class{}, class.ErrNotFound
	}
	repo.db.table[cls.ID] = &cls
	return cls, nil
}

func (repo *classRepository) DeleteClass(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	delete(repo.db.table, id)
	repo.db.mutex.Unlock()

	// membership rows cascade
	repo.members.mutex.Lock()
	delete(repo.members.table, id)
	repo.members.mutex.Unlock()
	return nil
}

func (repo *classRepository) InviteCodeExists(_ context.Context, code string, _ ...core.DBExecutor) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, cls := range repo.db.table {
		if cls.InviteCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (repo *classRepository) CreateMembership(_ context.Context, classID, userID string, _ ...core.DBExecutor) error {
	repo.members.mutex.Lock()
	defer repo.members.mutex.Unlock()

	if repo.members.table[classID] == nil {
		repo.members.table[classID] = make(map[string]bool)
	}
	repo.members.table[classID][userID] = true
	return nil
}

func (repo *classRepository) DeleteMembership(_ context.Context, classID, userID string, _ ...core.DBExecutor) error {
	repo.members.mutex.Lock()
	defer repo.members.mutex.Unlock()

	delete(repo.members.table[classID], userID)
	return nil
}

func (repo *classRepository) IsMember(_ context.Context, classID, userID string, _ ...core.DBExecutor) (bool, error) {
	repo.members.mutex.RLock()
	defer repo.members.mutex.RUnlock()
	return repo.members.table[classID][userID], nil
}

func (repo *classRepository) QueryMembers(_ context.Context, classID string, _ ...core.DBExecutor) ([]user.User, error) {
	repo.members.mutex.RLock()
	ids := make([]string, 0, len(repo.members.table[classID]))
	for id := range repo.members.table[classID] {
		ids = append(ids, id)
	}
	repo.members.mutex.RUnlock()
	sort.Strings(ids)

	repo.users.mutex.RLock()
	defer repo.users.mutex.RUnlock()
	members := make([]user.User, 0, len(ids))
	for _, id := range ids {
		if usr, ok := repo.users.table[id]; ok {
			members = append(members, *usr)
		}
	}
	return members, nil
}
