package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/remshq/rems/core"
	"github.com/remshq/rems/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(_ context.Context, username, email string, excludedUsers ...user.User) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	excluded := func(u *user.User) bool {
		for _, x := range excludedUsers {
			if x.ID == u.ID {
				return true
			}
		}
		return false
	}
	for _, u := range repo.db.users {
		if excluded(u) {
			continue
		}
		if username != "" && u.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && u.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	usr.ID = uuid.New().String()
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if usr, ok := repo.db.users[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsernameOrEmail(_ context.Context, uname string) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, usr := range repo.db.users {
		if usr.Username == uname || usr.Email == uname {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func matchesFilter(usr *user.User, filter user.QueryFilter) bool {
	if filter.Search != "" {
		q := strings.ToLower(filter.Search)
		if !(strings.Contains(strings.ToLower(usr.Name), q) ||
			strings.Contains(strings.ToLower(usr.Username), q) ||
			strings.Contains(strings.ToLower(usr.Email), q) ||
			strings.Contains(strings.ToLower(usr.Phone), q)) {
			return false
		}
	}
	if len(filter.Roles) > 0 {
		var match bool
		for _, role := range filter.Roles {
			if usr.RoleStartsWith(role) {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}
	if filter.Track != "" && !strings.EqualFold(usr.Track, filter.Track) {
		return false
	}
	if filter.IsActive != nil {
		active := usr.IsActive != nil && *usr.IsActive
		if active != *filter.IsActive {
			return false
		}
	}
	if !filter.CreatedFrom.IsZero() && usr.CreatedAt.Before(filter.CreatedFrom.UTC()) {
		return false
	}
	if !filter.CreatedTo.IsZero() && usr.CreatedAt.After(filter.CreatedTo.UTC()) {
		return false
	}
	return true
}

func (repo *userRepository) FilterUsers(_ context.Context, filter user.QueryFilter, ordering ...core.DBOrdering) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := make([]user.User, 0, len(repo.db.users))
	for _, usr := range repo.db.users {
		if matchesFilter(usr, filter) {
			users = append(users, *usr)
		}
	}

	// default ordering: newest first, matching the sqlx repository
	sort.SliceStable(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	for k := len(ordering) - 1; k >= 0; k-- {
		ord := ordering[k]
		sort.SliceStable(users, func(i, j int) bool {
			var less bool
			switch ord.Field {
			case "name":
				less = users[i].Name < users[j].Name
			case "email":
				less = users[i].Email < users[j].Email
			case "created_at":
				less = users[i].CreatedAt.Before(users[j].CreatedAt)
			default:
				return false
			}
			if ord.Ascending {
				return less
			}
			return !less && !equalByField(users[i], users[j], ord.Field)
		})
	}
	return users, nil
}

func equalByField(a, b user.User, field string) bool {
	switch field {
	case "name":
		return a.Name == b.Name
	case "email":
		return a.Email == b.Email
	case "created_at":
		return a.CreatedAt.Equal(b.CreatedAt)
	}
	return false
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, isActive *bool) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	curr, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if usr.Name != "" {
		curr.Name = usr.Name
	}
	if usr.Username != "" {
		curr.Username = usr.Username
	}
	if usr.Email != "" {
		curr.Email = usr.Email
	}
	if usr.Phone != "" {
		curr.Phone = usr.Phone
	}
	if usr.Track != "" {
		curr.Track = usr.Track
	}
	if usr.Roles != nil {
		curr.Roles = usr.Roles
	}
	if len(usr.PasswordHash) > 0 {
		curr.PasswordHash = usr.PasswordHash
	}
	if isActive != nil {
		curr.IsActive = isActive
	}
	curr.UpdatedAt = usr.UpdatedAt
	return *curr, nil
}

func (repo *userRepository) UpdateBankInfo(_ context.Context, id string, info user.BankInfo) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	curr, ok := repo.db.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	curr.BankInfo = info
	return *curr, nil
}

func (repo *userRepository) SetLastLogin(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	curr, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	curr.LastLogin = user.NowFunc().UTC()
	return *curr, nil
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids ...string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, id := range ids {
		delete(repo.db.users, id)
	}
	return nil
}
