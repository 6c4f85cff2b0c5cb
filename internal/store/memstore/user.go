package memstore

import (
	"context"

	"github.com/talent-hunters/bookportal/internal/store"
	"github.com/talent-hunters/bookportal/types"
)

// UserRepository stores users in memory.
type UserRepository struct {
	s *Store
}

func (r *UserRepository) GetByID(_ context.Context, id string) (types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[id]
	if !ok {
		return types.User{}, store.ErrUserNotFound
	}
	return cloneUser(user), nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, id := range r.s.userOrder {
		if user := r.s.users[id]; user.Email == email {
			return cloneUser(user), nil
		}
	}
	return types.User{}, store.ErrUserNotFound
}

func (r *UserRepository) GetMany(_ context.Context, ids []string) ([]types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	users := make([]types.User, 0, len(ids))
	for _, id := range r.s.userOrder {
		if _, ok := wanted[id]; ok {
			users = append(users, cloneUser(r.s.users[id]))
		}
	}
	return users, nil
}

func (r *UserRepository) List(_ context.Context, filter types.UserFilter) ([]types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	users := make([]types.User, 0)
	for _, id := range r.s.userOrder {
		if user := r.s.users[id]; filter.Matches(user) {
			users = append(users, cloneUser(user))
		}
	}
	return users, nil
}

func (r *UserRepository) Create(_ context.Context, user types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.emailTaken(user.Email, "") {
		return types.User{}, store.ErrDuplicateEmail
	}
	if user.ID == "" {
		user.ID = newID()
	}
	ts := r.s.now()
	user.CreatedAt = ts
	user.UpdatedAt = ts
	user.Books = []types.BookRef{}

	r.s.users[user.ID] = user
	r.s.userOrder = append(r.s.userOrder, user.ID)
	return cloneUser(user), nil
}

func (r *UserRepository) Update(_ context.Context, id string, patch types.UserPatch) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return types.User{}, store.ErrUserNotFound
	}
	if patch.Email != nil && r.s.emailTaken(*patch.Email, id) {
		return types.User{}, store.ErrDuplicateEmail
	}
	patch.Apply(&user)
	user.UpdatedAt = r.s.now()
	r.s.users[id] = user
	return cloneUser(user), nil
}

func (r *UserRepository) Delete(_ context.Context, id string) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return types.User{}, store.ErrUserNotFound
	}
	delete(r.s.users, id)
	r.s.userOrder = removeID(r.s.userOrder, id)
	return cloneUser(user), nil
}

func (r *UserRepository) ClearBookLists(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var modified int64
	for id, user := range r.s.users {
		if len(user.Books) == 0 {
			continue
		}
		user.Books = []types.BookRef{}
		r.s.users[id] = user
		modified++
	}
	return modified, nil
}

// emailTaken reports whether a user other than exceptID owns email.
// The caller holds the lock.
func (s *Store) emailTaken(email, exceptID string) bool {
	for id, user := range s.users {
		if id != exceptID && user.Email == email {
			return true
		}
	}
	return false
}
