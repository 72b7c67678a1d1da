package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/josiahbryan/userhub/internal/domain/user"
)

// UsersRepo is an in-memory stand-in for the Mongo users collection. Used in
// tests and for running the API without a database.
type UsersRepo struct {
	mu    sync.RWMutex
	users map[string]user.User
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{users: make(map[string]user.User)}
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == u.Email {
			return user.User{}, user.ErrEmailTaken
		}
	}

	r.users[u.ID] = u

	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]

	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}

	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) List(ctx context.Context, filter user.ListUsersFilter, page, limit int) ([]user.User, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]user.User, 0, len(r.users))

	for _, u := range r.users {
		if filter.Email != nil && *filter.Email != "" &&
			!strings.Contains(strings.ToLower(u.Email), strings.ToLower(*filter.Email)) {
			continue
		}

		if filter.Role != nil && *filter.Role != "" && u.Role != *filter.Role {
			continue
		}

		matched = append(matched, u)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}

		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	start := (page - 1) * limit

	if start >= total {
		return []user.User{}, total, nil
	}

	end := start + limit

	if end > total {
		end = total
	}

	return matched[start:end], total, nil
}

func (r *UsersRepo) Update(ctx context.Context, id string, fields user.UpdateFields) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]

	if !ok {
		return user.User{}, user.ErrNotFound
	}

	if fields.Email != nil {
		for otherID, other := range r.users {
			if otherID != id && other.Email == *fields.Email {
				return user.User{}, user.ErrEmailTaken
			}
		}

		u.Email = *fields.Email
	}

	if fields.PasswordHash != nil {
		u.PasswordHash = *fields.PasswordHash
	}

	if fields.Items != nil {
		u.Items = *fields.Items
	}

	r.users[id] = u

	return u, nil
}

func (r *UsersRepo) Delete(ctx context.Context, id string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return 0, nil
	}

	delete(r.users, id)

	return 1, nil
}
