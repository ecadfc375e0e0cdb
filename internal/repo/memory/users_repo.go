package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/techdiscoveria/discoveria/internal/domain/user"
	"github.com/techdiscoveria/discoveria/internal/repo"
)

type UsersRepo struct {
	mu      sync.RWMutex
	items   map[string]user.User // id -> user
	byEmail map[string]string    // email -> id
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items:   make(map[string]user.User),
		byEmail: make(map[string]string),
	}
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]user.User, 0, len(r.items))
	for _, u := range r.items {
		out = append(out, u)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return r.items[id], nil
}

func (r *UsersRepo) CreateIfAbsent(ctx context.Context, u user.User) (user.User, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[u.Email]; exists {
		return user.User{}, false, nil
	}

	u.ID = uuid.NewString()
	r.items[u.ID] = u
	r.byEmail[u.Email] = u.ID

	return u, true, nil
}

func (r *UsersRepo) SetRole(ctx context.Context, id, role string) (repo.UpdateResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return repo.UpdateResult{Acknowledged: true}, nil
	}

	res := repo.UpdateResult{Acknowledged: true, MatchedCount: 1}
	if u.Role != role {
		u.Role = role
		u.UpdatedAt = time.Now().UTC()
		r.items[id] = u
		res.ModifiedCount = 1
	}
	return res, nil
}

func (r *UsersRepo) SetMembership(ctx context.Context, email, membership string) (repo.UpdateResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.setMembershipLocked(email, membership), nil
}

func (r *UsersRepo) setMembershipLocked(email, membership string) repo.UpdateResult {
	id, ok := r.byEmail[email]
	if !ok {
		return repo.UpdateResult{Acknowledged: true}
	}

	u := r.items[id]
	res := repo.UpdateResult{Acknowledged: true, MatchedCount: 1}
	if u.Membership != membership {
		u.Membership = membership
		u.UpdatedAt = time.Now().UTC()
		r.items[id] = u
		res.ModifiedCount = 1
	}
	return res
}

func (r *UsersRepo) EnsureAdmin(ctx context.Context, email, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()

	if id, ok := r.byEmail[email]; ok {
		u := r.items[id]
		u.Role = user.RoleAdmin
		u.UpdatedAt = now
		r.items[id] = u
		return nil
	}

	u := user.User{
		ID:         uuid.NewString(),
		Name:       name,
		Email:      email,
		Role:       user.RoleAdmin,
		Membership: user.MembershipNone,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.items[u.ID] = u
	r.byEmail[email] = u.ID
	return nil
}
