package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tastebase/auth/internal/domain/repository"
)

type userRepo struct {
	s *Store
}

func cloneUser(u *repository.User) *repository.User {
	cp := *u
	if u.Email != nil {
		e := *u.Email
		cp.Email = &e
	}
	if u.Phone != nil {
		p := *u.Phone
		cp.Phone = &p
	}
	if u.LockedUntil != nil {
		t := *u.LockedUntil
		cp.LockedUntil = &t
	}
	return &cp
}

func (r *userRepo) GetByID(_ context.Context, userID string) (*repository.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *userRepo) GetByIdentifier(_ context.Context, kind repository.IdentifierKind, value string) (*repository.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var id string
	var ok bool
	switch kind {
	case repository.IdentifierUsername:
		id, ok = r.s.usersByName[value]
	case repository.IdentifierEmail:
		id, ok = r.s.usersByEmail[value]
	case repository.IdentifierPhone:
		id, ok = r.s.usersByPhone[value]
	}
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(r.s.users[id]), nil
}

func (r *userRepo) Create(_ context.Context, input repository.CreateUserInput) (*repository.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, taken := r.s.usersByName[input.Username]; taken {
		return nil, repository.ErrConflict
	}
	if input.Email != nil {
		if _, taken := r.s.usersByEmail[*input.Email]; taken {
			return nil, repository.ErrConflict
		}
	}
	if input.Phone != nil {
		if _, taken := r.s.usersByPhone[*input.Phone]; taken {
			return nil, repository.ErrConflict
		}
	}

	now := time.Now().UTC()
	u := &repository.User{
		ID:           uuid.NewString(),
		Username:     input.Username,
		PasswordHash: input.PasswordHash,
		Region:       input.Region,
		IsActive:     true,
		IsVerified:   input.IsVerified,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if input.Email != nil {
		e := *input.Email
		u.Email = &e
	}
	if input.Phone != nil {
		p := *input.Phone
		u.Phone = &p
	}

	r.s.users[u.ID] = u
	r.s.usersByName[u.Username] = u.ID
	if u.Email != nil {
		r.s.usersByEmail[*u.Email] = u.ID
	}
	if u.Phone != nil {
		r.s.usersByPhone[*u.Phone] = u.ID
	}
	return cloneUser(u), nil
}

func (r *userRepo) UpdatePasswordHash(_ context.Context, userID, newHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = newHash
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *userRepo) SetVerified(_ context.Context, userID string, verified bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.IsVerified = verified
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *userRepo) RecordLoginFailure(_ context.Context, userID string, threshold int, lockFor time.Duration) (int, *time.Time, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return 0, nil, repository.ErrNotFound
	}
	u.FailedLoginCount++
	u.UpdatedAt = time.Now().UTC()
	if threshold > 0 && u.FailedLoginCount >= threshold {
		until := time.Now().UTC().Add(lockFor)
		u.LockedUntil = &until
		cp := until
		return u.FailedLoginCount, &cp, nil
	}
	return u.FailedLoginCount, nil, nil
}

func (r *userRepo) ResetLoginFailures(_ context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.FailedLoginCount = 0
	u.LockedUntil = nil
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *userRepo) List(_ context.Context, filter repository.ListUsersFilter) ([]repository.User, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := make([]*repository.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		if filter.Search != "" && !userMatches(u, filter.Search) {
			continue
		}
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	if filter.Offset >= len(all) {
		return []repository.User{}, nil
	}
	all = all[filter.Offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	out := make([]repository.User, 0, len(all))
	for _, u := range all {
		out = append(out, *cloneUser(u))
	}
	return out, nil
}

func userMatches(u *repository.User, search string) bool {
	s := strings.ToLower(search)
	if strings.Contains(strings.ToLower(u.Username), s) {
		return true
	}
	if u.Email != nil && strings.Contains(strings.ToLower(*u.Email), s) {
		return true
	}
	if u.Phone != nil && strings.Contains(*u.Phone, s) {
		return true
	}
	return false
}
