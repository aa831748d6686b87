package memory

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/google/uuid"

	"github.com/tastebase/auth/internal/domain/repository"
)

type codeRepo struct {
	s *Store
}

func codeKey(target string, codeType repository.CodeType) string {
	return target + "|" + string(codeType)
}

func cloneCode(c *repository.VerificationCode) *repository.VerificationCode {
	cp := *c
	if c.ConsumedAt != nil {
		t := *c.ConsumedAt
		cp.ConsumedAt = &t
	}
	return &cp
}

func (r *codeRepo) Upsert(_ context.Context, input repository.UpsertCodeInput) (*repository.VerificationCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id := input.ID
	if id == "" {
		id = uuid.NewString()
	}
	c := &repository.VerificationCode{
		ID:          id,
		Target:      input.Target,
		Type:        input.Type,
		Code:        input.Code,
		MaxAttempts: input.MaxAttempts,
		CreatedAt:   time.Now().UTC(),
		ExpiresAt:   input.ExpiresAt,
	}
	// replaces any previous code for the same (target, type)
	r.s.codes[codeKey(input.Target, input.Type)] = c
	return cloneCode(c), nil
}

func (r *codeRepo) Consume(_ context.Context, target string, codeType repository.CodeType, code string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.codes[codeKey(target, codeType)]
	if !ok || !c.Live(time.Now().UTC()) {
		return repository.ErrNotFound
	}
	if subtle.ConstantTimeCompare([]byte(c.Code), []byte(code)) != 1 {
		c.Attempts++
		return repository.ErrNotFound
	}
	now := time.Now().UTC()
	c.ConsumedAt = &now
	return nil
}

func (r *codeRepo) GetActive(_ context.Context, target string, codeType repository.CodeType) (*repository.VerificationCode, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.codes[codeKey(target, codeType)]
	if !ok || !c.Live(time.Now().UTC()) {
		return nil, repository.ErrNotFound
	}
	return cloneCode(c), nil
}

func (r *codeRepo) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for key, c := range r.s.codes {
		if c.ConsumedAt != nil || !now.Before(c.ExpiresAt) {
			delete(r.s.codes, key)
			n++
		}
	}
	return n, nil
}
