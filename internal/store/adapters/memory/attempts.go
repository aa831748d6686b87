package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tastebase/auth/internal/domain/repository"
)

type attemptRepo struct {
	s *Store
}

func (r *attemptRepo) Record(_ context.Context, attempt repository.LoginAttempt) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now().UTC()
	}
	r.s.attempts = append(r.s.attempts, attempt)
	return nil
}

func (r *attemptRepo) ListByIdentifier(_ context.Context, identifier string, limit int) ([]repository.LoginAttempt, error) {
	if limit <= 0 {
		limit = 20
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []repository.LoginAttempt{}
	for i := len(r.s.attempts) - 1; i >= 0 && len(out) < limit; i-- {
		if r.s.attempts[i].Identifier == identifier {
			out = append(out, r.s.attempts[i])
		}
	}
	return out, nil
}

func (r *attemptRepo) DeleteBefore(_ context.Context, cutoff time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.attempts[:0]
	n := 0
	for _, a := range r.s.attempts {
		if a.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, a)
	}
	r.s.attempts = kept
	return n, nil
}
