package memory

import (
	"context"
	"sort"
	"time"

	"github.com/tastebase/auth/internal/domain/repository"
)

type sessionRepo struct {
	s *Store
}

func cloneSession(s *repository.Session) *repository.Session {
	cp := *s
	if s.PreviousTokenHash != nil {
		h := *s.PreviousTokenHash
		cp.PreviousTokenHash = &h
	}
	if s.RotatedAt != nil {
		t := *s.RotatedAt
		cp.RotatedAt = &t
	}
	if s.RevokedAt != nil {
		t := *s.RevokedAt
		cp.RevokedAt = &t
	}
	return &cp
}

func (r *sessionRepo) Create(_ context.Context, input repository.CreateSessionInput) (*repository.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, dup := r.s.sessions[input.ID]; dup {
		return nil, repository.ErrConflict
	}
	if _, dup := r.s.sessionByHash[input.RefreshTokenHash]; dup {
		return nil, repository.ErrConflict
	}

	sess := &repository.Session{
		ID:               input.ID,
		UserID:           input.UserID,
		RefreshTokenHash: input.RefreshTokenHash,
		CurrentTokenEnc:  input.CurrentTokenEnc,
		DeviceInfo:       input.DeviceInfo,
		IPAddress:        input.IPAddress,
		CreatedAt:        time.Now().UTC(),
		ExpiresAt:        input.ExpiresAt,
		IsActive:         true,
	}
	r.s.sessions[sess.ID] = sess
	r.s.sessionByHash[sess.RefreshTokenHash] = sess.ID
	return cloneSession(sess), nil
}

func (r *sessionRepo) GetByID(_ context.Context, sessionID string) (*repository.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sess, ok := r.s.sessions[sessionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneSession(sess), nil
}

func (r *sessionRepo) GetByTokenHash(_ context.Context, tokenHash string) (*repository.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.sessionByHash[tokenHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneSession(r.s.sessions[id]), nil
}

func (r *sessionRepo) Rotate(_ context.Context, input repository.RotateSessionInput) (*repository.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sess, ok := r.s.sessions[input.SessionID]
	if !ok || !sess.IsActive {
		return nil, repository.ErrNotFound
	}
	if sess.RefreshTokenHash != input.OldHash {
		return nil, repository.ErrPreconditionFailed
	}

	if sess.PreviousTokenHash != nil {
		delete(r.s.sessionByHash, *sess.PreviousTokenHash)
	}
	prev := sess.RefreshTokenHash
	sess.PreviousTokenHash = &prev
	sess.RefreshTokenHash = input.NewHash
	sess.CurrentTokenEnc = input.CurrentTokenEnc
	rotated := input.RotatedAt
	sess.RotatedAt = &rotated
	sess.ExpiresAt = input.ExpiresAt

	r.s.sessionByHash[prev] = sess.ID
	r.s.sessionByHash[input.NewHash] = sess.ID
	return cloneSession(sess), nil
}

func (r *sessionRepo) Revoke(_ context.Context, sessionID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[sessionID]
	if !ok {
		return repository.ErrNotFound
	}
	if !sess.IsActive {
		return nil
	}
	sess.IsActive = false
	now := time.Now().UTC()
	sess.RevokedAt = &now
	return nil
}

func (r *sessionRepo) RevokeAllByUser(_ context.Context, userID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	n := 0
	for _, sess := range r.s.sessions {
		if sess.UserID != userID || !sess.IsActive {
			continue
		}
		sess.IsActive = false
		t := now
		sess.RevokedAt = &t
		n++
	}
	return n, nil
}

func (r *sessionRepo) ListByUser(_ context.Context, userID string) ([]repository.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	now := time.Now().UTC()
	out := []repository.Session{}
	for _, sess := range r.s.sessions {
		if sess.UserID != userID || !sess.IsActive || sess.Expired(now) {
			continue
		}
		out = append(out, *cloneSession(sess))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *sessionRepo) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for id, sess := range r.s.sessions {
		if !sess.Expired(now) {
			continue
		}
		r.deleteLocked(id, sess)
		n++
	}
	return n, nil
}

func (r *sessionRepo) Delete(_ context.Context, sessionID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[sessionID]
	if !ok {
		return nil
	}
	r.deleteLocked(sessionID, sess)
	return nil
}

func (r *sessionRepo) deleteLocked(id string, sess *repository.Session) {
	delete(r.s.sessionByHash, sess.RefreshTokenHash)
	if sess.PreviousTokenHash != nil {
		delete(r.s.sessionByHash, *sess.PreviousTokenHash)
	}
	delete(r.s.sessions, id)
}
