// Package session owns the refresh-token lineage: issuing device sessions,
// rotating refresh tokens, answering benign replays inside the grace window
// and killing the lineage on real reuse.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tastebase/auth/internal/audit"
	"github.com/tastebase/auth/internal/domain/repository"
	"github.com/tastebase/auth/internal/jwt"
	"github.com/tastebase/auth/internal/metrics"
	"github.com/tastebase/auth/internal/observability/logger"
	"github.com/tastebase/auth/internal/security/secretbox"
	"github.com/tastebase/auth/internal/security/token"
	"github.com/tastebase/auth/internal/store"
)

var (
	// ErrTokenInvalid covers refresh tokens that cannot belong to any
	// lineage: empty input, or a session whose stored state is
	// unrecoverable.
	ErrTokenInvalid = errors.New("refresh token invalid")

	// ErrTokenReuse is a replayed or unknown refresh token outside the
	// grace window. When a lineage was matched it has been revoked by the
	// time the caller sees this.
	ErrTokenReuse = errors.New("refresh token reuse detected")

	// ErrSessionRevoked means the token maps to a session that was revoked.
	ErrSessionRevoked = errors.New("session revoked")

	// ErrSessionExpired means the session's refresh window ran out.
	ErrSessionExpired = errors.New("session expired")
)

// TokenPair is what a login or refresh hands back to the client.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	SessionID        string    `json:"session_id"`
	TokenType        string    `json:"token_type"`
}

// Device is one entry in a user's session list.
type Device struct {
	SessionID     string     `json:"session_id"`
	DeviceInfo    string     `json:"device_info"`
	IPAddress     string     `json:"ip_address"`
	CreatedAt     time.Time  `json:"created_at"`
	LastRefreshAt *time.Time `json:"last_refresh_at,omitempty"`
	ExpiresAt     time.Time  `json:"expires_at"`
	Current       bool       `json:"current"`
}

// Options tunes session issuing and rotation.
type Options struct {
	// RefreshTTL is the sliding refresh window; each rotation re-arms it.
	RefreshTTL time.Duration

	// GraceWindow is how long after a rotation the previous refresh token
	// still answers with the live pair instead of tripping reuse handling.
	GraceWindow time.Duration

	// ReplayRevokesAll widens reuse handling from the affected session to
	// every session the user has.
	ReplayRevokesAll bool

	// TokenBytes is the entropy of the opaque refresh token.
	TokenBytes int
}

func (o *Options) fill() {
	if o.RefreshTTL <= 0 {
		o.RefreshTTL = 30 * 24 * time.Hour
	}
	if o.GraceWindow < 0 {
		o.GraceWindow = 0
	}
	if o.TokenBytes <= 0 {
		o.TokenBytes = 32
	}
}

// Manager is the session lifecycle API.
type Manager interface {
	// Issue opens a new session for the user and returns its first pair.
	Issue(ctx context.Context, user *repository.User, deviceInfo, ipAddress string) (*TokenPair, error)

	// Refresh exchanges a refresh token for a fresh pair. The previous
	// token keeps answering for GraceWindow after a rotation; older
	// replays revoke the lineage, and both those and tokens that match
	// no session at all come back as ErrTokenReuse.
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)

	// Reissue rotates a session in place, keyed by id instead of by the raw
	// refresh token. Used when the server must hand the caller a fresh pair
	// without being shown the old one, e.g. after a password change.
	Reissue(ctx context.Context, sessionID string) (*TokenPair, error)

	// Validate checks an access token by signature and expiry alone, with
	// no storage lookup. Revoking a session only stops it from minting new
	// pairs; access tokens already in the wild stay valid until their
	// short TTL runs out.
	Validate(ctx context.Context, accessToken string) (*jwt.AccessClaims, error)

	// Revoke kills one session.
	Revoke(ctx context.Context, sessionID string) error

	// RevokeByToken kills the session a refresh token belongs to.
	// Unknown tokens come back as ErrTokenInvalid.
	RevokeByToken(ctx context.Context, refreshToken string) error

	// RevokeAll kills every session the user has, returning how many.
	RevokeAll(ctx context.Context, userID string) (int, error)

	// RevokeOthers kills every session of the user except keepSessionID,
	// returning how many were revoked.
	RevokeOthers(ctx context.Context, userID, keepSessionID string) (int, error)

	// Devices lists the user's live sessions, flagging currentSessionID.
	Devices(ctx context.Context, userID, currentSessionID string) ([]Device, error)

	// CleanupExpired drops sessions past their refresh expiry.
	CleanupExpired(ctx context.Context) (int, error)
}

// Deps contains dependencies for the manager.
type Deps struct {
	DAL    store.DataAccessLayer
	Issuer *jwt.Issuer
	Box    *secretbox.Box
	Opts   Options
}

type manager struct {
	deps Deps
}

func NewManager(deps Deps) Manager {
	deps.Opts.fill()
	return &manager{deps: deps}
}

func (m *manager) Issue(ctx context.Context, user *repository.User, deviceInfo, ipAddress string) (*TokenPair, error) {
	log := m.log(ctx, "Issue").With(logger.UserID(user.ID))

	raw, err := token.NewOpaque(m.deps.Opts.TokenBytes)
	if err != nil {
		return nil, fmt.Errorf("session: token: %w", err)
	}
	enc, err := m.deps.Box.Seal(raw)
	if err != nil {
		return nil, fmt.Errorf("session: seal: %w", err)
	}

	now := time.Now().UTC()
	sess, err := m.deps.DAL.Sessions().Create(ctx, repository.CreateSessionInput{
		ID:               uuid.NewString(),
		UserID:           user.ID,
		RefreshTokenHash: token.Digest(raw),
		CurrentTokenEnc:  enc,
		DeviceInfo:       deviceInfo,
		IPAddress:        ipAddress,
		ExpiresAt:        now.Add(m.deps.Opts.RefreshTTL),
	})
	if err != nil {
		return nil, fmt.Errorf("session: create: %w", err)
	}

	access, accessExp, err := m.deps.Issuer.IssueAccess(user.ID, sess.ID, user.Region, user.IsPaid)
	if err != nil {
		return nil, fmt.Errorf("session: access token: %w", err)
	}

	metrics.SessionsActive.Inc()
	log.Info("session opened", logger.SessionID(sess.ID))
	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     raw,
		RefreshExpiresAt: sess.ExpiresAt,
		SessionID:        sess.ID,
		TokenType:        "Bearer",
	}, nil
}

func (m *manager) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	log := m.log(ctx, "Refresh")

	if refreshToken == "" {
		metrics.RefreshTotal.WithLabelValues("invalid").Inc()
		return nil, ErrTokenInvalid
	}
	hash := token.Digest(refreshToken)

	sess, err := m.deps.DAL.Sessions().GetByTokenHash(ctx, hash)
	if err != nil {
		if repository.IsNotFound(err) {
			// A token that matches nothing was rotated away long ago, or
			// never issued here. Either way it is a replay as far as the
			// caller is concerned; there is just no lineage left to revoke.
			metrics.RefreshTotal.WithLabelValues("no_match").Inc()
			log.Debug("refresh rejected: token matches no session")
			return nil, ErrTokenReuse
		}
		return nil, fmt.Errorf("session: lookup: %w", err)
	}
	log = log.With(logger.SessionID(sess.ID), logger.UserID(sess.UserID))

	now := time.Now().UTC()
	if !sess.IsActive {
		metrics.RefreshTotal.WithLabelValues("revoked").Inc()
		log.Debug("refresh rejected: session revoked")
		return nil, ErrSessionRevoked
	}
	if sess.Expired(now) {
		// lazy sweep: the row is dead weight, CleanupExpired would catch it
		// eventually anyway
		if derr := m.deps.DAL.Sessions().Delete(ctx, sess.ID); derr != nil {
			log.Warn("expired session delete failed", logger.Err(derr))
		}
		metrics.RefreshTotal.WithLabelValues("expired").Inc()
		log.Debug("refresh rejected: session expired")
		return nil, ErrSessionExpired
	}

	if hash == sess.RefreshTokenHash {
		return m.rotate(ctx, log, sess, hash, now)
	}
	// matched the previous hash
	if m.withinGrace(sess, now) {
		return m.graceReplay(ctx, log, sess)
	}
	return nil, m.handleReuse(ctx, log, sess)
}

// rotate advances the lineage by one step. Losing the compare-and-swap to a
// concurrent refresh of the same token is not an error: the loser re-reads
// and is served through the grace window, so both callers end up holding the
// same live pair.
func (m *manager) rotate(ctx context.Context, log *zap.Logger, sess *repository.Session, oldHash string, now time.Time) (*TokenPair, error) {
	raw, err := token.NewOpaque(m.deps.Opts.TokenBytes)
	if err != nil {
		return nil, fmt.Errorf("session: token: %w", err)
	}
	enc, err := m.deps.Box.Seal(raw)
	if err != nil {
		return nil, fmt.Errorf("session: seal: %w", err)
	}

	rotated, err := m.deps.DAL.Sessions().Rotate(ctx, repository.RotateSessionInput{
		SessionID:       sess.ID,
		OldHash:         oldHash,
		NewHash:         token.Digest(raw),
		CurrentTokenEnc: enc,
		RotatedAt:       now,
		ExpiresAt:       now.Add(m.deps.Opts.RefreshTTL),
	})
	switch {
	case err == nil:
	case repository.IsPreconditionFailed(err):
		fresh, rerr := m.deps.DAL.Sessions().GetByID(ctx, sess.ID)
		if rerr != nil {
			return nil, fmt.Errorf("session: reread: %w", rerr)
		}
		if !fresh.IsActive {
			metrics.RefreshTotal.WithLabelValues("revoked").Inc()
			return nil, ErrSessionRevoked
		}
		if fresh.PreviousTokenHash != nil && *fresh.PreviousTokenHash == oldHash && m.withinGrace(fresh, time.Now().UTC()) {
			return m.graceReplay(ctx, log, fresh)
		}
		return nil, m.handleReuse(ctx, log, fresh)
	case repository.IsNotFound(err):
		metrics.RefreshTotal.WithLabelValues("revoked").Inc()
		return nil, ErrSessionRevoked
	default:
		return nil, fmt.Errorf("session: rotate: %w", err)
	}

	pair, err := m.pairFor(ctx, rotated, raw)
	if err != nil {
		return nil, err
	}
	metrics.RefreshTotal.WithLabelValues("rotated").Inc()
	log.Debug("refresh rotated")
	return pair, nil
}

// graceReplay answers a previous-token replay inside the grace window with
// the live pair: a fresh access token plus the current refresh token,
// unsealed from storage. No rotation happens, so a client that lost the
// rotation response (or lost a refresh race) converges on the same tokens
// as everyone else.
func (m *manager) graceReplay(ctx context.Context, log *zap.Logger, sess *repository.Session) (*TokenPair, error) {
	raw, err := m.deps.Box.Open(sess.CurrentTokenEnc)
	if err != nil {
		// master key changed since the rotation; the live pair is
		// unrecoverable, so the client has to log in again
		log.Error("grace replay unseal failed", logger.Err(err))
		metrics.RefreshTotal.WithLabelValues("invalid").Inc()
		return nil, ErrTokenInvalid
	}

	pair, err := m.pairFor(ctx, sess, raw)
	if err != nil {
		return nil, err
	}
	metrics.RefreshTotal.WithLabelValues("grace_replay").Inc()
	log.Info("refresh answered from grace window")
	return pair, nil
}

// handleReuse is the replay-outside-grace path: revoke the lineage (or all
// of the user's sessions) and surface ErrTokenReuse.
func (m *manager) handleReuse(ctx context.Context, log *zap.Logger, sess *repository.Session) error {
	metrics.TokenReuseTotal.Inc()
	metrics.RefreshTotal.WithLabelValues("reuse_detected").Inc()

	if m.deps.Opts.ReplayRevokesAll {
		n, err := m.deps.DAL.Sessions().RevokeAllByUser(ctx, sess.UserID)
		if err != nil {
			log.Error("reuse response failed", logger.Err(err))
		} else {
			metrics.SessionsActive.Sub(float64(n))
		}
		log.Warn("refresh token reuse: revoked all sessions for user", logger.Count(n))
		audit.Record(ctx, audit.TokenReuse,
			logger.UserID(sess.UserID), logger.SessionID(sess.ID),
			logger.String("response", "revoke_all"), logger.Count(n))
		return ErrTokenReuse
	}

	err := m.deps.DAL.Sessions().Revoke(ctx, sess.ID)
	switch {
	case err == nil:
		metrics.SessionsActive.Dec()
	case !repository.IsNotFound(err):
		log.Error("reuse response failed", logger.Err(err))
	}
	log.Warn("refresh token reuse: revoked session")
	audit.Record(ctx, audit.TokenReuse,
		logger.UserID(sess.UserID), logger.SessionID(sess.ID),
		logger.String("response", "revoke_one"))
	return ErrTokenReuse
}

// pairFor builds the response pair for a session whose current raw refresh
// token is rawRefresh.
func (m *manager) pairFor(ctx context.Context, sess *repository.Session, rawRefresh string) (*TokenPair, error) {
	user, err := m.deps.DAL.Users().GetByID(ctx, sess.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			// owner vanished; the session is garbage
			_ = m.deps.DAL.Sessions().Revoke(ctx, sess.ID)
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("session: user lookup: %w", err)
	}

	access, accessExp, err := m.deps.Issuer.IssueAccess(user.ID, sess.ID, user.Region, user.IsPaid)
	if err != nil {
		return nil, fmt.Errorf("session: access token: %w", err)
	}
	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     rawRefresh,
		RefreshExpiresAt: sess.ExpiresAt,
		SessionID:        sess.ID,
		TokenType:        "Bearer",
	}, nil
}

func (m *manager) withinGrace(sess *repository.Session, now time.Time) bool {
	return sess.RotatedAt != nil && now.Sub(*sess.RotatedAt) <= m.deps.Opts.GraceWindow
}

func (m *manager) Reissue(ctx context.Context, sessionID string) (*TokenPair, error) {
	log := m.log(ctx, "Reissue").With(logger.SessionID(sessionID))

	sess, err := m.deps.DAL.Sessions().GetByID(ctx, sessionID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrSessionRevoked
		}
		return nil, fmt.Errorf("session: lookup: %w", err)
	}

	// one retry absorbs a refresh racing the reissue
	for attempt := 0; attempt < 2; attempt++ {
		now := time.Now().UTC()
		if !sess.IsActive {
			return nil, ErrSessionRevoked
		}
		if sess.Expired(now) {
			return nil, ErrSessionExpired
		}

		raw, err := token.NewOpaque(m.deps.Opts.TokenBytes)
		if err != nil {
			return nil, fmt.Errorf("session: token: %w", err)
		}
		enc, err := m.deps.Box.Seal(raw)
		if err != nil {
			return nil, fmt.Errorf("session: seal: %w", err)
		}

		rotated, err := m.deps.DAL.Sessions().Rotate(ctx, repository.RotateSessionInput{
			SessionID:       sess.ID,
			OldHash:         sess.RefreshTokenHash,
			NewHash:         token.Digest(raw),
			CurrentTokenEnc: enc,
			RotatedAt:       now,
			ExpiresAt:       now.Add(m.deps.Opts.RefreshTTL),
		})
		switch {
		case err == nil:
			pair, perr := m.pairFor(ctx, rotated, raw)
			if perr != nil {
				return nil, perr
			}
			metrics.RefreshTotal.WithLabelValues("rotated").Inc()
			log.Info("session reissued")
			return pair, nil
		case repository.IsPreconditionFailed(err):
			sess, err = m.deps.DAL.Sessions().GetByID(ctx, sess.ID)
			if err != nil {
				if repository.IsNotFound(err) {
					return nil, ErrSessionRevoked
				}
				return nil, fmt.Errorf("session: reread: %w", err)
			}
		case repository.IsNotFound(err):
			return nil, ErrSessionRevoked
		default:
			return nil, fmt.Errorf("session: reissue: %w", err)
		}
	}
	return nil, fmt.Errorf("session: reissue: %w", repository.ErrPreconditionFailed)
}

func (m *manager) Validate(_ context.Context, accessToken string) (*jwt.AccessClaims, error) {
	return m.deps.Issuer.ParseAccess(accessToken)
}

func (m *manager) Revoke(ctx context.Context, sessionID string) error {
	err := m.deps.DAL.Sessions().Revoke(ctx, sessionID)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrSessionRevoked
		}
		return fmt.Errorf("session: revoke: %w", err)
	}
	metrics.SessionsActive.Dec()
	m.log(ctx, "Revoke").Info("session revoked", logger.SessionID(sessionID))
	return nil
}

func (m *manager) RevokeByToken(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return ErrTokenInvalid
	}
	sess, err := m.deps.DAL.Sessions().GetByTokenHash(ctx, token.Digest(refreshToken))
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrTokenInvalid
		}
		return fmt.Errorf("session: lookup: %w", err)
	}
	return m.Revoke(ctx, sess.ID)
}

func (m *manager) RevokeAll(ctx context.Context, userID string) (int, error) {
	n, err := m.deps.DAL.Sessions().RevokeAllByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("session: revoke all: %w", err)
	}
	metrics.SessionsActive.Sub(float64(n))
	m.log(ctx, "RevokeAll").Info("sessions revoked", logger.UserID(userID), logger.Count(n))
	return n, nil
}

func (m *manager) RevokeOthers(ctx context.Context, userID, keepSessionID string) (int, error) {
	sessions, err := m.deps.DAL.Sessions().ListByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("session: list: %w", err)
	}
	n := 0
	for _, s := range sessions {
		if s.ID == keepSessionID {
			continue
		}
		if err := m.deps.DAL.Sessions().Revoke(ctx, s.ID); err != nil && !repository.IsNotFound(err) {
			return n, fmt.Errorf("session: revoke other: %w", err)
		}
		metrics.SessionsActive.Dec()
		n++
	}
	if n > 0 {
		m.log(ctx, "RevokeOthers").Info("other sessions revoked", logger.UserID(userID), logger.Count(n))
	}
	return n, nil
}

func (m *manager) Devices(ctx context.Context, userID, currentSessionID string) ([]Device, error) {
	sessions, err := m.deps.DAL.Sessions().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("session: list: %w", err)
	}
	devices := make([]Device, 0, len(sessions))
	for _, s := range sessions {
		devices = append(devices, Device{
			SessionID:     s.ID,
			DeviceInfo:    s.DeviceInfo,
			IPAddress:     s.IPAddress,
			CreatedAt:     s.CreatedAt,
			LastRefreshAt: s.RotatedAt,
			ExpiresAt:     s.ExpiresAt,
			Current:       s.ID == currentSessionID,
		})
	}
	return devices, nil
}

func (m *manager) CleanupExpired(ctx context.Context) (int, error) {
	n, err := m.deps.DAL.Sessions().DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("session: cleanup: %w", err)
	}
	if n > 0 {
		m.log(ctx, "CleanupExpired").Info("expired sessions removed", logger.Count(n))
	}
	return n, nil
}

func (m *manager) log(ctx context.Context, op string) *zap.Logger {
	return logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("session.manager"),
		logger.Op(op),
	)
}
