package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tastebase/auth/internal/domain/repository"
)

type sessionRepo struct{ pool *pgxpool.Pool }

const sessionColumns = `
	id, user_id, refresh_token_hash, previous_token_hash, current_token_enc,
	rotated_at, device_info, ip_address, created_at, expires_at, is_active, revoked_at
`

func scanSession(row pgx.Row) (*repository.Session, error) {
	var s repository.Session
	err := row.Scan(
		&s.ID, &s.UserID, &s.RefreshTokenHash, &s.PreviousTokenHash, &s.CurrentTokenEnc,
		&s.RotatedAt, &s.DeviceInfo, &s.IPAddress, &s.CreatedAt, &s.ExpiresAt,
		&s.IsActive, &s.RevokedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepo) Create(ctx context.Context, input repository.CreateSessionInput) (*repository.Session, error) {
	const query = `
		INSERT INTO sessions (id, user_id, refresh_token_hash, current_token_enc, device_info, ip_address, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + sessionColumns

	row := r.pool.QueryRow(ctx, query,
		input.ID, input.UserID, input.RefreshTokenHash, input.CurrentTokenEnc,
		input.DeviceInfo, input.IPAddress, input.ExpiresAt,
	)
	s, err := scanSession(row)
	if isUniqueViolation(err) {
		return nil, repository.ErrConflict
	}
	return s, err
}

func (r *sessionRepo) GetByID(ctx context.Context, sessionID string) (*repository.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	return scanSession(r.pool.QueryRow(ctx, query, sessionID))
}

func (r *sessionRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*repository.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE refresh_token_hash = $1 OR previous_token_hash = $1
	`
	return scanSession(r.pool.QueryRow(ctx, query, tokenHash))
}

func (r *sessionRepo) Rotate(ctx context.Context, input repository.RotateSessionInput) (*repository.Session, error) {
	// Compare-and-swap on the current hash. A concurrent rotation that got
	// there first makes the WHERE miss; the follow-up probe tells a lost
	// race apart from a dead session.
	const query = `
		UPDATE sessions SET
			previous_token_hash = refresh_token_hash,
			refresh_token_hash = $3,
			current_token_enc = $4,
			rotated_at = $5,
			expires_at = $6
		WHERE id = $1 AND is_active AND refresh_token_hash = $2
		RETURNING ` + sessionColumns

	row := r.pool.QueryRow(ctx, query,
		input.SessionID, input.OldHash, input.NewHash,
		input.CurrentTokenEnc, input.RotatedAt, input.ExpiresAt,
	)
	s, err := scanSession(row)
	if err == nil {
		return s, nil
	}
	if err != repository.ErrNotFound {
		return nil, err
	}

	var alive bool
	probe := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM sessions WHERE id = $1 AND is_active)`, input.SessionID,
	)
	if scanErr := probe.Scan(&alive); scanErr != nil {
		return nil, scanErr
	}
	if alive {
		return nil, repository.ErrPreconditionFailed
	}
	return nil, repository.ErrNotFound
}

func (r *sessionRepo) Revoke(ctx context.Context, sessionID string) error {
	// COALESCE keeps the first revocation's timestamp on repeats.
	const query = `
		UPDATE sessions SET is_active = FALSE, revoked_at = COALESCE(revoked_at, now())
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, sessionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *sessionRepo) RevokeAllByUser(ctx context.Context, userID string) (int, error) {
	const query = `
		UPDATE sessions SET is_active = FALSE, revoked_at = now()
		WHERE user_id = $1 AND is_active
	`
	tag, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *sessionRepo) ListByUser(ctx context.Context, userID string) ([]repository.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE user_id = $1 AND is_active AND expires_at > now()
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []repository.Session{}
	for rows.Next() {
		var s repository.Session
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.RefreshTokenHash, &s.PreviousTokenHash, &s.CurrentTokenEnc,
			&s.RotatedAt, &s.DeviceInfo, &s.IPAddress, &s.CreatedAt, &s.ExpiresAt,
			&s.IsActive, &s.RevokedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *sessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	const query = `DELETE FROM sessions WHERE expires_at < $1`
	tag, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *sessionRepo) Delete(ctx context.Context, sessionID string) error {
	const query = `DELETE FROM sessions WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, sessionID)
	return err
}
