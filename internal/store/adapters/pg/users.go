package pg

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tastebase/auth/internal/domain/repository"
)

type userRepo struct{ pool *pgxpool.Pool }

const userColumns = `
	id, username, email, phone, password_hash, region,
	is_active, is_verified, is_paid,
	failed_login_count, locked_until, created_at, updated_at
`

func scanUser(row pgx.Row) (*repository.User, error) {
	var u repository.User
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.Phone, &u.PasswordHash, &u.Region,
		&u.IsActive, &u.IsVerified, &u.IsPaid,
		&u.FailedLoginCount, &u.LockedUntil, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) GetByID(ctx context.Context, userID string) (*repository.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, userID))
}

func (r *userRepo) GetByIdentifier(ctx context.Context, kind repository.IdentifierKind, value string) (*repository.User, error) {
	var query string
	switch kind {
	case repository.IdentifierUsername:
		query = `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	case repository.IdentifierEmail:
		query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	case repository.IdentifierPhone:
		query = `SELECT ` + userColumns + ` FROM users WHERE phone = $1`
	default:
		return nil, repository.ErrNotFound
	}
	return scanUser(r.pool.QueryRow(ctx, query, value))
}

func (r *userRepo) Create(ctx context.Context, input repository.CreateUserInput) (*repository.User, error) {
	const query = `
		INSERT INTO users (id, username, email, phone, password_hash, region, is_verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + userColumns

	row := r.pool.QueryRow(ctx, query,
		uuid.NewString(), input.Username, input.Email, input.Phone,
		input.PasswordHash, input.Region, input.IsVerified,
	)
	u, err := scanUser(row)
	if isUniqueViolation(err) {
		return nil, repository.ErrConflict
	}
	return u, err
}

func (r *userRepo) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, userID, newHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *userRepo) SetVerified(ctx context.Context, userID string, verified bool) error {
	const query = `UPDATE users SET is_verified = $2, updated_at = now() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, userID, verified)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *userRepo) RecordLoginFailure(ctx context.Context, userID string, threshold int, lockFor time.Duration) (int, *time.Time, error) {
	// Single statement so concurrent failures each observe a distinct count.
	const query = `
		UPDATE users SET
			failed_login_count = failed_login_count + 1,
			locked_until = CASE
				WHEN $2 > 0 AND failed_login_count + 1 >= $2
				THEN now() + make_interval(secs => $3)
				ELSE locked_until
			END,
			updated_at = now()
		WHERE id = $1
		RETURNING failed_login_count, locked_until
	`
	var count int
	var lockedUntil *time.Time
	err := r.pool.QueryRow(ctx, query, userID, threshold, lockFor.Seconds()).Scan(&count, &lockedUntil)
	if err == pgx.ErrNoRows {
		return 0, nil, repository.ErrNotFound
	}
	if err != nil {
		return 0, nil, err
	}
	if threshold <= 0 || count < threshold {
		lockedUntil = nil
	}
	return count, lockedUntil, nil
}

func (r *userRepo) ResetLoginFailures(ctx context.Context, userID string) error {
	const query = `
		UPDATE users SET failed_login_count = 0, locked_until = NULL, updated_at = now()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *userRepo) List(ctx context.Context, filter repository.ListUsersFilter) ([]repository.User, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE $1 = ''
			OR username ILIKE '%' || $1 || '%'
			OR email ILIKE '%' || $1 || '%'
			OR phone LIKE '%' || $1 || '%'
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, filter.Search, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []repository.User{}
	for rows.Next() {
		var u repository.User
		if err := rows.Scan(
			&u.ID, &u.Username, &u.Email, &u.Phone, &u.PasswordHash, &u.Region,
			&u.IsActive, &u.IsVerified, &u.IsPaid,
			&u.FailedLoginCount, &u.LockedUntil, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
