package pg

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tastebase/auth/internal/domain/repository"
)

type attemptRepo struct{ pool *pgxpool.Pool }

func (r *attemptRepo) Record(ctx context.Context, attempt repository.LoginAttempt) error {
	const query = `
		INSERT INTO login_attempts (id, identifier, user_id, success, reason, ip_address, device_info)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	id := attempt.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx, query,
		id, attempt.Identifier, attempt.UserID, attempt.Success,
		attempt.Reason, attempt.IPAddress, attempt.DeviceInfo,
	)
	return err
}

func (r *attemptRepo) ListByIdentifier(ctx context.Context, identifier string, limit int) ([]repository.LoginAttempt, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
		SELECT id, identifier, user_id, success, reason, ip_address, device_info, created_at
		FROM login_attempts
		WHERE identifier = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, identifier, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []repository.LoginAttempt{}
	for rows.Next() {
		var a repository.LoginAttempt
		if err := rows.Scan(
			&a.ID, &a.Identifier, &a.UserID, &a.Success,
			&a.Reason, &a.IPAddress, &a.DeviceInfo, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *attemptRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	const query = `DELETE FROM login_attempts WHERE created_at < $1`
	tag, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
