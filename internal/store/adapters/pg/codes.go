package pg

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tastebase/auth/internal/domain/repository"
)

type codeRepo struct{ pool *pgxpool.Pool }

const codeColumns = `
	id, target, code_type, code, attempts, max_attempts, created_at, expires_at, consumed_at
`

func scanCode(row pgx.Row) (*repository.VerificationCode, error) {
	var c repository.VerificationCode
	err := row.Scan(
		&c.ID, &c.Target, &c.Type, &c.Code, &c.Attempts, &c.MaxAttempts,
		&c.CreatedAt, &c.ExpiresAt, &c.ConsumedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *codeRepo) Upsert(ctx context.Context, input repository.UpsertCodeInput) (*repository.VerificationCode, error) {
	// The (target, code_type) unique constraint makes this the atomic
	// "void the previous code" step.
	const query = `
		INSERT INTO verification_codes (id, target, code_type, code, max_attempts, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT ON CONSTRAINT verification_codes_target_type_key DO UPDATE SET
			code = EXCLUDED.code,
			attempts = 0,
			max_attempts = EXCLUDED.max_attempts,
			created_at = now(),
			expires_at = EXCLUDED.expires_at,
			consumed_at = NULL
		RETURNING ` + codeColumns

	id := input.ID
	if id == "" {
		id = uuid.NewString()
	}
	row := r.pool.QueryRow(ctx, query,
		id, input.Target, input.Type, input.Code, input.MaxAttempts, input.ExpiresAt,
	)
	return scanCode(row)
}

func (r *codeRepo) Consume(ctx context.Context, target string, codeType repository.CodeType, code string) error {
	// Consume is a single CAS update; two racing consumers cannot both
	// match consumed_at IS NULL.
	const consume = `
		UPDATE verification_codes SET consumed_at = now()
		WHERE target = $1 AND code_type = $2 AND code = $3
			AND consumed_at IS NULL AND expires_at > now() AND attempts < max_attempts
	`
	tag, err := r.pool.Exec(ctx, consume, target, codeType, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Miss: burn an attempt on the live entry, if any.
	const burn = `
		UPDATE verification_codes SET attempts = attempts + 1
		WHERE target = $1 AND code_type = $2
			AND consumed_at IS NULL AND expires_at > now() AND attempts < max_attempts
	`
	if _, err := r.pool.Exec(ctx, burn, target, codeType); err != nil {
		return err
	}
	return repository.ErrNotFound
}

func (r *codeRepo) GetActive(ctx context.Context, target string, codeType repository.CodeType) (*repository.VerificationCode, error) {
	const query = `
		SELECT ` + codeColumns + `
		FROM verification_codes
		WHERE target = $1 AND code_type = $2
			AND consumed_at IS NULL AND expires_at > now() AND attempts < max_attempts
	`
	return scanCode(r.pool.QueryRow(ctx, query, target, codeType))
}

func (r *codeRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	const query = `
		DELETE FROM verification_codes
		WHERE consumed_at IS NOT NULL OR expires_at <= $1
	`
	tag, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
