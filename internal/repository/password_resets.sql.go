package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

const passwordResetColumns = `id, user_id, token_hash, ip_address, user_agent, used_at, expires_at, created_at`

const createPasswordReset = `
INSERT INTO password_resets (id, user_id, token_hash, ip_address, user_agent, expires_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + passwordResetColumns

type CreatePasswordResetParams struct {
	ID        pgtype.UUID
	UserID    pgtype.UUID
	TokenHash string
	IpAddress string
	UserAgent string
	ExpiresAt time.Time
}

func (q *Queries) CreatePasswordReset(ctx context.Context, arg CreatePasswordResetParams) (PasswordReset, error) {
	row := q.db.QueryRow(ctx, createPasswordReset,
		arg.ID,
		arg.UserID,
		arg.TokenHash,
		arg.IpAddress,
		arg.UserAgent,
		arg.ExpiresAt,
	)
	var i PasswordReset
	err := row.Scan(&i.ID, &i.UserID, &i.TokenHash, &i.IpAddress, &i.UserAgent, &i.UsedAt, &i.ExpiresAt, &i.CreatedAt)
	return i, err
}

const consumePasswordReset = `
UPDATE password_resets
SET used_at = NOW()
WHERE token_hash = $1 AND used_at IS NULL AND expires_at > NOW()
RETURNING ` + passwordResetColumns

// ConsumePasswordReset marks an unused, unexpired reset as used; pgx.ErrNoRows otherwise.
func (q *Queries) ConsumePasswordReset(ctx context.Context, tokenHash string) (PasswordReset, error) {
	row := q.db.QueryRow(ctx, consumePasswordReset, tokenHash)
	var i PasswordReset
	err := row.Scan(&i.ID, &i.UserID, &i.TokenHash, &i.IpAddress, &i.UserAgent, &i.UsedAt, &i.ExpiresAt, &i.CreatedAt)
	return i, err
}
