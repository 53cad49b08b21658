package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `id, firstname, lastname, email, phone, password_hash, role,
	is_email_verified, email_verified_at, is_phone_verified, dob, gender, bvn,
	is_bvn_verified, is_document_verified, transaction_pin_hash, has_transaction_pin,
	two_factor_enabled, balance_visible, blocked, blocked_at, blocked_reason,
	created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.Firstname,
		&i.Lastname,
		&i.Email,
		&i.Phone,
		&i.PasswordHash,
		&i.Role,
		&i.IsEmailVerified,
		&i.EmailVerifiedAt,
		&i.IsPhoneVerified,
		&i.Dob,
		&i.Gender,
		&i.Bvn,
		&i.IsBvnVerified,
		&i.IsDocumentVerified,
		&i.TransactionPinHash,
		&i.HasTransactionPin,
		&i.TwoFactorEnabled,
		&i.BalanceVisible,
		&i.Blocked,
		&i.BlockedAt,
		&i.BlockedReason,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectUsers(rows pgx.Rows) ([]User, error) {
	defer rows.Close()
	var items []User
	for rows.Next() {
		i, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createUser = `
INSERT INTO users (id, firstname, lastname, email, phone, password_hash, role)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + userColumns

type CreateUserParams struct {
	ID           pgtype.UUID
	Firstname    string
	Lastname     string
	Email        string
	Phone        string
	PasswordHash string
	Role         string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser,
		arg.ID,
		arg.Firstname,
		arg.Lastname,
		arg.Email,
		arg.Phone,
		arg.PasswordHash,
		arg.Role,
	)
	return scanUser(row)
}

const getUser = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

func (q *Queries) GetUser(ctx context.Context, id pgtype.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUser, id))
}

const getUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = lower($1)`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByEmail, email))
}

// Exact match on email or phone; partial matches are never accepted.
const getUserByLogin = `SELECT ` + userColumns + ` FROM users WHERE email = lower($1) OR phone = $1 LIMIT 1`

func (q *Queries) GetUserByLogin(ctx context.Context, username string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByLogin, username))
}

const lockUser = `SELECT id FROM users WHERE id = $1 FOR NO KEY UPDATE`

// LockUser takes the per-user row lock that serialises ledger writers.
func (q *Queries) LockUser(ctx context.Context, id pgtype.UUID) error {
	var locked pgtype.UUID
	return q.db.QueryRow(ctx, lockUser, id).Scan(&locked)
}

const updateUserProfile = `
UPDATE users
SET firstname = $2, lastname = $3, dob = $4, gender = $5, updated_at = NOW()
WHERE id = $1
RETURNING ` + userColumns

type UpdateUserProfileParams struct {
	ID        pgtype.UUID
	Firstname string
	Lastname  string
	Dob       pgtype.Date
	Gender    string
}

func (q *Queries) UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, updateUserProfile, arg.ID, arg.Firstname, arg.Lastname, arg.Dob, arg.Gender))
}

const updateUserPassword = `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`

func (q *Queries) UpdateUserPassword(ctx context.Context, id pgtype.UUID, passwordHash string) (int64, error) {
	result, err := q.db.Exec(ctx, updateUserPassword, id, passwordHash)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const updateUserPIN = `
UPDATE users SET transaction_pin_hash = $2, has_transaction_pin = TRUE, updated_at = NOW()
WHERE id = $1`

func (q *Queries) UpdateUserPIN(ctx context.Context, id pgtype.UUID, pinHash string) (int64, error) {
	result, err := q.db.Exec(ctx, updateUserPIN, id, pinHash)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const setTwoFactor = `UPDATE users SET two_factor_enabled = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + userColumns

func (q *Queries) SetTwoFactor(ctx context.Context, id pgtype.UUID, enabled bool) (User, error) {
	return scanUser(q.db.QueryRow(ctx, setTwoFactor, id, enabled))
}

const setBVN = `
UPDATE users SET bvn = $2, is_bvn_verified = TRUE, updated_at = NOW()
WHERE id = $1
RETURNING ` + userColumns

func (q *Queries) SetBVN(ctx context.Context, id pgtype.UUID, bvn string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, setBVN, id, bvn))
}

const toggleBalanceVisibility = `
UPDATE users SET balance_visible = NOT balance_visible, updated_at = NOW()
WHERE id = $1
RETURNING balance_visible`

func (q *Queries) ToggleBalanceVisibility(ctx context.Context, id pgtype.UUID) (bool, error) {
	var visible bool
	err := q.db.QueryRow(ctx, toggleBalanceVisibility, id).Scan(&visible)
	return visible, err
}

const markEmailVerified = `
UPDATE users
SET is_email_verified = TRUE, email_verified_at = COALESCE(email_verified_at, NOW()), updated_at = NOW()
WHERE id = $1
RETURNING ` + userColumns

func (q *Queries) MarkEmailVerified(ctx context.Context, id pgtype.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, markEmailVerified, id))
}

const setUserBlocked = `
UPDATE users
SET blocked = $2,
    blocked_at = CASE WHEN $2 THEN NOW() ELSE NULL END,
    blocked_reason = CASE WHEN $2 THEN $3 ELSE '' END,
    updated_at = NOW()
WHERE id = $1 AND role = 'customer'
RETURNING ` + userColumns

type SetUserBlockedParams struct {
	ID      pgtype.UUID
	Blocked bool
	Reason  string
}

func (q *Queries) SetUserBlocked(ctx context.Context, arg SetUserBlockedParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, setUserBlocked, arg.ID, arg.Blocked, arg.Reason))
}

const customerFilter = `
FROM users
WHERE role = 'customer'
  AND ($1 = '' OR firstname ILIKE $1 OR lastname ILIKE $1 OR email ILIKE $1 OR phone ILIKE $1)`

const listCustomers = `SELECT ` + userColumns + customerFilter + `
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

type ListCustomersParams struct {
	Pattern string
	Limit   int32
	Offset  int32
}

func (q *Queries) ListCustomers(ctx context.Context, arg ListCustomersParams) ([]User, error) {
	rows, err := q.db.Query(ctx, listCustomers, arg.Pattern, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}

const countCustomers = `SELECT COUNT(*)` + customerFilter

func (q *Queries) CountCustomers(ctx context.Context, pattern string) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countCustomers, pattern).Scan(&count)
	return count, err
}
