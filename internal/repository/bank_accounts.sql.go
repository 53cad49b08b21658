package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const bankAccountColumns = `id, user_id, bank_name, bank_code, account_number, account_name, status, created_at, updated_at`

func scanBankAccount(row pgx.Row) (BankAccount, error) {
	var i BankAccount
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.BankName,
		&i.BankCode,
		&i.AccountNumber,
		&i.AccountName,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createBankAccount = `
INSERT INTO bank_accounts (id, user_id, bank_name, bank_code, account_number, account_name)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + bankAccountColumns

type CreateBankAccountParams struct {
	ID            pgtype.UUID
	UserID        pgtype.UUID
	BankName      string
	BankCode      string
	AccountNumber string
	AccountName   string
}

func (q *Queries) CreateBankAccount(ctx context.Context, arg CreateBankAccountParams) (BankAccount, error) {
	row := q.db.QueryRow(ctx, createBankAccount,
		arg.ID,
		arg.UserID,
		arg.BankName,
		arg.BankCode,
		arg.AccountNumber,
		arg.AccountName,
	)
	return scanBankAccount(row)
}

const getBankAccount = `SELECT ` + bankAccountColumns + ` FROM bank_accounts WHERE id = $1`

func (q *Queries) GetBankAccount(ctx context.Context, id pgtype.UUID) (BankAccount, error) {
	return scanBankAccount(q.db.QueryRow(ctx, getBankAccount, id))
}

const listUserBankAccounts = `
SELECT ` + bankAccountColumns + `
FROM bank_accounts
WHERE user_id = $1 AND status
ORDER BY created_at DESC`

func (q *Queries) ListUserBankAccounts(ctx context.Context, userID pgtype.UUID) ([]BankAccount, error) {
	rows, err := q.db.Query(ctx, listUserBankAccounts, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BankAccount
	for rows.Next() {
		i, err := scanBankAccount(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const updateBankAccount = `
UPDATE bank_accounts
SET bank_name = $3, bank_code = $4, account_number = $5, account_name = $6, updated_at = NOW()
WHERE id = $1 AND user_id = $2 AND status
RETURNING ` + bankAccountColumns

type UpdateBankAccountParams struct {
	ID            pgtype.UUID
	UserID        pgtype.UUID
	BankName      string
	BankCode      string
	AccountNumber string
	AccountName   string
}

func (q *Queries) UpdateBankAccount(ctx context.Context, arg UpdateBankAccountParams) (BankAccount, error) {
	row := q.db.QueryRow(ctx, updateBankAccount,
		arg.ID,
		arg.UserID,
		arg.BankName,
		arg.BankCode,
		arg.AccountNumber,
		arg.AccountName,
	)
	return scanBankAccount(row)
}

const deactivateBankAccount = `UPDATE bank_accounts SET status = FALSE, updated_at = NOW() WHERE id = $1 AND user_id = $2 AND status`

func (q *Queries) DeactivateBankAccount(ctx context.Context, id, userID pgtype.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deactivateBankAccount, id, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
