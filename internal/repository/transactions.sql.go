package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const transactionColumns = `id, user_id, service_id, reference, request_key, amount, balance_id,
	bank_account_id, type, narration, image_url, status, completed_at, created_at, updated_at`

func scanTransaction(row pgx.Row) (Transaction, error) {
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.ServiceID,
		&i.Reference,
		&i.RequestKey,
		&i.Amount,
		&i.BalanceID,
		&i.BankAccountID,
		&i.Type,
		&i.Narration,
		&i.ImageUrl,
		&i.Status,
		&i.CompletedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectTransactions(rows pgx.Rows) ([]Transaction, error) {
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		i, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createTransaction = `
INSERT INTO transactions (id, user_id, service_id, reference, request_key, amount, bank_account_id, type, narration, image_url, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING ` + transactionColumns

type CreateTransactionParams struct {
	ID            pgtype.UUID
	UserID        pgtype.UUID
	ServiceID     pgtype.UUID
	Reference     string
	RequestKey    pgtype.Text
	Amount        int64
	BankAccountID pgtype.UUID
	Type          string
	Narration     string
	ImageUrl      string
	Status        string
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRow(ctx, createTransaction,
		arg.ID,
		arg.UserID,
		arg.ServiceID,
		arg.Reference,
		arg.RequestKey,
		arg.Amount,
		arg.BankAccountID,
		arg.Type,
		arg.Narration,
		arg.ImageUrl,
		arg.Status,
	)
	return scanTransaction(row)
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

func (q *Queries) GetTransaction(ctx context.Context, id pgtype.UUID) (Transaction, error) {
	return scanTransaction(q.db.QueryRow(ctx, getTransaction, id))
}

const getTransactionForUpdate = getTransaction + ` FOR UPDATE`

func (q *Queries) GetTransactionForUpdate(ctx context.Context, id pgtype.UUID) (Transaction, error) {
	return scanTransaction(q.db.QueryRow(ctx, getTransactionForUpdate, id))
}

const getTransactionByRequestKey = `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1 AND request_key = $2`

func (q *Queries) GetTransactionByRequestKey(ctx context.Context, userID pgtype.UUID, requestKey string) (Transaction, error) {
	return scanTransaction(q.db.QueryRow(ctx, getTransactionByRequestKey, userID, requestKey))
}

const settleTransaction = `
UPDATE transactions
SET status = $2,
    amount = $3,
    balance_id = $4,
    completed_at = NOW(),
    updated_at = NOW()
WHERE id = $1 AND status = 'pending'
RETURNING ` + transactionColumns

type SettleTransactionParams struct {
	ID        pgtype.UUID
	Status    string
	Amount    int64
	BalanceID pgtype.UUID
}

// SettleTransaction moves a pending transaction to a terminal status; it returns pgx.ErrNoRows if the row is no longer pending.
func (q *Queries) SettleTransaction(ctx context.Context, arg SettleTransactionParams) (Transaction, error) {
	return scanTransaction(q.db.QueryRow(ctx, settleTransaction, arg.ID, arg.Status, arg.Amount, arg.BalanceID))
}

const listUserTransactions = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

func (q *Queries) ListUserTransactions(ctx context.Context, userID pgtype.UUID, limit, offset int32) ([]Transaction, error) {
	rows, err := q.db.Query(ctx, listUserTransactions, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

const countUserTransactions = `SELECT COUNT(*) FROM transactions WHERE user_id = $1`

func (q *Queries) CountUserTransactions(ctx context.Context, userID pgtype.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countUserTransactions, userID).Scan(&count)
	return count, err
}

const transactionFilter = `
FROM transactions t
JOIN users u ON u.id = t.user_id
WHERE ($1 = '' OR t.reference ILIKE $1 OR t.narration ILIKE $1 OR u.email ILIKE $1
       OR u.firstname ILIKE $1 OR u.lastname ILIKE $1)
  AND ($2 = '' OR t.status = $2)
  AND (cardinality($3::uuid[]) = 0 OR t.service_id = ANY($3::uuid[]))`

const listTransactions = `
SELECT t.id, t.user_id, t.service_id, t.reference, t.request_key, t.amount, t.balance_id,
       t.bank_account_id, t.type, t.narration, t.image_url, t.status, t.completed_at,
       t.created_at, t.updated_at` + transactionFilter + `
ORDER BY t.created_at DESC
LIMIT $4 OFFSET $5`

type ListTransactionsParams struct {
	Pattern    string
	Status     string
	ServiceIDs []pgtype.UUID
	Limit      int32
	Offset     int32
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]Transaction, error) {
	serviceIDs := arg.ServiceIDs
	if serviceIDs == nil {
		serviceIDs = []pgtype.UUID{}
	}
	rows, err := q.db.Query(ctx, listTransactions, arg.Pattern, arg.Status, serviceIDs, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

const countTransactions = `SELECT COUNT(*)` + transactionFilter

func (q *Queries) CountTransactions(ctx context.Context, arg ListTransactionsParams) (int64, error) {
	serviceIDs := arg.ServiceIDs
	if serviceIDs == nil {
		serviceIDs = []pgtype.UUID{}
	}
	var count int64
	err := q.db.QueryRow(ctx, countTransactions, arg.Pattern, arg.Status, serviceIDs).Scan(&count)
	return count, err
}

const sumSuccessfulAmount = `
SELECT COALESCE(SUM(amount), 0)::bigint
FROM transactions
WHERE status = 'success'
  AND service_id = ANY($1::uuid[])
  AND completed_at >= $2`

// SumSuccessfulAmount totals settled transactions for the given services completed at or after since.
func (q *Queries) SumSuccessfulAmount(ctx context.Context, serviceIDs []pgtype.UUID, since time.Time) (int64, error) {
	if serviceIDs == nil {
		serviceIDs = []pgtype.UUID{}
	}
	var total int64
	err := q.db.QueryRow(ctx, sumSuccessfulAmount, serviceIDs, since).Scan(&total)
	return total, err
}

const countPendingTransactions = `SELECT COUNT(*) FROM transactions WHERE status = 'pending'`

func (q *Queries) CountPendingTransactions(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countPendingTransactions).Scan(&count)
	return count, err
}
