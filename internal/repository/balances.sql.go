package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const balanceColumns = `id, user_id, seq, previous, book, current, status, kind, transaction_id, created_at`

func scanBalance(row pgx.Row) (Balance, error) {
	var i Balance
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Seq,
		&i.Previous,
		&i.Book,
		&i.Current,
		&i.Status,
		&i.Kind,
		&i.TransactionID,
		&i.CreatedAt,
	)
	return i, err
}

const getActiveBalance = `SELECT ` + balanceColumns + ` FROM balances WHERE user_id = $1 AND status`

func (q *Queries) GetActiveBalance(ctx context.Context, userID pgtype.UUID) (Balance, error) {
	return scanBalance(q.db.QueryRow(ctx, getActiveBalance, userID))
}

const deactivateBalance = `UPDATE balances SET status = FALSE WHERE id = $1 AND status`

func (q *Queries) DeactivateBalance(ctx context.Context, id pgtype.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deactivateBalance, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const insertBalance = `
INSERT INTO balances (id, user_id, seq, previous, book, current, status, kind, transaction_id)
VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $8)
RETURNING ` + balanceColumns

type InsertBalanceParams struct {
	ID            pgtype.UUID
	UserID        pgtype.UUID
	Seq           int64
	Previous      int64
	Book          int64
	Current       int64
	Kind          string
	TransactionID pgtype.UUID
}

func (q *Queries) InsertBalance(ctx context.Context, arg InsertBalanceParams) (Balance, error) {
	row := q.db.QueryRow(ctx, insertBalance,
		arg.ID,
		arg.UserID,
		arg.Seq,
		arg.Previous,
		arg.Book,
		arg.Current,
		arg.Kind,
		arg.TransactionID,
	)
	return scanBalance(row)
}

const listBalanceHistory = `
SELECT ` + balanceColumns + `
FROM balances
WHERE user_id = $1
ORDER BY seq DESC
LIMIT $2`

func (q *Queries) ListBalanceHistory(ctx context.Context, userID pgtype.UUID, limit int32) ([]Balance, error) {
	rows, err := q.db.Query(ctx, listBalanceHistory, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Balance
	for rows.Next() {
		i, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const countActiveBalances = `SELECT COUNT(*) FROM balances WHERE user_id = $1 AND status`

func (q *Queries) CountActiveBalances(ctx context.Context, userID pgtype.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countActiveBalances, userID).Scan(&count)
	return count, err
}

const listActiveBalanceAnomalies = `
SELECT u.id, COUNT(b.id) FILTER (WHERE b.status) AS active_rows
FROM users u
LEFT JOIN balances b ON b.user_id = u.id
GROUP BY u.id
HAVING COUNT(b.id) FILTER (WHERE b.status) <> 1`

type ActiveBalanceAnomaly struct {
	UserID     pgtype.UUID
	ActiveRows int64
}

// ListActiveBalanceAnomalies returns users that do not have exactly one active balance row.
func (q *Queries) ListActiveBalanceAnomalies(ctx context.Context) ([]ActiveBalanceAnomaly, error) {
	rows, err := q.db.Query(ctx, listActiveBalanceAnomalies)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ActiveBalanceAnomaly
	for rows.Next() {
		var i ActiveBalanceAnomaly
		if err := rows.Scan(&i.UserID, &i.ActiveRows); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listBalanceChainBreaks = `
SELECT user_id, seq, previous, prior_current, prior_seq
FROM (
    SELECT user_id, seq, previous,
           LAG(current) OVER (PARTITION BY user_id ORDER BY seq) AS prior_current,
           LAG(seq) OVER (PARTITION BY user_id ORDER BY seq) AS prior_seq
    FROM balances
) chain
WHERE prior_seq IS NOT NULL
  AND (previous <> prior_current OR seq <> prior_seq + 1)
LIMIT $1`

type BalanceChainBreak struct {
	UserID       pgtype.UUID
	Seq          int64
	Previous     int64
	PriorCurrent int64
	PriorSeq     int64
}

// ListBalanceChainBreaks finds rows whose previous value or sequence does not follow the prior row.
func (q *Queries) ListBalanceChainBreaks(ctx context.Context, limit int32) ([]BalanceChainBreak, error) {
	rows, err := q.db.Query(ctx, listBalanceChainBreaks, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BalanceChainBreak
	for rows.Next() {
		var i BalanceChainBreak
		if err := rows.Scan(&i.UserID, &i.Seq, &i.Previous, &i.PriorCurrent, &i.PriorSeq); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
