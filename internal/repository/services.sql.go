package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const serviceColumns = `id, name, slug, image_url, url, color, rate_kobo, description, status, deleted_at, created_at, updated_at`

func scanService(row pgx.Row) (Service, error) {
	var i Service
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Slug,
		&i.ImageUrl,
		&i.Url,
		&i.Color,
		&i.RateKobo,
		&i.Description,
		&i.Status,
		&i.DeletedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectServices(rows pgx.Rows) ([]Service, error) {
	defer rows.Close()
	var items []Service
	for rows.Next() {
		i, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createService = `
INSERT INTO services (id, name, slug, image_url, url, color, rate_kobo, description, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + serviceColumns

type CreateServiceParams struct {
	ID          pgtype.UUID
	Name        string
	Slug        string
	ImageUrl    string
	Url         string
	Color       string
	RateKobo    int64
	Description string
	Status      bool
}

func (q *Queries) CreateService(ctx context.Context, arg CreateServiceParams) (Service, error) {
	row := q.db.QueryRow(ctx, createService,
		arg.ID,
		arg.Name,
		arg.Slug,
		arg.ImageUrl,
		arg.Url,
		arg.Color,
		arg.RateKobo,
		arg.Description,
		arg.Status,
	)
	return scanService(row)
}

const getService = `SELECT ` + serviceColumns + ` FROM services WHERE id = $1 AND deleted_at IS NULL`

func (q *Queries) GetService(ctx context.Context, id pgtype.UUID) (Service, error) {
	return scanService(q.db.QueryRow(ctx, getService, id))
}

// GetServiceIncludingDeleted is used by settlement, which must still resolve retired services.
const getServiceIncludingDeleted = `SELECT ` + serviceColumns + ` FROM services WHERE id = $1`

func (q *Queries) GetServiceIncludingDeleted(ctx context.Context, id pgtype.UUID) (Service, error) {
	return scanService(q.db.QueryRow(ctx, getServiceIncludingDeleted, id))
}

const getServiceBySlug = `SELECT ` + serviceColumns + ` FROM services WHERE slug = $1 AND deleted_at IS NULL`

func (q *Queries) GetServiceBySlug(ctx context.Context, slug string) (Service, error) {
	return scanService(q.db.QueryRow(ctx, getServiceBySlug, slug))
}

const slugExists = `SELECT EXISTS (SELECT 1 FROM services WHERE slug = $1)`

func (q *Queries) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, slugExists, slug).Scan(&exists)
	return exists, err
}

const serviceFilter = `
FROM services
WHERE deleted_at IS NULL
  AND ($1 = '' OR name ILIKE $1 OR description ILIKE $1)`

const listServices = `SELECT ` + serviceColumns + serviceFilter + `
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

type ListServicesParams struct {
	Pattern string
	Limit   int32
	Offset  int32
}

func (q *Queries) ListServices(ctx context.Context, arg ListServicesParams) ([]Service, error) {
	rows, err := q.db.Query(ctx, listServices, arg.Pattern, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collectServices(rows)
}

const countServices = `SELECT COUNT(*)` + serviceFilter

func (q *Queries) CountServices(ctx context.Context, pattern string) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countServices, pattern).Scan(&count)
	return count, err
}

// ListAllServices includes retired services so historical transactions stay classifiable.
const listAllServices = `SELECT ` + serviceColumns + ` FROM services ORDER BY created_at`

func (q *Queries) ListAllServices(ctx context.Context) ([]Service, error) {
	rows, err := q.db.Query(ctx, listAllServices)
	if err != nil {
		return nil, err
	}
	return collectServices(rows)
}

const updateService = `
UPDATE services
SET name = $2, image_url = $3, url = $4, color = $5, rate_kobo = $6, description = $7, updated_at = NOW()
WHERE id = $1 AND deleted_at IS NULL
RETURNING ` + serviceColumns

type UpdateServiceParams struct {
	ID          pgtype.UUID
	Name        string
	ImageUrl    string
	Url         string
	Color       string
	RateKobo    int64
	Description string
}

func (q *Queries) UpdateService(ctx context.Context, arg UpdateServiceParams) (Service, error) {
	row := q.db.QueryRow(ctx, updateService,
		arg.ID,
		arg.Name,
		arg.ImageUrl,
		arg.Url,
		arg.Color,
		arg.RateKobo,
		arg.Description,
	)
	return scanService(row)
}

const softDeleteService = `UPDATE services SET deleted_at = NOW(), status = FALSE, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

func (q *Queries) SoftDeleteService(ctx context.Context, id pgtype.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, softDeleteService, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const toggleServiceStatus = `
UPDATE services SET status = NOT status, updated_at = NOW()
WHERE id = $1 AND deleted_at IS NULL
RETURNING ` + serviceColumns

func (q *Queries) ToggleServiceStatus(ctx context.Context, id pgtype.UUID) (Service, error) {
	return scanService(q.db.QueryRow(ctx, toggleServiceStatus, id))
}
