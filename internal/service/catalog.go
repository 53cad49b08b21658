package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bitway/bitway-api/internal/domain"
	"github.com/bitway/bitway-api/internal/models"
	"github.com/bitway/bitway-api/internal/repository"
	"github.com/google/uuid"
)

const maxSlugAttempts = 50

// CatalogService manages the tradable services offered to customers.
type CatalogService struct {
	store QueryStore
	audit *AuditService
}

func NewCatalogService(store QueryStore) *CatalogService {
	return &CatalogService{store: store, audit: NewAuditService(store)}
}

type ServiceInput struct {
	Name        string
	ImageURL    string
	URL         string
	Color       string
	Rate        domain.Amount
	Description string
}

func (in *ServiceInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.URL = strings.TrimSpace(in.URL)
	in.Color = strings.TrimSpace(in.Color)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" {
		return domain.Validation("service/name-required", "name is required")
	}
	if in.Rate < 0 {
		return domain.Validation("service/invalid-rate", "rate cannot be negative")
	}
	return nil
}

// GetBySlug returns an active service for customers.
func (s *CatalogService) GetBySlug(ctx context.Context, slug string) (*models.Service, error) {
	row, err := s.store.Queries().GetServiceBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.ErrServiceNotFound
		}
		return nil, fmt.Errorf("get service by slug: %w", err)
	}
	if !row.Status {
		return nil, domain.ErrServiceNotFound
	}
	return row.Model(), nil
}

// ListActive returns every service customers can currently use.
func (s *CatalogService) ListActive(ctx context.Context) ([]models.Service, error) {
	rows, err := s.store.Queries().ListAllServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	out := make([]models.Service, 0, len(rows))
	for _, row := range rows {
		if row.Status && !row.DeletedAt.Valid {
			out = append(out, *row.Model())
		}
	}
	return out, nil
}

func (s *CatalogService) List(ctx context.Context, page, perPage int, q string) (*models.Page[models.Service], error) {
	p := repository.NewPagination(page, perPage)
	pattern := repository.SearchPattern(q)
	queries := s.store.Queries()

	rows, err := queries.ListServices(ctx, repository.ListServicesParams{Pattern: pattern, Limit: p.Limit(), Offset: p.Offset()})
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	total, err := queries.CountServices(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("count services: %w", err)
	}
	items := make([]models.Service, 0, len(rows))
	for _, row := range rows {
		items = append(items, *row.Model())
	}
	return &models.Page[models.Service]{Items: items, Page: p.Page, PerPage: p.PerPage, Total: total}, nil
}

func (s *CatalogService) Get(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	row, err := s.store.Queries().GetService(ctx, repository.ToPgUUID(id))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.ErrServiceNotFound
		}
		return nil, fmt.Errorf("get service: %w", err)
	}
	return row.Model(), nil
}

// Create adds a service with a slug derived from its name, suffixed until unique.
func (s *CatalogService) Create(ctx context.Context, actorID uuid.UUID, in ServiceInput) (*models.Service, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var created *models.Service
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		slug, err := uniqueSlug(ctx, qtx, in.Name)
		if err != nil {
			return err
		}
		id := uuid.New()
		row, err := qtx.CreateService(ctx, repository.CreateServiceParams{
			ID:          repository.ToPgUUID(id),
			Name:        in.Name,
			Slug:        slug,
			ImageUrl:    in.ImageURL,
			Url:         in.URL,
			Color:       in.Color,
			RateKobo:    int64(in.Rate),
			Description: in.Description,
			Status:      true,
		})
		if err != nil {
			if repository.IsUniqueViolation(err, "") {
				return domain.Conflict("service/exists", "a service with this name already exists")
			}
			return fmt.Errorf("create service: %w", err)
		}
		if err := s.audit.Record(ctx, qtx, auditEntry{Entity: auditEntityService, EntityID: id, Actor: &actorID, Action: "created", To: "active", Meta: map[string]any{"name": in.Name, "rate": in.Rate.String()}}); err != nil {
			return err
		}
		created = row.Model()
		return nil
	})
	if err != nil {
		return nil, mapTxError(err)
	}
	return created, nil
}

func (s *CatalogService) Update(ctx context.Context, actorID, id uuid.UUID, in ServiceInput) (*models.Service, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	var updated *models.Service
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		row, err := qtx.UpdateService(ctx, repository.UpdateServiceParams{
			ID:          repository.ToPgUUID(id),
			Name:        in.Name,
			ImageUrl:    in.ImageURL,
			Url:         in.URL,
			Color:       in.Color,
			RateKobo:    int64(in.Rate),
			Description: in.Description,
		})
		if err != nil {
			if repository.IsNotFound(err) {
				return domain.ErrServiceNotFound
			}
			if repository.IsUniqueViolation(err, "") {
				return domain.Conflict("service/exists", "a service with this name already exists")
			}
			return fmt.Errorf("update service: %w", err)
		}
		if err := s.audit.Record(ctx, qtx, auditEntry{Entity: auditEntityService, EntityID: id, Actor: &actorID, Action: "updated", Meta: map[string]any{"name": in.Name, "rate": in.Rate.String()}}); err != nil {
			return err
		}
		updated = row.Model()
		return nil
	})
	if err != nil {
		return nil, mapTxError(err)
	}
	return updated, nil
}

// Delete retires a service. Its transactions keep their reference.
func (s *CatalogService) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		rows, err := qtx.SoftDeleteService(ctx, repository.ToPgUUID(id))
		if err != nil {
			return fmt.Errorf("delete service: %w", err)
		}
		if rows == 0 {
			return domain.ErrServiceNotFound
		}
		return s.audit.Record(ctx, qtx, auditEntry{Entity: auditEntityService, EntityID: id, Actor: &actorID, Action: "deleted", From: "active", To: "deleted"})
	})
	return mapTxError(err)
}

func (s *CatalogService) ToggleStatus(ctx context.Context, actorID, id uuid.UUID) (*models.Service, error) {
	var toggled *models.Service
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		row, err := qtx.ToggleServiceStatus(ctx, repository.ToPgUUID(id))
		if err != nil {
			if repository.IsNotFound(err) {
				return domain.ErrServiceNotFound
			}
			return fmt.Errorf("toggle service status: %w", err)
		}
		prev, next := "inactive", "active"
		if !row.Status {
			prev, next = next, prev
		}
		if err := s.audit.Record(ctx, qtx, auditEntry{Entity: auditEntityService, EntityID: id, Actor: &actorID, Action: "status_toggled", From: prev, To: next}); err != nil {
			return err
		}
		toggled = row.Model()
		return nil
	})
	if err != nil {
		return nil, mapTxError(err)
	}
	return toggled, nil
}

func uniqueSlug(ctx context.Context, qtx *repository.Queries, name string) (string, error) {
	base := domain.Slugify(name)
	if base == "" {
		base = "service"
	}
	candidate := base
	for i := 1; i <= maxSlugAttempts; i++ {
		exists, err := qtx.SlugExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check slug: %w", err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", domain.Conflict("service/slug-exhausted", "could not generate a unique slug")
}
