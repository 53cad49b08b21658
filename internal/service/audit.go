package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bitway/bitway-api/internal/repository"
	"github.com/google/uuid"
)

const (
	auditEntityTransaction = "transaction"
	auditEntityUser        = "user"
	auditEntityService     = "service"
)

// auditEntry is one row of the append-only audit trail. Actor is nil for system actions.
type auditEntry struct {
	Entity   string
	EntityID uuid.UUID
	Actor    *uuid.UUID
	Action   string
	From     string
	To       string
	Meta     map[string]any
}

// AuditService appends audit rows inside the caller's transaction, so the trail commits
// or rolls back with the change it describes.
type AuditService struct {
	store QueryStore
}

func NewAuditService(store QueryStore) *AuditService {
	return &AuditService{store: store}
}

func (s *AuditService) Record(ctx context.Context, qtx *repository.Queries, e auditEntry) error {
	params := repository.InsertAuditLogParams{
		EntityType: e.Entity,
		EntityID:   repository.ToPgUUID(e.EntityID),
		Action:     e.Action,
		PrevState:  optional(e.From),
		NextState:  optional(e.To),
	}
	if e.Actor != nil {
		params.ActorID = repository.ToPgUUID(*e.Actor)
	}
	if len(e.Meta) > 0 {
		raw, err := json.Marshal(e.Meta)
		if err != nil {
			return fmt.Errorf("encode audit metadata for %s %s: %w", e.Entity, e.Action, err)
		}
		params.Metadata = raw
	}
	if _, err := qtx.InsertAuditLog(ctx, params); err != nil {
		return fmt.Errorf("insert audit log for %s %s: %w", e.Entity, e.Action, err)
	}
	return nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
