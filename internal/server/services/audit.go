package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/snippetvault/internal/common"
	"github.com/dmitrijs2005/snippetvault/internal/dbx"
	"github.com/dmitrijs2005/snippetvault/internal/server/models"
	"github.com/dmitrijs2005/snippetvault/internal/server/repositories/repomanager"
)

const (
	DefaultAuditLimit = 100
	MaxAuditLimit     = 500
)

// AuditEvent describes one audited operation. A nil ActorID records an
// anonymous caller.
type AuditEvent struct {
	ActorID      *string
	Action       string
	ResourceKind string
	ResourceID   *string
	Description  string
}

// AuditSink records audit events. Record is given the caller's transaction so
// the entry commits or rolls back together with the operation it describes.
type AuditSink interface {
	Record(ctx context.Context, db dbx.DBTX, ev AuditEvent) error
}

type AuditService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewAuditService(db *sql.DB, m repomanager.RepositoryManager) *AuditService {
	return &AuditService{db: db, repomanager: m}
}

func (s *AuditService) Record(ctx context.Context, db dbx.DBTX, ev AuditEvent) error {
	_, err := s.repomanager.AuditLog(db).Record(ctx, &models.AuditEntry{
		ActorID:      ev.ActorID,
		Action:       ev.Action,
		ResourceKind: ev.ResourceKind,
		ResourceID:   ev.ResourceID,
		Description:  ev.Description,
	})
	if err != nil {
		return fmt.Errorf("audit %s %s: %w", ev.Action, ev.ResourceKind, err)
	}
	return nil
}

// ListForActor returns the actor's own trail, newest first. A zero limit
// means DefaultAuditLimit.
func (s *AuditService) ListForActor(ctx context.Context, actorID string, limit int) ([]*models.AuditEntry, error) {
	if limit == 0 {
		limit = DefaultAuditLimit
	}
	if limit < 1 || limit > MaxAuditLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", common.ErrValidation, MaxAuditLimit)
	}
	return s.repomanager.AuditLog(s.db).ListByActor(ctx, actorID, limit)
}

func ptr[T any](v T) *T {
	return &v
}
