// Package auditlog stores audit entries and the archive cursor.
package auditlog

import (
	"context"
	"time"

	"github.com/dmitrijs2005/snippetvault/internal/server/models"
)

type Repository interface {
	Record(ctx context.Context, entry *models.AuditEntry) (*models.AuditEntry, error)
	// ListByActor returns the newest entries first.
	ListByActor(ctx context.Context, actorID string, limit int) ([]*models.AuditEntry, error)
	// ListAfter returns entries with id > afterID that were recorded more
	// than settledFor ago, in ascending id order. Ids are taken at insert
	// time but rows appear at commit, so recent ids may still have gaps
	// that a slower transaction is about to fill.
	ListAfter(ctx context.Context, afterID int64, settledFor time.Duration, limit int) ([]*models.AuditEntry, error)
	GetCursor(ctx context.Context) (int64, error)
	SetCursor(ctx context.Context, lastID int64) error
}
