package auditlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/snippetvault/internal/common"
	"github.com/dmitrijs2005/snippetvault/internal/dbx"
	"github.com/dmitrijs2005/snippetvault/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `id, actor_id, action, resource_kind, resource_id, description, created_at`

func (r *PostgresRepository) Record(ctx context.Context, entry *models.AuditEntry) (*models.AuditEntry, error) {
	query :=
		`INSERT INTO audit_log (actor_id, action, resource_kind, resource_id, description)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		entry.ActorID, entry.Action, entry.ResourceKind, entry.ResourceID, entry.Description).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return entry, nil
}

func (r *PostgresRepository) ListByActor(ctx context.Context, actorID string, limit int) ([]*models.AuditEntry, error) {
	query := `SELECT ` + selectColumns + ` FROM audit_log WHERE actor_id = $1 ORDER BY id DESC LIMIT $2`
	return r.list(ctx, query, actorID, limit)
}

func (r *PostgresRepository) ListAfter(ctx context.Context, afterID int64, settledFor time.Duration, limit int) ([]*models.AuditEntry, error) {
	query :=
		`SELECT ` + selectColumns + ` FROM audit_log
		 WHERE id > $1 AND created_at < clock_timestamp() - make_interval(secs => $2)
		 ORDER BY id ASC LIMIT $3`
	return r.list(ctx, query, afterID, settledFor.Seconds(), limit)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.AuditEntry, 0)
	for rows.Next() {
		e := &models.AuditEntry{}
		var actor, resource sql.NullString
		if err := rows.Scan(&e.ID, &actor, &e.Action, &e.ResourceKind, &resource, &e.Description, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if actor.Valid {
			s := actor.String
			e.ActorID = &s
		}
		if resource.Valid {
			s := resource.String
			e.ResourceID = &s
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) GetCursor(ctx context.Context) (int64, error) {
	var last int64
	err := r.db.QueryRowContext(ctx, `SELECT last_id FROM audit_archive_cursor WHERE id = 1`).Scan(&last)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return last, nil
}

func (r *PostgresRepository) SetCursor(ctx context.Context, lastID int64) error {
	query :=
		`INSERT INTO audit_archive_cursor (id, last_id) VALUES (1, $1)
		 ON CONFLICT (id) DO UPDATE SET last_id = EXCLUDED.last_id
		 `
	if _, err := r.db.ExecContext(ctx, query, lastID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
