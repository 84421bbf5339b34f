package sharelinks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

const selectColumns = `id, token, snippet_id, owner_id, expires_at, password_hash, is_active, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanLink(row scanner) (*models.ShareLink, error) {
	l := &models.ShareLink{}
	var (
		expires sql.NullTime
		hash    sql.NullString
	)
	if err := row.Scan(&l.ID, &l.Token, &l.SnippetID, &l.OwnerID, &expires, &hash, &l.Active, &l.CreatedAt); err != nil {
		return nil, err
	}
	if expires.Valid {
		t := expires.Time
		l.ExpiresAt = &t
	}
	if hash.Valid {
		h := hash.String
		l.PasswordHash = &h
	}
	return l, nil
}

func (r *PostgresRepository) Create(ctx context.Context, link *models.ShareLink) (*models.ShareLink, error) {
	query :=
		`INSERT INTO share_links (token, snippet_id, owner_id, expires_at, password_hash, is_active)
		 VALUES ($1, $2, $3, $4, $5, TRUE)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		link.Token, link.SnippetID, link.OwnerID, link.ExpiresAt, link.PasswordHash).Scan(&link.ID, &link.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	link.Active = true
	return link, nil
}

func (r *PostgresRepository) GetByToken(ctx context.Context, token string) (*models.ShareLink, error) {
	query := `SELECT ` + selectColumns + ` FROM share_links WHERE token = $1`
	return r.getOne(ctx, query, token)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.ShareLink, error) {
	query := `SELECT ` + selectColumns + ` FROM share_links WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.ShareLink, error) {
	l, err := scanLink(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || dbx.IsInvalidTextRepresentation(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return l, nil
}

func (r *PostgresRepository) ListBySnippet(ctx context.Context, snippetID, ownerID string) ([]*models.ShareLink, error) {
	query := `SELECT ` + selectColumns + ` FROM share_links WHERE snippet_id = $1 AND owner_id = $2 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, snippetID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.ShareLink, 0)
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Deactivate(ctx context.Context, id, ownerID string) (*models.ShareLink, error) {
	query := `UPDATE share_links SET is_active = FALSE WHERE id = $1 AND owner_id = $2 AND is_active RETURNING ` + selectColumns
	return r.getOne(ctx, query, id, ownerID)
}
