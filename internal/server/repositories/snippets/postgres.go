package snippets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

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

const selectColumns = `id, owner_id, title, language, ciphertext, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSnippet(row scanner) (*models.Snippet, error) {
	s := &models.Snippet{}
	var updated sql.NullTime
	if err := row.Scan(&s.ID, &s.OwnerID, &s.Title, &s.Language, &s.Ciphertext, &s.CreatedAt, &updated); err != nil {
		return nil, err
	}
	if updated.Valid {
		t := updated.Time
		s.UpdatedAt = &t
	}
	return s, nil
}

func (r *PostgresRepository) Create(ctx context.Context, s *models.Snippet) (*models.Snippet, error) {
	query :=
		`INSERT INTO snippets (owner_id, title, language, ciphertext)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query, s.OwnerID, s.Title, s.Language, s.Ciphertext).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id, ownerID string) (*models.Snippet, error) {
	query := `SELECT ` + selectColumns + ` FROM snippets WHERE id = $1 AND owner_id = $2`
	return r.getOne(ctx, query, id, ownerID)
}

func (r *PostgresRepository) GetByIDAnyOwner(ctx context.Context, id string) (*models.Snippet, error) {
	query := `SELECT ` + selectColumns + ` FROM snippets WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.Snippet, error) {
	s, err := scanSnippet(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || dbx.IsInvalidTextRepresentation(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Snippet, error) {
	query := `SELECT ` + selectColumns + ` FROM snippets WHERE owner_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, ownerID)
}

func (r *PostgresRepository) ListWithPrefix(ctx context.Context, prefix string) ([]*models.Snippet, error) {
	query := `SELECT ` + selectColumns + ` FROM snippets WHERE ciphertext LIKE $1 ORDER BY created_at`
	return r.list(ctx, query, escapeLike(prefix)+"%")
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Snippet, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Snippet, 0)
	for rows.Next() {
		s, err := scanSnippet(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Update(ctx context.Context, s *models.Snippet) (*models.Snippet, error) {
	query :=
		`UPDATE snippets SET title = $1, language = $2, ciphertext = $3, updated_at = now()
		 WHERE id = $4 AND owner_id = $5
		 RETURNING created_at, updated_at
		 `

	var updated sql.NullTime
	err := r.db.QueryRowContext(ctx, query, s.Title, s.Language, s.Ciphertext, s.ID, s.OwnerID).Scan(&s.CreatedAt, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || dbx.IsInvalidTextRepresentation(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if updated.Valid {
		t := updated.Time
		s.UpdatedAt = &t
	}
	return s, nil
}

// Delete removes the snippet; its share links go with it through ON DELETE CASCADE.
func (r *PostgresRepository) Delete(ctx context.Context, id, ownerID string) error {
	query := `DELETE FROM snippets WHERE id = $1 AND owner_id = $2`
	return r.execOne(ctx, query, id, ownerID)
}

func (r *PostgresRepository) UpdateCiphertext(ctx context.Context, id, old, ciphertext string) error {
	query := `UPDATE snippets SET ciphertext = $1, updated_at = now() WHERE id = $2 AND ciphertext = $3`
	return r.execOne(ctx, query, ciphertext, id, old)
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if dbx.IsInvalidTextRepresentation(err) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
