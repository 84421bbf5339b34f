// Package snippets provides the PostgreSQL repository for encrypted snippets.
package snippets

import (
	"context"

	"github.com/dmitrijs2005/snippetvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, s *models.Snippet) (*models.Snippet, error)
	// GetByID returns the snippet only if ownerID owns it; otherwise common.ErrorNotFound.
	GetByID(ctx context.Context, id, ownerID string) (*models.Snippet, error)
	// GetByIDAnyOwner skips the ownership check. Used for share-link disclosure.
	GetByIDAnyOwner(ctx context.Context, id string) (*models.Snippet, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Snippet, error)
	Update(ctx context.Context, s *models.Snippet) (*models.Snippet, error)
	Delete(ctx context.Context, id, ownerID string) error
	// ListWithPrefix returns snippets whose stored text starts with prefix.
	ListWithPrefix(ctx context.Context, prefix string) ([]*models.Snippet, error)
	// UpdateCiphertext replaces the stored text only while it still equals old.
	UpdateCiphertext(ctx context.Context, id, old, ciphertext string) error
}
