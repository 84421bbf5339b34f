// Package sharelinks provides the PostgreSQL repository for share links.
package sharelinks

import (
	"context"

	"github.com/dmitrijs2005/snippetvault/internal/server/models"
)

type Repository interface {
	// Create inserts the link. A token collision yields common.ErrorAlreadyExists.
	Create(ctx context.Context, link *models.ShareLink) (*models.ShareLink, error)
	GetByToken(ctx context.Context, token string) (*models.ShareLink, error)
	GetByID(ctx context.Context, id string) (*models.ShareLink, error)
	ListBySnippet(ctx context.Context, snippetID, ownerID string) ([]*models.ShareLink, error)
	// Deactivate clears the active flag of an owner's active link.
	Deactivate(ctx context.Context, id, ownerID string) (*models.ShareLink, error)
}
