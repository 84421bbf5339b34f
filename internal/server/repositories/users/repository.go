// Package users provides the PostgreSQL repository for user accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/snippetvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}
