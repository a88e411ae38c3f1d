// Package users is the identity store: persisted user records behind a
// single Repository interface with Postgres, MongoDB and in-memory backends.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/hiinen/internal/server/models"
)

// Repository stores users. Lookups return common.ErrorNotFound when nothing
// matches; Create returns common.ErrorAlreadyExists on a duplicate email or
// external id. Only the *WithPassword methods load the password hash, and
// UpdatePassword is the only method that writes it.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByIDWithPassword(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByEmailWithPassword(ctx context.Context, email string) (*models.User, error)
	FindByExternalID(ctx context.Context, provider models.IdentityProvider, externalID string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, patch models.ProfilePatch) (*models.User, error)
	UpdatePassword(ctx context.Context, id string, hash string) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}
