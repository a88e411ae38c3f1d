// Package refreshtokens stores the opaque refresh tokens issued in local
// auth mode.
package refreshtokens

import (
	"context"

	"github.com/dmitrijs2005/hiinen/internal/server/models"
)

type Repository interface {
	// Create stores a new refresh token.
	Create(ctx context.Context, token *models.RefreshToken) error

	// Consume atomically removes token and returns it, so a refresh token
	// can be redeemed at most once. Absent tokens yield common.ErrorNotFound.
	// Expiry is left to the caller.
	Consume(ctx context.Context, token string) (*models.RefreshToken, error)

	// DeleteByUser removes every refresh token of userID. Deleting nothing
	// is not an error.
	DeleteByUser(ctx context.Context, userID string) error
}
