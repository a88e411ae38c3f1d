// Package services contains server-side business logic: account
// registration and profile management in UserService, and the two
// authentication backends behind the Authenticator interface.
package services

import (
	"context"

	"github.com/dmitrijs2005/hiinen/internal/server/auth"
	"github.com/dmitrijs2005/hiinen/internal/server/models"
)

// SignUpInput is a self-service registration request.
type SignUpInput struct {
	FullName string
	Email    string
	Password string
	Role     models.Role
}

// Authenticator issues and verifies sessions. LocalAuthenticator signs its
// own tokens; SupabaseAuthenticator delegates to Supabase Auth.
type Authenticator interface {
	// Register prepares credentials for a new account. It returns the
	// external identities to link, or none when the password is kept
	// locally.
	Register(ctx context.Context, in SignUpInput) (models.ExternalIdentities, error)

	// SignIn checks email and password. Wrong credentials yield
	// common.ErrorUnauthorized.
	SignIn(ctx context.Context, email, password string) (*models.User, *auth.Session, error)

	// Verify resolves an access token to its user. Tokens that cannot be
	// trusted yield common.ErrInvalidToken or common.ErrTokenExpired.
	Verify(ctx context.Context, token string) (*models.User, error)

	SignOut(ctx context.Context, user *models.User, token string) error

	// Refresh exchanges a refresh token for a new session.
	Refresh(ctx context.Context, refreshToken string) (*auth.Session, error)

	AuthorizeURL(provider models.IdentityProvider, redirectTo string) (string, error)

	ChangePassword(ctx context.Context, user *models.User, current, next string) error
}
