package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/hiinen/internal/common"
	"github.com/dmitrijs2005/hiinen/internal/server/auth"
	"github.com/dmitrijs2005/hiinen/internal/server/models"
	"github.com/dmitrijs2005/hiinen/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/hiinen/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/hiinen/internal/server/repositories/users"
	"github.com/dmitrijs2005/hiinen/internal/server/sessions"
)

// LocalAuthenticator keeps bcrypt digests in the identity store and issues
// HS256 access tokens with server-stored refresh tokens.
type LocalAuthenticator struct {
	repos      repomanager.RepositoryManager
	hasher     *auth.PasswordHasher
	tokens     *auth.TokenIssuer
	denylist   sessions.Denylist
	refreshTTL time.Duration
	now        func() time.Time

	dummyOnce   sync.Once
	dummyDigest string
}

func NewLocalAuthenticator(repos repomanager.RepositoryManager, hasher *auth.PasswordHasher, tokens *auth.TokenIssuer,
	denylist sessions.Denylist, refreshTTL time.Duration) *LocalAuthenticator {
	return &LocalAuthenticator{
		repos:      repos,
		hasher:     hasher,
		tokens:     tokens,
		denylist:   denylist,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Register keeps the password local, so there is nothing to link.
func (a *LocalAuthenticator) Register(context.Context, SignUpInput) (models.ExternalIdentities, error) {
	return models.ExternalIdentities{}, nil
}

func (a *LocalAuthenticator) SignIn(ctx context.Context, email, password string) (*models.User, *auth.Session, error) {
	user, err := a.repos.Users().FindByEmailWithPassword(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// Spend the same bcrypt time as for a real account.
			a.hasher.Verify(password, a.dummy())
			return nil, nil, common.ErrorUnauthorized
		}
		return nil, nil, fmt.Errorf("error loading user: %w", err)
	}

	if !user.MatchPassword(password, a.hasher) {
		return nil, nil, common.ErrorUnauthorized
	}
	user.PasswordHash = ""

	session, err := a.issue(ctx, a.repos.RefreshTokens(), user.ID)
	if err != nil {
		return nil, nil, err
	}

	now := a.now()
	if err := a.repos.Users().TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, nil, fmt.Errorf("error updating last login: %w", err)
	}
	user.LastLogin = now

	return user, session, nil
}

func (a *LocalAuthenticator) Verify(ctx context.Context, token string) (*models.User, error) {
	claims, err := a.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	revoked, err := a.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("error checking token: %w", err)
	}
	if revoked {
		return nil, common.ErrInvalidToken
	}

	user, err := a.repos.Users().FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	return user, nil
}

// SignOut revokes token until it expires and drops every refresh token of
// user.
func (a *LocalAuthenticator) SignOut(ctx context.Context, user *models.User, token string) error {
	claims, err := a.tokens.Parse(token)
	if err != nil {
		return err
	}
	if err := a.denylist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("error revoking token: %w", err)
	}
	if err := a.repos.RefreshTokens().DeleteByUser(ctx, user.ID); err != nil {
		return fmt.Errorf("error deleting refresh tokens: %w", err)
	}
	return nil
}

// Refresh redeems refreshToken once and rotates it. Unknown tokens yield
// common.ErrorUnauthorized, expired ones common.ErrRefreshTokenExpired.
func (a *LocalAuthenticator) Refresh(ctx context.Context, refreshToken string) (*auth.Session, error) {
	var session *auth.Session

	err := a.repos.InTx(ctx, func(ctx context.Context, ur users.Repository, rr refreshtokens.Repository) error {
		token, err := rr.Consume(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return fmt.Errorf("error consuming refresh token: %w", err)
		}
		if token.Expired(a.now()) {
			return common.ErrRefreshTokenExpired
		}

		if _, err := ur.FindByID(ctx, token.UserID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return fmt.Errorf("error loading user: %w", err)
		}

		session, err = a.issue(ctx, rr, token.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (a *LocalAuthenticator) AuthorizeURL(models.IdentityProvider, string) (string, error) {
	return "", common.ErrorNotSupported
}

// ChangePassword re-hashes the password and signs the user out of every
// other session by dropping their refresh tokens.
func (a *LocalAuthenticator) ChangePassword(ctx context.Context, user *models.User, current, next string) error {
	stored, err := a.repos.Users().FindByIDWithPassword(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("error loading user: %w", err)
	}
	if !stored.MatchPassword(current, a.hasher) {
		return common.ErrorUnauthorized
	}

	digest, err := a.hasher.Hash(next)
	if err != nil {
		return err
	}

	return a.repos.InTx(ctx, func(ctx context.Context, ur users.Repository, rr refreshtokens.Repository) error {
		if err := ur.UpdatePassword(ctx, user.ID, digest); err != nil {
			return fmt.Errorf("error updating password: %w", err)
		}
		if err := rr.DeleteByUser(ctx, user.ID); err != nil {
			return fmt.Errorf("error deleting refresh tokens: %w", err)
		}
		return nil
	})
}

func (a *LocalAuthenticator) issue(ctx context.Context, rr refreshtokens.Repository, userID string) (*auth.Session, error) {
	access, err := a.tokens.Issue(userID)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}

	now := a.now()
	if err := rr.Create(ctx, &models.RefreshToken{
		UserID:    userID,
		Token:     refresh,
		Expires:   now.Add(a.refreshTTL),
		CreatedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("error storing refresh token: %w", err)
	}

	return &auth.Session{AccessToken: access.Token, RefreshToken: refresh, ExpiresAt: access.ExpiresAt}, nil
}

func (a *LocalAuthenticator) dummy() string {
	a.dummyOnce.Do(func() {
		a.dummyDigest, _ = a.hasher.Hash("not-a-real-password")
	})
	return a.dummyDigest
}
