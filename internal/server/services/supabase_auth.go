package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/hiinen/internal/common"
	"github.com/dmitrijs2005/hiinen/internal/logging"
	"github.com/dmitrijs2005/hiinen/internal/server/auth"
	"github.com/dmitrijs2005/hiinen/internal/server/models"
	"github.com/dmitrijs2005/hiinen/internal/server/repositories/users"
	"github.com/dmitrijs2005/hiinen/internal/server/supabase"
	"github.com/dmitrijs2005/hiinen/internal/server/validation"
)

// IdentityProvider is the part of the Supabase Auth API the server uses.
type IdentityProvider interface {
	SignUp(ctx context.Context, email, password string, meta supabase.UserMetadata) (*supabase.User, error)
	SignInWithPassword(ctx context.Context, email, password string) (*supabase.Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*supabase.Session, error)
	GetUser(ctx context.Context, accessToken string) (*supabase.User, error)
	SignOut(ctx context.Context, accessToken string) error
	AuthorizeURL(provider, redirectTo string) (string, error)
}

// SupabaseAuthenticator delegates credentials and tokens to Supabase Auth.
// Profiles stay in the identity store, linked by the Supabase user id and
// created on first sight when missing.
type SupabaseAuthenticator struct {
	provider IdentityProvider
	users    users.Repository
	logger   logging.Logger
	now      func() time.Time
}

func NewSupabaseAuthenticator(provider IdentityProvider, users users.Repository, logger logging.Logger) *SupabaseAuthenticator {
	return &SupabaseAuthenticator{
		provider: provider,
		users:    users,
		logger:   logger.With("module", "supabase_auth"),
		now:      time.Now,
	}
}

func (a *SupabaseAuthenticator) Register(ctx context.Context, in SignUpInput) (models.ExternalIdentities, error) {
	u, err := a.provider.SignUp(ctx, in.Email, in.Password, supabase.UserMetadata{
		FullName: in.FullName,
		UserType: string(in.Role),
	})
	if err != nil {
		var apiErr *supabase.APIError
		if errors.As(err, &apiErr) && supabase.IsClientError(err) {
			if strings.Contains(strings.ToLower(apiErr.Message), "already registered") {
				return models.ExternalIdentities{}, common.ErrorAlreadyExists
			}
			return models.ExternalIdentities{}, &validation.Error{Fields: []validation.FieldError{
				{Field: "email", Message: apiErr.Message},
			}}
		}
		return models.ExternalIdentities{}, fmt.Errorf("error registering with supabase: %w", err)
	}
	return models.ExternalIdentities{SupabaseID: u.ID}, nil
}

func (a *SupabaseAuthenticator) SignIn(ctx context.Context, email, password string) (*models.User, *auth.Session, error) {
	s, err := a.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		if supabase.IsClientError(err) {
			return nil, nil, common.ErrorUnauthorized
		}
		return nil, nil, fmt.Errorf("error signing in with supabase: %w", err)
	}

	user, err := a.resolve(ctx, s.User)
	if err != nil {
		return nil, nil, err
	}

	now := a.now()
	if err := a.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, nil, fmt.Errorf("error updating last login: %w", err)
	}
	user.LastLogin = now

	return user, toSession(s, now), nil
}

func (a *SupabaseAuthenticator) Verify(ctx context.Context, token string) (*models.User, error) {
	sbUser, err := a.provider.GetUser(ctx, token)
	if err != nil {
		if supabase.IsClientError(err) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error verifying token with supabase: %w", err)
	}
	return a.resolve(ctx, sbUser)
}

func (a *SupabaseAuthenticator) SignOut(ctx context.Context, _ *models.User, token string) error {
	if err := a.provider.SignOut(ctx, token); err != nil {
		return fmt.Errorf("error signing out of supabase: %w", err)
	}
	return nil
}

func (a *SupabaseAuthenticator) Refresh(ctx context.Context, refreshToken string) (*auth.Session, error) {
	s, err := a.provider.RefreshSession(ctx, refreshToken)
	if err != nil {
		if supabase.IsClientError(err) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error refreshing supabase session: %w", err)
	}
	return toSession(s, a.now()), nil
}

func (a *SupabaseAuthenticator) AuthorizeURL(provider models.IdentityProvider, redirectTo string) (string, error) {
	return a.provider.AuthorizeURL(string(provider), redirectTo)
}

// ChangePassword is handled by Supabase's own recovery flow.
func (a *SupabaseAuthenticator) ChangePassword(context.Context, *models.User, string, string) error {
	return common.ErrorNotSupported
}

// resolve finds the local profile linked to sbUser, creating it from the
// Supabase metadata when it does not exist yet.
func (a *SupabaseAuthenticator) resolve(ctx context.Context, sbUser *supabase.User) (*models.User, error) {
	user, err := a.users.FindByExternalID(ctx, models.ProviderSupabase, sbUser.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	role := models.Role(sbUser.UserMetadata.UserType)
	if role != models.RoleMentor {
		role = models.RoleEntrepreneur
	}

	user = models.NewUser(provisionedName(sbUser), sbUser.Email, role, a.now())
	user.External.SupabaseID = sbUser.ID
	user.EmailVerified = sbUser.EmailVerified()

	created, err := a.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			// A local account already owns the address.
			return a.users.FindByEmail(ctx, sbUser.Email)
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	a.logger.Info(ctx, "provisioned profile for supabase user", "user_id", created.ID)
	return created, nil
}

const maxNameRunes = 50

// provisionedName picks the metadata name, else the address local part,
// else the whole address, cut to the stored name length.
func provisionedName(u *supabase.User) string {
	local, _, _ := strings.Cut(u.Email, "@")
	for _, candidate := range []string{u.UserMetadata.FullName, local, u.Email} {
		name := []rune(strings.TrimSpace(candidate))
		if len(name) > maxNameRunes {
			name = []rune(strings.TrimSpace(string(name[:maxNameRunes])))
		}
		if len(name) >= 2 {
			return string(name)
		}
	}
	return u.Email
}

func toSession(s *supabase.Session, now time.Time) *auth.Session {
	return &auth.Session{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.Expiry(now),
	}
}
