package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/hiinen/internal/common"
	"github.com/dmitrijs2005/hiinen/internal/logging"
	"github.com/dmitrijs2005/hiinen/internal/server/models"
	"github.com/dmitrijs2005/hiinen/internal/server/repositories/users"
	"github.com/dmitrijs2005/hiinen/internal/server/supabase"
	"github.com/dmitrijs2005/hiinen/internal/server/validation"
)

type fakeProvider struct {
	user      *supabase.User
	session   *supabase.Session
	err       error
	signedOut string
}

func (f *fakeProvider) SignUp(_ context.Context, email, _ string, meta supabase.UserMetadata) (*supabase.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &supabase.User{ID: "sb-new", Email: email, UserMetadata: meta}, nil
}

func (f *fakeProvider) SignInWithPassword(context.Context, string, string) (*supabase.Session, error) {
	return f.session, f.err
}

func (f *fakeProvider) RefreshSession(context.Context, string) (*supabase.Session, error) {
	return f.session, f.err
}

func (f *fakeProvider) GetUser(context.Context, string) (*supabase.User, error) {
	return f.user, f.err
}

func (f *fakeProvider) SignOut(_ context.Context, token string) error {
	f.signedOut = token
	return f.err
}

func (f *fakeProvider) AuthorizeURL(provider, redirectTo string) (string, error) {
	return "https://sb.example.com/auth/v1/authorize?provider=" + provider + "&redirect_to=" + redirectTo, nil
}

func newSupabaseAuth(p *fakeProvider) (*SupabaseAuthenticator, *users.MemoryRepository) {
	repo := users.NewMemoryRepository()
	return NewSupabaseAuthenticator(p, repo, logging.Nop()), repo
}

func TestSupabaseAuth_Register(t *testing.T) {
	a, _ := newSupabaseAuth(&fakeProvider{})

	ext, err := a.Register(context.Background(), SignUpInput{FullName: "Ada", Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "sb-new", ext.SupabaseID)
}

func TestSupabaseAuth_RegisterErrors(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(t *testing.T, err error)
	}{
		{
			name: "already registered",
			err:  &supabase.APIError{Status: http.StatusUnprocessableEntity, Message: "User already registered"},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, common.ErrorAlreadyExists)
			},
		},
		{
			name: "rejected input",
			err:  &supabase.APIError{Status: http.StatusBadRequest, Message: "Unable to validate email address"},
			check: func(t *testing.T, err error) {
				ve, ok := validation.As(err)
				require.True(t, ok)
				assert.Equal(t, "email", ve.Fields[0].Field)
			},
		},
		{
			name: "outage",
			err:  &supabase.APIError{Status: http.StatusBadGateway, Message: "Bad Gateway"},
			check: func(t *testing.T, err error) {
				_, ok := validation.As(err)
				assert.False(t, ok)
				assert.ErrorContains(t, err, "error registering with supabase")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := newSupabaseAuth(&fakeProvider{err: tt.err})
			_, err := a.Register(context.Background(), SignUpInput{Email: "ada@example.com"})
			tt.check(t, err)
		})
	}
}

func TestSupabaseAuth_SignInProvisionsProfile(t *testing.T) {
	confirmed := time.Now()
	p := &fakeProvider{session: &supabase.Session{
		AccessToken:  "sb-access",
		RefreshToken: "sb-refresh",
		ExpiresAt:    time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC).Unix(),
		User: &supabase.User{
			ID:               "sb-1",
			Email:            "ada@example.com",
			EmailConfirmedAt: &confirmed,
			UserMetadata:     supabase.UserMetadata{FullName: "Ada Lovelace", UserType: "mentor"},
		},
	}}
	a, repo := newSupabaseAuth(p)
	ctx := context.Background()

	u, session, err := a.SignIn(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", u.Name)
	assert.Equal(t, models.RoleMentor, u.Role)
	assert.True(t, u.EmailVerified)
	assert.Equal(t, "sb-access", session.AccessToken)
	assert.Equal(t, "sb-refresh", session.RefreshToken)
	assert.Equal(t, 2030, session.ExpiresAt.Year())

	again, _, err := a.SignIn(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID, "second login reuses the profile")

	stored, err := repo.FindByExternalID(ctx, models.ProviderSupabase, "sb-1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, stored.ID)
}

func TestSupabaseAuth_ProvisionDefaults(t *testing.T) {
	p := &fakeProvider{user: &supabase.User{
		ID:           "sb-2",
		Email:        "grace@example.com",
		UserMetadata: supabase.UserMetadata{UserType: "admin"},
	}}
	a, _ := newSupabaseAuth(p)

	u, err := a.Verify(context.Background(), "sb-access")
	require.NoError(t, err)
	assert.Equal(t, "grace", u.Name)
	assert.Equal(t, models.RoleEntrepreneur, u.Role, "admin cannot come from metadata")
	assert.False(t, u.EmailVerified)
}

func TestSupabaseAuth_ProvisionedNameFitsProfile(t *testing.T) {
	tests := []struct {
		name string
		user supabase.User
		want string
	}{
		{"long metadata name is cut", supabase.User{Email: "ada@example.com", UserMetadata: supabase.UserMetadata{FullName: strings.Repeat("Ñ", 60)}}, strings.Repeat("Ñ", 50)},
		{"one letter name uses local part", supabase.User{Email: "ada@example.com", UserMetadata: supabase.UserMetadata{FullName: " A "}}, "ada"},
		{"one letter local part uses address", supabase.User{Email: "a@ex.io"}, "a@ex.io"},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sbUser := tt.user
			sbUser.ID = fmt.Sprintf("sb-name-%d", i)
			a, _ := newSupabaseAuth(&fakeProvider{user: &sbUser})

			u, err := a.Verify(context.Background(), "sb-access")
			require.NoError(t, err)
			assert.Equal(t, tt.want, u.Name)
			assert.NoError(t, validation.User(u))
		})
	}
}

func TestSupabaseAuth_ProvisionFallsBackToEmail(t *testing.T) {
	p := &fakeProvider{user: &supabase.User{ID: "sb-3", Email: "ada@example.com"}}
	a, repo := newSupabaseAuth(p)
	ctx := context.Background()

	local, err := repo.Create(ctx, models.NewUser("Ada", "ada@example.com", "", time.Now()))
	require.NoError(t, err)

	u, err := a.Verify(ctx, "sb-access")
	require.NoError(t, err)
	assert.Equal(t, local.ID, u.ID)
}

func TestSupabaseAuth_ErrorMapping(t *testing.T) {
	rejected := &supabase.APIError{Status: http.StatusBadRequest, Message: "Invalid login credentials"}
	down := errors.New("dial tcp: connection refused")
	ctx := context.Background()

	a, _ := newSupabaseAuth(&fakeProvider{err: rejected})
	_, _, err := a.SignIn(ctx, "ada@example.com", "nope")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
	_, err = a.Verify(ctx, "bad")
	assert.ErrorIs(t, err, common.ErrInvalidToken)
	_, err = a.Refresh(ctx, "bad")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	a, _ = newSupabaseAuth(&fakeProvider{err: down})
	_, _, err = a.SignIn(ctx, "ada@example.com", "nope")
	assert.NotErrorIs(t, err, common.ErrorUnauthorized)
	assert.ErrorIs(t, err, down)
	_, err = a.Verify(ctx, "tok")
	assert.NotErrorIs(t, err, common.ErrInvalidToken)
}

func TestSupabaseAuth_SignOutAndOAuth(t *testing.T) {
	p := &fakeProvider{}
	a, _ := newSupabaseAuth(p)

	require.NoError(t, a.SignOut(context.Background(), &models.User{}, "sb-access"))
	assert.Equal(t, "sb-access", p.signedOut)

	url, err := a.AuthorizeURL(models.ProviderGoogle, "http://localhost:3000/dashboard")
	require.NoError(t, err)
	assert.Contains(t, url, "provider=google")

	assert.ErrorIs(t, a.ChangePassword(context.Background(), &models.User{}, "a", "b"), common.ErrorNotSupported)
}

func TestUserService_SignUpViaSupabase(t *testing.T) {
	a, repo := newSupabaseAuth(&fakeProvider{})
	svc := NewUserService(repo, a, newHasher(), nil, "http://localhost:3000", logging.Nop())

	u, err := svc.SignUp(context.Background(), SignUpInput{FullName: "Ada", Email: "ada@example.com", Password: "secret1", Role: models.RoleMentor})
	require.NoError(t, err)
	assert.Equal(t, "sb-new", u.External.SupabaseID)

	stored, err := repo.FindByIDWithPassword(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.PasswordHash)

	url, err := svc.OAuthURL(models.ProviderGoogle)
	require.NoError(t, err)
	assert.Contains(t, url, "redirect_to=http://localhost:3000/dashboard")
}
