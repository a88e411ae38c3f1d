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
	"github.com/dmitrijs2005/hiinen/internal/server/validation"
)

// NewUser describes an account to create. Password may be empty only when
// External links an identity.
type NewUser struct {
	Name     string
	Email    string
	Password string
	Role     models.Role
	External models.ExternalIdentities
}

// AvatarUpload is returned to the client after an upload was presigned.
type AvatarUpload struct {
	UploadURL string `json:"uploadUrl"`
	AvatarURL string `json:"avatarUrl"`
}

// UserService owns the account lifecycle:
// - SignUp / CreateUser: validate, hash and persist new users
// - Login / Logout / Refresh / Authenticate: delegated to the Authenticator
// - UpdateProfile / ChangePassword / RequestAvatarUpload: profile edits
type UserService struct {
	users         users.Repository
	authenticator Authenticator
	hasher        *auth.PasswordHasher
	avatars       AvatarStorage
	frontendURL   string
	logger        logging.Logger
	now           func() time.Time
}

func NewUserService(users users.Repository, authenticator Authenticator, hasher *auth.PasswordHasher,
	avatars AvatarStorage, frontendURL string, logger logging.Logger) *UserService {
	return &UserService{
		users:         users,
		authenticator: authenticator,
		hasher:        hasher,
		avatars:       avatars,
		frontendURL:   strings.TrimSuffix(frontendURL, "/"),
		logger:        logger.With("module", "user_service"),
		now:           time.Now,
	}
}

// CreateUser validates in, hashes its password if one is given and stores
// the user. Invalid input yields *validation.Error before the store is
// touched; a taken email yields common.ErrorAlreadyExists.
func (s *UserService) CreateUser(ctx context.Context, in NewUser) (*models.User, error) {
	user := models.NewUser(in.Name, in.Email, in.Role, s.now())
	user.External = in.External

	if err := validation.NewUser(user, in.Password); err != nil {
		return nil, err
	}

	if err := s.ensureEmailFree(ctx, user.Email); err != nil {
		return nil, err
	}

	if in.Password != "" {
		digest, err := s.hasher.Hash(in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = digest
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	created.PasswordHash = ""
	return created, nil
}

// SignUp registers a user through the configured Authenticator and stores
// their profile.
func (s *UserService) SignUp(ctx context.Context, in SignUpInput) (*models.User, error) {
	if err := validation.SignUp(in.FullName, in.Email, in.Password, string(in.Role)); err != nil {
		return nil, err
	}
	in.Email = models.NormalizeEmail(in.Email)
	if in.Role == "" {
		in.Role = models.RoleEntrepreneur
	}

	if err := s.ensureEmailFree(ctx, in.Email); err != nil {
		return nil, err
	}

	external, err := s.authenticator.Register(ctx, in)
	if err != nil {
		return nil, err
	}

	nu := NewUser{Name: in.FullName, Email: in.Email, Role: in.Role, External: external}
	if external.IsZero() {
		nu.Password = in.Password
	}

	user, err := s.CreateUser(ctx, nu)
	if err != nil && !external.IsZero() {
		s.logger.Error(ctx, "external account created without local profile",
			"supabase_id", external.SupabaseID, "error", err)
	}
	return user, err
}

func (s *UserService) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return common.ErrorAlreadyExists
	case errors.Is(err, common.ErrorNotFound):
		return nil
	default:
		return fmt.Errorf("error checking email: %w", err)
	}
}

func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, *auth.Session, error) {
	if err := validation.Login(email, password); err != nil {
		return nil, nil, err
	}
	return s.authenticator.SignIn(ctx, models.NormalizeEmail(email), password)
}

func (s *UserService) Logout(ctx context.Context, user *models.User, token string) error {
	return s.authenticator.SignOut(ctx, user, token)
}

func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*auth.Session, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, validation.Required("refreshToken")
	}
	return s.authenticator.Refresh(ctx, refreshToken)
}

// Authenticate resolves a bearer token to its user.
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	return s.authenticator.Verify(ctx, token)
}

// UpdateProfile applies patch to the user's profile. The stored password
// digest is never read or written here.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, patch models.ProfilePatch) (*models.User, error) {
	current, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	patch.Apply(current)
	if err := validation.User(current); err != nil {
		return nil, err
	}

	updated, err := s.users.UpdateProfile(ctx, userID, patch)
	if err != nil {
		return nil, fmt.Errorf("error updating profile: %w", err)
	}
	return updated, nil
}

func (s *UserService) ChangePassword(ctx context.Context, user *models.User, current, next string) error {
	if err := validation.ChangePassword(current, next); err != nil {
		return err
	}
	return s.authenticator.ChangePassword(ctx, user, current, next)
}

// OAuthURL returns where to send the browser for an OAuth login with
// provider. It lands back on the frontend dashboard.
func (s *UserService) OAuthURL(provider models.IdentityProvider) (string, error) {
	return s.authenticator.AuthorizeURL(provider, s.frontendURL+"/dashboard")
}

// RequestAvatarUpload presigns an upload of a new avatar and points the
// profile at it.
func (s *UserService) RequestAvatarUpload(ctx context.Context, userID, contentType string) (*AvatarUpload, error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if _, ok := avatarExtensions[contentType]; !ok {
		return nil, &validation.Error{Fields: []validation.FieldError{
			{Field: "contentType", Message: "contentType must be one of image/png, image/jpeg, image/webp, image/gif"},
		}}
	}

	uploadURL, avatarURL, err := s.avatars.PresignUpload(ctx, userID, contentType)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.UpdateProfile(ctx, userID, models.ProfilePatch{Avatar: &avatarURL}); err != nil {
		return nil, fmt.Errorf("error updating profile: %w", err)
	}
	return &AvatarUpload{UploadURL: uploadURL, AvatarURL: avatarURL}, nil
}
