package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/hiinen/internal/logging"
	"github.com/dmitrijs2005/hiinen/internal/server/auth"
	"github.com/dmitrijs2005/hiinen/internal/server/models"
	"github.com/dmitrijs2005/hiinen/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/hiinen/internal/server/repositories/users"
	"github.com/dmitrijs2005/hiinen/internal/server/sessions"
)

var testSecret = []byte("test-secret")

func newHasher() *auth.PasswordHasher {
	return auth.NewPasswordHasher(bcrypt.MinCost)
}

type localFixture struct {
	repos    *repomanager.MemoryRepositoryManager
	denylist *sessions.MemoryDenylist
	auth     *LocalAuthenticator
	svc      *UserService
	avatars  *fakeAvatars
}

func newLocalFixture(t *testing.T) *localFixture {
	t.Helper()
	repos := repomanager.NewMemoryRepositoryManager()
	denylist := sessions.NewMemoryDenylist()
	hasher := newHasher()
	a := NewLocalAuthenticator(repos, hasher, auth.NewTokenIssuer(testSecret, 15*time.Minute), denylist, time.Hour)
	avatars := &fakeAvatars{}
	svc := NewUserService(repos.Users(), a, hasher, avatars, "http://localhost:3000/", logging.Nop())
	return &localFixture{repos: repos, denylist: denylist, auth: a, svc: svc, avatars: avatars}
}

// countingUsers wraps a repository and counts every call.
type countingUsers struct {
	users.Repository
	mu    sync.Mutex
	calls int
}

func (c *countingUsers) hit() {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
}

func (c *countingUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	c.hit()
	return c.Repository.Create(ctx, u)
}

func (c *countingUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	c.hit()
	return c.Repository.FindByEmail(ctx, email)
}

func (c *countingUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	c.hit()
	return c.Repository.FindByID(ctx, id)
}

func (c *countingUsers) UpdateProfile(ctx context.Context, id string, p models.ProfilePatch) (*models.User, error) {
	c.hit()
	return c.Repository.UpdateProfile(ctx, id, p)
}

type fakeAvatars struct {
	err   error
	calls int
}

func (f *fakeAvatars) PresignUpload(_ context.Context, userID, contentType string) (string, string, error) {
	f.calls++
	if f.err != nil {
		return "", "", f.err
	}
	return "http://minio:9000/avatars/upload?sig=x", "http://minio:9000/avatars/users/" + userID + "/a.png", nil
}

// stubAuthenticator records Register calls and otherwise does nothing.
type stubAuthenticator struct {
	Authenticator
	external  models.ExternalIdentities
	err       error
	registers int
}

func (s *stubAuthenticator) Register(context.Context, SignUpInput) (models.ExternalIdentities, error) {
	s.registers++
	return s.external, s.err
}
