package users

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/hiinen/internal/common"
	"github.com/dmitrijs2005/hiinen/internal/server/models"
)

// MemoryRepository keeps users in process memory. It enforces the same
// uniqueness rules as the database backends and hands out copies, so
// callers cannot mutate stored records.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]*models.User
	now   func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: map[string]*models.User{}, now: time.Now}
}

func (r *MemoryRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email || sharesExternalID(u.External, user.External) {
			return nil, common.ErrorAlreadyExists
		}
	}

	user.ID = uuid.NewString()
	r.users[user.ID] = clone(user)
	return user, nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ID == id }, false)
}

func (r *MemoryRepository) FindByIDWithPassword(_ context.Context, id string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ID == id }, true)
}

func (r *MemoryRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	return r.find(func(u *models.User) bool { return u.Email == email }, false)
}

func (r *MemoryRepository) FindByEmailWithPassword(_ context.Context, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	return r.find(func(u *models.User) bool { return u.Email == email }, true)
}

func (r *MemoryRepository) FindByExternalID(_ context.Context, provider models.IdentityProvider, externalID string) (*models.User, error) {
	if externalID == "" {
		return nil, common.ErrorNotFound
	}
	return r.find(func(u *models.User) bool { return u.External.Get(provider) == externalID }, false)
}

func (r *MemoryRepository) find(match func(*models.User) bool, withPassword bool) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if match(u) {
			out := clone(u)
			if !withPassword {
				out.PasswordHash = ""
			}
			return out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) UpdateProfile(_ context.Context, id string, patch models.ProfilePatch) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	patch.Apply(u)
	u.UpdatedAt = r.now()

	out := clone(u)
	out.PasswordHash = ""
	return out, nil
}

func (r *MemoryRepository) UpdatePassword(_ context.Context, id string, hash string) error {
	return r.update(id, func(u *models.User) {
		u.PasswordHash = hash
		u.UpdatedAt = r.now()
	})
}

func (r *MemoryRepository) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	return r.update(id, func(u *models.User) { u.LastLogin = at })
}

func (r *MemoryRepository) update(id string, fn func(u *models.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	fn(u)
	return nil
}

func sharesExternalID(a, b models.ExternalIdentities) bool {
	return (a.GoogleID != "" && a.GoogleID == b.GoogleID) ||
		(a.LinkedInID != "" && a.LinkedInID == b.LinkedInID) ||
		(a.SupabaseID != "" && a.SupabaseID == b.SupabaseID)
}

func clone(u *models.User) *models.User {
	c := *u
	c.Profile.Skills = slices.Clone(u.Profile.Skills)
	c.Profile.Interests = slices.Clone(u.Profile.Interests)
	c.Ideas = slices.Clone(u.Ideas)
	c.Mentorships = slices.Clone(u.Mentorships)
	normalizeLists(&c)
	return &c
}
