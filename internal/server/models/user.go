package models

import (
	"net/url"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

type Role string

const (
	RoleEntrepreneur Role = "entrepreneur"
	RoleMentor       Role = "mentor"
	RoleAdmin        Role = "admin"
)

type Experience string

const (
	ExperienceBeginner     Experience = "beginner"
	ExperienceIntermediate Experience = "intermediate"
	ExperienceAdvanced     Experience = "advanced"
	ExperienceExpert       Experience = "expert"
)

// IdentityProvider names an external account linked to a user.
type IdentityProvider string

const (
	ProviderGoogle   IdentityProvider = "google"
	ProviderLinkedIn IdentityProvider = "linkedin"
	ProviderSupabase IdentityProvider = "supabase"
)

type Profile struct {
	Bio        string     `json:"bio"`
	Skills     []string   `json:"skills"`
	Interests  []string   `json:"interests"`
	Location   string     `json:"location"`
	Experience Experience `json:"experience"`
	Avatar     string     `json:"avatar"`
}

// ExternalIdentities holds provider user ids. Empty means not linked.
type ExternalIdentities struct {
	GoogleID   string `json:"googleId,omitempty"`
	LinkedInID string `json:"linkedinId,omitempty"`
	SupabaseID string `json:"supabaseId,omitempty"`
}

func (e ExternalIdentities) IsZero() bool {
	return e.GoogleID == "" && e.LinkedInID == "" && e.SupabaseID == ""
}

// Get returns the id linked for provider.
func (e ExternalIdentities) Get(p IdentityProvider) string {
	switch p {
	case ProviderGoogle:
		return e.GoogleID
	case ProviderLinkedIn:
		return e.LinkedInID
	case ProviderSupabase:
		return e.SupabaseID
	}
	return ""
}

// User is a registered account. PasswordHash is only populated by the
// repository methods that explicitly load it and is never serialized.
type User struct {
	ID            string             `json:"id"`
	Name          string             `json:"fullName"`
	Email         string             `json:"email"`
	PasswordHash  string             `json:"-"`
	Role          Role               `json:"userType"`
	Profile       Profile            `json:"profile"`
	External      ExternalIdentities `json:"external"`
	EmailVerified bool               `json:"emailVerified"`
	Active        bool               `json:"isActive"`
	LastLogin     time.Time          `json:"lastLogin"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
	Ideas         []string           `json:"ideas"`
	Mentorships   []string           `json:"mentorships"`
}

// PasswordVerifier checks a plaintext password against a stored digest.
type PasswordVerifier interface {
	Verify(password, digest string) bool
}

// MatchPassword reports whether password matches the user's stored hash.
// Users without a local password never match.
func (u *User) MatchPassword(password string, verifier PasswordVerifier) bool {
	if u.PasswordHash == "" {
		return false
	}
	return verifier.Verify(password, u.PasswordHash)
}

// NewUser returns a user with creation defaults applied: active, entrepreneur
// role, beginner experience, generated avatar, and LastLogin set to now.
func NewUser(name, email string, role Role, now time.Time) *User {
	if role == "" {
		role = RoleEntrepreneur
	}
	u := &User{
		Name:        strings.TrimSpace(name),
		Email:       NormalizeEmail(email),
		Role:        role,
		Active:      true,
		LastLogin:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
		Ideas:       []string{},
		Mentorships: []string{},
		Profile: Profile{
			Skills:     []string{},
			Interests:  []string{},
			Experience: ExperienceBeginner,
		},
	}
	u.Profile.Avatar = DefaultAvatar(u.Name)
	return u
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DefaultAvatar builds a generated avatar URL from the initials of name.
func DefaultAvatar(name string) string {
	var initials strings.Builder
	for _, part := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(part)
		initials.WriteRune(unicode.ToUpper(r))
	}

	q := url.Values{}
	q.Set("name", initials.String())
	q.Set("background", "random")
	q.Set("color", "fff")
	q.Set("size", "200")
	return "https://ui-avatars.com/api/?" + q.Encode()
}

// ProfilePatch is a partial profile update. Nil fields are left unchanged.
type ProfilePatch struct {
	Name       *string     `json:"fullName"`
	Bio        *string     `json:"bio"`
	Skills     *[]string   `json:"skills"`
	Interests  *[]string   `json:"interests"`
	Location   *string     `json:"location"`
	Experience *Experience `json:"experience"`
	Avatar     *string     `json:"avatar"`
}

// Apply copies the set fields of p onto u, trimming strings and dropping
// blank list entries.
func (p ProfilePatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = strings.TrimSpace(*p.Name)
	}
	if p.Bio != nil {
		u.Profile.Bio = strings.TrimSpace(*p.Bio)
	}
	if p.Skills != nil {
		u.Profile.Skills = CleanList(*p.Skills)
	}
	if p.Interests != nil {
		u.Profile.Interests = CleanList(*p.Interests)
	}
	if p.Location != nil {
		u.Profile.Location = strings.TrimSpace(*p.Location)
	}
	if p.Experience != nil {
		u.Profile.Experience = *p.Experience
	}
	if p.Avatar != nil {
		u.Profile.Avatar = strings.TrimSpace(*p.Avatar)
	}
}

// CleanList trims entries and drops empty ones. It never returns nil.
func CleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ProfileFields returns the set profile fields keyed by their stored names,
// with the same cleanup Apply performs.
func (p ProfilePatch) ProfileFields() map[string]any {
	fields := map[string]any{}
	if p.Bio != nil {
		fields["bio"] = strings.TrimSpace(*p.Bio)
	}
	if p.Skills != nil {
		fields["skills"] = CleanList(*p.Skills)
	}
	if p.Interests != nil {
		fields["interests"] = CleanList(*p.Interests)
	}
	if p.Location != nil {
		fields["location"] = strings.TrimSpace(*p.Location)
	}
	if p.Experience != nil {
		fields["experience"] = string(*p.Experience)
	}
	if p.Avatar != nil {
		fields["avatar"] = strings.TrimSpace(*p.Avatar)
	}
	return fields
}

// TrimmedName returns the patched name, or nil when the name is unchanged.
func (p ProfilePatch) TrimmedName() *string {
	if p.Name == nil {
		return nil
	}
	name := strings.TrimSpace(*p.Name)
	return &name
}
