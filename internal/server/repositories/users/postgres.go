package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/hiinen/internal/common"
	"github.com/dmitrijs2005/hiinen/internal/dbx"
	"github.com/dmitrijs2005/hiinen/internal/server/models"
)

const userColumns = `id, name, email, role, profile, google_id, linkedin_id, supabase_id,
	email_verified, is_active, idea_ids, mentorship_ids, last_login, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (name, email, password_hash, role, profile, google_id, linkedin_id, supabase_id,
			email_verified, is_active, idea_ids, mentorship_ids, last_login, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING id
		 `

	profile, err := json.Marshal(user.Profile)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	ideas, err := jsonList(user.Ideas)
	if err != nil {
		return nil, err
	}
	mentorships, err := jsonList(user.Mentorships)
	if err != nil {
		return nil, err
	}

	err = r.db.QueryRowContext(ctx, query,
		user.Name, user.Email, nullString(user.PasswordHash), string(user.Role), string(profile),
		nullString(user.External.GoogleID), nullString(user.External.LinkedInID), nullString(user.External.SupabaseID),
		user.EmailVerified, user.Active, ideas, mentorships,
		user.LastLogin, user.CreatedAt, user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findByID(ctx, id, false)
}

func (r *PostgresRepository) FindByIDWithPassword(ctx context.Context, id string) (*models.User, error) {
	return r.findByID(ctx, id, true)
}

func (r *PostgresRepository) findByID(ctx context.Context, id string, withPassword bool) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}
	return r.findOne(ctx, "id = $1", id, withPassword)
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email = $1", models.NormalizeEmail(email), false)
}

func (r *PostgresRepository) FindByEmailWithPassword(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email = $1", models.NormalizeEmail(email), true)
}

func (r *PostgresRepository) FindByExternalID(ctx context.Context, provider models.IdentityProvider, externalID string) (*models.User, error) {
	var column string
	switch provider {
	case models.ProviderGoogle:
		column = "google_id"
	case models.ProviderLinkedIn:
		column = "linkedin_id"
	case models.ProviderSupabase:
		column = "supabase_id"
	default:
		return nil, common.ErrorNotFound
	}
	if externalID == "" {
		return nil, common.ErrorNotFound
	}
	return r.findOne(ctx, column+" = $1", externalID, false)
}

func (r *PostgresRepository) findOne(ctx context.Context, where string, arg any, withPassword bool) (*models.User, error) {
	columns := userColumns
	if withPassword {
		columns += ", password_hash"
	}
	query := fmt.Sprintf("SELECT %s FROM users WHERE %s", columns, where)

	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg), withPassword)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

// UpdateProfile merges the patched profile fields into the stored JSON
// document. The password column is not part of the statement.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, id string, patch models.ProfilePatch) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}

	fields, err := json.Marshal(patch.ProfileFields())
	if err != nil {
		return nil, fmt.Errorf("encode profile patch: %w", err)
	}

	var name any
	if n := patch.TrimmedName(); n != nil {
		name = *n
	}

	query := `UPDATE users
		 SET name = COALESCE($2, name), profile = profile || $3::jsonb, updated_at = now()
		 WHERE id = $1
		 RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id, name, string(fields)), false)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id string, hash string) error {
	query := `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`
	return r.execOne(ctx, query, id, hash)
}

func (r *PostgresRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE users SET last_login = $2 WHERE id = $1`
	return r.execOne(ctx, query, id, at)
}

func (r *PostgresRepository) execOne(ctx context.Context, query, id string, arg any) error {
	if _, err := uuid.Parse(id); err != nil {
		return common.ErrorNotFound
	}

	res, err := r.db.ExecContext(ctx, query, id, arg)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner, withPassword bool) (*models.User, error) {
	var (
		u                                models.User
		role                             string
		profile, ideas, mentorships      []byte
		googleID, linkedInID, supabaseID sql.NullString
		hash                             sql.NullString
	)

	dest := []any{
		&u.ID, &u.Name, &u.Email, &role, &profile, &googleID, &linkedInID, &supabaseID,
		&u.EmailVerified, &u.Active, &ideas, &mentorships, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt,
	}
	if withPassword {
		dest = append(dest, &hash)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(profile, &u.Profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if err := json.Unmarshal(ideas, &u.Ideas); err != nil {
		return nil, fmt.Errorf("decode ideas: %w", err)
	}
	if err := json.Unmarshal(mentorships, &u.Mentorships); err != nil {
		return nil, fmt.Errorf("decode mentorships: %w", err)
	}

	u.Role = models.Role(role)
	u.External = models.ExternalIdentities{
		GoogleID:   googleID.String,
		LinkedInID: linkedInID.String,
		SupabaseID: supabaseID.String,
	}
	u.PasswordHash = hash.String
	normalizeLists(&u)
	return &u, nil
}

func normalizeLists(u *models.User) {
	if u.Profile.Skills == nil {
		u.Profile.Skills = []string{}
	}
	if u.Profile.Interests == nil {
		u.Profile.Interests = []string{}
	}
	if u.Ideas == nil {
		u.Ideas = []string{}
	}
	if u.Mentorships == nil {
		u.Mentorships = []string{}
	}
}

func jsonList(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode list: %w", err)
	}
	return string(b), nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
