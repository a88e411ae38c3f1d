package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dmitrijs2005/hiinen/internal/common"
	"github.com/dmitrijs2005/hiinen/internal/server/models"
)

const usersCollection = "users"

type profileDocument struct {
	Bio        string   `bson:"bio"`
	Skills     []string `bson:"skills"`
	Interests  []string `bson:"interests"`
	Location   string   `bson:"location"`
	Experience string   `bson:"experience"`
	Avatar     string   `bson:"avatar"`
}

type userDocument struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Name          string             `bson:"name"`
	Email         string             `bson:"email"`
	PasswordHash  string             `bson:"password_hash,omitempty"`
	Role          string             `bson:"role"`
	Profile       profileDocument    `bson:"profile"`
	GoogleID      string             `bson:"google_id,omitempty"`
	LinkedInID    string             `bson:"linkedin_id,omitempty"`
	SupabaseID    string             `bson:"supabase_id,omitempty"`
	EmailVerified bool               `bson:"email_verified"`
	Active        bool               `bson:"is_active"`
	Ideas         []string           `bson:"ideas"`
	Mentorships   []string           `bson:"mentorships"`
	LastLogin     time.Time          `bson:"last_login"`
	CreatedAt     time.Time          `bson:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at"`
}

func toDocument(u *models.User) userDocument {
	return userDocument{
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Profile: profileDocument{
			Bio:        u.Profile.Bio,
			Skills:     u.Profile.Skills,
			Interests:  u.Profile.Interests,
			Location:   u.Profile.Location,
			Experience: string(u.Profile.Experience),
			Avatar:     u.Profile.Avatar,
		},
		GoogleID:      u.External.GoogleID,
		LinkedInID:    u.External.LinkedInID,
		SupabaseID:    u.External.SupabaseID,
		EmailVerified: u.EmailVerified,
		Active:        u.Active,
		Ideas:         u.Ideas,
		Mentorships:   u.Mentorships,
		LastLogin:     u.LastLogin,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func (d *userDocument) toModel() *models.User {
	u := &models.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Role:         models.Role(d.Role),
		Profile: models.Profile{
			Bio:        d.Profile.Bio,
			Skills:     d.Profile.Skills,
			Interests:  d.Profile.Interests,
			Location:   d.Profile.Location,
			Experience: models.Experience(d.Profile.Experience),
			Avatar:     d.Profile.Avatar,
		},
		External: models.ExternalIdentities{
			GoogleID:   d.GoogleID,
			LinkedInID: d.LinkedInID,
			SupabaseID: d.SupabaseID,
		},
		EmailVerified: d.EmailVerified,
		Active:        d.Active,
		Ideas:         d.Ideas,
		Mentorships:   d.Mentorships,
		LastLogin:     d.LastLogin.UTC(),
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}
	normalizeLists(u)
	return u
}

// withoutPassword is the default projection for reads.
var withoutPassword = bson.M{"password_hash": 0}

type MongoRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(usersCollection), now: time.Now}
}

// EnsureIndexes creates the unique email index and the sparse unique
// indexes on external ids.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "google_id", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		{Keys: bson.D{{Key: "linkedin_id", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		{Keys: bson.D{{Key: "supabase_id", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

func (r *MongoRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	doc := toDocument(user)
	doc.ID = primitive.NewObjectID()

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.ID = doc.ID.Hex()
	return user, nil
}

func (r *MongoRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findByID(ctx, id, false)
}

func (r *MongoRepository) FindByIDWithPassword(ctx context.Context, id string) (*models.User, error) {
	return r.findByID(ctx, id, true)
}

func (r *MongoRepository) findByID(ctx context.Context, id string, withPassword bool) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, common.ErrorNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid}, withPassword)
}

func (r *MongoRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": models.NormalizeEmail(email)}, false)
}

func (r *MongoRepository) FindByEmailWithPassword(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": models.NormalizeEmail(email)}, true)
}

func (r *MongoRepository) FindByExternalID(ctx context.Context, provider models.IdentityProvider, externalID string) (*models.User, error) {
	var field string
	switch provider {
	case models.ProviderGoogle:
		field = "google_id"
	case models.ProviderLinkedIn:
		field = "linkedin_id"
	case models.ProviderSupabase:
		field = "supabase_id"
	default:
		return nil, common.ErrorNotFound
	}
	if externalID == "" {
		return nil, common.ErrorNotFound
	}
	return r.findOne(ctx, bson.M{field: externalID}, false)
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M, withPassword bool) (*models.User, error) {
	opts := options.FindOne()
	if !withPassword {
		opts.SetProjection(withoutPassword)
	}

	var doc userDocument
	if err := r.coll.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return doc.toModel(), nil
}

// UpdateProfile sets only the patched fields. password_hash is never part
// of the update document.
func (r *MongoRepository) UpdateProfile(ctx context.Context, id string, patch models.ProfilePatch) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, common.ErrorNotFound
	}

	set := bson.M{"updated_at": r.now().UTC()}
	if name := patch.TrimmedName(); name != nil {
		set["name"] = *name
	}
	for k, v := range patch.ProfileFields() {
		set["profile."+k] = v
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(withoutPassword)

	var doc userDocument
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return doc.toModel(), nil
}

func (r *MongoRepository) UpdatePassword(ctx context.Context, id string, hash string) error {
	return r.updateOne(ctx, id, bson.M{"password_hash": hash, "updated_at": r.now().UTC()})
}

func (r *MongoRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.updateOne(ctx, id, bson.M{"last_login": at.UTC()})
}

func (r *MongoRepository) updateOne(ctx context.Context, id string, set bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return common.ErrorNotFound
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if res.MatchedCount == 0 {
		return common.ErrorNotFound
	}
	return nil
}
