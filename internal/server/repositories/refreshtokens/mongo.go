package refreshtokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dmitrijs2005/hiinen/internal/common"
	"github.com/dmitrijs2005/hiinen/internal/server/models"
)

const refreshTokensCollection = "refresh_tokens"

type tokenDocument struct {
	Token     string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(refreshTokensCollection)}
}

// EnsureIndexes adds the user lookup index and a TTL index so MongoDB
// purges expired tokens on its own.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
	})
	if err != nil {
		return fmt.Errorf("create refresh token indexes: %w", err)
	}
	return nil
}

func (r *MongoRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	_, err := r.coll.InsertOne(ctx, tokenDocument{
		Token:     token.Token,
		UserID:    token.UserID,
		ExpiresAt: token.Expires,
		CreatedAt: token.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *MongoRepository) Consume(ctx context.Context, token string) (*models.RefreshToken, error) {
	var doc tokenDocument
	if err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": token}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return &models.RefreshToken{
		UserID:    doc.UserID,
		Token:     doc.Token,
		Expires:   doc.ExpiresAt.UTC(),
		CreatedAt: doc.CreatedAt.UTC(),
	}, nil
}

func (r *MongoRepository) DeleteByUser(ctx context.Context, userID string) error {
	if _, err := r.coll.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
