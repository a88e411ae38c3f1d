package repomanager

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/dmitrijs2005/hiinen/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/hiinen/internal/server/repositories/users"
)

// MongoRepositoryManager vends MongoDB-backed repositories from one client.
type MongoRepositoryManager struct {
	client *mongo.Client
	users  *users.MongoRepository
	tokens *refreshtokens.MongoRepository
}

// OpenMongo connects to uri and selects database dbName.
func OpenMongo(ctx context.Context, uri, dbName string) (*MongoRepositoryManager, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return NewMongoRepositoryManager(client, client.Database(dbName)), nil
}

func NewMongoRepositoryManager(client *mongo.Client, db *mongo.Database) *MongoRepositoryManager {
	return &MongoRepositoryManager{
		client: client,
		users:  users.NewMongoRepository(db),
		tokens: refreshtokens.NewMongoRepository(db),
	}
}

func (m *MongoRepositoryManager) Users() users.Repository {
	return m.users
}

func (m *MongoRepositoryManager) RefreshTokens() refreshtokens.Repository {
	return m.tokens
}

// InTx runs fn directly. Multi-document transactions need a replica set,
// so the steps are applied one by one, in order.
func (m *MongoRepositoryManager) InTx(ctx context.Context, fn TxFunc) error {
	return fn(ctx, m.users, m.tokens)
}

// RunMigrations creates the collections' indexes.
func (m *MongoRepositoryManager) RunMigrations(ctx context.Context) error {
	return errors.Join(m.users.EnsureIndexes(ctx), m.tokens.EnsureIndexes(ctx))
}

func (m *MongoRepositoryManager) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *MongoRepositoryManager) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
