// Package repomanager opens the identity store selected by the database DSN
// and vends its repositories.
package repomanager

import (
	"context"
	"fmt"
	"net/url"

	"github.com/dmitrijs2005/hiinen/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/hiinen/internal/server/repositories/users"
)

// TxFunc receives repositories bound to a single unit of work.
type TxFunc func(ctx context.Context, users users.Repository, tokens refreshtokens.Repository) error

type RepositoryManager interface {
	// RunMigrations brings the schema (tables or indexes) up to date.
	RunMigrations(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error

	Users() users.Repository
	RefreshTokens() refreshtokens.Repository

	// InTx runs fn against repositories sharing one transaction where the
	// backend supports it. fn's error aborts the unit of work.
	InTx(ctx context.Context, fn TxFunc) error
}

// Open connects to the store named by dsn. The scheme picks the backend:
// postgres/postgresql, mongodb/mongodb+srv, or memory. dbName is used by
// MongoDB only.
func Open(ctx context.Context, dsn, dbName string) (RepositoryManager, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}

	switch u.Scheme {
	case "postgres", "postgresql":
		return OpenPostgres(ctx, dsn)
	case "mongodb", "mongodb+srv":
		return OpenMongo(ctx, dsn, dbName)
	case "memory":
		return NewMemoryRepositoryManager(), nil
	default:
		return nil, fmt.Errorf("unsupported database scheme %q", u.Scheme)
	}
}
