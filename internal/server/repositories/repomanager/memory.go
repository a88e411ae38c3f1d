package repomanager

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/hiinen/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/hiinen/internal/server/repositories/users"
)

// MemoryRepositoryManager keeps everything in process memory. It backs the
// memory:// DSN for local development and the service tests.
type MemoryRepositoryManager struct {
	mu     sync.Mutex
	users  *users.MemoryRepository
	tokens *refreshtokens.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		users:  users.NewMemoryRepository(),
		tokens: refreshtokens.NewMemoryRepository(),
	}
}

func (m *MemoryRepositoryManager) Users() users.Repository {
	return m.users
}

func (m *MemoryRepositoryManager) RefreshTokens() refreshtokens.Repository {
	return m.tokens
}

// InTx serializes units of work; it does not roll back.
func (m *MemoryRepositoryManager) InTx(ctx context.Context, fn TxFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, m.users, m.tokens)
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *MemoryRepositoryManager) Ping(context.Context) error { return nil }

func (m *MemoryRepositoryManager) Close(context.Context) error { return nil }
