package server

import (
	"context"
	"fmt"

	"github.com/talent-hunters/bookportal/config"
	"github.com/talent-hunters/bookportal/internal/db"
	"github.com/talent-hunters/bookportal/internal/services"
	"github.com/talent-hunters/bookportal/internal/store"
	"github.com/talent-hunters/bookportal/internal/store/memstore"
	"github.com/talent-hunters/bookportal/internal/store/mongostore"
)

// Repositories is one storage backend seen through the service interfaces.
type Repositories struct {
	Users   services.UserRepository
	Books   services.BookRepository
	Ledger  services.LedgerRepository
	Catalog services.CatalogRepository

	close func(context.Context) error
}

// Close releases the backend's connections.
func (r Repositories) Close(ctx context.Context) error {
	if r.close == nil {
		return nil
	}
	return r.close(ctx)
}

// OpenRepositories connects to the backend named by cfg.StoreBackend.
func OpenRepositories(ctx context.Context, cfg config.Config) (Repositories, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendPostgres:
		conn, err := db.Open(ctx, cfg)
		if err != nil {
			return Repositories{}, fmt.Errorf("open postgres: %w", err)
		}
		return Repositories{
			Users:   store.NewUserRepository(conn),
			Books:   store.NewBookRepository(conn),
			Ledger:  store.NewLedgerRepository(conn),
			Catalog: store.NewCatalogRepository(conn),
			close:   func(context.Context) error { return conn.Close() },
		}, nil
	case config.StoreBackendMongo:
		s, err := mongostore.Open(ctx, cfg.Mongo)
		if err != nil {
			return Repositories{}, fmt.Errorf("open mongo: %w", err)
		}
		if err := s.EnsureIndexes(ctx); err != nil {
			_ = s.Close(ctx)
			return Repositories{}, err
		}
		return Repositories{
			Users:   s.Users(),
			Books:   s.Books(),
			Ledger:  s.Ledger(),
			Catalog: s.Catalog(),
			close:   s.Close,
		}, nil
	case config.StoreBackendMemory:
		return MemoryRepositories(memstore.New()), nil
	default:
		return Repositories{}, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// MemoryRepositories exposes an in-process store. Data is lost on exit.
func MemoryRepositories(s *memstore.Store) Repositories {
	return Repositories{
		Users:   s.Users(),
		Books:   s.Books(),
		Ledger:  s.Ledger(),
		Catalog: s.Catalog(),
	}
}
