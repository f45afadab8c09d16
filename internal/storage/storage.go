// Package storage selects and wires the persistence backend for the broker
// and the device-binding ledger.
package storage

import (
	"database/sql"
	"fmt"

	"github.com/pff-protocol/presence-core/internal/authreq"
	"github.com/pff-protocol/presence-core/internal/binding"
	"github.com/pff-protocol/presence-core/internal/config"
	"go.uber.org/fx"
)

// Stores bundles the backend-specific store implementations.
type Stores struct {
	Requests authreq.Store
	Bindings binding.Store

	db *sql.DB
}

// New builds the stores for the configured backend.
func New(cfg *config.Config) (Stores, error) {
	switch cfg.Storage.Backend {
	case config.StorageBackendMemory:
		return Stores{
			Requests: authreq.NewMemoryStore(),
			Bindings: binding.NewMemoryStore(),
		}, nil
	case config.StorageBackendSQLite:
		db, err := authreq.OpenDB(cfg.Storage.Path)
		if err != nil {
			return Stores{}, err
		}
		requests, err := authreq.NewSQLiteStore(db)
		if err != nil {
			db.Close()
			return Stores{}, err
		}
		bindings, err := binding.NewSQLiteStore(db)
		if err != nil {
			db.Close()
			return Stores{}, err
		}
		return Stores{Requests: requests, Bindings: bindings, db: db}, nil
	default:
		return Stores{}, fmt.Errorf("unknown storage backend: %q", cfg.Storage.Backend)
	}
}

// Close releases the underlying database, if any.
func (s Stores) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Module provides the storage dependencies
var Module = fx.Module("storage",
	fx.Provide(
		New,
		func(s Stores) authreq.Store { return s.Requests },
		func(s Stores) binding.Store { return s.Bindings },
	),
)
