// Package ledger provides the public API for opening a dedup ledger.
// It exposes the factory function while keeping backend implementations
// internal.
package ledger

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/pinagent/internal/redisledger"
	"github.com/mesh-intelligence/pinagent/internal/sqlite"
	"github.com/mesh-intelligence/pinagent/pkg/types"
)

// Lister is implemented by backends that can enumerate their records.
type Lister interface {
	List(ctx context.Context, kind types.Kind, limit int) ([]types.Record, error)
}

// Open attaches the backend named by cfg.Backend and returns it as a Ledger.
// The caller must Close it.
//
// Example:
//
//	l, err := ledger.Open(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".pinagent-db",
//	})
//	defer l.Close()
func Open(cfg types.Config) (types.Ledger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case types.BackendSQLite:
		b := sqlite.NewBackend()
		if err := b.Attach(cfg); err != nil {
			return nil, fmt.Errorf("open sqlite ledger: %w", err)
		}
		return b, nil
	case types.BackendRedis:
		b := redisledger.NewBackend()
		if err := b.Attach(cfg); err != nil {
			return nil, fmt.Errorf("open redis ledger: %w", err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: %s", types.ErrBackendUnknown, cfg.Backend)
}
