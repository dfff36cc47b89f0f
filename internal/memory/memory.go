// Package memory persists the ledger of notified opportunities.
//
// The ledger is append-only across cycles: the orchestrator loads it at cycle
// start for dedup, and after a notified cycle saves the full list with exactly
// one new entry. Save always overwrites durable state atomically.
package memory

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/deal-scout/internal/model"
)

// ErrCorruptState marks durable state that could not be decoded. Load
// returns it alongside an empty list so callers can recover by re-discovery.
var ErrCorruptState = eris.New("memory: corrupt state")

// ErrPersistence marks a failed write. Prior durable state is left intact.
var ErrPersistence = eris.New("memory: persistence failure")

// Store is the persistence interface for the opportunity ledger.
type Store interface {
	// Load reads durable state. A missing store is not an error: it returns
	// an empty list. Corrupt state returns an empty list plus an error
	// wrapping ErrCorruptState; the caller logs it and proceeds.
	Load(ctx context.Context) ([]model.Opportunity, error)

	// Save atomically overwrites durable state with the given list. On
	// failure it returns an error wrapping ErrPersistence and leaves the
	// previous state untouched.
	Save(ctx context.Context, opportunities []model.Opportunity) error

	// Reset truncates state to the first keep entries by insertion order.
	// Debug/test operation, not part of the production cycle.
	Reset(ctx context.Context, keep int) error

	Close() error
}

// Open creates a Store for the configured driver: "file", "sqlite", or
// "postgres".
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "", "file":
		return NewFile(dsn), nil
	case "sqlite":
		return NewSQLite(ctx, dsn)
	case "postgres":
		return NewPostgres(ctx, dsn)
	default:
		return nil, eris.Errorf("memory: unknown store driver %q", driver)
	}
}

// checkUnique enforces the ledger invariant that no two entries share a URL.
func checkUnique(opportunities []model.Opportunity) error {
	seen := make(map[string]struct{}, len(opportunities))
	for _, opp := range opportunities {
		if _, dup := seen[opp.Deal.URL]; dup {
			return eris.Errorf("memory: duplicate url %s", opp.Deal.URL)
		}
		seen[opp.Deal.URL] = struct{}{}
	}
	return nil
}
