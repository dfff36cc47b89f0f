package memory

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/deal-scout/internal/model"
)

// SQLiteStore persists the ledger in a SQLite database using
// modernc.org/sqlite (pure Go, no CGo).
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS opportunities (
	position            INTEGER PRIMARY KEY AUTOINCREMENT,
	url                 TEXT NOT NULL UNIQUE,
	product_description TEXT NOT NULL,
	price               REAL NOT NULL,
	estimate            REAL NOT NULL,
	discount            REAL NOT NULL,
	created_at          DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

// NewSQLite opens (or creates) the database at the given DSN and applies the
// schema.
func NewSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrapf(err, "memory: open sqlite %q", dsn)
	}
	// Single writer; the orchestrator runs at most one cycle at a time.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "memory: exec %s", pragma)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "memory: apply sqlite schema")
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) ([]model.Opportunity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT product_description, price, url, estimate, discount
		 FROM opportunities ORDER BY position`,
	)
	if err != nil {
		return []model.Opportunity{}, eris.Wrapf(ErrCorruptState, "sqlite query: %v", err)
	}
	defer rows.Close()

	opportunities := []model.Opportunity{}
	for rows.Next() {
		var opp model.Opportunity
		if err := rows.Scan(
			&opp.Deal.ProductDescription, &opp.Deal.Price, &opp.Deal.URL,
			&opp.Estimate, &opp.Discount,
		); err != nil {
			return []model.Opportunity{}, eris.Wrapf(ErrCorruptState, "sqlite scan: %v", err)
		}
		opportunities = append(opportunities, opp)
	}
	if err := rows.Err(); err != nil {
		return []model.Opportunity{}, eris.Wrapf(ErrCorruptState, "sqlite iterate: %v", err)
	}
	return opportunities, nil
}

func (s *SQLiteStore) Save(ctx context.Context, opportunities []model.Opportunity) error {
	if err := checkUnique(opportunities); err != nil {
		return eris.Wrap(ErrPersistence, err.Error())
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrapf(ErrPersistence, "sqlite begin: %v", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM opportunities`); err != nil {
		return eris.Wrapf(ErrPersistence, "sqlite clear: %v", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO opportunities (url, product_description, price, estimate, discount)
		 VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrapf(ErrPersistence, "sqlite prepare: %v", err)
	}
	defer stmt.Close()

	for _, opp := range opportunities {
		if _, err := stmt.ExecContext(ctx,
			opp.Deal.URL, opp.Deal.ProductDescription, opp.Deal.Price,
			opp.Estimate, opp.Discount,
		); err != nil {
			return eris.Wrapf(ErrPersistence, "sqlite insert %s: %v", opp.Deal.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrapf(ErrPersistence, "sqlite commit: %v", err)
	}
	return nil
}

func (s *SQLiteStore) Reset(ctx context.Context, keep int) error {
	if keep < 0 {
		keep = 0
	}
	opportunities, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if keep < len(opportunities) {
		opportunities = opportunities[:keep]
	}
	return s.Save(ctx, opportunities)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
