package memory

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"

	"github.com/sells-group/deal-scout/internal/model"
)

// PgxConn is the subset of pgx.Conn the store uses; pgxmock satisfies it.
type PgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close(ctx context.Context) error
}

// PostgresStore persists the ledger in Postgres.
type PostgresStore struct {
	conn PgxConn
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS opportunities (
	position            BIGSERIAL PRIMARY KEY,
	url                 TEXT NOT NULL UNIQUE,
	product_description TEXT NOT NULL,
	price               DOUBLE PRECISION NOT NULL,
	estimate            DOUBLE PRECISION NOT NULL,
	discount            DOUBLE PRECISION NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// NewPostgres connects to the database at the given DSN and applies the
// schema.
func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, eris.Wrap(err, "memory: connect postgres")
	}
	s := &PostgresStore{conn: conn}
	if _, err := conn.Exec(ctx, postgresSchema); err != nil {
		conn.Close(ctx)
		return nil, eris.Wrap(err, "memory: apply postgres schema")
	}
	return s, nil
}

// NewPostgresWithConn wraps an existing connection. Used by tests with pgxmock.
func NewPostgresWithConn(conn PgxConn) *PostgresStore {
	return &PostgresStore{conn: conn}
}

func (s *PostgresStore) Load(ctx context.Context) ([]model.Opportunity, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT product_description, price, url, estimate, discount
		 FROM opportunities ORDER BY position`,
	)
	if err != nil {
		return []model.Opportunity{}, eris.Wrapf(ErrCorruptState, "postgres query: %v", err)
	}
	defer rows.Close()

	opportunities := []model.Opportunity{}
	for rows.Next() {
		var opp model.Opportunity
		if err := rows.Scan(
			&opp.Deal.ProductDescription, &opp.Deal.Price, &opp.Deal.URL,
			&opp.Estimate, &opp.Discount,
		); err != nil {
			return []model.Opportunity{}, eris.Wrapf(ErrCorruptState, "postgres scan: %v", err)
		}
		opportunities = append(opportunities, opp)
	}
	if err := rows.Err(); err != nil {
		return []model.Opportunity{}, eris.Wrapf(ErrCorruptState, "postgres iterate: %v", err)
	}
	return opportunities, nil
}

func (s *PostgresStore) Save(ctx context.Context, opportunities []model.Opportunity) error {
	if err := checkUnique(opportunities); err != nil {
		return eris.Wrap(ErrPersistence, err.Error())
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return eris.Wrapf(ErrPersistence, "postgres begin: %v", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM opportunities`); err != nil {
		return eris.Wrapf(ErrPersistence, "postgres clear: %v", err)
	}

	for _, opp := range opportunities {
		if _, err := tx.Exec(ctx,
			`INSERT INTO opportunities (url, product_description, price, estimate, discount)
			 VALUES ($1, $2, $3, $4, $5)`,
			opp.Deal.URL, opp.Deal.ProductDescription, opp.Deal.Price,
			opp.Estimate, opp.Discount,
		); err != nil {
			return eris.Wrapf(ErrPersistence, "postgres insert %s: %v", opp.Deal.URL, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrapf(ErrPersistence, "postgres commit: %v", err)
	}
	return nil
}

func (s *PostgresStore) Reset(ctx context.Context, keep int) error {
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

func (s *PostgresStore) Close() error {
	return s.conn.Close(context.Background())
}
