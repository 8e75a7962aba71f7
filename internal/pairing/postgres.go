package pairing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresStore reads device-pair records from the account backend's
// `device_pairs` table.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres opens and pings a Postgres connection for pairing lookups.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Lookup(ctx context.Context, pairID string) (Record, error) {
	var rec Record
	err := s.db.QueryRowContext(ctx,
		`SELECT id, status, user_id FROM device_pairs WHERE id = $1`,
		pairID,
	).Scan(&rec.ID, &rec.Status, &rec.OwnerUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("query device_pairs: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
