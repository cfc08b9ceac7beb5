package identity

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS client_identity (
	profile    TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (profile, key)
);`

// PostgresBackend stores identities in a shared database, one row set per
// profile. Used when many bot clients run from one host.
type PostgresBackend struct {
	pool    *pgxpool.Pool
	profile string
}

// OpenPostgres connects and ensures the client_identity table exists.
func OpenPostgres(ctx context.Context, databaseURL, profile string) (*PostgresBackend, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, err
	}
	slog.Info("connected to Postgres", "tag", "identity", "profile", profile)
	return &PostgresBackend{pool: pool, profile: profile}, nil
}

func (b *PostgresBackend) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := b.pool.QueryRow(ctx, `SELECT value FROM client_identity WHERE profile = $1 AND key = $2`, b.profile, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (b *PostgresBackend) Put(ctx context.Context, key, value string) error {
	_, err := b.pool.Exec(ctx, `
		INSERT INTO client_identity (profile, key, value) VALUES ($1, $2, $3)
		ON CONFLICT (profile, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		b.profile, key, value)
	return err
}

func (b *PostgresBackend) Delete(ctx context.Context, key string) error {
	_, err := b.pool.Exec(ctx, `DELETE FROM client_identity WHERE profile = $1 AND key = $2`, b.profile, key)
	return err
}

func (b *PostgresBackend) Close() error {
	b.pool.Close()
	return nil
}
