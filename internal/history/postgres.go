package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/fichas/internal/core"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS conversions (
	id          TEXT PRIMARY KEY,
	source_name TEXT NOT NULL,
	output_name TEXT NOT NULL,
	encoding    TEXT NOT NULL,
	records     INTEGER NOT NULL,
	ignored     INTEGER NOT NULL DEFAULT 0,
	replaced    INTEGER NOT NULL DEFAULT 0,
	min_mfn     TEXT NOT NULL,
	max_mfn     TEXT NOT NULL,
	duplicates  TEXT[] NOT NULL DEFAULT '{}',
	ip_address  TEXT NOT NULL DEFAULT '',
	user_agent  TEXT NOT NULL DEFAULT '',
	duration_ns BIGINT NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversions_created_at ON conversions (created_at DESC);
`

// PostgresStore persists conversions in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn, verifies the connection and applies the
// schema.
func OpenPostgres(ctx context.Context, dsn string, maxConns int) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse history database URL: %w", err)
	}
	if maxConns > 0 {
		poolConfig.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect history database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping history database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Record inserts c.
func (p *PostgresStore) Record(ctx context.Context, c core.Conversion) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO conversions (
			id, source_name, output_name, encoding, records, ignored, replaced,
			min_mfn, max_mfn, duplicates, ip_address, user_agent,
			duration_ns, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		c.ID, c.SourceName, c.OutputName, string(c.Encoding), c.Records, c.Ignored, c.Replaced,
		c.MinMFN, c.MaxMFN, nonNil(c.Duplicates), c.IPAddress, c.UserAgent,
		int64(c.Duration), c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert conversion %s: %w", c.ID, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (p *PostgresStore) Recent(ctx context.Context, limit int) ([]core.Conversion, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, source_name, output_name, encoding, records, ignored, replaced,
		       min_mfn, max_mfn, duplicates, ip_address, user_agent,
		       duration_ns, created_at
		FROM conversions
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query conversions: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Conversion, error) {
		var (
			c     core.Conversion
			enc   string
			durNS int64
		)
		err := row.Scan(
			&c.ID, &c.SourceName, &c.OutputName, &enc, &c.Records, &c.Ignored, &c.Replaced,
			&c.MinMFN, &c.MaxMFN, &c.Duplicates, &c.IPAddress, &c.UserAgent,
			&durNS, &c.CreatedAt,
		)
		if len(c.Duplicates) == 0 {
			c.Duplicates = nil
		}
		c.Encoding = core.Encoding(enc)
		c.Duration = core.Duration(durNS)
		return c, err
	})
}

// Prune deletes entries created before the cutoff.
func (p *PostgresStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM conversions WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("prune conversions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Close releases the pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}
