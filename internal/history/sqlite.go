package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/JonMunkholm/fichas/internal/core"
)

const sqliteSchema = `
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
	duplicates  TEXT NOT NULL DEFAULT '[]',
	ip_address  TEXT NOT NULL DEFAULT '',
	user_agent  TEXT NOT NULL DEFAULT '',
	duration_ns INTEGER NOT NULL DEFAULT 0,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversions_created_at ON conversions (created_at);
`

// SQLiteStore persists conversions in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_journal_mode=WAL&_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Record inserts c.
func (s *SQLiteStore) Record(ctx context.Context, c core.Conversion) error {
	dups, err := json.Marshal(nonNil(c.Duplicates))
	if err != nil {
		return fmt.Errorf("encoding duplicates: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversions (
			id, source_name, output_name, encoding, records, ignored, replaced,
			min_mfn, max_mfn, duplicates, ip_address, user_agent,
			duration_ns, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.SourceName, c.OutputName, string(c.Encoding), c.Records, c.Ignored, c.Replaced,
		c.MinMFN, c.MaxMFN, string(dups), c.IPAddress, c.UserAgent,
		int64(c.Duration), c.CreatedAt.UTC().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("inserting conversion %s: %w", c.ID, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]core.Conversion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_name, output_name, encoding, records, ignored, replaced,
		       min_mfn, max_mfn, duplicates, ip_address, user_agent,
		       duration_ns, created_at
		FROM conversions
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying conversions: %w", err)
	}
	defer rows.Close()

	var out []core.Conversion
	for rows.Next() {
		var (
			c         core.Conversion
			enc, dups string
			durNS     int64
			createdNS int64
		)
		if err := rows.Scan(
			&c.ID, &c.SourceName, &c.OutputName, &enc, &c.Records, &c.Ignored, &c.Replaced,
			&c.MinMFN, &c.MaxMFN, &dups, &c.IPAddress, &c.UserAgent,
			&durNS, &createdNS,
		); err != nil {
			return nil, fmt.Errorf("scanning conversion: %w", err)
		}
		if err := json.Unmarshal([]byte(dups), &c.Duplicates); err != nil {
			return nil, fmt.Errorf("decoding duplicates of %s: %w", c.ID, err)
		}
		if len(c.Duplicates) == 0 {
			c.Duplicates = nil
		}
		c.Encoding = core.Encoding(enc)
		c.Duration = core.Duration(durNS)
		c.CreatedAt = time.Unix(0, createdNS).UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

// Prune deletes entries created before the cutoff.
func (s *SQLiteStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversions WHERE created_at < ?`, before.UTC().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("pruning conversions: %w", err)
	}
	return res.RowsAffected()
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
