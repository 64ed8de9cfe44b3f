// Package sqlite provides a SQLite-backed identity.Store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/MrEthical07/tokenauth/identity"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS identities (
  subject      TEXT PRIMARY KEY,
  display_name TEXT NOT NULL,
  role         TEXT NOT NULL,
  provider     TEXT NOT NULL,
  provider_id  TEXT NOT NULL,
  picture      TEXT NOT NULL DEFAULT '',
  created_at   INTEGER NOT NULL,
  updated_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS identities_provider_idx ON identities (provider, provider_id);
`

// Store persists identities in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite identity store at path and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// FindBySubject loads one identity or returns identity.ErrNotFound.
func (s *Store) FindBySubject(ctx context.Context, subject string) (identity.Identity, error) {
	if err := ctx.Err(); err != nil {
		return identity.Identity{}, err
	}
	if s == nil || s.sqlDB == nil {
		return identity.Identity{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT subject, display_name, role, provider, provider_id, picture, created_at, updated_at
		 FROM identities WHERE subject = ?`,
		subject,
	)

	var (
		out       identity.Identity
		role      string
		provider  string
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(
		&out.Subject,
		&out.DisplayName,
		&role,
		&provider,
		&out.ProviderID,
		&out.Picture,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return identity.Identity{}, identity.ErrNotFound
		}
		return identity.Identity{}, fmt.Errorf("%w: %v", identity.ErrUnavailable, err)
	}
	out.Role = identity.Role(role)
	out.Provider = identity.Provider(provider)
	out.CreatedAt = fromMillis(createdAt)
	out.UpdatedAt = fromMillis(updatedAt)
	return out, nil
}

// Save inserts or replaces the identity keyed by subject. created_at is kept on update.
func (s *Store) Save(ctx context.Context, id identity.Identity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	subject := strings.TrimSpace(id.Subject)
	if subject == "" {
		return fmt.Errorf("subject is required")
	}
	if !id.Role.Valid() {
		return fmt.Errorf("invalid role %q", id.Role)
	}
	createdAt := id.CreatedAt
	updatedAt := id.UpdatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO identities (
		   subject,
		   display_name,
		   role,
		   provider,
		   provider_id,
		   picture,
		   created_at,
		   updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(subject) DO UPDATE SET
		   display_name = excluded.display_name,
		   role = excluded.role,
		   provider = excluded.provider,
		   provider_id = excluded.provider_id,
		   picture = excluded.picture,
		   updated_at = excluded.updated_at`,
		subject,
		id.DisplayName,
		string(id.Role),
		string(id.Provider),
		id.ProviderID,
		id.Picture,
		toMillis(createdAt),
		toMillis(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", identity.ErrUnavailable, err)
	}
	return nil
}
