// Package tokenstore persists the bearer token of the command-line client in
// a SQLite database so a login survives between runs.
package tokenstore

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/eringen/retreat/state"
)

// DefaultProfile is the key used when no profile is named.
const DefaultProfile = "default"

// Store keeps one token per profile. A stored token is returned for
// state.TokenTTL after it was written and is treated as absent afterwards.
type Store struct {
	db      *sql.DB
	profile string
	now     func() time.Time
}

// Open opens (or creates) the database at path and ensures its schema.
// Tokens are read and written under profile.
func Open(path, profile string) (*Store, error) {
	if profile == "" {
		profile = DefaultProfile
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create token dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open token db: %w", err)
	}
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure token db: %w", err)
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, profile: profile, now: time.Now}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS tokens (
    profile TEXT PRIMARY KEY,
    token TEXT NOT NULL,
    expires_at INTEGER NOT NULL
);
`)
	return err
}

// Token returns the stored token, or "" if none is stored or it has expired.
// An expired row is removed.
func (s *Store) Token() (string, error) {
	var token string
	var expiresAt int64
	err := s.db.QueryRow(`SELECT token, expires_at FROM tokens WHERE profile = ?`, s.profile).
		Scan(&token, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	if s.now().Unix() >= expiresAt {
		if err := s.ClearToken(); err != nil {
			return "", err
		}
		return "", nil
	}
	return token, nil
}

// SetToken stores token, replacing any previous one.
func (s *Store) SetToken(token string) error {
	if token == "" {
		return s.ClearToken()
	}
	expiresAt := s.now().Add(state.TokenTTL).Unix()
	_, err := s.db.Exec(`
INSERT INTO tokens (profile, token, expires_at) VALUES (?, ?, ?)
ON CONFLICT(profile) DO UPDATE SET token = excluded.token, expires_at = excluded.expires_at
`, s.profile, token, expiresAt)
	if err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// ClearToken removes the stored token. It is not an error if none is stored.
func (s *Store) ClearToken() error {
	if _, err := s.db.Exec(`DELETE FROM tokens WHERE profile = ?`, s.profile); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// Profiles lists the profiles that currently hold an unexpired token.
func (s *Store) Profiles() ([]string, error) {
	rows, err := s.db.Query(`SELECT profile FROM tokens WHERE expires_at > ? ORDER BY profile`, s.now().Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

var _ state.TokenStore = (*Store)(nil)
