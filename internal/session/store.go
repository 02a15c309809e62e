package session

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/karpella/ec2console/internal/auth"
)

// Store persists at most one session across process restarts. The
// backing file is a single-row SQLite database so that concurrent
// invocations never observe a partially written session.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

const storeSchema = `
CREATE TABLE IF NOT EXISTS session (
	id            INTEGER PRIMARY KEY CHECK (id = 1),
	id_token      TEXT NOT NULL,
	access_token  TEXT NOT NULL,
	refresh_token TEXT NOT NULL,
	expires_at    INTEGER NOT NULL
);`

// DefaultStorePath returns ~/.config/ec2console/session.db, creating
// the directory with owner-only permissions.
func DefaultStorePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	dir := filepath.Join(home, ".config", "ec2console")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	return filepath.Join(dir, "session.db"), nil
}

// OpenStore opens or creates the session database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}
	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing session store: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the persisted session, or nil when there is none.
// Expired and malformed rows are purged rather than returned.
func (s *Store) Load() (*auth.Session, error) {
	row := s.db.QueryRow(`SELECT id_token, access_token, refresh_token, expires_at FROM session WHERE id = 1`)

	var sess auth.Session
	var expires int64
	err := row.Scan(&sess.IDToken, &sess.AccessToken, &sess.RefreshToken, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		if clearErr := s.Clear(); clearErr != nil {
			return nil, fmt.Errorf("purging unreadable session: %w", clearErr)
		}
		return nil, nil
	}
	sess.ExpiresAt = time.Unix(expires, 0).UTC()

	if sess.IDToken == "" || !sess.Valid(s.now()) {
		if err := s.Clear(); err != nil {
			return nil, fmt.Errorf("purging expired session: %w", err)
		}
		return nil, nil
	}
	return &sess, nil
}

// Save replaces the stored session in one transaction.
func (s *Store) Save(sess *auth.Session) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO session (id, id_token, access_token, refresh_token, expires_at) VALUES (1, ?, ?, ?, ?)`,
		sess.IDToken, sess.AccessToken, sess.RefreshToken, sess.ExpiresAt.Unix(),
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("saving session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Clear removes the stored session. Clearing an empty store is a no-op.
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM session`); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}
