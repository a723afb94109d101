package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists session state in a local SQLite database, one row
// per conversation with the full session serialized as JSON.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

const sessionSchema = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    data TEXT NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
`

// NewSQLiteStore creates or opens the session database at the given path.
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating state directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging state database: %w", err)
	}
	if _, err := db.Exec(sessionSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running state migrations: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger.Named("sqlite-state")}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*SessionState, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM sessions WHERE id = ?`, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session %s: %w", id, err)
	}
	var st SessionState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", id, err)
	}
	return &st, nil
}

func (s *SQLiteStore) Put(ctx context.Context, st *SessionState) error {
	st.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", st.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		st.ID, string(raw), st.UpdatedAt)
	if err != nil {
		return fmt.Errorf("writing session %s: %w", st.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
