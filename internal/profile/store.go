package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Store persists user profiles keyed by user ID.
type Store interface {
	// Get returns the profile for userID, or (nil, nil) when none exists.
	Get(ctx context.Context, userID string) (*UserProfile, error)
	// Put saves the profile.
	Put(ctx context.Context, p *UserProfile) error
	Close() error
}

const profileSchema = `
CREATE TABLE IF NOT EXISTS profiles (
    user_id TEXT PRIMARY KEY,
    data TEXT NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

// SQLiteStore keeps profiles in a local SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore creates or opens the profile database at the given path.
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating profile directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening profile database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging profile database: %w", err)
	}
	if _, err := db.Exec(profileSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running profile migrations: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger.Named("profile-store")}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, userID string) (*UserProfile, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM profiles WHERE user_id = ?`, userID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading profile %s: %w", userID, err)
	}
	var p UserProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("decoding profile %s: %w", userID, err)
	}
	return &p, nil
}

func (s *SQLiteStore) Put(ctx context.Context, p *UserProfile) error {
	p.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding profile %s: %w", p.UserID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		p.UserID, string(raw), p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("writing profile %s: %w", p.UserID, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// MemoryStore keeps profiles in process memory, for tests and the memory
// state driver.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string][]byte
}

// NewMemoryStore creates an empty in-memory profile store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: map[string][]byte{}}
}

func (m *MemoryStore) Get(_ context.Context, userID string) (*UserProfile, error) {
	m.mu.RLock()
	raw, ok := m.profiles[userID]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	var p UserProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decoding profile %s: %w", userID, err)
	}
	return &p, nil
}

func (m *MemoryStore) Put(_ context.Context, p *UserProfile) error {
	p.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding profile %s: %w", p.UserID, err)
	}
	m.mu.Lock()
	m.profiles[p.UserID] = raw
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() error { return nil }
