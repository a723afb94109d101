package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/auglet/auglet/internal/config"
)

// Store persists session state keyed by conversation ID.
type Store interface {
	// Get returns the session for id, or (nil, nil) when none exists.
	Get(ctx context.Context, id string) (*SessionState, error)
	// Put saves the session, refreshing its TTL where the backend has one.
	Put(ctx context.Context, s *SessionState) error
	// Delete removes the session if present.
	Delete(ctx context.Context, id string) error
	Close() error
}

// NewStore builds a Store from configuration.
func NewStore(cfg config.StateConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Driver {
	case config.StateDriverMemory:
		return NewMemoryStore(), nil
	case config.StateDriverRedis:
		return NewRedisStore(cfg.RedisAddr, cfg.RedisDB, time.Duration(cfg.TTLHours)*time.Hour, logger)
	case config.StateDriverSQLite:
		return NewSQLiteStore(cfg.SQLitePath, logger)
	default:
		return nil, fmt.Errorf("unknown state driver %q", cfg.Driver)
	}
}

// MemoryStore keeps sessions in process memory. Sessions are deep-copied
// through JSON on both reads and writes so callers never share pointers
// with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string][]byte{}}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*SessionState, error) {
	m.mu.RLock()
	raw, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	var s SessionState
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", id, err)
	}
	return &s, nil
}

func (m *MemoryStore) Put(_ context.Context, s *SessionState) error {
	s.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", s.ID, err)
	}
	m.mu.Lock()
	m.sessions[s.ID] = raw
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() error { return nil }
