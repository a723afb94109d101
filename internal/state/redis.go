package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const sessionKeyPrefix = "session:"

// RedisStore keeps session state as JSON blobs in Redis, one key per
// conversation, expiring after the configured TTL. Reads refresh the TTL
// so active conversations never expire mid-flight.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr string, db int, ttl time.Duration, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl, logger: logger.Named("redis-state")}, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*SessionState, error) {
	key := sessionKeyPrefix + id
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session %s: %w", id, err)
	}
	var st SessionState
	if err := json.Unmarshal([]byte(val), &st); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", id, err)
	}
	if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
		s.logger.Warn("failed to refresh session ttl", zap.String("session", id), zap.Error(err))
	}
	return &st, nil
}

func (s *RedisStore) Put(ctx context.Context, st *SessionState) error {
	st.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", st.ID, err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+st.ID, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("writing session %s: %w", st.ID, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, sessionKeyPrefix+id).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
