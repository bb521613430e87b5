package matchsession

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cupidlabs/cupid-backend/internal/logger"
	"github.com/cupidlabs/cupid-backend/internal/types"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "matchsession:"

// RedisStore is the Store implementation for multi-process deployments.
// GETDEL gives the consume-once guarantee; entries expire after ttl in case
// the chat flow never picks them up.
type RedisStore struct {
	rdb *goredis.Client
	ttl time.Duration
	log *logger.Logger
}

func NewRedisStore(addr string, ttl time.Duration, log *logger.Logger) (*RedisStore, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisStore{
		rdb: rdb,
		ttl: ttl,
		log: log.With("service", "RedisMatchSessionStore"),
	}, nil
}

func (s *RedisStore) Store(ctx context.Context, selection *types.MatchSelection) (string, error) {
	raw, err := json.Marshal(selection)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	if err := s.rdb.Set(ctx, redisKeyPrefix+id, raw, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("redis set: %w", err)
	}
	return id, nil
}

func (s *RedisStore) Consume(ctx context.Context, sessionID string) (*types.MatchSelection, error) {
	raw, err := s.rdb.GetDel(ctx, redisKeyPrefix+sessionID).Result()
	if err == goredis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis getdel: %w", err)
	}
	var selection types.MatchSelection
	if err := json.Unmarshal([]byte(raw), &selection); err != nil {
		s.log.Warn("discarding undecodable match session", "session_id", sessionID, "error", err)
		return nil, ErrNotFound
	}
	return &selection, nil
}

func (s *RedisStore) Close() error { return s.rdb.Close() }
