package bans

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultKeyPrefix = "gallery:ban:"

// RedisClient is the subset of the go-redis client used by RedisStore.
type RedisClient interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore shares bans between server processes. Temporary bans expire
// through the key TTL.
type RedisStore struct {
	client    RedisClient
	keyPrefix string
	clock     func() time.Time
}

type RedisOpt func(*RedisStore)

func WithKeyPrefix(prefix string) RedisOpt {
	return func(s *RedisStore) {
		s.keyPrefix = prefix
	}
}

func NewRedisStore(client RedisClient, opts ...RedisOpt) *RedisStore {
	s := &RedisStore{
		client:    client,
		keyPrefix: DefaultKeyPrefix,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(username string) string {
	return s.keyPrefix + Key(username)
}

func (s *RedisStore) Ban(ctx context.Context, username string, d time.Duration, reason string) error {
	b := newBan(username, d, reason, s.clock())
	if err := b.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshalling ban: %w", err)
	}

	// A zero expiration keeps the key forever.
	if err := s.client.Set(ctx, s.key(username), data, d).Err(); err != nil {
		return fmt.Errorf("storing ban: %w", err)
	}
	return nil
}

func (s *RedisStore) IsBanned(ctx context.Context, username string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(username)).Result()
	if err != nil {
		return false, fmt.Errorf("checking ban: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) Unban(ctx context.Context, username string) error {
	if err := s.client.Del(ctx, s.key(username)).Err(); err != nil {
		return fmt.Errorf("removing ban: %w", err)
	}
	return nil
}
