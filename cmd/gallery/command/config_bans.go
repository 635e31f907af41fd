package command

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-gallery/internal/bans"
	"github.com/redis/go-redis/v9"
)

const redisConnectTimeout = 5 * time.Second

type BanBackend int

const (
	BanBackendMemory BanBackend = iota
	BanBackendFile
	BanBackendRedis
)

func (b *BanBackend) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "memory":
		*b = BanBackendMemory
	case "file":
		*b = BanBackendFile
	case "redis":
		*b = BanBackendRedis
	default:
		return fmt.Errorf("unknown ban backend: %s", text)
	}
	return nil
}

type RedisConfig struct {
	Addr      string `json:"addr"`
	Password  string `json:"password"`
	DB        int    `json:"db"`
	KeyPrefix string `json:"key_prefix"`
}

type BanConfig struct {
	Backend BanBackend  `json:"backend"`
	Path    string      `json:"path"`
	Redis   RedisConfig `json:"redis"`
}

func (c *BanConfig) validate() error {
	el := errors.NewErrorList()

	switch c.Backend {
	case BanBackendFile:
		if c.Path == "" {
			el.Add(fmt.Errorf("bans: path is required for the file backend"))
		}
	case BanBackendRedis:
		if c.Redis.Addr == "" {
			el.Add(fmt.Errorf("bans: redis.addr is required for the redis backend"))
		}
		if c.Redis.DB < 0 {
			el.Add(fmt.Errorf("bans: redis.db cannot be negative"))
		}
	}

	return el.Err()
}

func (c *BanConfig) buildStore(ctx context.Context) (bans.Store, error) {
	switch c.Backend {
	case BanBackendMemory:
		return bans.NewMemoryStore(), nil

	case BanBackendFile:
		s, err := bans.NewFileStore(c.Path)
		if err != nil {
			return nil, err
		}
		n, err := s.Prune(ctx)
		if err != nil {
			return nil, fmt.Errorf("pruning expired bans: %w", err)
		}
		if n > 0 {
			slog.InfoContext(ctx, "pruned expired bans", "count", n)
		}
		return s, nil

	case BanBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, redisConnectTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connecting to redis at %s: %w", c.Redis.Addr, err)
		}

		var opts []bans.RedisOpt
		if c.Redis.KeyPrefix != "" {
			opts = append(opts, bans.WithKeyPrefix(c.Redis.KeyPrefix))
		}
		return bans.NewRedisStore(client, opts...), nil

	default:
		return nil, fmt.Errorf("unknown ban backend: %v", c.Backend)
	}
}
