// Package cache memoizes engine completions so repeated descriptions skip the model call.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/flowchart-backend/internal/config"
	"github.com/yungbote/flowchart-backend/internal/platform/logger"
)

const (
	defaultSize      = 512
	defaultTTL       = 24 * time.Hour
	defaultKeyPrefix = "flowchart:completion:"
)

type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// New returns nil when caching is disabled.
func New(ctx context.Context, log *logger.Logger, cfg config.CacheConfig) (Backend, error) {
	ttl := cfg.TTL.Duration
	if ttl <= 0 {
		ttl = defaultTTL
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Mode)) {
	case "", "none", "off":
		return nil, nil
	case "memory":
		size := cfg.Size
		if size <= 0 {
			size = defaultSize
		}
		log.Info("completion cache initialized", "mode", "memory", "size", size, "ttl", ttl.String())
		return NewMemory(size, ttl), nil
	case "redis":
		b, err := NewRedis(ctx, cfg.RedisAddr, cfg.KeyPrefix, ttl)
		if err != nil {
			return nil, err
		}
		log.Info("completion cache initialized", "mode", "redis", "addr", cfg.RedisAddr, "ttl", ttl.String())
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported cache mode %q", cfg.Mode)
	}
}

type Memory struct {
	lru *lru.LRU[string, []byte]
}

func NewMemory(size int, ttl time.Duration) *Memory {
	return &Memory{lru: lru.NewLRU[string, []byte](size, nil, ttl)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.lru.Get(key)
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.lru.Add(key, value)
	return nil
}

func (m *Memory) Len() int { return m.lru.Len() }

func (m *Memory) Close() error {
	m.lru.Purge()
	return nil
}

type Redis struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis(ctx context.Context, addr, prefix string, ttl time.Duration) (*Redis, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{rdb: rdb, prefix: prefix, ttl: ttl}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	return r.rdb.Set(ctx, r.prefix+key, value, r.ttl).Err()
}

func (r *Redis) Close() error { return r.rdb.Close() }
