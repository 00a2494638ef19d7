package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix scopes every key written by RedisStore.
const DefaultRedisKeyPrefix = "cryptchat"

// RedisStore is a Backend on a Redis server, for setups that share one cache
// between several client processes.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// OpenRedis connects to addr (host:port or a redis:// URL) and pings it.
func OpenRedis(ctx context.Context, addr, prefix string) (*RedisStore, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}

	opts := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisStore{client: client, prefix: prefix}, nil
}

// Namespaces cannot contain NUL, so the separator keeps one namespace's keys
// from falling under another namespace's prefix.
func (s *RedisStore) cacheKey(namespace, key string) string {
	return s.namespacePrefix(namespace) + key
}

func (s *RedisStore) namespacePrefix(namespace string) string {
	return s.prefix + ":cache:" + namespace + "\x00"
}

func (s *RedisStore) localKey(key string) string {
	return s.prefix + ":local:" + key
}

// Get returns the cached value for namespace/key.
func (s *RedisStore) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	if err := validateNamespace(namespace); err != nil {
		return nil, false, err
	}
	if err := validateKey(key); err != nil {
		return nil, false, err
	}

	value, err := s.client.Get(ctx, s.cacheKey(namespace, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get cache entry %q: %w", namespace+"/"+key, err)
	}
	return value, true, nil
}

// Set inserts or replaces the cached value for namespace/key.
func (s *RedisStore) Set(ctx context.Context, namespace, key string, value []byte) error {
	if err := validateNamespace(namespace); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}

	if err := s.client.Set(ctx, s.cacheKey(namespace, key), value, 0).Err(); err != nil {
		return fmt.Errorf("set cache entry %q: %w", namespace+"/"+key, err)
	}
	return nil
}

// Remove deletes namespace/key. Removing a missing entry is not an error.
func (s *RedisStore) Remove(ctx context.Context, namespace, key string) error {
	if err := validateNamespace(namespace); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}

	if err := s.client.Del(ctx, s.cacheKey(namespace, key)).Err(); err != nil {
		return fmt.Errorf("remove cache entry %q: %w", namespace+"/"+key, err)
	}
	return nil
}

// Keys lists every key in a namespace in lexical order.
func (s *RedisStore) Keys(ctx context.Context, namespace string) ([]string, error) {
	if err := validateNamespace(namespace); err != nil {
		return nil, err
	}

	prefix := s.namespacePrefix(namespace)
	keys := make([]string, 0)
	iter := s.client.Scan(ctx, 0, escapeGlob(prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		if key, ok := strings.CutPrefix(iter.Val(), prefix); ok {
			keys = append(keys, key)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list cache keys for %q: %w", namespace, err)
	}

	sort.Strings(keys)
	return keys, nil
}

// escapeGlob quotes the characters SCAN MATCH treats as pattern syntax.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// GetLocal reads a local state value.
func (s *RedisStore) GetLocal(ctx context.Context, key string) (string, bool, error) {
	if err := validateKey(key); err != nil {
		return "", false, err
	}

	value, err := s.client.Get(ctx, s.localKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get local state %q: %w", key, err)
	}
	return value, true, nil
}

// SetLocal writes a local state value.
func (s *RedisStore) SetLocal(ctx context.Context, key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	if err := s.client.Set(ctx, s.localKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("set local state %q: %w", key, err)
	}
	return nil
}

// Close closes the Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
