package storage

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrClosed indicates use of a backend after Close.
var ErrClosed = errors.New("storage: backend closed")

const (
	// BackendSQLite stores entries in cache.db under the data directory.
	BackendSQLite = "sqlite"
	// BackendPebble stores entries in a Pebble LSM directory under the data directory.
	BackendPebble = "pebble"
	// BackendRedis stores entries in a Redis server.
	BackendRedis = "redis"
)

// Backend is a namespaced key/value cache plus a small local string map.
type Backend interface {
	Get(ctx context.Context, namespace, key string) ([]byte, bool, error)
	Set(ctx context.Context, namespace, key string, value []byte) error
	Remove(ctx context.Context, namespace, key string) error
	Keys(ctx context.Context, namespace string) ([]string, error)

	GetLocal(ctx context.Context, key string) (string, bool, error)
	SetLocal(ctx context.Context, key, value string) error

	Close() error
}

func validateNamespace(namespace string) error {
	if namespace == "" {
		return errors.New("namespace is required")
	}
	if strings.ContainsAny(namespace, "\x00") {
		return errors.New("namespace must not contain NUL")
	}
	return nil
}

func validateKey(key string) error {
	if key == "" {
		return errors.New("key is required")
	}
	return nil
}

func nowUnixMilli() int64 {
	return time.Now().UnixMilli()
}
