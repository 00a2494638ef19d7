package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/pebble"
)

// DefaultPebbleDirName is the Pebble directory under app data dir.
const DefaultPebbleDirName = "cache.pebble"

// Key layout:
//   c\x00<namespace>\x00<key>  cache entries
//   l\x00<key>                 local state
const (
	pebbleCachePrefix = "c\x00"
	pebbleLocalPrefix = "l\x00"
)

// PebbleStore is a Backend on a local Pebble LSM.
type PebbleStore struct {
	mu sync.RWMutex
	db *pebble.DB
}

// OpenPebble opens (or creates) the Pebble cache under dataDir.
func OpenPebble(dataDir string) (*PebbleStore, string, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, "", fmt.Errorf("create storage directory: %w", err)
	}

	dir := filepath.Join(dataDir, DefaultPebbleDirName)
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, "", fmt.Errorf("open pebble database: %w", err)
	}
	log.Printf("storage: pebble cache opened path=%s", dir)

	return &PebbleStore{db: db}, dir, nil
}

func pebbleCacheKey(namespace, key string) []byte {
	return []byte(pebbleCachePrefix + namespace + "\x00" + key)
}

func pebbleNamespacePrefix(namespace string) []byte {
	return []byte(pebbleCachePrefix + namespace + "\x00")
}

// prefixUpperBound returns the smallest key greater than every key with prefix.
func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

func (s *PebbleStore) handle() (*pebble.DB, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	return s.db, nil
}

func (s *PebbleStore) get(raw []byte) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.handle()
	if err != nil {
		return nil, false, err
	}

	value, closer, err := db.Get(raw)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer closer.Close()

	return append([]byte(nil), value...), true, nil
}

func (s *PebbleStore) set(raw, value []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.handle()
	if err != nil {
		return err
	}
	return db.Set(raw, value, pebble.Sync)
}

// Get returns the cached value for namespace/key.
func (s *PebbleStore) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	if err := validateNamespace(namespace); err != nil {
		return nil, false, err
	}
	if err := validateKey(key); err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	value, ok, err := s.get(pebbleCacheKey(namespace, key))
	if err != nil {
		return nil, false, fmt.Errorf("get cache entry %q: %w", namespace+"/"+key, err)
	}
	return value, ok, nil
}

// Set inserts or replaces the cached value for namespace/key.
func (s *PebbleStore) Set(ctx context.Context, namespace, key string, value []byte) error {
	if err := validateNamespace(namespace); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.set(pebbleCacheKey(namespace, key), value); err != nil {
		return fmt.Errorf("set cache entry %q: %w", namespace+"/"+key, err)
	}
	return nil
}

// Remove deletes namespace/key. Removing a missing entry is not an error.
func (s *PebbleStore) Remove(ctx context.Context, namespace, key string) error {
	if err := validateNamespace(namespace); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.handle()
	if err != nil {
		return err
	}
	if err := db.Delete(pebbleCacheKey(namespace, key), pebble.Sync); err != nil {
		return fmt.Errorf("remove cache entry %q: %w", namespace+"/"+key, err)
	}
	return nil
}

// Keys lists every key in a namespace in lexical order.
func (s *PebbleStore) Keys(ctx context.Context, namespace string) ([]string, error) {
	if err := validateNamespace(namespace); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	prefix := pebbleNamespacePrefix(namespace)
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("list cache keys for %q: %w", namespace, err)
	}
	defer iter.Close()

	keys := make([]string, 0)
	for iter.First(); iter.Valid(); iter.Next() {
		keys = append(keys, string(iter.Key()[len(prefix):]))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterate cache keys for %q: %w", namespace, err)
	}

	return keys, nil
}

// GetLocal reads a local state value.
func (s *PebbleStore) GetLocal(ctx context.Context, key string) (string, bool, error) {
	if err := validateKey(key); err != nil {
		return "", false, err
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	value, ok, err := s.get([]byte(pebbleLocalPrefix + key))
	if err != nil {
		return "", false, fmt.Errorf("get local state %q: %w", key, err)
	}
	return string(value), ok, nil
}

// SetLocal writes a local state value.
func (s *PebbleStore) SetLocal(ctx context.Context, key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.set([]byte(pebbleLocalPrefix+key), []byte(value)); err != nil {
		return fmt.Errorf("set local state %q: %w", key, err)
	}
	return nil
}

// Close flushes and closes the Pebble database.
func (s *PebbleStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
