package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Get returns the cached value for namespace/key.
func (s *Store) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	if err := validateNamespace(namespace); err != nil {
		return nil, false, err
	}
	if err := validateKey(key); err != nil {
		return nil, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	db, err := s.handle()
	if err != nil {
		return nil, false, err
	}

	var value []byte
	err = db.QueryRowContext(ctx,
		`SELECT value FROM cache_entries WHERE namespace = ? AND cache_key = ?`,
		namespace,
		key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get cache entry %q: %w", namespace+"/"+key, err)
	}

	return value, true, nil
}

// Set inserts or replaces the cached value for namespace/key.
func (s *Store) Set(ctx context.Context, namespace, key string, value []byte) error {
	if err := validateNamespace(namespace); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}
	if value == nil {
		value = []byte{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	db, err := s.handle()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO cache_entries (namespace, cache_key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(namespace, cache_key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		namespace,
		key,
		value,
		nowUnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("set cache entry %q: %w", namespace+"/"+key, err)
	}

	return nil
}

// Remove deletes namespace/key. Removing a missing entry is not an error.
func (s *Store) Remove(ctx context.Context, namespace, key string) error {
	if err := validateNamespace(namespace); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	db, err := s.handle()
	if err != nil {
		return err
	}

	if _, err = db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE namespace = ? AND cache_key = ?`,
		namespace,
		key,
	); err != nil {
		return fmt.Errorf("remove cache entry %q: %w", namespace+"/"+key, err)
	}

	return nil
}

// Keys lists every key in a namespace in lexical order.
func (s *Store) Keys(ctx context.Context, namespace string) ([]string, error) {
	if err := validateNamespace(namespace); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT cache_key FROM cache_entries WHERE namespace = ? ORDER BY cache_key ASC`,
		namespace,
	)
	if err != nil {
		return nil, fmt.Errorf("list cache keys for %q: %w", namespace, err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan cache key row: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cache key rows: %w", err)
	}

	return keys, nil
}

// PruneOlderThan removes namespace entries not written since cutoffTimestamp.
func (s *Store) PruneOlderThan(ctx context.Context, namespace string, cutoffTimestamp int64) (int64, error) {
	if err := validateNamespace(namespace); err != nil {
		return 0, err
	}
	if cutoffTimestamp <= 0 {
		return 0, errors.New("cutoff timestamp must be > 0")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	db, err := s.handle()
	if err != nil {
		return 0, err
	}

	res, err := db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE namespace = ? AND updated_at < ?`,
		namespace,
		cutoffTimestamp,
	)
	if err != nil {
		return 0, fmt.Errorf("prune cache entries for %q: %w", namespace, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("read rows affected for cache prune: %w", err)
	}

	return rowsAffected, nil
}

// GetLocal reads a local state value.
func (s *Store) GetLocal(ctx context.Context, key string) (string, bool, error) {
	if err := validateKey(key); err != nil {
		return "", false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	db, err := s.handle()
	if err != nil {
		return "", false, err
	}

	var value string
	err = db.QueryRowContext(ctx,
		`SELECT value FROM local_state WHERE state_key = ?`,
		key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get local state %q: %w", key, err)
	}

	return value, true, nil
}

// SetLocal writes a local state value.
func (s *Store) SetLocal(ctx context.Context, key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	db, err := s.handle()
	if err != nil {
		return err
	}

	if _, err = db.ExecContext(ctx,
		`INSERT INTO local_state (state_key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(state_key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		key,
		value,
		nowUnixMilli(),
	); err != nil {
		return fmt.Errorf("set local state %q: %w", key, err)
	}

	return nil
}
