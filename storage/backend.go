package storage

import (
	"context"
	"fmt"
)

// BackendOptions selects and configures a cache backend.
type BackendOptions struct {
	Kind           string
	DataDir        string
	RedisAddr      string
	RedisKeyPrefix string
}

// OpenBackend opens the configured backend and returns it with a location
// description for startup output.
func OpenBackend(ctx context.Context, opts BackendOptions) (Backend, string, error) {
	switch opts.Kind {
	case "", BackendSQLite:
		store, path, err := Open(opts.DataDir)
		if err != nil {
			return nil, "", err
		}
		return store, path, nil
	case BackendPebble:
		store, path, err := OpenPebble(opts.DataDir)
		if err != nil {
			return nil, "", err
		}
		return store, path, nil
	case BackendRedis:
		store, err := OpenRedis(ctx, opts.RedisAddr, opts.RedisKeyPrefix)
		if err != nil {
			return nil, "", err
		}
		return store, opts.RedisAddr, nil
	default:
		return nil, "", fmt.Errorf("unknown cache backend %q", opts.Kind)
	}
}
