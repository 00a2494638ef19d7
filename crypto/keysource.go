package crypto

import (
	"context"
	"crypto/ecdh"
	"sync"
)

// FileKeySource serves the local X25519 private key from a PEM file, reading it once.
type FileKeySource struct {
	Path string

	once sync.Once
	key  *ecdh.PrivateKey
	err  error
}

// PrivateKey returns the decryption key, loading it on first use.
func (s *FileKeySource) PrivateKey(ctx context.Context) (*ecdh.PrivateKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.once.Do(func() {
		s.key, s.err = LoadX25519PrivateKey(s.Path)
	})
	return s.key, s.err
}

// StaticKeySource serves an in-memory key.
type StaticKeySource struct {
	Key *ecdh.PrivateKey
}

// PrivateKey returns the configured key.
func (s StaticKeySource) PrivateKey(ctx context.Context) (*ecdh.PrivateKey, error) {
	return s.Key, ctx.Err()
}
