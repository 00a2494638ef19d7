package cmd

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"log"

	"cryptchat/api"
	"cryptchat/chat"
	"cryptchat/config"
	"cryptchat/crypto"
	"cryptchat/storage"
)

// app is the wired client used by the data commands.
type app struct {
	cfg      *config.ClientConfig
	dataDir  string
	cacheAt  string
	backend  storage.Backend
	pipeline *chat.Pipeline
	cipher   *crypto.ConversationCipher

	fingerprint string
}

func openApp(ctx context.Context) (*app, error) {
	cfg, dataDir, err := config.LoadOrCreate()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	signingKey, err := crypto.EnsureSigningKey(cfg.SigningKeyPath)
	if err != nil {
		return nil, fmt.Errorf("prepare signing key: %w", err)
	}
	if _, err := crypto.EnsureX25519PrivateKey(cfg.X25519PrivateKeyPath); err != nil {
		return nil, fmt.Errorf("prepare X25519 key: %w", err)
	}

	fingerprint := crypto.KeyFingerprint(signingKey.Public().(ed25519.PublicKey))
	if cfg.KeyFingerprint != fingerprint {
		if err := persistFingerprint(dataDir, fingerprint); err != nil {
			return nil, err
		}
		cfg.KeyFingerprint = fingerprint
	}

	backend, location, err := storage.OpenBackend(ctx, storage.BackendOptions{
		Kind:      cfg.CacheBackend,
		DataDir:   dataDir,
		RedisAddr: cfg.RedisAddr,
	})
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	cipher := crypto.NewConversationCipher()
	pipeline, err := chat.New(chat.Options{
		Cache:             backend,
		Local:             backend,
		API:               api.NewClient(cfg.APIBaseURL, cfg.UserID, signingKey),
		Decrypter:         cipher,
		Keys:              &crypto.FileKeySource{Path: cfg.X25519PrivateKeyPath},
		UserID:            cfg.UserID,
		MessageCacheLimit: cfg.MessageCacheLimit,
		DecryptWorkers:    cfg.DecryptWorkers,
	})
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	return &app{
		cfg:         cfg,
		dataDir:     dataDir,
		cacheAt:     location,
		backend:     backend,
		pipeline:    pipeline,
		cipher:      cipher,
		fingerprint: fingerprint,
	}, nil
}

// persistFingerprint writes the fingerprint into the stored config without
// the environment overrides applied to the in-memory copy.
func persistFingerprint(dataDir, fingerprint string) error {
	path := config.ConfigPath(dataDir)
	stored, err := config.Load(path)
	if err != nil {
		return err
	}
	stored.KeyFingerprint = fingerprint
	if err := config.Save(path, stored); err != nil {
		return fmt.Errorf("persist key fingerprint: %w", err)
	}
	return nil
}

func (a *app) requireUser() error {
	if a.cfg.UserID <= 0 {
		return errors.New("user id is not configured (set " + config.EnvUserID + ")")
	}
	return nil
}

func (a *app) Close() {
	a.pipeline.Wait()
	a.cipher.Forget()
	if err := a.backend.Close(); err != nil {
		log.Printf("cache close error: %v", err)
	}
}
