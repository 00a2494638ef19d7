package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

const (
	// AppDirectoryName is the per-user application data directory name.
	AppDirectoryName = "cryptchat"
	// DefaultAPIBaseURL is the remote chat API used when none is configured.
	DefaultAPIBaseURL = "https://gateway.filen.io"
	// DefaultMessageCacheLimit is how many recent messages are cached per conversation.
	DefaultMessageCacheLimit = 100
	// DefaultDecryptWorkers bounds parallel decryption.
	DefaultDecryptWorkers = 8

	// CacheBackendSQLite keeps the cache in cache.db.
	CacheBackendSQLite = "sqlite"
	// CacheBackendPebble keeps the cache in a Pebble directory.
	CacheBackendPebble = "pebble"
	// CacheBackendRedis keeps the cache on a Redis server.
	CacheBackendRedis = "redis"

	// configFileName is the persisted configuration file.
	configFileName = "config.json"
	envFileName    = ".env"
)

// Environment variable names.
const (
	EnvDataDir      = "CRYPTCHAT_DATA_DIR"
	EnvAPIURL       = "CRYPTCHAT_API_URL"
	EnvUserID       = "CRYPTCHAT_USER_ID"
	EnvCacheBackend = "CRYPTCHAT_CACHE_BACKEND"
	EnvRedisAddr    = "CRYPTCHAT_REDIS_ADDR"
)

// ClientConfig contains persistent client settings.
type ClientConfig struct {
	ClientID             string `json:"client_id"`
	APIBaseURL           string `json:"api_base_url"`
	UserID               int64  `json:"user_id"`
	CacheBackend         string `json:"cache_backend"`
	RedisAddr            string `json:"redis_addr,omitempty"`
	MessageCacheLimit    int    `json:"message_cache_limit"`
	DecryptWorkers       int    `json:"decrypt_workers"`
	SigningKeyPath       string `json:"signing_key_path"`
	X25519PrivateKeyPath string `json:"x25519_private_key_path"`
	KeyFingerprint       string `json:"key_fingerprint"`
}

// ResolveDataDir returns the OS-aware app data directory.
//
// If CRYPTCHAT_DATA_DIR is set, its value is used as an explicit override.
func ResolveDataDir() (string, error) {
	if override := os.Getenv(EnvDataDir); override != "" {
		return override, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	switch runtime.GOOS {
	case "windows":
		base := os.Getenv("APPDATA")
		if base == "" {
			base = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(base, AppDirectoryName), nil
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", AppDirectoryName), nil
	default:
		base := os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			base = filepath.Join(home, ".config")
		}
		return filepath.Join(base, AppDirectoryName), nil
	}
}

// ConfigPath returns the full path to config.json for a data directory.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, configFileName)
}

// EnsureDataDirectories creates the app data directory layout if needed.
func EnsureDataDirectories(dataDir string) error {
	for _, dir := range []string{dataDir, filepath.Join(dataDir, "keys")} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LoadEnvFiles loads .env from the working directory and the data directory.
// Variables already set in the environment win.
func LoadEnvFiles(dataDir string) error {
	for _, path := range []string{envFileName, filepath.Join(dataDir, envFileName)} {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file %q: %w", path, err)
		}
	}
	return nil
}

// Load reads and unmarshals config.json from disk.
func Load(path string) (*ClientConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg ClientConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// Save marshals and writes config.json to disk.
func Save(path string, cfg *ClientConfig) error {
	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	raw = append(raw, '\n')
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// LoadOrCreate ensures directories and config exist, applies environment
// overrides and returns the config with its data directory.
func LoadOrCreate() (*ClientConfig, string, error) {
	dataDir, err := ResolveDataDir()
	if err != nil {
		return nil, "", err
	}
	if err := EnsureDataDirectories(dataDir); err != nil {
		return nil, "", err
	}
	if err := LoadEnvFiles(dataDir); err != nil {
		return nil, "", err
	}

	cfgPath := ConfigPath(dataDir)
	cfg, err := Load(cfgPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, "", err
		}

		cfg = defaultConfig(dataDir)
		if err := Save(cfgPath, cfg); err != nil {
			return nil, "", err
		}
	} else if normalizeDefaults(cfg, dataDir) {
		if err := Save(cfgPath, cfg); err != nil {
			return nil, "", err
		}
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, "", err
	}

	return cfg, dataDir, nil
}

// ApplyEnv overlays CRYPTCHAT_* variables. Overrides are not persisted.
func ApplyEnv(cfg *ClientConfig) error {
	if v := os.Getenv(EnvAPIURL); v != "" {
		cfg.APIBaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv(EnvUserID); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid %s %q", EnvUserID, v)
		}
		cfg.UserID = id
	}
	if v := os.Getenv(EnvCacheBackend); v != "" {
		backend := normalizeCacheBackend(v)
		if backend == "" {
			return fmt.Errorf("invalid %s %q", EnvCacheBackend, v)
		}
		cfg.CacheBackend = backend
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		cfg.RedisAddr = v
	}
	return nil
}

func defaultConfig(dataDir string) *ClientConfig {
	keysDir := filepath.Join(dataDir, "keys")
	return &ClientConfig{
		ClientID:             uuid.NewString(),
		APIBaseURL:           DefaultAPIBaseURL,
		CacheBackend:         CacheBackendSQLite,
		MessageCacheLimit:    DefaultMessageCacheLimit,
		DecryptWorkers:       DefaultDecryptWorkers,
		SigningKeyPath:       filepath.Join(keysDir, "ed25519_signing.pem"),
		X25519PrivateKeyPath: filepath.Join(keysDir, "x25519_private.pem"),
	}
}

func normalizeDefaults(cfg *ClientConfig, dataDir string) bool {
	defaults := defaultConfig(dataDir)
	updated := false

	if _, err := uuid.Parse(cfg.ClientID); err != nil {
		cfg.ClientID = defaults.ClientID
		updated = true
	}

	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaults.APIBaseURL
		updated = true
	}

	backend := normalizeCacheBackend(cfg.CacheBackend)
	if backend == "" {
		backend = CacheBackendSQLite
		if cfg.RedisAddr != "" {
			backend = CacheBackendRedis
		}
	}
	if cfg.CacheBackend != backend {
		cfg.CacheBackend = backend
		updated = true
	}

	if cfg.MessageCacheLimit <= 0 {
		cfg.MessageCacheLimit = defaults.MessageCacheLimit
		updated = true
	}
	if cfg.DecryptWorkers <= 0 {
		cfg.DecryptWorkers = defaults.DecryptWorkers
		updated = true
	}

	if cfg.SigningKeyPath == "" {
		cfg.SigningKeyPath = defaults.SigningKeyPath
		updated = true
	}
	if cfg.X25519PrivateKeyPath == "" {
		cfg.X25519PrivateKeyPath = defaults.X25519PrivateKeyPath
		updated = true
	}

	return updated
}

func normalizeCacheBackend(backend string) string {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case CacheBackendSQLite:
		return CacheBackendSQLite
	case CacheBackendPebble:
		return CacheBackendPebble
	case CacheBackendRedis:
		return CacheBackendRedis
	default:
		return ""
	}
}
