package crypto

import (
	"crypto/ecdh"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	x25519PrivatePEMType  = "X25519 PRIVATE KEY"
	ed25519SeedPEMType    = "ED25519 PRIVATE KEY SEED"
	x25519PrivateKeyBytes = 32
)

var x25519Curve = ecdh.X25519()

// EnsureX25519PrivateKey loads the message decryption key, generating it on first run.
func EnsureX25519PrivateKey(path string) (*ecdh.PrivateKey, error) {
	privateKey, err := LoadX25519PrivateKey(path)
	if err == nil {
		return privateKey, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	privateKey, err = x25519Curve.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate X25519 private key: %w", err)
	}
	if err := writePEM(path, x25519PrivatePEMType, privateKey.Bytes()); err != nil {
		return nil, fmt.Errorf("write X25519 private key: %w", err)
	}

	return privateKey, nil
}

// LoadX25519PrivateKey reads an X25519 private key from PEM.
func LoadX25519PrivateKey(path string) (*ecdh.PrivateKey, error) {
	raw, err := readPEM(path, x25519PrivatePEMType, x25519PrivateKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("load X25519 private key: %w", err)
	}

	privateKey, err := x25519Curve.NewPrivateKey(raw)
	if err != nil {
		return nil, fmt.Errorf("parse X25519 private key: %w", err)
	}
	return privateKey, nil
}

// EnsureSigningKey loads the Ed25519 key used to sign API requests, generating it on first run.
func EnsureSigningKey(path string) (ed25519.PrivateKey, error) {
	seed, err := readPEM(path, ed25519SeedPEMType, ed25519.SeedSize)
	if err == nil {
		return ed25519.NewKeyFromSeed(seed), nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load Ed25519 signing key: %w", err)
	}

	_, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate Ed25519 signing key: %w", err)
	}
	if err := writePEM(path, ed25519SeedPEMType, privateKey.Seed()); err != nil {
		return nil, fmt.Errorf("write Ed25519 signing key: %w", err)
	}
	return privateKey, nil
}

// KeyFingerprint returns the truncated SHA-256 hex fingerprint of a public key.
func KeyFingerprint(publicKey []byte) string {
	sum := sha256.Sum256(publicKey)
	return hex.EncodeToString(sum[:16])
}

// FormatFingerprint groups a fingerprint in uppercase blocks of four.
func FormatFingerprint(fingerprint string) string {
	clean := strings.ToUpper(strings.ReplaceAll(fingerprint, " ", ""))

	var b strings.Builder
	for i := 0; i < len(clean); i += 4 {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(clean[i:min(i+4, len(clean))])
	}
	return b.String()
}

func readPEM(path, blockType string, size int) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("decode PEM: no PEM block")
	}
	if block.Type != blockType {
		return nil, fmt.Errorf("decode PEM: unexpected type %q", block.Type)
	}
	if len(block.Bytes) != size {
		return nil, fmt.Errorf("decode PEM: invalid key size %d", len(block.Bytes))
	}
	return block.Bytes, nil
}

func writePEM(path, blockType string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: data}), 0o600)
}
