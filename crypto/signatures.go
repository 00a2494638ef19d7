package crypto

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strconv"
)

// RequestSigningPayload is the byte string signed for one API request.
func RequestSigningPayload(method, path string, timestamp int64) []byte {
	return []byte(method + "|" + path + "|" + strconv.FormatInt(timestamp, 10))
}

// Sign signs data using an Ed25519 private key.
func Sign(privateKey ed25519.PrivateKey, data []byte) ([]byte, error) {
	if len(privateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid Ed25519 private key length: got %d want %d", len(privateKey), ed25519.PrivateKeySize)
	}
	if len(data) == 0 {
		return nil, errors.New("data is required")
	}

	return ed25519.Sign(privateKey, data), nil
}

// Verify verifies an Ed25519 signature.
func Verify(publicKey ed25519.PublicKey, data, signature []byte) bool {
	if len(publicKey) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	if len(data) == 0 {
		return false
	}

	return ed25519.Verify(publicKey, data, signature)
}
