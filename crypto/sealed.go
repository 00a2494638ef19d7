package crypto

import (
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/box"
)

// ErrKeyMismatch indicates sealed metadata that the private key cannot open.
var ErrKeyMismatch = errors.New("crypto: metadata not sealed to this key")

// SealConversationKey encrypts a conversation key to a member's X25519 public key.
// The result is the per-member metadata string stored on the participant.
func SealConversationKey(conversationKey []byte, recipient *ecdh.PublicKey) (string, error) {
	if len(conversationKey) != ConversationKeySize {
		return "", fmt.Errorf("invalid conversation key length: got %d want %d", len(conversationKey), ConversationKeySize)
	}

	var recipientKey [32]byte
	copy(recipientKey[:], recipient.Bytes())

	sealed, err := box.SealAnonymous(nil, conversationKey, &recipientKey, rand.Reader)
	if err != nil {
		return "", fmt.Errorf("seal conversation key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// OpenConversationKey recovers a conversation key from per-member metadata.
func OpenConversationKey(metadata string, privateKey *ecdh.PrivateKey) ([]byte, error) {
	if privateKey == nil {
		return nil, errors.New("private key is required")
	}

	sealed, err := base64.StdEncoding.DecodeString(metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata: %v", ErrMalformedPayload, err)
	}

	var publicKey, secretKey [32]byte
	copy(publicKey[:], privateKey.PublicKey().Bytes())
	copy(secretKey[:], privateKey.Bytes())

	conversationKey, ok := box.OpenAnonymous(nil, sealed, &publicKey, &secretKey)
	if !ok {
		return nil, ErrKeyMismatch
	}
	if len(conversationKey) != ConversationKeySize {
		return nil, fmt.Errorf("%w: conversation key is %d bytes", ErrMalformedPayload, len(conversationKey))
	}
	return conversationKey, nil
}

// NewConversationKey returns a fresh random conversation key.
func NewConversationKey() ([]byte, error) {
	key := make([]byte, ConversationKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate conversation key: %w", err)
	}
	return key, nil
}
