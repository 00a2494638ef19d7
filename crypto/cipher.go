package crypto

import (
	"crypto/ecdh"
	"sync"
)

// ConversationCipher decrypts conversation payloads with the local user's key.
// Opened conversation keys are memoized per metadata string, so decrypting a
// page of messages costs one key unseal.
type ConversationCipher struct {
	mu   sync.Mutex
	keys map[string][]byte
}

// NewConversationCipher returns an empty cipher.
func NewConversationCipher() *ConversationCipher {
	return &ConversationCipher{keys: make(map[string][]byte)}
}

func (c *ConversationCipher) conversationKey(metadata string, privateKey *ecdh.PrivateKey) ([]byte, error) {
	c.mu.Lock()
	key, ok := c.keys[metadata]
	c.mu.Unlock()
	if ok {
		return key, nil
	}

	key, err := OpenConversationKey(metadata, privateKey)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.keys[metadata] = key
	c.mu.Unlock()
	return key, nil
}

// DecryptText decrypts a message body.
func (c *ConversationCipher) DecryptText(ciphertext, metadata string, privateKey *ecdh.PrivateKey) (string, error) {
	key, err := c.conversationKey(metadata, privateKey)
	if err != nil {
		return "", err
	}
	plaintext, err := DecryptPayload(key, ciphertext)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// DecryptConversationName decrypts a conversation name. Names are optional, so
// an empty ciphertext yields an empty name.
func (c *ConversationCipher) DecryptConversationName(ciphertext, metadata string, privateKey *ecdh.PrivateKey) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	return c.DecryptText(ciphertext, metadata, privateKey)
}

// EncryptText encrypts a message body for a conversation.
func (c *ConversationCipher) EncryptText(plaintext, metadata string, privateKey *ecdh.PrivateKey) (string, error) {
	key, err := c.conversationKey(metadata, privateKey)
	if err != nil {
		return "", err
	}
	return EncryptPayload(key, []byte(plaintext))
}

// Forget drops every memoized conversation key.
func (c *ConversationCipher) Forget() {
	c.mu.Lock()
	clear(c.keys)
	c.mu.Unlock()
}
