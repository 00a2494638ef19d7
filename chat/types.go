// Package chat fetches, decrypts and caches conversations and messages.
package chat

import (
	"context"
	"crypto/ecdh"
	"errors"

	"cryptchat/models"
)

const (
	// CacheNamespace holds every chat cache entry.
	CacheNamespace = "chat"
	// ConversationsKey is the cache key of the decrypted conversation list.
	ConversationsKey = "chatConversations"
	// MessagesKeyPrefix prefixes the per-conversation message cache keys.
	MessagesKeyPrefix = "chatMessages:"
	// FocusTimestampKey is the local state key of the last-focus map.
	FocusTimestampKey = "chatLastFocusTimestamp"

	// DefaultMessageCacheLimit is how many recent messages are persisted per conversation.
	DefaultMessageCacheLimit = 100
	// DefaultDecryptWorkers bounds parallel decryption per refresh.
	DefaultDecryptWorkers = 8
)

var (
	// ErrRemoteFetch wraps failures of the remote list call.
	ErrRemoteFetch = errors.New("chat: remote fetch failed")
	// ErrKeyMaterialUnavailable wraps failures to obtain the private key.
	ErrKeyMaterialUnavailable = errors.New("chat: key material unavailable")
	// ErrDecryption wraps malformed ciphertext or wrong-key failures.
	ErrDecryption = errors.New("chat: decryption failed")
	// ErrCacheWrite wraps a failed write-back after a successful refresh.
	ErrCacheWrite = errors.New("chat: cache write failed")
	// ErrCachePrune wraps storage failures inside the janitor.
	ErrCachePrune = errors.New("chat: cache prune failed")
)

// MessagesKey returns the cache key of a conversation's messages.
func MessagesKey(conversationID string) string {
	return MessagesKeyPrefix + conversationID
}

// Cache is the namespaced key/value store the pipeline reads and writes.
type Cache interface {
	Get(ctx context.Context, namespace, key string) ([]byte, bool, error)
	Set(ctx context.Context, namespace, key string, value []byte) error
	Remove(ctx context.Context, namespace, key string) error
	Keys(ctx context.Context, namespace string) ([]string, error)
}

// LocalState is the small string map next to the cache.
type LocalState interface {
	GetLocal(ctx context.Context, key string) (string, bool, error)
	SetLocal(ctx context.Context, key, value string) error
}

// API lists encrypted conversations and messages.
type API interface {
	ListConversations(ctx context.Context) ([]models.ConversationPayload, error)
	ListMessages(ctx context.Context, conversationID string, before int64) ([]models.MessagePayload, error)
}

// Decrypter opens conversation payloads with the local private key.
type Decrypter interface {
	DecryptText(ciphertext, metadata string, privateKey *ecdh.PrivateKey) (string, error)
	DecryptConversationName(ciphertext, metadata string, privateKey *ecdh.PrivateKey) (string, error)
}

// KeySource provides the local user's private key.
type KeySource interface {
	PrivateKey(ctx context.Context) (*ecdh.PrivateKey, error)
}

// Result is the outcome of a fetch. CacheErr is set when the refreshed items
// could not be written back; Items are still valid in that case.
type Result[T any] struct {
	FromCache bool
	Items     []T
	CacheErr  error
}

// MessageQuery selects one page of a conversation's messages. Metadata is the
// local user's sealed conversation key. Before=0 selects the newest page, which
// is the only page that is cached.
type MessageQuery struct {
	ConversationID string
	Metadata       string
	Before         int64
}
