package chat

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"cryptchat/models"
)

const testUserID = 7

type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	local   map[string]string

	getErr   error
	setErr   error
	keysErr  error
	setCalls int
}

func newMemCache() *memCache {
	return &memCache{
		entries: make(map[string][]byte),
		local:   make(map[string]string),
	}
}

func (c *memCache) Get(_ context.Context, namespace, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	value, ok := c.entries[namespace+"/"+key]
	return value, ok, nil
}

func (c *memCache) Set(_ context.Context, namespace, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setCalls++
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[namespace+"/"+key] = append([]byte(nil), value...)
	return nil
}

func (c *memCache) Remove(_ context.Context, namespace, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, namespace+"/"+key)
	return nil
}

func (c *memCache) Keys(_ context.Context, namespace string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.keysErr != nil {
		return nil, c.keysErr
	}
	keys := make([]string, 0, len(c.entries))
	for full := range c.entries {
		if key, ok := strings.CutPrefix(full, namespace+"/"); ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (c *memCache) GetLocal(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.local[key]
	return value, ok, nil
}

func (c *memCache) SetLocal(_ context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.local[key] = value
	return nil
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[CacheNamespace+"/"+key]
	return ok
}

type fakeAPI struct {
	conversationsFn func(ctx context.Context) ([]models.ConversationPayload, error)
	messagesFn      func(ctx context.Context, conversationID string, before int64) ([]models.MessagePayload, error)

	calls atomic.Int32
}

func (a *fakeAPI) ListConversations(ctx context.Context) ([]models.ConversationPayload, error) {
	a.calls.Add(1)
	if a.conversationsFn == nil {
		return nil, nil
	}
	return a.conversationsFn(ctx)
}

func (a *fakeAPI) ListMessages(ctx context.Context, conversationID string, before int64) ([]models.MessagePayload, error) {
	a.calls.Add(1)
	if a.messagesFn == nil {
		return nil, nil
	}
	return a.messagesFn(ctx, conversationID, before)
}

// prefixDecrypter treats "enc:<plaintext>" as ciphertext.
type prefixDecrypter struct {
	calls atomic.Int32
}

func (d *prefixDecrypter) DecryptText(ciphertext, metadata string, privateKey *ecdh.PrivateKey) (string, error) {
	d.calls.Add(1)
	if privateKey == nil {
		return "", errors.New("nil private key")
	}
	if metadata == "" {
		return "", errors.New("missing metadata")
	}
	plaintext, ok := strings.CutPrefix(ciphertext, "enc:")
	if !ok {
		return "", fmt.Errorf("malformed ciphertext %q", ciphertext)
	}
	return plaintext, nil
}

func (d *prefixDecrypter) DecryptConversationName(ciphertext, metadata string, privateKey *ecdh.PrivateKey) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	return d.DecryptText(ciphertext, metadata, privateKey)
}

type keySourceFunc func(ctx context.Context) (*ecdh.PrivateKey, error)

func (f keySourceFunc) PrivateKey(ctx context.Context) (*ecdh.PrivateKey, error) {
	return f(ctx)
}

func newTestKey(t *testing.T) *ecdh.PrivateKey {
	t.Helper()

	key, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

type testHarness struct {
	pipeline  *Pipeline
	cache     *memCache
	api       *fakeAPI
	decrypter *prefixDecrypter
}

func newTestHarness(t *testing.T, mutate func(*Options)) *testHarness {
	t.Helper()

	key := newTestKey(t)
	h := &testHarness{
		cache:     newMemCache(),
		api:       &fakeAPI{},
		decrypter: &prefixDecrypter{},
	}
	opts := Options{
		Cache:     h.cache,
		Local:     h.cache,
		API:       h.api,
		Decrypter: h.decrypter,
		Keys: keySourceFunc(func(ctx context.Context) (*ecdh.PrivateKey, error) {
			return key, nil
		}),
		UserID: testUserID,
	}
	if mutate != nil {
		mutate(&opts)
	}

	pipeline, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(pipeline.Wait)
	h.pipeline = pipeline
	return h
}

func conversationPayload(id, name string, participants ...int64) models.ConversationPayload {
	payload := models.ConversationPayload{ConversationID: id, Name: name}
	for _, userID := range participants {
		payload.Participants = append(payload.Participants, models.ParticipantPayload{
			UserID:   userID,
			Email:    fmt.Sprintf("user%d@example.com", userID),
			Metadata: fmt.Sprintf("meta-%s-%d", id, userID),
		})
	}
	return payload
}

func messagePayload(id, text string, sent int64) models.MessagePayload {
	return models.MessagePayload{
		ConversationID: "c1",
		MessageID:      id,
		SenderID:       testUserID,
		SenderEmail:    "me@example.com",
		Message:        text,
		SentTimestamp:  sent,
	}
}

func messageIDs(messages []models.Message) []string {
	ids := make([]string, 0, len(messages))
	for _, message := range messages {
		ids = append(ids, message.MessageID)
	}
	return ids
}
