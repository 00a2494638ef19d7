package chat

import (
	"context"
	"crypto/ecdh"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"cryptchat/metrics"
	"cryptchat/models"
)

// Options wires a Pipeline to its collaborators.
type Options struct {
	Cache     Cache
	Local     LocalState
	API       API
	Decrypter Decrypter
	Keys      KeySource
	UserID    int64

	MessageCacheLimit int
	DecryptWorkers    int

	// Janitor runs after every conversation refresh. When nil a janitor over
	// Cache and Local is used.
	Janitor *Janitor
}

// Pipeline serves conversation and message lists cache-first.
type Pipeline struct {
	cache     Cache
	api       API
	decrypter Decrypter
	keys      KeySource
	userID    int64
	janitor   *Janitor

	messageCacheLimit int
	decryptWorkers    int

	background sync.WaitGroup
}

// New validates opts and returns a pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Cache == nil {
		return nil, errors.New("cache is required")
	}
	if opts.API == nil {
		return nil, errors.New("api is required")
	}
	if opts.Decrypter == nil {
		return nil, errors.New("decrypter is required")
	}
	if opts.Keys == nil {
		return nil, errors.New("key source is required")
	}

	janitor := opts.Janitor
	if janitor == nil && opts.Local != nil {
		janitor = NewJanitor(opts.Cache, opts.Local)
	}

	p := &Pipeline{
		cache:             opts.Cache,
		api:               opts.API,
		decrypter:         opts.Decrypter,
		keys:              opts.Keys,
		userID:            opts.UserID,
		janitor:           janitor,
		messageCacheLimit: opts.MessageCacheLimit,
		decryptWorkers:    opts.DecryptWorkers,
	}
	if p.messageCacheLimit <= 0 {
		p.messageCacheLimit = DefaultMessageCacheLimit
	}
	if p.decryptWorkers <= 0 {
		p.decryptWorkers = DefaultDecryptWorkers
	}
	return p, nil
}

// Wait blocks until background janitor runs have finished.
func (p *Pipeline) Wait() {
	p.background.Wait()
}

// FetchConversations returns the decrypted conversation list. On a refresh the
// janitor prunes caches of conversations that no longer exist.
func (p *Pipeline) FetchConversations(ctx context.Context, skipCache bool) (Result[models.Conversation], error) {
	result, err := fetchCached(ctx, p, fetchPlan[models.Conversation]{
		kind:      metrics.KindConversations,
		key:       ConversationsKey,
		skipCache: skipCache,
		refresh:   p.refreshConversations,
	})
	if err != nil || result.FromCache {
		return result, err
	}

	p.startJanitor(result.Items)
	return result, nil
}

// FetchMessages returns the decrypted messages of one conversation page.
func (p *Pipeline) FetchMessages(ctx context.Context, query MessageQuery, skipCache bool) (Result[models.Message], error) {
	if query.ConversationID == "" {
		return Result[models.Message]{}, errors.New("conversation id is required")
	}

	plan := fetchPlan[models.Message]{
		kind:      metrics.KindMessages,
		key:       MessagesKey(query.ConversationID),
		skipCache: skipCache,
		refresh: func(ctx context.Context) ([]models.Message, error) {
			return p.refreshMessages(ctx, query)
		},
		persist: p.recentMessages,
	}
	if query.Before != 0 {
		plan.noCache = true
	}
	return fetchCached(ctx, p, plan)
}

type fetchPlan[T any] struct {
	kind      string
	key       string
	skipCache bool
	noCache   bool
	refresh   func(ctx context.Context) ([]T, error)
	// persist selects what is written back; nil writes everything.
	persist func([]T) []T
}

func fetchCached[T any](ctx context.Context, p *Pipeline, plan fetchPlan[T]) (Result[T], error) {
	if !plan.skipCache && !plan.noCache {
		if items, ok := readCache[T](ctx, p.cache, plan.key); ok {
			metrics.CacheHits.WithLabelValues(plan.kind).Inc()
			return Result[T]{FromCache: true, Items: items}, nil
		}
		metrics.CacheMisses.WithLabelValues(plan.kind).Inc()
	}

	started := time.Now()
	items, err := plan.refresh(ctx)
	if err != nil {
		metrics.RefreshFailures.WithLabelValues(plan.kind, failureReason(err)).Inc()
		return Result[T]{}, err
	}
	metrics.Refreshes.WithLabelValues(plan.kind).Inc()
	metrics.RefreshDuration.WithLabelValues(plan.kind).Observe(time.Since(started).Seconds())

	result := Result[T]{Items: items}
	if plan.noCache {
		return result, nil
	}

	toStore := items
	if plan.persist != nil {
		toStore = plan.persist(items)
	}
	if err := writeCache(ctx, p.cache, plan.key, toStore); err != nil {
		log.Printf("chat: cache write failed key=%s: %v", plan.key, err)
		metrics.CacheWriteFailures.WithLabelValues(plan.kind).Inc()
		result.CacheErr = err
	}
	return result, nil
}

func readCache[T any](ctx context.Context, cache Cache, key string) ([]T, bool) {
	raw, ok, err := cache.Get(ctx, CacheNamespace, key)
	if err != nil {
		log.Printf("chat: cache read failed key=%s: %v", key, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		log.Printf("chat: cache entry undecodable key=%s: %v", key, err)
		return nil, false
	}
	if items == nil {
		items = []T{}
	}
	return items, true
}

func writeCache[T any](ctx context.Context, cache Cache, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrCacheWrite, key, err)
	}
	if err := cache.Set(ctx, CacheNamespace, key, raw); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCacheWrite, key, err)
	}
	return nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrRemoteFetch):
		return "remote"
	case errors.Is(err, ErrKeyMaterialUnavailable):
		return "keys"
	case errors.Is(err, ErrDecryption):
		return "decrypt"
	default:
		return "other"
	}
}

// fetchWithKey runs list and key retrieval concurrently and joins them.
func fetchWithKey[P any](ctx context.Context, keys KeySource, list func(ctx context.Context) ([]P, error)) ([]P, *ecdh.PrivateKey, error) {
	var (
		payloads []P
		key      *ecdh.PrivateKey
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		payloads, err = list(gctx)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrRemoteFetch, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		key, err = keys.PrivateKey(gctx)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrKeyMaterialUnavailable, err)
		}
		if key == nil {
			return ErrKeyMaterialUnavailable
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return payloads, key, nil
}

// decryptAll decrypts payloads in parallel into index slots so the output
// keeps the input order. fn reports keep=false to drop an item.
func decryptAll[P, T any](ctx context.Context, workers int, payloads []P, fn func(P) (T, bool, error)) ([]T, error) {
	slots := make([]T, len(payloads))
	keep := make([]bool, len(payloads))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range payloads {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			item, ok, err := fn(payloads[i])
			if err != nil {
				return err
			}
			slots[i] = item
			keep[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]T, 0, len(slots))
	for i, item := range slots {
		if keep[i] {
			out = append(out, item)
		}
	}
	return out, nil
}

func (p *Pipeline) refreshConversations(ctx context.Context) ([]models.Conversation, error) {
	payloads, key, err := fetchWithKey(ctx, p.keys, p.api.ListConversations)
	if err != nil {
		return nil, err
	}

	return decryptAll(ctx, p.decryptWorkers, payloads, func(payload models.ConversationPayload) (models.Conversation, bool, error) {
		return p.decryptConversation(payload, key)
	})
}

func (p *Pipeline) decryptConversation(payload models.ConversationPayload, key *ecdh.PrivateKey) (models.Conversation, bool, error) {
	self, ok := payload.Self(p.userID)
	if !ok {
		log.Printf("chat: skipping conversation without local participant conversation=%s user=%d", payload.ConversationID, p.userID)
		metrics.ConversationsSkipped.Inc()
		return models.Conversation{}, false, nil
	}

	name, err := p.decrypter.DecryptConversationName(payload.Name, self.Metadata, key)
	if err != nil {
		return models.Conversation{}, false, fmt.Errorf("%w: conversation %q name: %w", ErrDecryption, payload.ConversationID, err)
	}

	lastMessage := ""
	if payload.LastMessage != "" {
		lastMessage, err = p.decrypter.DecryptText(payload.LastMessage, self.Metadata, key)
		if err != nil {
			return models.Conversation{}, false, fmt.Errorf("%w: conversation %q last message: %w", ErrDecryption, payload.ConversationID, err)
		}
	}

	participants := make([]models.Participant, 0, len(payload.Participants))
	for _, participant := range payload.Participants {
		participants = append(participants, models.Participant{
			UserID:         participant.UserID,
			Email:          participant.Email,
			Avatar:         participant.Avatar,
			Nickname:       participant.Nickname,
			Metadata:       participant.Metadata,
			PublicKey:      participant.PublicKey,
			AddedTimestamp: participant.AddedTimestamp,
		})
	}

	return models.Conversation{
		ConversationID:       payload.ConversationID,
		Name:                 name,
		Participants:         participants,
		LastMessage:          lastMessage,
		LastMessageSender:    payload.LastMessageSender,
		LastMessageTimestamp: payload.LastMessageTimestamp,
		LastMessageID:        payload.LastMessageID,
		OwnerID:              payload.OwnerID,
		CreatedTimestamp:     payload.CreatedTimestamp,
	}, true, nil
}

func (p *Pipeline) refreshMessages(ctx context.Context, query MessageQuery) ([]models.Message, error) {
	list := func(ctx context.Context) ([]models.MessagePayload, error) {
		return p.api.ListMessages(ctx, query.ConversationID, query.Before)
	}
	payloads, key, err := fetchWithKey(ctx, p.keys, list)
	if err != nil {
		return nil, err
	}

	return decryptAll(ctx, p.decryptWorkers, payloads, func(payload models.MessagePayload) (models.Message, bool, error) {
		return p.decryptMessage(payload, query, key)
	})
}

func (p *Pipeline) decryptMessage(payload models.MessagePayload, query MessageQuery, key *ecdh.PrivateKey) (models.Message, bool, error) {
	content, err := p.decrypter.DecryptText(payload.Message, query.Metadata, key)
	if err != nil {
		return models.Message{}, false, fmt.Errorf("%w: message %q: %w", ErrDecryption, payload.MessageID, err)
	}
	if content == "" {
		metrics.MessagesDropped.Inc()
		return models.Message{}, false, nil
	}

	var reply models.ReplyTo
	if payload.ReplyTo != nil {
		reply = models.ReplyTo{
			MessageID:      payload.ReplyTo.MessageID,
			SenderID:       payload.ReplyTo.SenderID,
			SenderEmail:    payload.ReplyTo.SenderEmail,
			SenderNickname: payload.ReplyTo.SenderNickname,
		}
		if payload.ReplyTo.MessageID != "" && payload.ReplyTo.Message != "" {
			reply.Content, err = p.decrypter.DecryptText(payload.ReplyTo.Message, query.Metadata, key)
			if err != nil {
				return models.Message{}, false, fmt.Errorf("%w: reply of message %q: %w", ErrDecryption, payload.MessageID, err)
			}
		}
	}

	conversationID := payload.ConversationID
	if conversationID == "" {
		conversationID = query.ConversationID
	}

	return models.Message{
		MessageID:      payload.MessageID,
		ConversationID: conversationID,
		SenderID:       payload.SenderID,
		SenderEmail:    payload.SenderEmail,
		SenderNickname: payload.SenderNickname,
		Content:        content,
		ReplyTo:        reply,
		EmbedDisabled:  payload.EmbedDisabled,
		Edited:         payload.Edited,
		EditTimestamp:  payload.EditTimestamp,
		TimestampSent:  payload.SentTimestamp,
	}, true, nil
}

// recentMessages keeps the messageCacheLimit newest messages in their
// original order.
func (p *Pipeline) recentMessages(messages []models.Message) []models.Message {
	if len(messages) <= p.messageCacheLimit {
		return messages
	}

	idx := make([]int, len(messages))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return messages[idx[a]].TimestampSent > messages[idx[b]].TimestampSent
	})
	idx = idx[:p.messageCacheLimit]
	sort.Ints(idx)

	out := make([]models.Message, 0, len(idx))
	for _, i := range idx {
		out = append(out, messages[i])
	}
	return out
}

func (p *Pipeline) startJanitor(conversations []models.Conversation) {
	if p.janitor == nil {
		return
	}

	current := make(map[string]struct{}, len(conversations))
	for _, conversation := range conversations {
		current[conversation.ConversationID] = struct{}{}
	}

	p.background.Add(1)
	go func() {
		defer p.background.Done()
		if err := p.janitor.Prune(context.Background(), current); err != nil {
			log.Printf("chat: janitor prune failed: %v", err)
		}
	}()
}
