package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"cryptchat/metrics"
)

// Janitor removes cached state of conversations that no longer exist.
type Janitor struct {
	cache Cache
	local LocalState
}

// NewJanitor returns a janitor over cache and local.
func NewJanitor(cache Cache, local LocalState) *Janitor {
	return &Janitor{cache: cache, local: local}
}

// Prune removes every per-conversation message cache and focus timestamp
// whose conversation id is not in current.
func (j *Janitor) Prune(ctx context.Context, current map[string]struct{}) error {
	removed, err := j.pruneMessageCaches(ctx, current)
	if err != nil {
		return err
	}
	dropped, err := j.pruneFocusTimestamps(ctx, current)
	if err != nil {
		return err
	}

	if removed > 0 || dropped > 0 {
		log.Printf("chat: janitor pruned message_caches=%d focus_entries=%d", removed, dropped)
	}
	return nil
}

func (j *Janitor) pruneMessageCaches(ctx context.Context, current map[string]struct{}) (int, error) {
	keys, err := j.cache.Keys(ctx, CacheNamespace)
	if err != nil {
		return 0, fmt.Errorf("%w: list keys: %w", ErrCachePrune, err)
	}

	removed := 0
	for _, key := range keys {
		id, ok := strings.CutPrefix(key, MessagesKeyPrefix)
		if !ok {
			continue
		}
		if _, live := current[id]; live {
			continue
		}
		if err := j.cache.Remove(ctx, CacheNamespace, key); err != nil {
			return removed, fmt.Errorf("%w: remove %s: %w", ErrCachePrune, key, err)
		}
		removed++
	}
	metrics.PrunedEntries.WithLabelValues("cache").Add(float64(removed))
	return removed, nil
}

func (j *Janitor) pruneFocusTimestamps(ctx context.Context, current map[string]struct{}) (int, error) {
	if j.local == nil {
		return 0, nil
	}

	focus, err := LoadFocusTimestamps(ctx, j.local)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCachePrune, err)
	}

	dropped := 0
	for id := range focus {
		if _, live := current[id]; !live {
			delete(focus, id)
			dropped++
		}
	}
	if dropped == 0 {
		return 0, nil
	}

	if err := saveFocusTimestamps(ctx, j.local, focus); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCachePrune, err)
	}
	metrics.PrunedEntries.WithLabelValues("focus").Add(float64(dropped))
	return dropped, nil
}

// LoadFocusTimestamps reads the conversation id to last-focus map. A missing
// or unreadable entry yields an empty map.
func LoadFocusTimestamps(ctx context.Context, local LocalState) (map[string]int64, error) {
	raw, ok, err := local.GetLocal(ctx, FocusTimestampKey)
	if err != nil {
		return nil, fmt.Errorf("read focus timestamps: %w", err)
	}

	focus := make(map[string]int64)
	if !ok || raw == "" {
		return focus, nil
	}
	if err := json.Unmarshal([]byte(raw), &focus); err != nil {
		log.Printf("chat: discarding undecodable focus timestamps: %v", err)
		return make(map[string]int64), nil
	}
	return focus, nil
}

func saveFocusTimestamps(ctx context.Context, local LocalState, focus map[string]int64) error {
	raw, err := json.Marshal(focus)
	if err != nil {
		return fmt.Errorf("encode focus timestamps: %w", err)
	}
	if err := local.SetLocal(ctx, FocusTimestampKey, string(raw)); err != nil {
		return fmt.Errorf("write focus timestamps: %w", err)
	}
	return nil
}

// MarkFocused records that a conversation was focused at unix millis at.
func MarkFocused(ctx context.Context, local LocalState, conversationID string, at int64) error {
	if conversationID == "" {
		return errors.New("conversation id is required")
	}

	focus, err := LoadFocusTimestamps(ctx, local)
	if err != nil {
		return err
	}
	focus[conversationID] = at
	return saveFocusTimestamps(ctx, local, focus)
}
