package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values for the kind label.
const (
	KindConversations = "conversations"
	KindMessages      = "messages"
)

var (
	// Cache metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptchat_cache_hits_total",
			Help: "Fetches served from the local cache",
		},
		[]string{"kind"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptchat_cache_misses_total",
			Help: "Fetches that went to the remote API",
		},
		[]string{"kind"},
	)

	CacheWriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptchat_cache_write_failures_total",
			Help: "Refreshed lists that could not be written back",
		},
		[]string{"kind"},
	)

	// Refresh metrics
	Refreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptchat_refreshes_total",
			Help: "Completed remote refreshes",
		},
		[]string{"kind"},
	)

	RefreshFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptchat_refresh_failures_total",
			Help: "Failed remote refreshes",
		},
		[]string{"kind", "reason"}, // "remote", "keys", "decrypt"
	)

	RefreshDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cryptchat_refresh_duration_seconds",
			Help:    "Remote refresh duration including decryption",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"kind"},
	)

	MessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cryptchat_messages_dropped_total",
			Help: "Messages dropped because they decrypted to empty text",
		},
	)

	ConversationsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cryptchat_conversations_skipped_total",
			Help: "Conversations skipped because the local user is not a participant",
		},
	)

	// Janitor metrics
	PrunedEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptchat_pruned_entries_total",
			Help: "Stale entries removed by the cache janitor",
		},
		[]string{"store"}, // "cache" or "focus"
	)

	PreviewFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptchat_preview_fetches_total",
			Help: "Link preview fetches",
		},
		[]string{"result"}, // "ok" or "error"
	)
)
