// Package render binds classification, tokenization and preview loading to
// the lifetime of one displayed message.
package render

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"cryptchat/content"
	"cryptchat/preview"
)

// Loader fetches link preview metadata.
type Loader interface {
	Fetch(ctx context.Context, url string) (preview.Preview, error)
}

// Props are the inputs of a message view.
type Props struct {
	Text            string
	Mode            content.Mode
	DarkMode        bool
	InlineEmojiSize int
	CustomEmoji     content.EmojiSet
	// EmbedDisabled renders links as text.
	EmbedDisabled bool
}

// PreviewState tracks an async preview load.
type PreviewState int

const (
	PreviewNone PreviewState = iota
	PreviewLoading
	PreviewReady
	PreviewFailed
)

// Snapshot is what a renderer draws.
type Snapshot struct {
	Display      content.DisplayType
	Tokens       []content.Token
	PreviewState PreviewState
	Preview      preview.Preview
}

// MessageView holds derived render state for one message. Destroy must be
// called when the message leaves the screen.
type MessageView struct {
	loader Loader

	mu           sync.Mutex
	props        Props
	display      content.DisplayType
	tokens       []content.Token
	previewState PreviewState
	preview      preview.Preview
	generation   uint64
	cancel       context.CancelFunc
	destroyed    bool

	loads sync.WaitGroup
}

// NewMessageView computes the initial state and starts a preview load when
// the message is a link that needs one. loader may be nil.
func NewMessageView(props Props, loader Loader) *MessageView {
	v := &MessageView{loader: loader, props: props}
	v.mu.Lock()
	v.retokenize()
	v.reclassify()
	v.mu.Unlock()
	return v
}

// Update applies new props and reports whether the snapshot changed.
func (v *MessageView) Update(props Props) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.destroyed {
		return false
	}

	old := v.props
	v.props = props

	changed := false
	if tokensStale(old, props) {
		v.retokenize()
		changed = true
	}
	if old.Text != props.Text || old.EmbedDisabled != props.EmbedDisabled {
		v.reclassify()
		changed = true
	}
	return changed
}

// Snapshot returns the current render state.
func (v *MessageView) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	return Snapshot{
		Display:      v.display,
		Tokens:       slices.Clone(v.tokens),
		PreviewState: v.previewState,
		Preview:      v.preview,
	}
}

// Destroy cancels any in-flight preview load. It is safe to call twice.
func (v *MessageView) Destroy() {
	v.mu.Lock()
	v.destroyed = true
	v.cancelLoad()
	v.mu.Unlock()
}

// Wait blocks until started preview loads have returned.
func (v *MessageView) Wait() {
	v.loads.Wait()
}

func tokensStale(old, props Props) bool {
	return old.Text != props.Text ||
		old.Mode != props.Mode ||
		old.DarkMode != props.DarkMode ||
		old.InlineEmojiSize != props.InlineEmojiSize ||
		!maps.Equal(old.CustomEmoji, props.CustomEmoji)
}

func (v *MessageView) retokenize() {
	v.tokens = content.Tokenize(v.props.Text, content.Options{
		Mode:            v.props.Mode,
		CustomEmoji:     v.props.CustomEmoji,
		DarkMode:        v.props.DarkMode,
		InlineEmojiSize: v.props.InlineEmojiSize,
	})
}

// reclassify must be called with mu held.
func (v *MessageView) reclassify() {
	v.cancelLoad()
	v.generation++
	v.previewState = PreviewNone
	v.preview = preview.Preview{}

	if v.props.EmbedDisabled {
		v.display = content.DisplayNone
		return
	}

	v.display = content.Classify(v.props.Text)
	if v.display != content.DisplayAsyncPreview {
		return
	}
	if v.loader == nil {
		v.display = content.DisplayLink
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	v.cancel = cancel
	v.previewState = PreviewLoading
	v.loads.Add(1)
	go v.load(ctx, v.generation, strings.TrimSpace(v.props.Text))
}

func (v *MessageView) load(ctx context.Context, generation uint64, url string) {
	defer v.loads.Done()

	result, err := v.loader.Fetch(ctx, url)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed || generation != v.generation {
		return
	}
	v.cancelLoad()
	if err != nil || result.Empty() {
		v.previewState = PreviewFailed
		v.display = content.DisplayLink
		return
	}
	v.previewState = PreviewReady
	v.preview = result
}

func (v *MessageView) cancelLoad() {
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
}
