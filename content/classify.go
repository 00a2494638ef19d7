package content

import (
	"regexp"
	"strings"
)

// DisplayType selects the widget a message is rendered with.
type DisplayType int

const (
	// DisplayNone renders the message as tokenized text.
	DisplayNone DisplayType = iota
	// DisplayLink renders a plain link card without fetched metadata.
	DisplayLink
	// DisplayYoutubeEmbed renders an embedded YouTube player.
	DisplayYoutubeEmbed
	// DisplayFilenEmbed renders an embedded Filen public link.
	DisplayFilenEmbed
	// DisplayTwitterEmbed renders an embedded tweet.
	DisplayTwitterEmbed
	// DisplayAsyncPreview needs preview metadata fetched by the caller.
	DisplayAsyncPreview
)

func (d DisplayType) String() string {
	switch d {
	case DisplayNone:
		return "none"
	case DisplayLink:
		return "link"
	case DisplayYoutubeEmbed:
		return "youtubeEmbed"
	case DisplayFilenEmbed:
		return "filenEmbed"
	case DisplayTwitterEmbed:
		return "twitterEmbed"
	case DisplayAsyncPreview:
		return "async"
	default:
		return "unknown"
	}
}

var (
	localhostLinkRegex = regexp.MustCompile(`^http://localhost:[0-9]+`)
	linkRegex          = regexp.MustCompile(`^(?:https?://|www\.)[a-zA-Z0-9](?:[a-zA-Z0-9-]*[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]*[a-zA-Z0-9])?)*\.[a-zA-Z]{2,}(?::[0-9]{1,5})?(?:[/?#]\S*)?$`)
)

var (
	youtubeMarkers = []string{
		"/youtube.com/watch",
		"/youtube.com/embed",
		"/www.youtube.com/watch",
		"/www.youtube.com/embed",
		"/youtu.be/",
		"/www.youtu.be/",
	}
	filenHosts = []string{
		"localhost:",
		"filen.io/",
		"drive.filen.io/",
		"drive.filen.dev/",
		"www.filen.io/",
	}
	twitterHosts = []string{
		"twitter.com/",
		"www.twitter.com/",
	}
)

// IsLink reports whether the whole message is exactly one link.
func IsLink(text string) bool {
	if !isSingleToken(text) {
		return false
	}

	trimmed := strings.TrimSpace(text)
	if localhostLinkRegex.MatchString(trimmed) {
		return true
	}
	return linkRegex.MatchString(trimmed)
}

// Classify returns the display type for a raw message.
func Classify(text string) DisplayType {
	if !IsLink(text) {
		return DisplayNone
	}

	if containsAny(text, youtubeMarkers) {
		return DisplayYoutubeEmbed
	}
	if containsAny(text, filenHosts) && strings.Contains(text, "/d/") {
		return DisplayFilenEmbed
	}
	if containsAny(text, twitterHosts) && strings.Contains(text, "/status/") {
		return DisplayTwitterEmbed
	}
	return DisplayAsyncPreview
}

func isSingleToken(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	if strings.ContainsAny(trimmed, "\r\n") {
		return false
	}
	return len(strings.Fields(trimmed)) == 1
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}
