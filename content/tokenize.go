package content

import (
	"regexp"
	"strings"
)

// Mode selects how a message is tokenized.
type Mode int

const (
	// ModeBlock is the full message bubble: code fences and line breaks are structural.
	ModeBlock Mode = iota
	// ModeInline is a single-line preview such as a reply quote or conversation list row.
	ModeInline
)

// TokenKind tags a Token.
type TokenKind int

const (
	TokenText TokenKind = iota
	TokenEmoji
	TokenLink
	TokenCodeBlock
	TokenLineBreak
)

func (k TokenKind) String() string {
	switch k {
	case TokenText:
		return "text"
	case TokenEmoji:
		return "emoji"
	case TokenLink:
		return "link"
	case TokenCodeBlock:
		return "code"
	case TokenLineBreak:
		return "linebreak"
	default:
		return "unknown"
	}
}

// Token is one renderable segment of a message.
type Token struct {
	Kind TokenKind
	// Raw is the exact span of the scanned text this token covers.
	Raw string
	// Text is the plain text, link URL or code block content.
	Text  string
	Emoji *Emoji
}

// Options control Tokenize.
type Options struct {
	Mode            Mode
	CustomEmoji     EmojiSet
	DarkMode        bool
	InlineEmojiSize int
}

const (
	groupEmoji     = "emoji"
	groupShortcode = "shortcode"
	groupCode      = "code"
	groupBreak     = "br"
	groupURL       = "url"
)

var (
	blockScanner  = newScanner(ModeBlock)
	inlineScanner = newScanner(ModeInline)
)

type scanner struct {
	re        *regexp.Regexp
	emoji     int
	shortcode int
	code      int
	lineBreak int
	url       int
}

func newScanner(mode Mode) *scanner {
	alternatives := []string{
		`(?P<` + groupEmoji + `>` + emojiPattern + `)`,
		`(?P<` + groupShortcode + `>` + shortcodePattern + `)`,
	}
	if mode == ModeBlock {
		alternatives = append(alternatives,
			"(?P<"+groupCode+">```(?s:.*?)```)",
			`(?P<`+groupBreak+`>\r?\n)`,
		)
	}
	alternatives = append(alternatives, `(?P<`+groupURL+`>https?://\S+)`)

	re := regexp.MustCompile(strings.Join(alternatives, "|"))
	return &scanner{
		re:        re,
		emoji:     re.SubexpIndex(groupEmoji),
		shortcode: re.SubexpIndex(groupShortcode),
		code:      re.SubexpIndex(groupCode),
		lineBreak: re.SubexpIndex(groupBreak),
		url:       re.SubexpIndex(groupURL),
	}
}

func matched(loc []int, group int) bool {
	return group > 0 && loc[2*group] >= 0
}

// NormalizeInline replaces every line break with a single space.
func NormalizeInline(text string) string {
	text = strings.ReplaceAll(text, "\r\n", " ")
	return strings.ReplaceAll(text, "\n", " ")
}

// Tokenize splits text into ordered tokens. Every byte of the scanned text
// belongs to exactly one token.
func Tokenize(text string, opts Options) []Token {
	sc := blockScanner
	if opts.Mode == ModeInline {
		sc = inlineScanner
		text = NormalizeInline(text)
	}

	matches := sc.re.FindAllStringSubmatchIndex(text, -1)
	tokens := make([]Token, 0, 2*len(matches)+1)

	emojiBytes := 0
	cursor := 0
	for _, loc := range matches {
		start, end := loc[0], loc[1]
		if start > cursor {
			tokens = append(tokens, textToken(text[cursor:start]))
		}
		raw := text[start:end]

		switch {
		case matched(loc, sc.code):
			tokens = append(tokens, Token{Kind: TokenCodeBlock, Raw: raw, Text: codeBlockContent(raw)})
		case matched(loc, sc.url) && (strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://")):
			tokens = append(tokens, Token{Kind: TokenLink, Raw: raw, Text: raw})
		case matched(loc, sc.lineBreak):
			tokens = append(tokens, Token{Kind: TokenLineBreak, Raw: raw})
		case matched(loc, sc.emoji), matched(loc, sc.shortcode):
			emoji := resolveEmoji(raw, opts.CustomEmoji)
			emoji.Dark = opts.DarkMode
			tokens = append(tokens, Token{Kind: TokenEmoji, Raw: raw, Emoji: &emoji})
			emojiBytes += len(raw)
		default:
			tokens = append(tokens, textToken(raw))
		}
		cursor = end
	}
	if cursor < len(text) {
		tokens = append(tokens, textToken(text[cursor:]))
	}

	applyEmojiSize(tokens, emojiSize(opts, emojiBytes == len(text)))
	return mergeText(tokens)
}

func emojiSize(opts Options, onlyEmoji bool) int {
	if opts.Mode == ModeInline {
		if opts.InlineEmojiSize > 0 {
			return opts.InlineEmojiSize
		}
		return DefaultInlineEmojiSize
	}
	if onlyEmoji {
		return EmojiSizeLarge
	}
	return EmojiSizeSmall
}

func applyEmojiSize(tokens []Token, size int) {
	for i := range tokens {
		if tokens[i].Emoji != nil {
			tokens[i].Emoji.Size = size
		}
	}
}

func textToken(s string) Token {
	return Token{Kind: TokenText, Raw: s, Text: s}
}

// mergeText joins adjacent text tokens left by fall-through matches.
func mergeText(tokens []Token) []Token {
	out := tokens[:0]
	for _, tok := range tokens {
		if n := len(out); n > 0 && tok.Kind == TokenText && out[n-1].Kind == TokenText {
			out[n-1].Raw += tok.Raw
			out[n-1].Text += tok.Text
			continue
		}
		out = append(out, tok)
	}
	return out
}

func codeBlockContent(raw string) string {
	inner := strings.TrimSuffix(strings.TrimPrefix(raw, "```"), "```")
	if strings.HasPrefix(inner, "\r\n") {
		return inner[2:]
	}
	return strings.TrimPrefix(inner, "\n")
}

// Join concatenates the raw spans of tokens.
func Join(tokens []Token) string {
	var b strings.Builder
	for _, tok := range tokens {
		b.WriteString(tok.Raw)
	}
	return b.String()
}
