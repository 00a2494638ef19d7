// Package preview fetches link metadata for messages that are a single link.
package preview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"cryptchat/metrics"
)

const (
	// DefaultTimeout bounds one preview fetch.
	DefaultTimeout = 10 * time.Second
	// DefaultMaxBytes caps how much of a page is read.
	DefaultMaxBytes = 512 << 10

	userAgent = "cryptchat-preview/1.0"
)

// ErrNotHTML is returned when the target does not serve an HTML document.
var ErrNotHTML = errors.New("preview: response is not html")

// Preview is the metadata shown on a link card.
type Preview struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	SiteName    string `json:"site_name"`
}

// Empty reports whether nothing useful was found.
func (p Preview) Empty() bool {
	return p.Title == "" && p.Description == "" && p.Image == ""
}

// Fetcher downloads pages and extracts OpenGraph metadata.
type Fetcher struct {
	HTTPClient *http.Client
	MaxBytes   int64
}

// NewFetcher returns a Fetcher with default limits.
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		MaxBytes:   DefaultMaxBytes,
	}
}

// Fetch loads rawURL and extracts its preview. Links written as "www.host"
// are fetched over https.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Preview, error) {
	preview, err := f.fetch(ctx, rawURL)
	if err != nil {
		metrics.PreviewFetches.WithLabelValues("error").Inc()
		log.Printf("preview: fetch failed url=%s: %v", rawURL, err)
		return Preview{}, err
	}
	metrics.PreviewFetches.WithLabelValues("ok").Inc()
	return preview, nil
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) (Preview, error) {
	target, err := normalizeURL(rawURL)
	if err != nil {
		return Preview{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return Preview{}, fmt.Errorf("build preview request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	client := f.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Preview{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Preview{}, fmt.Errorf("preview: %s returned %d", target, resp.StatusCode)
	}
	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "text/html" {
		return Preview{}, ErrNotHTML
	}

	maxBytes := f.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	preview, err := Parse(io.LimitReader(resp.Body, maxBytes), resp.Request.URL)
	if err != nil {
		return Preview{}, err
	}
	preview.URL = rawURL
	return preview, nil
}

func normalizeURL(rawURL string) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	if strings.HasPrefix(rawURL, "www.") {
		rawURL = "https://" + rawURL
	}
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse preview url: %w", err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, fmt.Errorf("unsupported preview url scheme %q", target.Scheme)
	}
	if target.Host == "" {
		return nil, errors.New("preview url has no host")
	}
	return target, nil
}

// Parse extracts the title, description, image and site name from an HTML
// document. OpenGraph tags win over <title> and the description meta tag.
// Relative image URLs are resolved against base when it is non-nil.
func Parse(r io.Reader, base *url.URL) (Preview, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Preview{}, fmt.Errorf("parse html: %w", err)
	}

	var (
		preview   Preview
		title     string
		metaDesc  string
		visitNode func(n *html.Node)
	)
	visitNode = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "meta":
				key := strings.ToLower(attr(n, "property"))
				if key == "" {
					key = strings.ToLower(attr(n, "name"))
				}
				value := strings.TrimSpace(attr(n, "content"))
				switch key {
				case "og:title", "twitter:title":
					if preview.Title == "" {
						preview.Title = value
					}
				case "og:description", "twitter:description":
					if preview.Description == "" {
						preview.Description = value
					}
				case "og:image", "og:image:url", "twitter:image":
					if preview.Image == "" {
						preview.Image = value
					}
				case "og:site_name":
					preview.SiteName = value
				case "description":
					metaDesc = value
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visitNode(c)
		}
	}
	visitNode(doc)

	if preview.Title == "" {
		preview.Title = title
	}
	if preview.Description == "" {
		preview.Description = metaDesc
	}
	if preview.Image != "" && base != nil {
		if ref, err := url.Parse(preview.Image); err == nil {
			preview.Image = base.ResolveReference(ref).String()
		}
	}
	return preview, nil
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}
