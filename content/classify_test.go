package content

import "testing"

func TestClassifyEmbeds(t *testing.T) {
	cases := []struct {
		text string
		want DisplayType
	}{
		{"https://www.youtube.com/watch?v=abc12345678", DisplayYoutubeEmbed},
		{"https://youtube.com/embed/abc12345678", DisplayYoutubeEmbed},
		{"https://youtu.be/abc12345678", DisplayYoutubeEmbed},
		{"https://filen.io/d/abc-123#key", DisplayFilenEmbed},
		{"https://drive.filen.io/d/abc-123#key", DisplayFilenEmbed},
		{"http://localhost:3000/d/abc#key", DisplayFilenEmbed},
		{"https://twitter.com/user/status/12345", DisplayTwitterEmbed},
		{"https://www.twitter.com/user/status/12345", DisplayTwitterEmbed},
		{"https://twitter.com/user", DisplayAsyncPreview},
		{"https://filen.io/pricing", DisplayAsyncPreview},
		{"http://localhost:3000/x", DisplayAsyncPreview},
		{"https://example.com", DisplayAsyncPreview},
		{"www.example.org/path?q=1", DisplayAsyncPreview},
		{"  https://example.com/a  ", DisplayAsyncPreview},
	}

	for _, tc := range cases {
		if got := Classify(tc.text); got != tc.want {
			t.Fatalf("Classify(%q) = %s, want %s", tc.text, got, tc.want)
		}
	}
}

func TestClassifyRejectsNonLinks(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"hello",
		"example",
		"ftp://example.com/file",
		"https://example",
		"look at https://example.com",
		"https://example.com and more",
		"https://example.com\nhttps://example.org",
		"https://youtube.com/watch?v=1\nsecond line",
	}

	for _, text := range cases {
		if got := Classify(text); got != DisplayNone {
			t.Fatalf("Classify(%q) = %s, want none", text, got)
		}
		if IsLink(text) {
			t.Fatalf("IsLink(%q) = true, want false", text)
		}
	}
}

func TestClassifySingleLinkIsNeverNone(t *testing.T) {
	links := []string{
		"https://a.io",
		"http://sub.domain.example.co.uk/path/to/page.html#frag",
		"https://example.com:8443/x",
		"www.filen.io/d/xyz",
	}
	for _, link := range links {
		if Classify(link) == DisplayNone {
			t.Fatalf("expected %q to classify as a link", link)
		}
	}
}

func TestDisplayTypeString(t *testing.T) {
	if DisplayAsyncPreview.String() != "async" {
		t.Fatalf("unexpected string %q", DisplayAsyncPreview.String())
	}
	if DisplayType(99).String() != "unknown" {
		t.Fatalf("unexpected string for unknown type")
	}
}
