package content

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Document wraps a parsed HTML content tree. The tree is live: the locator
// mutates it when applying highlight markers, and snapshots are re-taken on
// demand to observe the current state.
type Document struct {
	root *html.Node
	url  string
}

// Parse reads an HTML document from r. The url is recorded for cache keying
// and diagnostics only; it is not fetched.
func Parse(r io.Reader, url string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{root: root, url: url}, nil
}

// ParseString parses an HTML document from a string.
func ParseString(s, url string) (*Document, error) {
	return Parse(strings.NewReader(s), url)
}

// LoadFile parses an HTML document from a local file.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f, "file://"+path)
}

// Fetch retrieves and parses an HTML document over HTTP.
func Fetch(ctx context.Context, url string, client *http.Client) (*Document, error) {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch page: status %d", resp.StatusCode)
	}

	return Parse(resp.Body, url)
}

// URL returns the document's source URL, if known.
func (d *Document) URL() string {
	return d.url
}

// Root returns the root node of the content tree.
func (d *Document) Root() *html.Node {
	return d.root
}

// Render writes the current state of the content tree, including any applied
// highlight markers, as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// VisibleText returns the whitespace-collapsed visible text of the whole
// document. Used as the round-trip baseline in tests and for cache keying.
func (d *Document) VisibleText() string {
	return CollapseSpace(Text(d.root))
}
