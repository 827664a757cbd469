// Package content is the client of the external content store that hosts
// newsletter main pages and announced issue pages. The service only ever
// asks two questions of a page reference: does it exist, and may it be
// announced as an issue.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/quillhub/quillhub/internal/pkg/httpretry"
)

// Content models that must not be announced as issues.
var disallowedModels = map[string]bool{
	"media":  true,
	"file":   true,
	"binary": true,
	"image":  true,
}

// Handle describes a resolved content page.
type Handle struct {
	Ref   string `json:"ref"`
	Model string `json:"model"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Client talks to the content store's HTTP API.
type Client struct {
	baseURL    string
	httpClient httpretry.HTTPDoer
}

// NewClient creates a content store client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpretry.NewRetryClient(&http.Client{Timeout: timeout}, 2),
	}
}

// Resolve fetches the page handle. Returns nil with no error if the page
// does not exist.
func (c *Client) Resolve(ctx context.Context, ref string) (*Handle, error) {
	reqURL := fmt.Sprintf("%s/pages/%s", c.baseURL, url.PathEscape(ref))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("resolving page %q: %w", ref, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("content store error (status %d): %s", resp.StatusCode, string(body))
	}

	var h Handle
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, fmt.Errorf("decoding page %q: %w", ref, err)
	}
	if h.Ref == "" {
		h.Ref = ref
	}
	return &h, nil
}

// Exists reports whether the referenced page exists.
func (c *Client) Exists(ctx context.Context, ref string) (bool, error) {
	h, err := c.Resolve(ctx, ref)
	if err != nil {
		return false, err
	}
	return h != nil, nil
}

// Announceable reports whether the page may be announced as an issue.
// Missing pages and media/binary content models are not announceable.
func (c *Client) Announceable(ctx context.Context, ref string) (bool, error) {
	h, err := c.Resolve(ctx, ref)
	if err != nil {
		return false, err
	}
	if h == nil {
		return false, nil
	}
	return !disallowedModels[strings.ToLower(h.Model)], nil
}
