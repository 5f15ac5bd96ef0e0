package htmldoc

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

const maxFetchBytes = 16 << 20

// Fetch downloads rawURL and parses the response into a static Document.
// Content rendered by scripts is not present; use the browser adapter for
// such pages.
func Fetch(ctx context.Context, client *http.Client, rawURL string, opts ...Option) (*Document, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}
	return Parse(io.LimitReader(resp.Body, maxFetchBytes), opts...)
}
