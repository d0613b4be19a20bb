// Package sources holds the collaborators that fetch raw strain data: the
// product page scraper, the Cannlytics COA and strain APIs, and the Kushy
// strain table. Every adapter converts values to 0-1 fractions and maps
// field names onto canonical keys before returning.
//
// Adapters return (nil, nil) when a source simply has nothing for the
// request, and an error for transport or decoding failures. Callers treat
// both as "no data".
package sources

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultUserAgent = "Mozilla/5.0 (compatible; TerpTracker/0.1; +https://github.com/terptracker)"
	maxBodyBytes     = 5 << 20
)

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// readBody reads at most maxBodyBytes and closes the body. Non-200
// statuses become errors that carry a short prefix of the body.
func readBody(name string, resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", name, err)
	}
	if resp.StatusCode != http.StatusOK {
		snippet := body
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, fmt.Errorf("%s: status %d: %s", name, resp.StatusCode, string(snippet))
	}
	return body, nil
}
