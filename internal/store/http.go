package store

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPBackend is a generic GET-by-key region backend: Get(key) issues
// GET <baseURL>/<key> and treats 200 as a hit, 404 as a miss, and anything
// else as a transient failure. This stands in for the s3.endpoints-configured
// object store named in the configuration surface; the codec/store boundary
// is explicitly interface-only, so this repo does not vendor a full AWS SDK
// client, just the minimal adapter shape the read engine needs.
type HTTPBackend struct {
	baseURL string
	client  *http.Client
}

// NewHTTPBackend constructs an HTTPBackend rooted at baseURL.
func NewHTTPBackend(baseURL string) *HTTPBackend {
	return &HTTPBackend{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (b *HTTPBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	u := b.baseURL + "/" + url.PathEscape(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, false, fmt.Errorf("store: build request: %w", err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("store: request %s: %w", u, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, false, fmt.Errorf("store: read body: %w", err)
		}
		return data, true, nil
	case http.StatusNotFound:
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("store: unexpected status %d from %s", resp.StatusCode, u)
	}
}
