package storage

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// DefaultProbeTimeout bounds a single HEAD request.
const DefaultProbeTimeout = 5 * time.Second

func newProbeClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &http.Client{Timeout: timeout}
}

// httpHead asks the server for the object's size without fetching the body.
func httpHead(ctx context.Context, client *http.Client, url string) (HeadResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return HeadResult{}, fmt.Errorf("storage: head request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-store")
	resp, err := client.Do(req)
	if err != nil {
		return HeadResult{}, fmt.Errorf("storage: head %s: %w", url, err)
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return HeadResult{}, fmt.Errorf("storage: head %s: status %d", url, resp.StatusCode)
	}
	if resp.ContentLength < 0 {
		return HeadResult{}, nil
	}
	return HeadResult{ContentLength: resp.ContentLength, Known: true}, nil
}
