// Package imagestore is the HTTP client for the external image-download
// collaborator. The collaborator fetches protected chapter images on our
// behalf and reports the URL→local-filename mapping; this client never
// downloads anything itself.
package imagestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client communicates with the image store HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// RetryableError marks a failure worth retrying: transport errors and
// 5xx responses. 4xx responses are permanent.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// resolveRequest is the body for POST /images/resolve.
type resolveRequest struct {
	ChapterID string   `json:"chapter_id"`
	URLs      []string `json:"urls"`
}

// resolveResponse is the collaborator's mapping. URLs it could not fetch
// are simply absent.
type resolveResponse struct {
	Files map[string]string `json:"files"`
}

// Resolve asks the collaborator to fetch the given image URLs and
// returns the URL→filename mapping for the ones it stored.
func (c *Client) Resolve(ctx context.Context, chapterID string, urls []string) (map[string]string, error) {
	if len(urls) == 0 {
		return map[string]string{}, nil
	}

	body, err := json.Marshal(resolveRequest{ChapterID: chapterID, URLs: urls})
	if err != nil {
		return nil, fmt.Errorf("marshal resolve request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/resolve", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RetryableError{Err: fmt.Errorf("resolve images: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := fmt.Errorf("resolve images: status %d: %s", resp.StatusCode, string(respBody))
		if resp.StatusCode >= 500 {
			return nil, &RetryableError{Err: err}
		}
		return nil, err
	}

	var result resolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode resolve response: %w", err)
	}
	if result.Files == nil {
		result.Files = map[string]string{}
	}
	return result.Files, nil
}

// Close releases any resources (currently a no-op).
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
