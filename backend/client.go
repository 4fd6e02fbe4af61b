package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrStatus is wrapped by errors returned for non-2xx responses
var ErrStatus = errors.New("unexpected status")

// Client talks to the SonicStream HTTP API
type Client struct {
	BaseURL    string
	UserID     string
	HttpClient *http.Client
}

// Init creates a client for the backend at baseURL acting as userID
func Init(baseURL, userID string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		UserID:  userID,
		HttpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) endpoint(path string, params url.Values) string {
	u := c.BaseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func (c *Client) getJSON(ctx context.Context, requestURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HttpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %d, response: %s", ErrStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Search runs a full-text search
func (c *Client) Search(ctx context.Context, query string) ([]Track, error) {
	params := url.Values{}
	params.Set("q", query)
	var tracks []Track
	if err := c.getJSON(ctx, c.endpoint("/search", params), &tracks); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return tracks, nil
}

// Suggestions returns the short autocomplete list for a partial query
func (c *Client) Suggestions(ctx context.Context, query string) ([]Track, error) {
	params := url.Values{}
	params.Set("q", query)
	var tracks []Track
	if err := c.getJSON(ctx, c.endpoint("/suggestions", params), &tracks); err != nil {
		return nil, fmt.Errorf("suggestions %q: %w", query, err)
	}
	return tracks, nil
}

// StreamURL returns the playable address of a track
func (c *Client) StreamURL(trackID string) string {
	return c.endpoint("/stream/"+url.PathEscape(trackID), nil)
}

// Warmup asks the backend to prepare the stream of a track. It is a HEAD request,
// so no audio bytes are transferred.
func (c *Client) Warmup(ctx context.Context, trackID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.StreamURL(trackID), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.HttpClient.Do(req)
	if err != nil {
		return fmt.Errorf("warmup %s: %w", trackID, err)
	}
	resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("warmup %s: %w: %d", trackID, ErrStatus, resp.StatusCode)
	}
	return nil
}

// Recommendations returns tracks related to trackID
func (c *Client) Recommendations(ctx context.Context, trackID string) ([]Recommendation, error) {
	params := url.Values{}
	if c.UserID != "" {
		params.Set("user_id", c.UserID)
	}
	var resp RecommendationResponse
	if err := c.getJSON(ctx, c.endpoint("/recommend/song/"+url.PathEscape(trackID), params), &resp); err != nil {
		return nil, fmt.Errorf("recommendations for %s: %w", trackID, err)
	}
	return resp.Recommendations, nil
}

// Collections returns the named collections of the configured user
func (c *Client) Collections(ctx context.Context) (map[string]Collection, error) {
	var resp CollectionsResponse
	if err := c.getJSON(ctx, c.endpoint("/collections/"+url.PathEscape(c.UserID), nil), &resp); err != nil {
		return nil, fmt.Errorf("collections for %s: %w", c.UserID, err)
	}
	return resp.Collections, nil
}

// WebSocketURL derives the real-time channel address from the base URL
func (c *Client) WebSocketURL() string {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String()
}

// Ping checks the backend health endpoint
func (c *Client) Ping(ctx context.Context) error {
	var status struct {
		Status string `json:"status"`
	}
	if err := c.getJSON(ctx, c.endpoint("/health", nil), &status); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	if status.Status != "ok" {
		return fmt.Errorf("ping: backend status %q", status.Status)
	}
	return nil
}
