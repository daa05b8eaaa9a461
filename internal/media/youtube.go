package media

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// APISearcher queries the YouTube Data API v3.
type APISearcher struct {
	apiKey     string
	apiBase    string
	webBase    string
	httpClient *http.Client
}

// NewAPISearcher creates a searcher backed by the YouTube Data API.
func NewAPISearcher(apiKey, apiBase, webBase string) *APISearcher {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	return &APISearcher{
		apiKey:     apiKey,
		apiBase:    strings.TrimSuffix(apiBase, "/"),
		webBase:    webBase,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SearchFirstVideo returns the watch URL of the top video result.
func (s *APISearcher) SearchFirstVideo(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("maxResults", "1")
	params.Set("q", query)
	params.Set("key", s.apiKey)

	body, err := get(ctx, s.httpClient, s.apiBase+"/search?"+params.Encode())
	if err != nil {
		return "", err
	}

	var resp struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
		} `json:"items"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parse search response: %w", err)
	}
	for _, item := range resp.Items {
		if item.ID.VideoID != "" {
			return WatchURL(s.webBase, item.ID.VideoID), nil
		}
	}
	return "", ErrNoResults
}

// WebSearcher reads the first video ID out of the public results page.
type WebSearcher struct {
	webBase    string
	httpClient *http.Client
}

// NewWebSearcher creates a searcher that needs no API key.
func NewWebSearcher(webBase string) *WebSearcher {
	if webBase == "" {
		webBase = defaultWebBase
	}
	return &WebSearcher{
		webBase:    strings.TrimSuffix(webBase, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

var videoIDPattern = regexp.MustCompile(`"videoId":"([A-Za-z0-9_-]{11})"`)

// SearchFirstVideo returns the watch URL of the first video on the results page.
func (s *WebSearcher) SearchFirstVideo(ctx context.Context, query string) (string, error) {
	body, err := get(ctx, s.httpClient, SearchPageURL(s.webBase, query))
	if err != nil {
		return "", err
	}
	m := videoIDPattern.FindSubmatch(body)
	if m == nil {
		return "", ErrNoResults
	}
	return WatchURL(s.webBase, string(m[1])), nil
}

// NewSearcher picks the API searcher when a key is configured.
func NewSearcher(apiKey, apiBase, webBase string) Searcher {
	if strings.TrimSpace(apiKey) != "" {
		return NewAPISearcher(apiKey, apiBase, webBase)
	}
	return NewWebSearcher(webBase)
}

func get(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept-Language", "en")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search error (status %d)", resp.StatusCode)
	}
	return body, nil
}
