// Package media finds videos for "play" commands.
package media

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

// ErrNoResults is returned when a search yields no playable video.
var ErrNoResults = errors.New("no video results")

// Searcher resolves a free-text query to the URL of the first matching video.
type Searcher interface {
	SearchFirstVideo(ctx context.Context, query string) (string, error)
}

const (
	defaultWebBase = "https://www.youtube.com"
	defaultAPIBase = "https://www.googleapis.com/youtube/v3"
)

// WatchURL returns the watch page URL for a video ID.
func WatchURL(webBase, videoID string) string {
	if webBase == "" {
		webBase = defaultWebBase
	}
	return strings.TrimSuffix(webBase, "/") + "/watch?v=" + url.QueryEscape(videoID)
}

// SearchPageURL returns the results page for query, used when no single
// video could be resolved.
func SearchPageURL(webBase, query string) string {
	if webBase == "" {
		webBase = defaultWebBase
	}
	return strings.TrimSuffix(webBase, "/") + "/results?search_query=" + Escape(query)
}

// Escape percent-encodes a query component, using %20 for spaces.
func Escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// WithAutoplay appends the autoplay hint to a video URL.
func WithAutoplay(videoURL string) string {
	if strings.Contains(videoURL, "?") {
		return videoURL + "&autoplay=1"
	}
	return videoURL + "?autoplay=1"
}
