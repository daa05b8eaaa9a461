package sinks

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"github.com/KafClaw/commander/internal/bus"
)

const defaultSlackAPIBase = "https://slack.com/api"

// SlackSink posts each notification's display text to one channel.
type SlackSink struct {
	api       *slack.Client
	channelID string
}

// NewSlackSink creates a sink posting as the bot behind token. An empty
// apiBase uses Slack's public API; client may be nil.
func NewSlackSink(token, channelID, apiBase string, client *http.Client) *SlackSink {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	base := strings.TrimSpace(apiBase)
	if base == "" {
		base = defaultSlackAPIBase
	}
	base = strings.TrimRight(base, "/") + "/"
	return &SlackSink{
		api:       slack.New(strings.TrimSpace(token), slack.OptionHTTPClient(client), slack.OptionAPIURL(base)),
		channelID: channelID,
	}
}

func (s *SlackSink) Name() string { return "slack" }

func (s *SlackSink) Send(ctx context.Context, n *bus.Notification) error {
	return withRetry(ctx, 3, 200*time.Millisecond, func() (bool, error) {
		_, _, err := s.api.PostMessageContext(ctx, s.channelID, slack.MsgOptionText(n.Text, false))
		return retryDecision(ctx, err)
	})
}

func (s *SlackSink) Close() error { return nil }

// retryDecision retries only Slack rate limits, after the advertised wait.
func retryDecision(ctx context.Context, err error) (bool, error) {
	if err == nil {
		return false, nil
	}
	var rle *slack.RateLimitedError
	if errors.As(err, &rle) && rle != nil {
		if rle.RetryAfter > 0 {
			select {
			case <-time.After(rle.RetryAfter):
			case <-ctx.Done():
				return false, ctx.Err()
			}
		}
		return true, err
	}
	return false, err
}

func withRetry(ctx context.Context, attempts int, baseDelay time.Duration, fn func() (retryable bool, err error)) error {
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		retryable, err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable || i == attempts-1 {
			break
		}
		select {
		case <-time.After(baseDelay * time.Duration(1<<i)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
