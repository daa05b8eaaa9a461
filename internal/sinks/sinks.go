// Package sinks mirrors fired notifications to systems outside the process.
// Sinks are best-effort: a failing sink is logged and never affects the
// notification store that pollers read from.
package sinks

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/KafClaw/commander/internal/bus"
	"github.com/KafClaw/commander/internal/config"
	"github.com/KafClaw/commander/internal/timeline"
)

// Sink receives every fired notification.
type Sink interface {
	Name() string
	Send(ctx context.Context, n *bus.Notification) error
	Close() error
}

const defaultSendTimeout = 10 * time.Second

// Attach subscribes each sink to all notification channels on b.
func Attach(b *bus.MessageBus, timeout time.Duration, sinks ...Sink) {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	for _, s := range sinks {
		b.Subscribe(bus.AllChannels, func(n *bus.Notification) {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			start := time.Now()
			if err := s.Send(ctx, n); err != nil {
				slog.Warn("Notification sink failed", "sink", s.Name(), "task", n.TaskID, "error", err)
				return
			}
			slog.Debug("Notification sink delivered", "sink", s.Name(), "task", n.TaskID, "dur", time.Since(start))
		})
	}
}

// FromConfig builds the sinks enabled in cfg. tl may be nil when the
// timeline is disabled.
func FromConfig(cfg *config.Config, tl *timeline.TimelineService) []Sink {
	var out []Sink
	if tl != nil {
		out = append(out, NewTimelineSink(tl))
	}
	if k := cfg.Sinks.Kafka; k.Enabled {
		brokers := splitList(k.Brokers)
		if len(brokers) == 0 || strings.TrimSpace(k.Topic) == "" {
			slog.Warn("Kafka sink enabled without brokers or topic; skipping")
		} else {
			out = append(out, NewKafkaSink(brokers, k.Topic))
		}
	}
	if s := cfg.Sinks.Slack; s.Enabled {
		if strings.TrimSpace(s.BotToken) == "" || strings.TrimSpace(s.ChannelID) == "" {
			slog.Warn("Slack sink enabled without bot token or channel; skipping")
		} else {
			out = append(out, NewSlackSink(s.BotToken, s.ChannelID, s.APIBase, nil))
		}
	}
	return out
}

// CloseAll closes every sink, logging failures.
func CloseAll(sinks []Sink) {
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			slog.Warn("Notification sink close failed", "sink", s.Name(), "error", err)
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
