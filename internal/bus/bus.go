// Package bus fans fired notifications out to the sinks interested in them.
package bus

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// AllChannels subscribes a callback to every notification channel.
const AllChannels = "*"

// Notification is a fired reminder or alarm as seen by sinks.
type Notification struct {
	TaskID  string    `json:"task_id"`
	Channel string    `json:"channel"`
	Text    string    `json:"text"`
	Voice   string    `json:"voice,omitempty"`
	FiredAt time.Time `json:"fired_at"`
}

// MessageBus decouples the scheduler from notification sinks.
type MessageBus struct {
	outbound chan *Notification
	subs     map[string][]func(*Notification)
	running  bool
	mu       sync.RWMutex
}

// NewMessageBus creates a new message bus.
func NewMessageBus() *MessageBus {
	return &MessageBus{
		outbound: make(chan *Notification, 100),
		subs:     make(map[string][]func(*Notification)),
	}
}

// Publish queues a notification for dispatch. It blocks while the buffer is
// full, until ctx is cancelled.
func (b *MessageBus) Publish(ctx context.Context, n *Notification) error {
	if n.FiredAt.IsZero() {
		n.FiredAt = time.Now()
	}
	select {
	case b.outbound <- n:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers a callback for notifications on a channel, or on all
// channels with AllChannels.
func (b *MessageBus) Subscribe(channel string, callback func(*Notification)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs[channel] = append(b.subs[channel], callback)
}

// DispatchOutbound runs the notification dispatcher.
// This should be run as a goroutine.
func (b *MessageBus) DispatchOutbound(ctx context.Context) error {
	b.mu.Lock()
	b.running = true
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.running = false
		b.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n := <-b.outbound:
			b.mu.RLock()
			callbacks := append(append([]func(*Notification){}, b.subs[n.Channel]...), b.subs[AllChannels]...)
			b.mu.RUnlock()

			for _, cb := range callbacks {
				deliver(cb, n)
			}
		}
	}
}

func deliver(cb func(*Notification), n *Notification) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Notification subscriber panicked", "task", n.TaskID, "panic", r)
		}
	}()
	cb(n)
}

// Running reports whether DispatchOutbound is active.
func (b *MessageBus) Running() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.running
}

// OutboundSize returns the number of pending notifications.
func (b *MessageBus) OutboundSize() int {
	return len(b.outbound)
}
