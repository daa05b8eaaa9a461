// Package notify holds fired reminder and alarm notifications until a client polls them.
package notify

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Channel identifies one of the independent notification streams.
type Channel string

const (
	ChannelReminder Channel = "reminder"
	ChannelAlarm    Channel = "alarm"
)

// Channels lists every known channel in a stable order.
var Channels = []Channel{ChannelReminder, ChannelAlarm}

// ParseChannel maps a name such as "reminder" or "alarms" to a Channel.
func ParseChannel(name string) (Channel, error) {
	switch strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), "s") {
	case string(ChannelReminder):
		return ChannelReminder, nil
	case string(ChannelAlarm):
		return ChannelAlarm, nil
	}
	return "", fmt.Errorf("unknown notification channel %q", name)
}

// Event is a fired notification waiting to be delivered to a poller.
type Event struct {
	TaskID  string    `json:"-"`
	Text    string    `json:"text"`
	Voice   string    `json:"voice"`
	FiredAt time.Time `json:"-"`
}

// Store keeps one FIFO queue per channel. Append and DrainOne are atomic
// with respect to each other, so an event is handed to exactly one poller.
type Store struct {
	mu       sync.Mutex
	queues   map[Channel][]Event
	maxDepth int
	dropped  map[Channel]int
}

// NewStore creates a Store. maxDepth <= 0 means queues are unbounded;
// otherwise the oldest event is dropped when a queue would exceed it.
func NewStore(maxDepth int) *Store {
	if maxDepth < 0 {
		maxDepth = 0
	}
	return &Store{
		queues:   make(map[Channel][]Event),
		maxDepth: maxDepth,
		dropped:  make(map[Channel]int),
	}
}

// Append adds an event at the tail of the channel's queue.
func (s *Store) Append(ch Channel, evt Event) {
	if evt.FiredAt.IsZero() {
		evt.FiredAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	q := append(s.queues[ch], evt)
	if s.maxDepth > 0 && len(q) > s.maxDepth {
		over := len(q) - s.maxDepth
		for _, old := range q[:over] {
			slog.Warn("Notification dropped: queue full", "channel", ch, "task", old.TaskID, "max_depth", s.maxDepth)
		}
		s.dropped[ch] += over
		q = append([]Event(nil), q[over:]...)
	}
	s.queues[ch] = q
}

// DrainOne pops the oldest pending event for the channel. ok is false when
// nothing is pending.
func (s *Store) DrainOne(ch Channel) (evt Event, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.queues[ch]
	if len(q) == 0 {
		return Event{}, false
	}
	evt = q[0]
	q[0] = Event{}
	if len(q) == 1 {
		delete(s.queues, ch)
	} else {
		s.queues[ch] = q[1:]
	}
	return evt, true
}

// Len returns the number of pending events on a channel.
func (s *Store) Len(ch Channel) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queues[ch])
}

// Dropped returns how many events were evicted from a channel by the depth cap.
func (s *Store) Dropped(ch Channel) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped[ch]
}

// HasVoice reports whether any undelivered event on any channel carries
// the given voice handle.
func (s *Store) HasVoice(handle string) bool {
	if handle == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range s.queues {
		for _, evt := range q {
			if evt.Voice == handle {
				return true
			}
		}
	}
	return false
}
