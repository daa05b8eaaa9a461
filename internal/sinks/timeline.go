package sinks

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/KafClaw/commander/internal/bus"
	"github.com/KafClaw/commander/internal/timeline"
)

// eventRecorder is the part of the timeline service the sink writes to.
type eventRecorder interface {
	AddEvent(evt *timeline.TimelineEvent) error
}

// TimelineSink records each fired notification on the audit timeline,
// using the task ID as trace ID.
type TimelineSink struct {
	tl eventRecorder
}

func NewTimelineSink(tl eventRecorder) *TimelineSink {
	return &TimelineSink{tl: tl}
}

func (t *TimelineSink) Name() string { return "timeline" }

func (t *TimelineSink) Send(_ context.Context, n *bus.Notification) error {
	meta, _ := json.Marshal(map[string]string{"task_id": n.TaskID})
	return t.tl.AddEvent(&timeline.TimelineEvent{
		EventID:     uuid.NewString(),
		TraceID:     n.TaskID,
		Timestamp:   n.FiredAt,
		EventType:   timeline.EventNotification,
		Channel:     n.Channel,
		ContentText: n.Text,
		VoicePath:   n.Voice,
		Metadata:    string(meta),
	})
}

func (t *TimelineSink) Close() error { return nil }
