package timeline

import (
	"time"
)

// Event types recorded on the timeline.
const (
	EventChatIn       = "CHAT_IN"
	EventChatOut      = "CHAT_OUT"
	EventNotification = "NOTIFICATION"
	EventDelivered    = "DELIVERED"
)

// Scheduled task statuses.
const (
	TaskScheduled = "scheduled"
	TaskFired     = "fired"
	TaskFailed    = "failed"
	TaskAbandoned = "abandoned"
)

// TimelineEvent represents a single interaction in the history.
type TimelineEvent struct {
	ID          int64     `json:"id"`
	EventID     string    `json:"event_id"`           // Unique ID
	TraceID     string    `json:"trace_id"`           // Ties a request to its reply
	Timestamp   time.Time `json:"timestamp"`          // When it happened
	EventType   string    `json:"event_type"`         // CHAT_IN, CHAT_OUT, NOTIFICATION, DELIVERED
	Intent      string    `json:"intent,omitempty"`   // Classified intent kind
	Channel     string    `json:"channel,omitempty"`  // reminder / alarm for notifications
	ContentText string    `json:"content_text"`       // The utterance or reply
	VoicePath   string    `json:"voice_path"`         // Voice handle if any
	Metadata    string    `json:"metadata,omitempty"` // JSON blob (urls, task ids)
}

// ScheduledTaskRecord is the audit row for one deferred reminder or alarm.
type ScheduledTaskRecord struct {
	ID          int64      `json:"id"`
	TaskID      string     `json:"task_id"`
	Channel     string     `json:"channel"`
	Payload     string     `json:"payload"`
	DelayMs     int64      `json:"delay_ms"`
	Status      string     `json:"status"`
	ErrorText   string     `json:"error_text,omitempty"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	DueAt       time.Time  `json:"due_at"`
	FiredAt     *time.Time `json:"fired_at,omitempty"`
}

const Schema = `
CREATE TABLE IF NOT EXISTS timeline (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id TEXT UNIQUE,
	trace_id TEXT,
	timestamp DATETIME,
	event_type TEXT,
	intent TEXT DEFAULT '',
	channel TEXT DEFAULT '',
	content_text TEXT,
	voice_path TEXT DEFAULT '',
	metadata TEXT DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_timeline_timestamp ON timeline(timestamp);
CREATE INDEX IF NOT EXISTS idx_timeline_trace ON timeline(trace_id);

CREATE TABLE IF NOT EXISTS scheduled_tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id TEXT UNIQUE NOT NULL,
	channel TEXT NOT NULL,
	payload TEXT NOT NULL,
	delay_ms INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'scheduled',
	error_text TEXT DEFAULT '',
	scheduled_at DATETIME NOT NULL,
	due_at DATETIME NOT NULL,
	fired_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_scheduled_tasks_status ON scheduled_tasks(status);
`
