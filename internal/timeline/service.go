// Package timeline keeps an sqlite audit log of chat turns and deferred tasks.
package timeline

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	DriverPureGo = "sqlite"  // modernc.org/sqlite
	DriverCgo    = "sqlite3" // github.com/mattn/go-sqlite3
)

type TimelineService struct {
	db *sql.DB
}

// NewTimelineService opens (or creates) the database at dbPath with the
// pure-Go driver.
func NewTimelineService(dbPath string) (*TimelineService, error) {
	return Open(DriverPureGo, dbPath)
}

// Open opens the timeline with the named driver and applies the schema.
func Open(driver, dbPath string) (*TimelineService, error) {
	dsn, err := dataSourceName(driver, dbPath)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open timeline db: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	// Tasks left "scheduled" by a previous process can never fire.
	_, _ = db.Exec(`UPDATE scheduled_tasks SET status = ? WHERE status = ?`, TaskAbandoned, TaskScheduled)

	return &TimelineService{db: db}, nil
}

func dataSourceName(driver, dbPath string) (string, error) {
	switch driver {
	case DriverPureGo:
		return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", nil
	case DriverCgo:
		return "file:" + dbPath + "?_foreign_keys=1&_journal_mode=WAL&_busy_timeout=5000", nil
	default:
		return "", fmt.Errorf("unsupported timeline driver %q", driver)
	}
}

func (s *TimelineService) Close() error {
	return s.db.Close()
}

func (s *TimelineService) AddEvent(evt *TimelineEvent) error {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	_, err := s.db.Exec(`
	INSERT INTO timeline (event_id, trace_id, timestamp, event_type, intent, channel, content_text, voice_path, metadata)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		evt.EventID,
		evt.TraceID,
		evt.Timestamp.UTC(),
		evt.EventType,
		evt.Intent,
		evt.Channel,
		evt.ContentText,
		evt.VoicePath,
		evt.Metadata,
	)
	return err
}

type FilterArgs struct {
	TraceID   string
	EventType string
	Limit     int
	Offset    int
}

func (s *TimelineService) GetEvents(filter FilterArgs) ([]TimelineEvent, error) {
	query := `SELECT id, event_id, COALESCE(trace_id,''), timestamp, event_type, COALESCE(intent,''),
		COALESCE(channel,''), COALESCE(content_text,''), COALESCE(voice_path,''), COALESCE(metadata,'')
		FROM timeline WHERE 1=1`
	args := []any{}

	if filter.TraceID != "" {
		query += " AND trace_id = ?"
		args = append(args, filter.TraceID)
	}
	if filter.EventType != "" {
		query += " AND event_type = ?"
		args = append(args, filter.EventType)
	}

	query += " ORDER BY timestamp DESC, id DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += " LIMIT -1"
		}
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []TimelineEvent
	for rows.Next() {
		var e TimelineEvent
		if err := rows.Scan(
			&e.ID,
			&e.EventID,
			&e.TraceID,
			&e.Timestamp,
			&e.EventType,
			&e.Intent,
			&e.Channel,
			&e.ContentText,
			&e.VoicePath,
			&e.Metadata,
		); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// --- Scheduled Tasks ---

// InsertScheduledTask records a newly scheduled reminder or alarm.
func (s *TimelineService) InsertScheduledTask(taskID, channel, payload string, delay time.Duration, scheduledAt time.Time) error {
	_, err := s.db.Exec(`INSERT INTO scheduled_tasks (task_id, channel, payload, delay_ms, status, scheduled_at, due_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		taskID, channel, payload, delay.Milliseconds(), TaskScheduled,
		scheduledAt.UTC(), scheduledAt.Add(delay).UTC())
	return err
}

// UpdateScheduledTask moves a task to a terminal status.
func (s *TimelineService) UpdateScheduledTask(taskID, status, errorText string, at time.Time) error {
	res, err := s.db.Exec(`UPDATE scheduled_tasks SET status = ?, error_text = ?, fired_at = ? WHERE task_id = ?`,
		status, errorText, at.UTC(), taskID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("scheduled task %s not found", taskID)
	}
	return nil
}

// GetScheduledTask returns one task record by ID.
func (s *TimelineService) GetScheduledTask(taskID string) (*ScheduledTaskRecord, error) {
	row := s.db.QueryRow(`SELECT id, task_id, channel, payload, delay_ms, status, COALESCE(error_text,''),
		scheduled_at, due_at, fired_at FROM scheduled_tasks WHERE task_id = ?`, taskID)
	return scanTask(row)
}

// ListScheduledTasks returns tasks newest first, optionally filtered by status.
func (s *TimelineService) ListScheduledTasks(status string, limit int) ([]ScheduledTaskRecord, error) {
	query := `SELECT id, task_id, channel, payload, delay_ms, status, COALESCE(error_text,''),
		scheduled_at, due_at, fired_at FROM scheduled_tasks`
	args := []any{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY scheduled_at DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScheduledTaskRecord
	for rows.Next() {
		r, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// CountScheduledTasks returns task counts keyed by status.
func (s *TimelineService) CountScheduledTasks() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM scheduled_tasks GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*ScheduledTaskRecord, error) {
	var r ScheduledTaskRecord
	var firedAt sql.NullTime
	if err := row.Scan(&r.ID, &r.TaskID, &r.Channel, &r.Payload, &r.DelayMs, &r.Status, &r.ErrorText,
		&r.ScheduledAt, &r.DueAt, &firedAt); err != nil {
		return nil, err
	}
	if firedAt.Valid {
		t := firedAt.Time
		r.FiredAt = &t
	}
	return &r, nil
}
