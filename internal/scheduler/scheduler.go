// Package scheduler runs one-shot reminders and alarms after a delay and
// queues their notifications for polling.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KafClaw/commander/internal/bus"
	"github.com/KafClaw/commander/internal/notify"
)

// ErrClosed is returned by Schedule after Close.
var ErrClosed = errors.New("scheduler closed")

// Synthesizer produces the voice handle for a fired notification.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

// TaskRecorder persists task lifecycle transitions (best-effort).
type TaskRecorder interface {
	InsertScheduledTask(taskID, channel, payload string, delay time.Duration, scheduledAt time.Time) error
	UpdateScheduledTask(taskID, status, errorText string, at time.Time) error
}

// Task statuses written through the TaskRecorder.
const (
	StatusScheduled = "scheduled"
	StatusFired     = "fired"
	StatusFailed    = "failed"
	StatusAbandoned = "abandoned"
)

// Task is a single deferred reminder or alarm.
type Task struct {
	ID          string
	Channel     notify.Channel
	Payload     string
	Delay       time.Duration
	ScheduledAt time.Time
}

// Config holds scheduler settings.
type Config struct {
	MaxConcurrentFires int           // Bounds simultaneous synthesis on fire.
	FireTimeout        time.Duration // Per-fire budget for synthesis.
}

// DefaultConfig returns sensible scheduler defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentFires: 4,
		FireTimeout:        30 * time.Second,
	}
}

// Scheduler owns deferred task lifetimes. Each task gets its own timer, so
// tasks never wait on each other or on the request that created them.
type Scheduler struct {
	cfg      Config
	store    *notify.Store
	synth    Synthesizer
	bus      *bus.MessageBus
	recorder TaskRecorder
	sem      *Semaphore

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
	wg     sync.WaitGroup
}

// Option configures optional collaborators.
type Option func(*Scheduler)

// WithBus publishes every fired notification to b.
func WithBus(b *bus.MessageBus) Option {
	return func(s *Scheduler) { s.bus = b }
}

// WithRecorder records task lifecycle transitions.
func WithRecorder(r TaskRecorder) Option {
	return func(s *Scheduler) { s.recorder = r }
}

// New creates a Scheduler that appends fired events to store.
func New(cfg Config, store *notify.Store, synth Synthesizer, opts ...Option) *Scheduler {
	defaults := DefaultConfig()
	if cfg.MaxConcurrentFires <= 0 {
		cfg.MaxConcurrentFires = defaults.MaxConcurrentFires
	}
	if cfg.FireTimeout <= 0 {
		cfg.FireTimeout = defaults.FireTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cfg:    cfg,
		store:  store,
		synth:  synth,
		sem:    NewSemaphore(cfg.MaxConcurrentFires),
		ctx:    ctx,
		cancel: cancel,
		timers: make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule arranges for payload to fire on channel after delay. It returns
// immediately with the task ID.
func (s *Scheduler) Schedule(delay time.Duration, payload string, channel notify.Channel) (string, error) {
	if delay < 0 {
		return "", fmt.Errorf("negative delay %v", delay)
	}
	task := Task{
		ID:          uuid.NewString(),
		Channel:     channel,
		Payload:     payload,
		Delay:       delay,
		ScheduledAt: time.Now(),
	}

	if s.isClosed() {
		return "", ErrClosed
	}
	// The recorder may be a database; it is written before the timer exists
	// and never under s.mu.
	s.record(func(r TaskRecorder) error {
		return r.InsertScheduledTask(task.ID, string(task.Channel), task.Payload, task.Delay, task.ScheduledAt)
	})

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.finish(task, StatusAbandoned, "shutdown")
		return "", ErrClosed
	}
	s.wg.Add(1)
	s.timers[task.ID] = time.AfterFunc(delay, func() { s.fire(task) })
	s.mu.Unlock()

	slog.Info("Scheduler task registered", "task", task.ID, "channel", task.Channel, "delay", delay)
	return task.ID, nil
}

// FireSlots reports free and total concurrent fire slots.
func (s *Scheduler) FireSlots() (free, total int) {
	return s.sem.Available(), s.sem.Cap()
}

func (s *Scheduler) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Pending returns the number of tasks whose timers have not fired yet.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// fire runs on the task's timer goroutine.
func (s *Scheduler) fire(task Task) {
	defer s.wg.Done()

	s.mu.Lock()
	delete(s.timers, task.ID)
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Scheduler task panicked", "task", task.ID, "panic", r)
			s.finish(task, StatusFailed, fmt.Sprintf("panic: %v", r))
		}
	}()

	if err := s.sem.Acquire(s.ctx); err != nil {
		slog.Warn("Scheduler task abandoned at shutdown", "task", task.ID, "channel", task.Channel)
		s.finish(task, StatusAbandoned, err.Error())
		return
	}
	defer s.sem.Release()

	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.FireTimeout)
	defer cancel()

	evt := notify.Event{
		TaskID:  task.ID,
		Text:    DisplayText(task.Channel, task.Payload),
		FiredAt: time.Now(),
	}

	// A missing voice line does not stop the notification from being delivered.
	errText := ""
	if s.synth != nil {
		handle, err := s.synth.Synthesize(ctx, VoiceLine(task.Channel, task.Payload))
		if err != nil {
			slog.Warn("Scheduler voice synthesis failed", "task", task.ID, "channel", task.Channel, "error", err)
			errText = "voice: " + err.Error()
		}
		evt.Voice = handle
	}

	s.store.Append(task.Channel, evt)
	slog.Info("Scheduler task fired", "task", task.ID, "channel", task.Channel, "late", time.Since(task.ScheduledAt.Add(task.Delay)))
	s.finish(task, StatusFired, errText)

	if s.bus != nil {
		n := &bus.Notification{
			TaskID:  task.ID,
			Channel: string(task.Channel),
			Text:    evt.Text,
			Voice:   evt.Voice,
			FiredAt: evt.FiredAt,
		}
		if err := s.bus.Publish(ctx, n); err != nil {
			slog.Warn("Scheduler notification not published", "task", task.ID, "error", err)
		}
	}
}

func (s *Scheduler) finish(task Task, status, errText string) {
	s.record(func(r TaskRecorder) error {
		return r.UpdateScheduledTask(task.ID, status, errText, time.Now())
	})
}

// record writes to the recorder, best-effort.
func (s *Scheduler) record(fn func(TaskRecorder) error) {
	if s.recorder == nil {
		return
	}
	if err := fn(s.recorder); err != nil {
		slog.Warn("Scheduler task record failed", "error", err)
	}
}

// Close stops accepting tasks and abandons those still waiting on their
// timers. Fires already in progress get until ctx is done to finish; after
// that their context is cancelled.
func (s *Scheduler) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	var abandoned []string
	for id, t := range s.timers {
		if t.Stop() {
			abandoned = append(abandoned, id)
		}
		delete(s.timers, id)
	}
	s.mu.Unlock()

	for _, id := range abandoned {
		s.record(func(r TaskRecorder) error {
			return r.UpdateScheduledTask(id, StatusAbandoned, "shutdown", time.Now())
		})
		s.wg.Done()
	}
	if len(abandoned) > 0 {
		slog.Info("Scheduler abandoned pending tasks", "count", len(abandoned))
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}
