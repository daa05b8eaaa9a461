// Package dispatch turns a classified intent into the reply sent to the client.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/KafClaw/commander/internal/intent"
	"github.com/KafClaw/commander/internal/media"
	"github.com/KafClaw/commander/internal/notify"
)

// Format errors returned for reminder and alarm utterances that do not fit
// the "<amount> <unit>" grammar.
const (
	ReminderFormatError = "Format error. Example: remind me in 1 minute to drink water"
	AlarmFormatError    = "Format error. Example: alarm in 1 minute wake up"
)

const schedulerUnavailable = "Scheduler unavailable. Please try again."

// Completer answers freeform chat.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Synthesizer turns reply text into a voice handle.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

// Scheduler registers deferred reminders and alarms.
type Scheduler interface {
	Schedule(delay time.Duration, payload string, channel notify.Channel) (string, error)
}

// ChatResponse is the reply to one utterance. At most one of IFrame and
// NewTab is set.
type ChatResponse struct {
	Reply  string `json:"reply"`
	IFrame string `json:"iframe"`
	NewTab string `json:"new_tab"`
	Voice  string `json:"voice"`
}

// Options configures a Dispatcher. Zero values fall back to defaults.
type Options struct {
	PersonaTag   string        // Prefix for chat replies, e.g. "ELON: ".
	OfflineReply string        // Chat reply used when completion fails.
	DefaultSongs []string      // Pool for "play random song".
	WebBase      string        // Video site base for search-page fallbacks.
	MaxDelay     time.Duration // Longest accepted reminder delay; 0 disables the cap.
	Timeout      time.Duration // Budget for each external capability call.
	Intn         func(n int) int
}

// Dispatcher routes intents to their handlers.
type Dispatcher struct {
	completer Completer
	searcher  media.Searcher
	synth     Synthesizer
	scheduler Scheduler
	opts      Options
}

// New creates a Dispatcher. Any collaborator may be nil; the matching
// intents then take their fallback path.
func New(completer Completer, searcher media.Searcher, synth Synthesizer, scheduler Scheduler, opts Options) *Dispatcher {
	if opts.OfflineReply == "" {
		opts.OfflineReply = "AI offline. Please try again."
	}
	if len(opts.DefaultSongs) == 0 {
		opts.DefaultSongs = []string{"kesariya", "rocket man"}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.Intn == nil {
		opts.Intn = rand.IntN
	}
	return &Dispatcher{
		completer: completer,
		searcher:  searcher,
		synth:     synth,
		scheduler: scheduler,
		opts:      opts,
	}
}

// Handle normalizes, parses and dispatches a raw utterance.
func (d *Dispatcher) Handle(ctx context.Context, raw string) (ChatResponse, intent.Intent, error) {
	in := intent.Parse(intent.Normalize(raw))
	resp, err := d.Dispatch(ctx, in)
	return resp, in, err
}

// Dispatch produces the reply for in and synthesizes its voice line. The
// only error is ctx being done; capability failures become fallback replies.
func (d *Dispatcher) Dispatch(ctx context.Context, in intent.Intent) (ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return ChatResponse{}, err
	}

	var resp ChatResponse
	switch v := in.(type) {
	case intent.OpenNewTab:
		resp = ChatResponse{Reply: "Opening " + d.titleCase(v.Site), NewTab: v.URL}
	case intent.OpenEmbedded:
		resp = ChatResponse{Reply: "Opening " + d.titleCase(v.Site), IFrame: v.URL}
	case intent.PlayMedia:
		resp = d.play(ctx, v.Query)
	case intent.PlayRandomMedia:
		songs := d.opts.DefaultSongs
		resp = d.play(ctx, songs[d.opts.Intn(len(songs))])
	case intent.ScheduleReminder:
		resp = d.schedule(v, "Reminder set for ")
	case intent.ScheduleAlarm:
		resp = d.schedule(v, "Alarm set for ")
	case intent.Unrecognized:
		resp = ChatResponse{Reply: formatError(v.For)}
	case intent.FreeformChat:
		resp = ChatResponse{Reply: d.chat(ctx, v.Text)}
	default:
		return ChatResponse{}, fmt.Errorf("unhandled intent %T", in)
	}

	resp.Voice = d.speak(ctx, resp.Reply)
	return resp, nil
}

// titleCase upper-cases the first letter of each word. A Caser keeps state,
// so one is built per call.
func (d *Dispatcher) titleCase(s string) string {
	return cases.Title(language.Und).String(s)
}

func formatError(ch notify.Channel) string {
	if ch == notify.ChannelAlarm {
		return AlarmFormatError
	}
	return ReminderFormatError
}

func (d *Dispatcher) play(ctx context.Context, query string) ChatResponse {
	title := d.titleCase(query)
	if d.searcher != nil {
		cctx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
		found, err := d.searcher.SearchFirstVideo(cctx, query)
		cancel()
		switch {
		case err == nil && found != "":
			return ChatResponse{Reply: "Playing " + title, NewTab: media.WithAutoplay(found)}
		case err != nil && !errors.Is(err, media.ErrNoResults):
			slog.Warn("Media search failed", "query", query, "error", err)
		}
	}
	return ChatResponse{
		Reply:  "Playing " + title + " (search page)",
		NewTab: media.SearchPageURL(d.opts.WebBase, query),
	}
}

func (d *Dispatcher) schedule(task intent.Scheduled, replyPrefix string) ChatResponse {
	if d.opts.MaxDelay > 0 && task.Delay() > d.opts.MaxDelay {
		slog.Info("Scheduled task rejected: delay above cap", "channel", task.Channel(), "delay", task.Delay(), "max", d.opts.MaxDelay)
		return ChatResponse{Reply: formatError(task.Channel())}
	}
	if d.scheduler == nil {
		return ChatResponse{Reply: schedulerUnavailable}
	}
	if _, err := d.scheduler.Schedule(task.Delay(), task.Text(), task.Channel()); err != nil {
		slog.Error("Schedule failed", "channel", task.Channel(), "error", err)
		return ChatResponse{Reply: schedulerUnavailable}
	}
	return ChatResponse{Reply: replyPrefix + task.Text()}
}

func (d *Dispatcher) chat(ctx context.Context, text string) string {
	if d.completer != nil {
		cctx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
		answer, err := d.completer.Complete(cctx, text)
		cancel()
		answer = strings.TrimSpace(answer)
		if err == nil && answer != "" {
			return d.opts.PersonaTag + answer
		}
		if err != nil {
			slog.Warn("Chat completion failed", "error", err)
		}
	}
	return d.opts.PersonaTag + d.opts.OfflineReply
}

// speak synthesizes reply. Failure leaves the voice handle empty.
func (d *Dispatcher) speak(ctx context.Context, reply string) string {
	if d.synth == nil {
		return ""
	}
	cctx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
	defer cancel()
	handle, err := d.synth.Synthesize(cctx, reply)
	if err != nil {
		slog.Warn("Reply synthesis failed", "error", err)
		return ""
	}
	return handle
}
