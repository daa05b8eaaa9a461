package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/KafClaw/commander/internal/intent"
	"github.com/KafClaw/commander/internal/media"
	"github.com/KafClaw/commander/internal/notify"
	"github.com/KafClaw/commander/internal/provider"
)

type fakeSynth struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeSynth) Synthesize(_ context.Context, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, text)
	if f.err != nil {
		return "", f.err
	}
	return "/static/voice/clip.mp3", nil
}

type fakeSearcher struct {
	url     string
	err     error
	queries []string
}

func (f *fakeSearcher) SearchFirstVideo(_ context.Context, query string) (string, error) {
	f.queries = append(f.queries, query)
	return f.url, f.err
}

type scheduledCall struct {
	delay   time.Duration
	payload string
	channel notify.Channel
}

type fakeScheduler struct {
	calls []scheduledCall
	err   error
}

func (f *fakeScheduler) Schedule(delay time.Duration, payload string, channel notify.Channel) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.calls = append(f.calls, scheduledCall{delay, payload, channel})
	return "task-1", nil
}

type completerFunc func(ctx context.Context, prompt string) (string, error)

func (f completerFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func newTestDispatcher(c Completer, s media.Searcher, synth Synthesizer, sched Scheduler) *Dispatcher {
	return New(c, s, synth, sched, Options{
		PersonaTag: "ELON: ",
		MaxDelay:   24 * time.Hour,
	})
}

func TestDispatchSiteTables(t *testing.T) {
	d := newTestDispatcher(nil, nil, &fakeSynth{}, nil)
	ctx := context.Background()

	for key, url := range intent.NewTabSites() {
		resp, _, err := d.Handle(ctx, key)
		if err != nil {
			t.Fatalf("%q: %v", key, err)
		}
		if resp.NewTab != url || resp.IFrame != "" {
			t.Errorf("%q: expected new tab %q only, got %+v", key, url, resp)
		}
	}
	for key, url := range intent.EmbeddedSites() {
		resp, _, err := d.Handle(ctx, key)
		if err != nil {
			t.Fatalf("%q: %v", key, err)
		}
		if resp.IFrame != url || resp.NewTab != "" {
			t.Errorf("%q: expected iframe %q only, got %+v", key, url, resp)
		}
	}
}

func TestDispatchOpenReplyTitle(t *testing.T) {
	d := newTestDispatcher(nil, nil, &fakeSynth{}, nil)
	tests := map[string]string{
		"open google":          "Opening Google",
		"  Open Share Market ": "Opening Share Market",
		"open tradingview":     "Opening Tradingview",
	}
	for in, want := range tests {
		resp, _, err := d.Handle(context.Background(), in)
		if err != nil {
			t.Fatal(err)
		}
		if resp.Reply != want {
			t.Errorf("%q: expected %q, got %q", in, want, resp.Reply)
		}
		if resp.Voice != "/static/voice/clip.mp3" {
			t.Errorf("%q: expected voice handle, got %q", in, resp.Voice)
		}
	}
}

func TestDispatchOpenIsIdempotent(t *testing.T) {
	d := newTestDispatcher(nil, nil, &fakeSynth{}, nil)
	in := intent.Parse("open github")
	first, err := d.Dispatch(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	second, err := d.Dispatch(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatalf("expected identical responses, got %+v and %+v", first, second)
	}
}

func TestDispatchFormatErrors(t *testing.T) {
	sched := &fakeScheduler{}
	d := newTestDispatcher(nil, nil, &fakeSynth{}, sched)
	tests := map[string]string{
		"remind me tomorrow":         ReminderFormatError,
		"remind me in 5 hours to go": ReminderFormatError,
		"alarm at 7":                 AlarmFormatError,
		"alarm in one minute wake":   AlarmFormatError,
	}
	for in, want := range tests {
		resp, _, err := d.Handle(context.Background(), in)
		if err != nil {
			t.Fatal(err)
		}
		if resp.Reply != want {
			t.Errorf("%q: expected %q, got %q", in, want, resp.Reply)
		}
		if resp.NewTab != "" || resp.IFrame != "" {
			t.Errorf("%q: unexpected navigation %+v", in, resp)
		}
	}
	if len(sched.calls) != 0 {
		t.Fatalf("nothing should be scheduled, got %v", sched.calls)
	}
}

func TestDispatchSchedulesReminderAndAlarm(t *testing.T) {
	sched := &fakeScheduler{}
	d := newTestDispatcher(nil, nil, &fakeSynth{}, sched)

	resp, _, err := d.Handle(context.Background(), "remind me in 2 minutes to call mom")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Reply != "Reminder set for call mom" {
		t.Fatalf("unexpected reply %q", resp.Reply)
	}
	resp, _, err = d.Handle(context.Background(), "alarm in 30 seconds wake up")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Reply != "Alarm set for wake up" || resp.NewTab != "" || resp.IFrame != "" {
		t.Fatalf("unexpected response %+v", resp)
	}

	want := []scheduledCall{
		{2 * time.Minute, "call mom", notify.ChannelReminder},
		{30 * time.Second, "wake up", notify.ChannelAlarm},
	}
	if len(sched.calls) != len(want) {
		t.Fatalf("expected %d scheduled calls, got %v", len(want), sched.calls)
	}
	for i := range want {
		if sched.calls[i] != want[i] {
			t.Errorf("call %d: expected %+v, got %+v", i, want[i], sched.calls[i])
		}
	}
}

func TestDispatchDelayCap(t *testing.T) {
	sched := &fakeScheduler{}
	d := New(nil, nil, nil, sched, Options{MaxDelay: time.Minute})

	resp, err := d.Dispatch(context.Background(), intent.ScheduleReminder{DelaySeconds: 61, Payload: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Reply != ReminderFormatError {
		t.Fatalf("expected format error, got %q", resp.Reply)
	}
	resp, _ = d.Dispatch(context.Background(), intent.ScheduleAlarm{DelaySeconds: 60, Payload: "y"})
	if resp.Reply != "Alarm set for y" {
		t.Fatalf("delay at the cap should be accepted, got %q", resp.Reply)
	}
	if len(sched.calls) != 1 {
		t.Fatalf("expected one scheduled call, got %v", sched.calls)
	}
}

func TestDispatchSchedulerFailure(t *testing.T) {
	d := newTestDispatcher(nil, nil, nil, &fakeScheduler{err: errors.New("closed")})
	resp, err := d.Dispatch(context.Background(), intent.ScheduleReminder{DelaySeconds: 1, Payload: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Reply != schedulerUnavailable {
		t.Fatalf("unexpected reply %q", resp.Reply)
	}
}

func TestDispatchPlaySearchSuccess(t *testing.T) {
	search := &fakeSearcher{url: "https://www.youtube.com/watch?v=abc"}
	d := newTestDispatcher(nil, search, &fakeSynth{}, nil)

	resp, _, err := d.Handle(context.Background(), "play rocket man")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Reply != "Playing Rocket Man" {
		t.Fatalf("unexpected reply %q", resp.Reply)
	}
	if resp.NewTab != "https://www.youtube.com/watch?v=abc&autoplay=1" || resp.IFrame != "" {
		t.Fatalf("unexpected navigation %+v", resp)
	}
	if len(search.queries) != 1 || search.queries[0] != "rocket man" {
		t.Fatalf("unexpected queries %v", search.queries)
	}
}

func TestDispatchPlaySearchFailure(t *testing.T) {
	for name, search := range map[string]*fakeSearcher{
		"error":      {err: errors.New("boom")},
		"no results": {err: media.ErrNoResults},
		"empty":      {},
	} {
		t.Run(name, func(t *testing.T) {
			d := newTestDispatcher(nil, search, &fakeSynth{}, nil)
			resp, _, err := d.Handle(context.Background(), "play unknown xyz")
			if err != nil {
				t.Fatal(err)
			}
			if !strings.HasSuffix(resp.Reply, "(search page)") {
				t.Fatalf("unexpected reply %q", resp.Reply)
			}
			if resp.NewTab != "https://www.youtube.com/results?search_query=unknown%20xyz" {
				t.Fatalf("unexpected fallback url %q", resp.NewTab)
			}
			if resp.IFrame != "" {
				t.Fatalf("iframe should stay empty, got %q", resp.IFrame)
			}
		})
	}
}

func TestDispatchPlayRandom(t *testing.T) {
	search := &fakeSearcher{err: errors.New("offline")}
	d := New(nil, search, nil, nil, Options{
		DefaultSongs: []string{"kesariya", "rocket man"},
		Intn:         func(n int) int { return n - 1 },
	})

	resp, _, err := d.Handle(context.Background(), "play random song")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Reply != "Playing Rocket Man (search page)" {
		t.Fatalf("unexpected reply %q", resp.Reply)
	}
	if len(search.queries) != 1 || search.queries[0] != "rocket man" {
		t.Fatalf("unexpected queries %v", search.queries)
	}
}

func TestDispatchFreeformChat(t *testing.T) {
	var prompt string
	c := completerFunc(func(_ context.Context, p string) (string, error) {
		prompt = p
		return "  Mars by 2030.  ", nil
	})
	d := newTestDispatcher(c, nil, &fakeSynth{}, nil)

	resp, _, err := d.Handle(context.Background(), "When Mars?")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Reply != "ELON: Mars by 2030." {
		t.Fatalf("unexpected reply %q", resp.Reply)
	}
	if prompt != "when mars?" {
		t.Fatalf("unexpected prompt %q", prompt)
	}
}

func TestDispatchFreeformChatOffline(t *testing.T) {
	c := completerFunc(func(context.Context, string) (string, error) {
		return "", errors.New("rate limited")
	})
	d := newTestDispatcher(c, nil, &fakeSynth{}, nil)

	resp, _, err := d.Handle(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Reply != "ELON: AI offline. Please try again." {
		t.Fatalf("unexpected reply %q", resp.Reply)
	}
}

func TestDispatchSynthesizesExactlyOnce(t *testing.T) {
	synth := &fakeSynth{}
	d := newTestDispatcher(nil, nil, synth, &fakeScheduler{})

	resp, _, err := d.Handle(context.Background(), "alarm in 1 minute stand up")
	if err != nil {
		t.Fatal(err)
	}
	if len(synth.calls) != 1 || synth.calls[0] != resp.Reply {
		t.Fatalf("expected one synthesis of %q, got %v", resp.Reply, synth.calls)
	}
}

func TestDispatchSynthesisFailureIsNotFatal(t *testing.T) {
	d := newTestDispatcher(nil, nil, &fakeSynth{err: errors.New("tts down")}, nil)
	resp, _, err := d.Handle(context.Background(), "open amazon")
	if err != nil {
		t.Fatalf("synthesis failure should not fail the request: %v", err)
	}
	if resp.Reply != "Opening Amazon" || resp.Voice != "" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestDispatchCancelledContext(t *testing.T) {
	d := newTestDispatcher(nil, nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.Dispatch(ctx, intent.FreeformChat{Text: "hi"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type fakeProvider struct {
	req *provider.ChatRequest
}

func (f *fakeProvider) Chat(_ context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	f.req = req
	return &provider.ChatResponse{Content: "ok"}, nil
}

func (f *fakeProvider) Speak(context.Context, *provider.TTSRequest) (*provider.TTSResponse, error) {
	return nil, errors.New("unused")
}

func (f *fakeProvider) DefaultModel() string { return "gpt-4o-mini" }

func TestChatCompleter(t *testing.T) {
	p := &fakeProvider{}
	c := &ChatCompleter{Provider: p, SystemPrompt: "You are Elon Musk. Be concise and confident.", Temperature: 0.6}

	out, err := c.Complete(context.Background(), "hi")
	if err != nil {
		t.Fatal(err)
	}
	if out != "ok" {
		t.Fatalf("unexpected output %q", out)
	}
	if p.req.Model != "gpt-4o-mini" || p.req.Temperature != 0.6 {
		t.Fatalf("unexpected request %+v", p.req)
	}
	if len(p.req.Messages) != 2 || p.req.Messages[0].Role != "system" || p.req.Messages[1].Content != "hi" {
		t.Fatalf("unexpected messages %+v", p.req.Messages)
	}
}
