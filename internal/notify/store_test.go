package notify

import (
	"fmt"
	"sync"
	"testing"
)

func TestDrainEmptyChannel(t *testing.T) {
	s := NewStore(0)
	if _, ok := s.DrainOne(ChannelReminder); ok {
		t.Fatal("expected empty drain on fresh store")
	}
}

func TestDrainIsFIFOAndAtMostOnce(t *testing.T) {
	s := NewStore(0)
	s.Append(ChannelAlarm, Event{Text: "first"})
	s.Append(ChannelAlarm, Event{Text: "second"})

	evt, ok := s.DrainOne(ChannelAlarm)
	if !ok || evt.Text != "first" {
		t.Fatalf("first drain = %+v, %v; want first", evt, ok)
	}
	evt, ok = s.DrainOne(ChannelAlarm)
	if !ok || evt.Text != "second" {
		t.Fatalf("second drain = %+v, %v; want second", evt, ok)
	}
	if _, ok := s.DrainOne(ChannelAlarm); ok {
		t.Fatal("third drain should be empty")
	}
}

func TestChannelsAreIndependent(t *testing.T) {
	s := NewStore(0)
	s.Append(ChannelReminder, Event{Text: "r"})

	if _, ok := s.DrainOne(ChannelAlarm); ok {
		t.Fatal("alarm channel should not see reminder events")
	}
	if s.Len(ChannelReminder) != 1 {
		t.Fatalf("reminder len = %d, want 1", s.Len(ChannelReminder))
	}
}

func TestMaxDepthDropsOldest(t *testing.T) {
	s := NewStore(2)
	for i := 0; i < 4; i++ {
		s.Append(ChannelReminder, Event{Text: fmt.Sprintf("e%d", i)})
	}
	if s.Len(ChannelReminder) != 2 {
		t.Fatalf("len = %d, want 2", s.Len(ChannelReminder))
	}
	if s.Dropped(ChannelReminder) != 2 {
		t.Fatalf("dropped = %d, want 2", s.Dropped(ChannelReminder))
	}
	evt, _ := s.DrainOne(ChannelReminder)
	if evt.Text != "e2" {
		t.Fatalf("oldest surviving = %q, want e2", evt.Text)
	}
}

func TestConcurrentDrainNeverDoubleDelivers(t *testing.T) {
	const n = 500
	s := NewStore(0)
	for i := 0; i < n; i++ {
		s.Append(ChannelReminder, Event{TaskID: fmt.Sprintf("t%d", i)})
	}

	var (
		mu   sync.Mutex
		seen = make(map[string]int)
		wg   sync.WaitGroup
	)
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				evt, ok := s.DrainOne(ChannelReminder)
				if !ok {
					return
				}
				mu.Lock()
				seen[evt.TaskID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != n {
		t.Fatalf("delivered %d distinct events, want %d", len(seen), n)
	}
	for id, c := range seen {
		if c != 1 {
			t.Fatalf("event %s delivered %d times", id, c)
		}
	}
}

func TestParseChannel(t *testing.T) {
	cases := map[string]Channel{
		"reminder":  ChannelReminder,
		"reminders": ChannelReminder,
		"Alarms":    ChannelAlarm,
		" alarm ":   ChannelAlarm,
	}
	for in, want := range cases {
		got, err := ParseChannel(in)
		if err != nil || got != want {
			t.Errorf("ParseChannel(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseChannel("timer"); err == nil {
		t.Error("expected error for unknown channel")
	}
}

func TestHasVoiceTracksUndeliveredEvents(t *testing.T) {
	s := NewStore(0)
	s.Append(ChannelReminder, Event{Text: "r", Voice: "/static/voice/r.mp3"})
	s.Append(ChannelAlarm, Event{Text: "a", Voice: "/static/voice/a.mp3"})

	if !s.HasVoice("/static/voice/r.mp3") || !s.HasVoice("/static/voice/a.mp3") {
		t.Fatal("queued handles should be reported")
	}
	if s.HasVoice("") {
		t.Fatal("empty handle is never in use")
	}

	s.DrainOne(ChannelReminder)
	if s.HasVoice("/static/voice/r.mp3") {
		t.Fatal("delivered handle should no longer be reported")
	}
	if !s.HasVoice("/static/voice/a.mp3") {
		t.Fatal("alarm handle still queued")
	}
}
