// Package intent classifies a normalized utterance into one of a fixed set of intents.
package intent

import (
	"time"

	"github.com/KafClaw/commander/internal/notify"
)

// Kind names an intent variant.
type Kind string

const (
	KindOpenNewTab       Kind = "open_new_tab"
	KindOpenEmbedded     Kind = "open_embedded"
	KindPlayMedia        Kind = "play_media"
	KindPlayRandomMedia  Kind = "play_random_media"
	KindScheduleReminder Kind = "schedule_reminder"
	KindScheduleAlarm    Kind = "schedule_alarm"
	KindUnrecognized     Kind = "unrecognized"
	KindFreeformChat     Kind = "freeform_chat"
)

// Intent is the closed set of classified utterances. Only types in this
// package implement it.
type Intent interface {
	Kind() Kind
	isIntent()
}

// Scheduled is implemented by intents that register a deferred task.
type Scheduled interface {
	Intent
	Channel() notify.Channel
	Delay() time.Duration
	Text() string
}

// OpenNewTab opens a site in a new browser tab.
type OpenNewTab struct {
	Site string
	URL  string
}

// OpenEmbedded opens a site inside the page's iframe.
type OpenEmbedded struct {
	Site string
	URL  string
}

// PlayMedia plays the first video found for Query.
type PlayMedia struct {
	Query string
}

// PlayRandomMedia plays one of the default songs.
type PlayRandomMedia struct{}

// ScheduleReminder fires a reminder after DelaySeconds.
type ScheduleReminder struct {
	DelaySeconds int64
	Payload      string
}

// ScheduleAlarm fires an alarm after DelaySeconds.
type ScheduleAlarm struct {
	DelaySeconds int64
	Payload      string
}

// Unrecognized is produced when a reminder or alarm utterance does not fit
// the expected grammar.
type Unrecognized struct {
	For notify.Channel
}

// FreeformChat is anything else; it is answered by the chat model.
type FreeformChat struct {
	Text string
}

func (OpenNewTab) Kind() Kind       { return KindOpenNewTab }
func (OpenEmbedded) Kind() Kind     { return KindOpenEmbedded }
func (PlayMedia) Kind() Kind        { return KindPlayMedia }
func (PlayRandomMedia) Kind() Kind  { return KindPlayRandomMedia }
func (ScheduleReminder) Kind() Kind { return KindScheduleReminder }
func (ScheduleAlarm) Kind() Kind    { return KindScheduleAlarm }
func (Unrecognized) Kind() Kind     { return KindUnrecognized }
func (FreeformChat) Kind() Kind     { return KindFreeformChat }

func (OpenNewTab) isIntent()       {}
func (OpenEmbedded) isIntent()     {}
func (PlayMedia) isIntent()        {}
func (PlayRandomMedia) isIntent()  {}
func (ScheduleReminder) isIntent() {}
func (ScheduleAlarm) isIntent()    {}
func (Unrecognized) isIntent()     {}
func (FreeformChat) isIntent()     {}

func (ScheduleReminder) Channel() notify.Channel { return notify.ChannelReminder }
func (i ScheduleReminder) Delay() time.Duration  { return time.Duration(i.DelaySeconds) * time.Second }
func (i ScheduleReminder) Text() string          { return i.Payload }

func (ScheduleAlarm) Channel() notify.Channel { return notify.ChannelAlarm }
func (i ScheduleAlarm) Delay() time.Duration  { return time.Duration(i.DelaySeconds) * time.Second }
func (i ScheduleAlarm) Text() string          { return i.Payload }
