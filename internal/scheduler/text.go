package scheduler

import "github.com/KafClaw/commander/internal/notify"

// DisplayText is the line shown to the user when a task fires.
func DisplayText(ch notify.Channel, payload string) string {
	if ch == notify.ChannelAlarm {
		return "⏰ ALARM: " + payload
	}
	return "🔔 REMINDER: " + payload
}

// VoiceLine is the sentence spoken when a task fires.
func VoiceLine(ch notify.Channel, payload string) string {
	if ch == notify.ChannelAlarm {
		return "Alarm alert. Time to " + payload
	}
	return "Reminder: " + payload
}
