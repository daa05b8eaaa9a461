package intent

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/KafClaw/commander/internal/notify"
)

const (
	playPrefix     = "play "
	playRandom     = "play random song"
	reminderPrefix = "remind me"
	alarmPrefix    = "alarm"
	openPrefix     = "open"
)

var (
	reminderRe = regexp.MustCompile(`remind me in (\d+)\s*(second|seconds|minute|minutes) to (.+)`)
	alarmRe    = regexp.MustCompile(`alarm in (\d+)\s*(second|seconds|minute|minutes) (.+)`)
)

// Normalize lower-cases and trims an utterance.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Parse classifies a normalized utterance. Rules are tried in a fixed order
// and the first match wins.
func Parse(text string) Intent {
	if url, ok := newTabSites[text]; ok {
		return OpenNewTab{Site: siteName(text), URL: url}
	}
	if url, ok := embeddedSites[text]; ok {
		return OpenEmbedded{Site: siteName(text), URL: url}
	}
	// The exact random-song phrase is excluded here so it stays reachable.
	if text != playRandom && strings.HasPrefix(text, playPrefix) {
		if q := strings.TrimPrefix(text, playPrefix); q != "" {
			return PlayMedia{Query: q}
		}
	}
	if text == playRandom {
		return PlayRandomMedia{}
	}
	if strings.HasPrefix(text, reminderPrefix) {
		secs, payload, ok := extract(reminderRe, text)
		if !ok {
			return Unrecognized{For: notify.ChannelReminder}
		}
		return ScheduleReminder{DelaySeconds: secs, Payload: payload}
	}
	if strings.HasPrefix(text, alarmPrefix) {
		secs, payload, ok := extract(alarmRe, text)
		if !ok {
			return Unrecognized{For: notify.ChannelAlarm}
		}
		return ScheduleAlarm{DelaySeconds: secs, Payload: payload}
	}
	return FreeformChat{Text: text}
}

// maxDelaySeconds keeps DelaySeconds convertible to a time.Duration.
const maxDelaySeconds = math.MaxInt64 / int64(1e9)

func extract(re *regexp.Regexp, text string) (int64, string, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, "", false
	}
	amount, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, "", false
	}
	if strings.HasPrefix(m[2], "minute") {
		if amount > maxDelaySeconds/60 {
			return 0, "", false
		}
		amount *= 60
	}
	if amount > maxDelaySeconds {
		return 0, "", false
	}
	return amount, m[3], true
}

// siteName strips the leading "open" token from a table key.
func siteName(key string) string {
	return strings.TrimSpace(strings.TrimPrefix(key, openPrefix))
}
